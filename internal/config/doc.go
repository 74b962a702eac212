// Package config loads client configuration from a YAML file with ${VAR}
// environment expansion, or directly from CHATDOCK_* environment variables.
//
// A minimal config file:
//
//	server:
//	  socket_url: wss://chat.example.com/socket
//	  api_base_url: https://chat.example.com/api
//	auth:
//	  token: ${CHAT_TOKEN}
//
// Duration fields accept Go duration strings ("10s", "1m30s").
package config
