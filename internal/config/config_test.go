// ABOUTME: Tests for configuration loading
// ABOUTME: Covers YAML parsing, env expansion, env-only loading, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatdock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ParsesFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  socket_url: wss://chat.example.com/socket
  api_base_url: https://chat.example.com/api
auth:
  token: abc123
  display_name: Alice
history:
  page_size: 25
  request_timeout: 10s
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://chat.example.com/socket", cfg.Server.SocketURL)
	assert.Equal(t, "https://chat.example.com/api", cfg.Server.APIBaseURL)
	assert.Equal(t, "abc123", cfg.Auth.Token)
	assert.Equal(t, "Alice", cfg.Auth.DisplayName)
	assert.Equal(t, 25, cfg.History.PageSize)
	assert.Equal(t, 10*time.Second, cfg.History.RequestTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_CHAT_TOKEN", "from-env")

	path := writeConfig(t, `
server:
  socket_url: wss://chat.example.com/socket
  api_base_url: https://chat.example.com/api
auth:
  token: ${TEST_CHAT_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.Token)
}

func TestLoad_UnsetVariableExpandsEmpty(t *testing.T) {
	path := writeConfig(t, `
server:
  socket_url: wss://chat.example.com/socket
  api_base_url: https://chat.example.com/api
auth:
  token: ${DEFINITELY_NOT_SET_ANYWHERE_12345}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.Token)
}

func TestLoad_RequiresSocketURL(t *testing.T) {
	path := writeConfig(t, `
server:
  api_base_url: https://chat.example.com/api
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "socket_url")
}

func TestLoad_RequiresAPIBaseURL(t *testing.T) {
	path := writeConfig(t, `
server:
  socket_url: wss://chat.example.com/socket
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_base_url")
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  socket_url: wss://chat.example.com/socket
  api_base_url: https://chat.example.com/api
history:
  request_timeout: not-a-duration
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request_timeout")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFromEnv_BuildsConfig(t *testing.T) {
	t.Setenv("CHATDOCK_SOCKET_URL", "wss://chat.example.com/socket")
	t.Setenv("CHATDOCK_API_BASE_URL", "https://chat.example.com/api")
	t.Setenv("CHATDOCK_TOKEN", "env-token")
	t.Setenv("CHATDOCK_HISTORY_PAGE_SIZE", "30")
	t.Setenv("CHATDOCK_HISTORY_REQUEST_TIMEOUT", "15s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "wss://chat.example.com/socket", cfg.Server.SocketURL)
	assert.Equal(t, "env-token", cfg.Auth.Token)
	assert.Equal(t, 30, cfg.History.PageSize)
	assert.Equal(t, 15*time.Second, cfg.History.RequestTimeout)
}

func TestFromEnv_StillValidates(t *testing.T) {
	t.Setenv("CHATDOCK_SOCKET_URL", "")
	t.Setenv("CHATDOCK_API_BASE_URL", "")

	_, err := FromEnv()
	assert.Error(t, err)
}
