// Package identity resolves who this client sends as, from the configured
// auth token or as an anonymous guest.
package identity
