// ABOUTME: Extracts the client's own user identity from the configured JWT
// ABOUTME: Claims are read unverified; signature verification is the server's job

package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingClaim = errors.New("missing required claim")
)

// Identity is who this client sends as. Optimistic inserts carry these
// fields so the local view matches what the server will attribute.
type Identity struct {
	UserID string
	Name   string
}

// FromToken extracts the user id ("sub" claim) and display name ("name"
// claim, optional) from a JWT. The token is parsed without verification:
// the client holds no signing secret; the server rejects forgeries.
func FromToken(token string) (Identity, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	id := Identity{UserID: sub}
	if name, ok := claims["name"].(string); ok {
		id.Name = name
	}
	return id, nil
}

// Anonymous creates a throwaway identity for tokenless use. The user id is
// random per process; the server treats such clients as guests.
func Anonymous(name string) Identity {
	return Identity{
		UserID: "guest-" + uuid.New().String(),
		Name:   name,
	}
}
