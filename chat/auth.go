package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated identity bound to a connection for its
// remaining lifetime
type Identity struct {
	Username string
}

// TokenVerifier validates the bearer credential a client presents when the
// socket connection is opened. Tokens are HS256 JWTs signed with the shared
// secret handed out by the signin endpoint.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for the given shared secret
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

// Verify checks signature and expiry and extracts the username claim. The
// credential may carry an optional "Bearer " prefix, matching what
// socket.io clients put in the auth handshake.
func (v *TokenVerifier) Verify(credential string) (Identity, error) {
	credential = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer"))
	if credential == "" {
		return Identity{}, ErrMissingCredential
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredCredential
		}
		return Identity{}, ErrInvalidCredential
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidCredential
	}

	username, _ := claims["username"].(string)
	if username == "" {
		username, _ = claims["sub"].(string)
	}
	if username == "" {
		return Identity{}, ErrInvalidCredential
	}
	return Identity{Username: username}, nil
}
