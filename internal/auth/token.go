// Package auth resolves inbound bearer tokens to a principal. Two token
// shapes exist: service API keys and dev tokens. The shape is decided by one
// dispatcher on an explicit prefix, never by trying one parser and falling
// back to the other.
package auth

import (
	"errors"
	"strings"
)

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("authentication token required")

	// ErrInvalidToken is returned when the token does not authenticate.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrDevTokenInProduction is returned when a dev token is presented
	// outside development mode.
	ErrDevTokenInProduction = errors.New("dev tokens not allowed in production")
)

// devTokenPrefix marks the development token variant.
const devTokenPrefix = "dev:"

// TokenKind discriminates the AuthToken variants.
type TokenKind int

const (
	// KindAPIKey is a configured service API key.
	KindAPIKey TokenKind = iota
	// KindDevToken is a development token of the form "dev:<userId>".
	KindDevToken
)

// AuthToken is a decoded bearer token. Exactly one interpretation applies,
// indicated by Kind.
type AuthToken struct {
	Kind TokenKind

	// APIKey holds the raw key for KindAPIKey.
	APIKey string

	// UserID holds the asserted user for KindDevToken.
	UserID string
}

// ParseToken decodes a raw bearer token into its variant. The "dev:" prefix
// selects the dev variant; everything else is an API key.
func ParseToken(raw string) (AuthToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AuthToken{}, ErrMissingToken
	}
	if user, ok := strings.CutPrefix(raw, devTokenPrefix); ok {
		if user == "" {
			return AuthToken{}, ErrInvalidToken
		}
		return AuthToken{Kind: KindDevToken, UserID: user}, nil
	}
	return AuthToken{Kind: KindAPIKey, APIKey: raw}, nil
}
