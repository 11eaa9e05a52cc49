package auth

import (
	"github.com/standuphq/standup-engine/internal/config"
)

// Authorizer checks that a decoded token may act on behalf of a user.
type Authorizer interface {
	// Authorize returns nil if the token may act as userID.
	Authorize(token AuthToken, userID string) error
}

// New builds the authorizer for the resolved mode. The mode is decided once
// at startup; nothing downstream re-derives it.
func New(mode config.Mode, apiKey string) Authorizer {
	return &keyAuthorizer{mode: mode, apiKey: apiKey}
}

// keyAuthorizer accepts the configured API key for any user, and dev tokens
// for their embedded user in development mode only.
type keyAuthorizer struct {
	mode   config.Mode
	apiKey string
}

func (a *keyAuthorizer) Authorize(token AuthToken, userID string) error {
	switch token.Kind {
	case KindAPIKey:
		if a.apiKey == "" || token.APIKey != a.apiKey {
			return ErrInvalidToken
		}
		return nil
	case KindDevToken:
		if a.mode != config.ModeDevelopment {
			return ErrDevTokenInProduction
		}
		if token.UserID != userID {
			return ErrInvalidToken
		}
		return nil
	default:
		return ErrInvalidToken
	}
}
