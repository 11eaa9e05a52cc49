package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/provider"
	"github.com/standuphq/standup-engine/internal/store"
	"github.com/standuphq/standup-engine/internal/vault"
)

// ConnectRequest carries the plaintext material for a new provider
// connection. Tokens are encrypted before they reach the store.
type ConnectRequest struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Metadata     map[string]string
}

// IntegrationService manages provider credentials: connect, list,
// disconnect, and verification.
type IntegrationService struct {
	store   store.Store
	vault   *vault.Vault
	factory provider.Factory
	log     zerolog.Logger
}

func NewIntegrationService(s store.Store, v *vault.Vault, f provider.Factory, log zerolog.Logger) *IntegrationService {
	return &IntegrationService{store: s, vault: v, factory: f, log: log}
}

// Connect encrypts the supplied tokens and creates or replaces the user's
// credential for the provider.
func (s *IntegrationService) Connect(ctx context.Context, req ConnectRequest) (*model.Credential, error) {
	if req.UserID == "" || req.Provider == "" || req.AccessToken == "" {
		return nil, fmt.Errorf("%w: userId, provider and accessToken are required", model.ErrValidation)
	}

	encToken, err := s.vault.Encrypt(req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	cred := &model.Credential{
		CredentialID: uuid.NewString(),
		UserID:       req.UserID,
		Provider:     req.Provider,
		AccessToken:  encToken,
		ExpiresAt:    req.ExpiresAt,
		Metadata:     req.Metadata,
		IsActive:     true,
	}
	if req.RefreshToken != "" {
		encRefresh, err := s.vault.Encrypt(req.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		cred.RefreshToken = &encRefresh
	}

	return s.store.Credentials().Upsert(ctx, cred)
}

// List returns the user's credentials, token fields still ciphertext.
func (s *IntegrationService) List(ctx context.Context, userID string) ([]*model.Credential, error) {
	return s.store.Credentials().List(ctx, userID)
}

// Disconnect removes the user's credential for the provider.
func (s *IntegrationService) Disconnect(ctx context.Context, userID, providerType string) error {
	return s.store.Credentials().Delete(ctx, userID, providerType)
}

// Verify checks that the stored credential still authenticates against the
// provider. A failing credential is deactivated, never deleted.
func (s *IntegrationService) Verify(ctx context.Context, userID, providerType string) error {
	cred, err := s.store.Credentials().FindActive(ctx, userID, providerType)
	if err != nil {
		return err
	}
	token, err := s.vault.Decrypt(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("decrypt credential for user %s: %w", userID, err)
	}

	client := s.factory(cred, token)
	if client == nil {
		return s.deactivate(ctx, userID, providerType, fmt.Errorf("credential cannot be resolved to a client"))
	}
	if _, err := client.ListRepositories(ctx); err != nil {
		return s.deactivate(ctx, userID, providerType, err)
	}
	return s.store.Credentials().MarkSynced(ctx, userID, providerType, time.Now().UTC())
}

func (s *IntegrationService) deactivate(ctx context.Context, userID, providerType string, cause error) error {
	s.log.Warn().Err(cause).Str("user_id", userID).Str("provider", providerType).
		Msg("credential verification failed; deactivating")
	if err := s.store.Credentials().Deactivate(ctx, userID, providerType); err != nil {
		return err
	}
	return fmt.Errorf("credential verification failed: %w", cause)
}
