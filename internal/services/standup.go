// Package services orchestrates the standup use cases over the store,
// provider, and generation pipeline.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/standuphq/standup-engine/internal/generator"
	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/provider"
	"github.com/standuphq/standup-engine/internal/store"
	"github.com/standuphq/standup-engine/internal/vault"
)

// ActivityFetcher is the aggregation capability the service depends on.
type ActivityFetcher interface {
	FetchActivity(ctx context.Context, client provider.Client, window model.Window) (*model.Activity, error)
}

// Generator is the content generation capability the service depends on.
type Generator interface {
	Generate(ctx context.Context, activity *model.Activity, prefs model.Preferences, date model.Day, username string) generator.Result
}

// StandupService orchestrates generate and regenerate: resolve credential,
// aggregate the window, generate content, upsert into the ledger.
type StandupService struct {
	store      store.Store
	vault      *vault.Vault
	factory    provider.Factory
	aggregator ActivityFetcher
	generator  Generator
	log        zerolog.Logger
}

// NewStandupService wires the orchestrator. factory may be nil in tests that
// never reach aggregation.
func NewStandupService(s store.Store, v *vault.Vault, f provider.Factory, a ActivityFetcher, g Generator, log zerolog.Logger) *StandupService {
	return &StandupService{store: s, vault: v, factory: f, aggregator: a, generator: g, log: log}
}

// Generate produces (or replaces) the standup for the given day. It is total
// over its inputs: provider and LLM failures degrade per documented fallback
// paths, and only credential-format and storage errors propagate.
func (s *StandupService) Generate(ctx context.Context, userID string, date model.Day, prefs model.Preferences) (*model.StandupRecord, error) {
	activity, err := s.collectActivity(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return s.finishGenerate(ctx, userID, date, prefs, activity)
}

// Regenerate replays generation for an existing standup using the activity
// captured on the original record; it never re-fetches from the provider.
// The day's record is replaced in place, keeping its id.
func (s *StandupService) Regenerate(ctx context.Context, userID, standupID string, prefs model.Preferences) (*model.StandupRecord, error) {
	existing, err := s.store.Standups().Get(ctx, userID, standupID)
	if err != nil {
		return nil, err
	}
	return s.finishGenerate(ctx, userID, existing.Date, prefs, existing.RawData)
}

// List returns the user's standups, one per day, most recent first.
func (s *StandupService) List(ctx context.Context, userID string, limit, offset int) ([]*model.StandupRecord, error) {
	return s.store.Standups().List(ctx, userID, limit, offset)
}

// Get returns one standup by id, verifying ownership.
func (s *StandupService) Get(ctx context.Context, userID, standupID string) (*model.StandupRecord, error) {
	return s.store.Standups().Get(ctx, userID, standupID)
}

// FindByDate returns the user's standup for one calendar day, if any.
func (s *StandupService) FindByDate(ctx context.Context, userID string, date model.Day) (*model.StandupRecord, error) {
	return s.store.Standups().FindByDate(ctx, userID, date)
}

// Delete removes one standup by id, verifying ownership.
func (s *StandupService) Delete(ctx context.Context, userID, standupID string) error {
	return s.store.Standups().Delete(ctx, userID, standupID)
}

// collectActivity resolves the user's credential and aggregates the calendar
// day preceding date. A missing credential or an unresolvable client yields
// nil activity; only credential-format errors propagate.
func (s *StandupService) collectActivity(ctx context.Context, userID string, date model.Day) (*model.Activity, error) {
	cred, err := s.store.Credentials().FindActive(ctx, userID, model.ProviderGitHub)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	token, err := s.vault.Decrypt(cred.AccessToken)
	if err != nil {
		// Malformed or undecryptable ciphertext is fatal for this
		// credential's use and must reach the caller.
		return nil, fmt.Errorf("decrypt credential for user %s: %w", userID, err)
	}

	client := s.factory(cred, token)
	activity, err := s.aggregator.FetchActivity(ctx, client, model.PrecedingWindow(date))
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("date", string(date)).
			Msg("activity aggregation failed; generating without activity")
		return nil, nil
	}

	if activity != nil {
		if err := s.store.Credentials().MarkSynced(ctx, userID, model.ProviderGitHub, time.Now().UTC()); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("could not record credential sync time")
		}
	}
	return activity, nil
}

// finishGenerate runs the generation branch and upserts the day's record.
func (s *StandupService) finishGenerate(ctx context.Context, userID string, date model.Day, prefs model.Preferences, activity *model.Activity) (*model.StandupRecord, error) {
	var (
		content string
		meta    model.GenerationMetadata
	)
	if activity.IsEmpty() {
		// Deliberate cost-saving branch: no activity means no LLM call.
		content = fmt.Sprintf("No activity found for %s.", date)
		meta = model.GenerationMetadata{Source: model.SourceNone, GeneratedAt: time.Now().UTC()}
	} else {
		res := s.generator.Generate(ctx, activity, prefs, date, activity.Username)
		content = res.Content
		meta = res.Metadata
	}

	return s.store.Standups().Upsert(ctx, store.UpsertStandup{
		UserID:      userID,
		Date:        date,
		Content:     content,
		RawData:     activity,
		Preferences: prefs,
		Metadata:    meta,
	})
}
