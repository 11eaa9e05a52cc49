// Package memory provides an in-memory store.Store. It is the reference
// implementation of the atomic per-day upsert contract and the default
// backend for tests and development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/store"
)

// New returns an empty in-memory store.
func New() store.Store {
	s := &memStore{
		standups:    make(map[dayKey]*model.StandupRecord),
		byID:        make(map[string]dayKey),
		credentials: make(map[credKey]*model.Credential),
		now:         func() time.Time { return time.Now().UTC() },
	}
	return s
}

// NewWithClock returns a store with an injected clock, for deterministic tests.
func NewWithClock(now func() time.Time) store.Store {
	s := New().(*memStore)
	s.now = now
	return s
}

type dayKey struct {
	userID string
	date   model.Day
}

type credKey struct {
	userID   string
	provider string
}

type memStore struct {
	mu          sync.Mutex
	standups    map[dayKey]*model.StandupRecord
	byID        map[string]dayKey
	credentials map[credKey]*model.Credential
	now         func() time.Time
}

func (s *memStore) Standups() store.Standups       { return (*standups)(s) }
func (s *memStore) Credentials() store.Credentials { return (*credentials)(s) }

// HealthPing implements health.HealthPinger; the in-memory store is always up.
func (s *memStore) HealthPing(ctx context.Context) error { return nil }

// --- Standups ---

type standups memStore

// Upsert holds the store mutex across the read-modify-write, so concurrent
// upserts for the same key serialize and no increment is lost.
func (s *standups) Upsert(ctx context.Context, u store.UpsertStandup) (*model.StandupRecord, error) {
	if u.UserID == "" || u.Date == "" {
		return nil, fmt.Errorf("userID and date are required: %w", model.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey{userID: u.UserID, date: u.Date}
	rec, ok := s.standups[key]
	if !ok {
		rec = &model.StandupRecord{
			ID:     uuid.New().String(),
			UserID: u.UserID,
			Date:   u.Date,
		}
		s.standups[key] = rec
		s.byID[rec.ID] = key
	} else {
		rec.ReplacedCount++
	}
	rec.Content = u.Content
	rec.RawData = u.RawData
	rec.Preferences = u.Preferences
	rec.Metadata = u.Metadata
	rec.GeneratedAt = s.now()

	out := *rec
	return &out, nil
}

func (s *standups) List(ctx context.Context, userID string, limit, offset int) ([]*model.StandupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []*model.StandupRecord
	for _, rec := range s.standups {
		if rec.UserID == userID {
			out := *rec
			rows = append(rows, &out)
		}
	}
	return store.Page(store.CollapseByDay(rows), limit, offset), nil
}

func (s *standups) FindByDate(ctx context.Context, userID string, date model.Day) (*model.StandupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.standups[dayKey{userID: userID, date: date}]
	if !ok {
		return nil, fmt.Errorf("standup for %s: %w", date, model.ErrNotFound)
	}
	out := *rec
	return &out, nil
}

func (s *standups) Get(ctx context.Context, userID, standupID string) (*model.StandupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[standupID]
	if !ok || key.userID != userID {
		return nil, fmt.Errorf("standup %s: %w", standupID, model.ErrNotFound)
	}
	out := *s.standups[key]
	return &out, nil
}

func (s *standups) Delete(ctx context.Context, userID, standupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[standupID]
	if !ok || key.userID != userID {
		return fmt.Errorf("standup %s: %w", standupID, model.ErrNotFound)
	}
	delete(s.standups, key)
	delete(s.byID, standupID)
	return nil
}

// --- Credentials ---

type credentials memStore

func (s *credentials) Upsert(ctx context.Context, c *model.Credential) (*model.Credential, error) {
	if c.UserID == "" || c.Provider == "" {
		return nil, fmt.Errorf("userID and provider are required: %w", model.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credKey{userID: c.UserID, provider: c.Provider}
	existing, ok := s.credentials[key]
	stored := *c
	if ok {
		stored.CredentialID = existing.CredentialID
		stored.CreationTime = existing.CreationTime
	} else {
		stored.CredentialID = uuid.New().String()
		stored.CreationTime = s.now()
	}
	s.credentials[key] = &stored
	out := stored
	return &out, nil
}

func (s *credentials) FindActive(ctx context.Context, userID, provider string) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[credKey{userID: userID, provider: provider}]
	if !ok || !c.IsActive {
		return nil, fmt.Errorf("active %s credential: %w", provider, model.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (s *credentials) List(ctx context.Context, userID string) ([]*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Credential
	for _, c := range s.credentials {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *credentials) Deactivate(ctx context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[credKey{userID: userID, provider: provider}]
	if !ok {
		return fmt.Errorf("%s credential: %w", provider, model.ErrNotFound)
	}
	c.IsActive = false
	return nil
}

func (s *credentials) MarkSynced(ctx context.Context, userID, provider string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[credKey{userID: userID, provider: provider}]
	if !ok {
		return fmt.Errorf("%s credential: %w", provider, model.ErrNotFound)
	}
	t := at
	c.LastSyncedAt = &t
	return nil
}

func (s *credentials) Delete(ctx context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credKey{userID: userID, provider: provider}
	if _, ok := s.credentials[key]; !ok {
		return fmt.Errorf("%s credential: %w", provider, model.ErrNotFound)
	}
	delete(s.credentials, key)
	return nil
}
