package store

import (
	"context"
	"time"

	"github.com/standuphq/standup-engine/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (memory, sqlite, postgres).
type Store interface {
	Standups() Standups
	Credentials() Credentials
	// HealthPing returns nil when the backing store is reachable.
	HealthPing(ctx context.Context) error
}

// UpsertStandup carries everything needed to create or replace the standup
// for one (user, calendar day) key.
type UpsertStandup struct {
	UserID      string
	Date        model.Day
	Content     string
	RawData     *model.Activity
	Preferences model.Preferences
	Metadata    model.GenerationMetadata
}

// Standups is the ledger's backing store. Upsert MUST be atomic per
// (UserID, Date): two concurrent upserts for the same key must serialize so
// that neither a replacement increment is lost nor a second row created.
type Standups interface {
	// Upsert creates the day's record with ReplacedCount 0, or replaces the
	// existing one in place keeping its ID and incrementing ReplacedCount.
	Upsert(ctx context.Context, u UpsertStandup) (*model.StandupRecord, error)
	// List returns one record per distinct calendar day, most recently
	// generated first, paginated by limit/offset. Legacy duplicate rows for a
	// day are collapsed to the most recently generated before pagination.
	List(ctx context.Context, userID string, limit, offset int) ([]*model.StandupRecord, error)
	FindByDate(ctx context.Context, userID string, date model.Day) (*model.StandupRecord, error)
	// Get verifies ownership: a record belonging to another user is reported
	// as model.ErrNotFound.
	Get(ctx context.Context, userID, standupID string) (*model.StandupRecord, error)
	Delete(ctx context.Context, userID, standupID string) error
}

// Credentials stores provider connections, unique per (UserID, Provider).
type Credentials interface {
	// Upsert creates the credential or replaces the stored fields for the
	// existing (UserID, Provider) pair.
	Upsert(ctx context.Context, c *model.Credential) (*model.Credential, error)
	FindActive(ctx context.Context, userID, provider string) (*model.Credential, error)
	List(ctx context.Context, userID string) ([]*model.Credential, error)
	// Deactivate flips IsActive off, e.g. after a verification failure.
	// Credentials are never deleted automatically.
	Deactivate(ctx context.Context, userID, provider string) error
	MarkSynced(ctx context.Context, userID, provider string, at time.Time) error
	Delete(ctx context.Context, userID, provider string) error
}
