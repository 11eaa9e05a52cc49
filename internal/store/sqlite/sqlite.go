// Package sqlite implements store.Store on SQLite via modernc.org/sqlite.
// Timestamps are stored as unix nanoseconds so ordering and round-trips do
// not depend on driver time parsing. Writes serialize through a store-level
// mutex; SQLite allows one writer at a time and the mutex also carries the
// per-day upsert atomicity contract.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/store"
)

// Open opens (or creates) a SQLite database at the given path with WAL mode.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a SQLite store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &sqStore{db: db} }

type sqStore struct {
	db *sql.DB
	mu sync.Mutex
}

func (s *sqStore) Standups() store.Standups       { return &standups{s} }
func (s *sqStore) Credentials() store.Credentials { return &credentials{s} }

// HealthPing implements health.HealthPinger.
func (s *sqStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS standups (
            standup_id     TEXT PRIMARY KEY,
            user_id        TEXT NOT NULL,
            standup_date   TEXT NOT NULL,
            content        TEXT NOT NULL,
            raw_data       TEXT,
            tone           TEXT NOT NULL DEFAULT '',
            length         TEXT NOT NULL DEFAULT '',
            custom_prompt  TEXT NOT NULL DEFAULT '',
            sprint_goal    TEXT NOT NULL DEFAULT '',
            source         TEXT NOT NULL DEFAULT '',
            model          TEXT NOT NULL DEFAULT '',
            tokens_used    INTEGER NOT NULL DEFAULT 0,
            cost           REAL NOT NULL DEFAULT 0,
            replaced_count INTEGER NOT NULL DEFAULT 0,
            generated_at   INTEGER NOT NULL,
            UNIQUE (user_id, standup_date)
        );
        CREATE TABLE IF NOT EXISTS credentials (
            credential_id  TEXT PRIMARY KEY,
            user_id        TEXT NOT NULL,
            provider       TEXT NOT NULL,
            access_token   TEXT NOT NULL,
            refresh_token  TEXT,
            expires_at     INTEGER,
            metadata       TEXT,
            is_active      INTEGER NOT NULL DEFAULT 1,
            last_synced_at INTEGER,
            created_at     INTEGER NOT NULL,
            UNIQUE (user_id, provider)
        );
    `)
	return err
}

const standupColumns = `standup_id, user_id, standup_date, content, raw_data, tone, length,
    custom_prompt, sprint_goal, source, model, tokens_used, cost, replaced_count, generated_at`

// --- Standups ---

type standups struct{ s *sqStore }

func (t *standups) Upsert(ctx context.Context, u store.UpsertStandup) (*model.StandupRecord, error) {
	if u.UserID == "" || u.Date == "" {
		return nil, fmt.Errorf("userID and date are required: %w", model.ErrValidation)
	}
	rawJSON, err := marshalActivity(u.RawData)
	if err != nil {
		return nil, err
	}
	generatedAt := time.Now().UTC()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	row := t.s.db.QueryRowContext(ctx, `
        INSERT INTO standups (standup_id, user_id, standup_date, content, raw_data, tone, length,
            custom_prompt, sprint_goal, source, model, tokens_used, cost, replaced_count, generated_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,0,?)
        ON CONFLICT (user_id, standup_date) DO UPDATE SET
            content        = excluded.content,
            raw_data       = excluded.raw_data,
            tone           = excluded.tone,
            length         = excluded.length,
            custom_prompt  = excluded.custom_prompt,
            sprint_goal    = excluded.sprint_goal,
            source         = excluded.source,
            model          = excluded.model,
            tokens_used    = excluded.tokens_used,
            cost           = excluded.cost,
            replaced_count = replaced_count + 1,
            generated_at   = excluded.generated_at
        RETURNING standup_id, replaced_count
    `, uuid.New().String(), u.UserID, string(u.Date), u.Content, rawJSON,
		u.Preferences.Tone, u.Preferences.Length, u.Preferences.CustomPrompt, u.Preferences.SprintGoal,
		u.Metadata.Source, u.Metadata.Model, u.Metadata.TokensUsed, u.Metadata.Cost,
		generatedAt.UnixNano())

	rec := &model.StandupRecord{
		UserID:      u.UserID,
		Date:        u.Date,
		Content:     u.Content,
		RawData:     u.RawData,
		Preferences: u.Preferences,
		Metadata:    u.Metadata,
		GeneratedAt: generatedAt,
	}
	if err := row.Scan(&rec.ID, &rec.ReplacedCount); err != nil {
		return nil, err
	}
	return rec, nil
}

func (t *standups) List(ctx context.Context, userID string, limit, offset int) ([]*model.StandupRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := t.s.db.QueryContext(ctx, `
        SELECT `+standupColumns+` FROM (
            SELECT *, ROW_NUMBER() OVER (PARTITION BY standup_date ORDER BY generated_at DESC) AS rn
            FROM standups WHERE user_id = ?
        )
        WHERE rn = 1
        ORDER BY generated_at DESC, standup_date DESC
        LIMIT ? OFFSET ?
    `, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.StandupRecord
	for rows.Next() {
		rec, err := scanStandup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t *standups) FindByDate(ctx context.Context, userID string, date model.Day) (*model.StandupRecord, error) {
	row := t.s.db.QueryRowContext(ctx, `
        SELECT `+standupColumns+` FROM standups
        WHERE user_id = ? AND standup_date = ?
        ORDER BY generated_at DESC LIMIT 1
    `, userID, string(date))
	rec, err := scanStandup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("standup for %s: %w", date, model.ErrNotFound)
	}
	return rec, err
}

func (t *standups) Get(ctx context.Context, userID, standupID string) (*model.StandupRecord, error) {
	row := t.s.db.QueryRowContext(ctx, `
        SELECT `+standupColumns+` FROM standups
        WHERE user_id = ? AND standup_id = ?
    `, userID, standupID)
	rec, err := scanStandup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("standup %s: %w", standupID, model.ErrNotFound)
	}
	return rec, err
}

func (t *standups) Delete(ctx context.Context, userID, standupID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	res, err := t.s.db.ExecContext(ctx,
		`DELETE FROM standups WHERE user_id = ? AND standup_id = ?`, userID, standupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("standup %s: %w", standupID, model.ErrNotFound)
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanStandup(row rowScanner) (*model.StandupRecord, error) {
	var rec model.StandupRecord
	var date string
	var raw sql.NullString
	var generatedNanos int64
	if err := row.Scan(&rec.ID, &rec.UserID, &date, &rec.Content, &raw,
		&rec.Preferences.Tone, &rec.Preferences.Length, &rec.Preferences.CustomPrompt,
		&rec.Preferences.SprintGoal, &rec.Metadata.Source, &rec.Metadata.Model,
		&rec.Metadata.TokensUsed, &rec.Metadata.Cost, &rec.ReplacedCount, &generatedNanos); err != nil {
		return nil, err
	}
	rec.Date = model.Day(date)
	rec.GeneratedAt = time.Unix(0, generatedNanos).UTC()
	rec.Metadata.GeneratedAt = rec.GeneratedAt
	if raw.Valid && raw.String != "" {
		var act model.Activity
		if err := json.Unmarshal([]byte(raw.String), &act); err != nil {
			return nil, fmt.Errorf("decode raw activity: %w", err)
		}
		rec.RawData = &act
	}
	return &rec, nil
}

func marshalActivity(a *model.Activity) (sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode raw activity: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// --- Credentials ---

type credentials struct{ s *sqStore }

const credentialColumns = `credential_id, user_id, provider, access_token, refresh_token,
    expires_at, metadata, is_active, last_synced_at, created_at`

func (c *credentials) Upsert(ctx context.Context, in *model.Credential) (*model.Credential, error) {
	if in.UserID == "" || in.Provider == "" {
		return nil, fmt.Errorf("userID and provider are required: %w", model.ErrValidation)
	}
	meta, err := marshalMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	out := *in
	var createdNanos int64
	row := c.s.db.QueryRowContext(ctx, `
        INSERT INTO credentials (credential_id, user_id, provider, access_token, refresh_token,
            expires_at, metadata, is_active, last_synced_at, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT (user_id, provider) DO UPDATE SET
            access_token   = excluded.access_token,
            refresh_token  = excluded.refresh_token,
            expires_at     = excluded.expires_at,
            metadata       = excluded.metadata,
            is_active      = excluded.is_active,
            last_synced_at = excluded.last_synced_at
        RETURNING credential_id, created_at
    `, uuid.New().String(), in.UserID, in.Provider, in.AccessToken, in.RefreshToken,
		nanosPtr(in.ExpiresAt), meta, in.IsActive, nanosPtr(in.LastSyncedAt), time.Now().UTC().UnixNano())
	if err := row.Scan(&out.CredentialID, &createdNanos); err != nil {
		return nil, err
	}
	out.CreationTime = time.Unix(0, createdNanos).UTC()
	return &out, nil
}

func (c *credentials) FindActive(ctx context.Context, userID, provider string) (*model.Credential, error) {
	row := c.s.db.QueryRowContext(ctx, `
        SELECT `+credentialColumns+` FROM credentials
        WHERE user_id = ? AND provider = ? AND is_active = 1
    `, userID, provider)
	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active %s credential: %w", provider, model.ErrNotFound)
	}
	return cred, err
}

func (c *credentials) List(ctx context.Context, userID string) ([]*model.Credential, error) {
	rows, err := c.s.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE user_id = ? ORDER BY provider`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	return out, rows.Err()
}

func (c *credentials) Deactivate(ctx context.Context, userID, provider string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	res, err := c.s.db.ExecContext(ctx,
		`UPDATE credentials SET is_active = 0 WHERE user_id = ? AND provider = ?`, userID, provider)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s credential: %w", provider, model.ErrNotFound)
	}
	return nil
}

func (c *credentials) MarkSynced(ctx context.Context, userID, provider string, at time.Time) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	res, err := c.s.db.ExecContext(ctx,
		`UPDATE credentials SET last_synced_at = ? WHERE user_id = ? AND provider = ?`,
		at.UTC().UnixNano(), userID, provider)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s credential: %w", provider, model.ErrNotFound)
	}
	return nil
}

func (c *credentials) Delete(ctx context.Context, userID, provider string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	res, err := c.s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE user_id = ? AND provider = ?`, userID, provider)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s credential: %w", provider, model.ErrNotFound)
	}
	return nil
}

func scanCredential(row rowScanner) (*model.Credential, error) {
	var cred model.Credential
	var refresh, meta sql.NullString
	var expires, synced sql.NullInt64
	var createdNanos int64
	if err := row.Scan(&cred.CredentialID, &cred.UserID, &cred.Provider, &cred.AccessToken,
		&refresh, &expires, &meta, &cred.IsActive, &synced, &createdNanos); err != nil {
		return nil, err
	}
	if refresh.Valid {
		cred.RefreshToken = &refresh.String
	}
	if expires.Valid {
		t := time.Unix(0, expires.Int64).UTC()
		cred.ExpiresAt = &t
	}
	if synced.Valid {
		t := time.Unix(0, synced.Int64).UTC()
		cred.LastSyncedAt = &t
	}
	cred.CreationTime = time.Unix(0, createdNanos).UTC()
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &cred.Metadata); err != nil {
			return nil, fmt.Errorf("decode credential metadata: %w", err)
		}
	}
	return &cred, nil
}

func marshalMetadata(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode credential metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nanosPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixNano()
}
