// Package postgres implements store.Store on PostgreSQL via the pgx stdlib
// driver. The per-day upsert is a single INSERT ... ON CONFLICT statement, so
// the atomicity contract is carried by the database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/store"
)

// Open opens a PostgreSQL connection and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Standups() store.Standups       { return &standups{db: s.db} }
func (s *pgStore) Credentials() store.Credentials { return &credentials{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

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
            cost           DOUBLE PRECISION NOT NULL DEFAULT 0,
            replaced_count INTEGER NOT NULL DEFAULT 0,
            generated_at   TIMESTAMPTZ NOT NULL,
            UNIQUE (user_id, standup_date)
        );
        CREATE TABLE IF NOT EXISTS credentials (
            credential_id  TEXT PRIMARY KEY,
            user_id        TEXT NOT NULL,
            provider       TEXT NOT NULL,
            access_token   TEXT NOT NULL,
            refresh_token  TEXT,
            expires_at     TIMESTAMPTZ,
            metadata       TEXT,
            is_active      BOOLEAN NOT NULL DEFAULT TRUE,
            last_synced_at TIMESTAMPTZ,
            created_at     TIMESTAMPTZ NOT NULL,
            UNIQUE (user_id, provider)
        );
    `)
	return err
}

const standupColumns = `standup_id, user_id, standup_date, content, raw_data, tone, length,
    custom_prompt, sprint_goal, source, model, tokens_used, cost, replaced_count, generated_at`

// --- Standups ---

type standups struct{ db *sql.DB }

func (s *standups) Upsert(ctx context.Context, u store.UpsertStandup) (*model.StandupRecord, error) {
	if u.UserID == "" || u.Date == "" {
		return nil, fmt.Errorf("userID and date are required: %w", model.ErrValidation)
	}
	rawJSON, err := marshalActivity(u.RawData)
	if err != nil {
		return nil, err
	}
	generatedAt := time.Now().UTC()

	row := s.db.QueryRowContext(ctx, `
        INSERT INTO standups (standup_id, user_id, standup_date, content, raw_data, tone, length,
            custom_prompt, sprint_goal, source, model, tokens_used, cost, replaced_count, generated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,0,$14)
        ON CONFLICT (user_id, standup_date) DO UPDATE SET
            content        = EXCLUDED.content,
            raw_data       = EXCLUDED.raw_data,
            tone           = EXCLUDED.tone,
            length         = EXCLUDED.length,
            custom_prompt  = EXCLUDED.custom_prompt,
            sprint_goal    = EXCLUDED.sprint_goal,
            source         = EXCLUDED.source,
            model          = EXCLUDED.model,
            tokens_used    = EXCLUDED.tokens_used,
            cost           = EXCLUDED.cost,
            replaced_count = standups.replaced_count + 1,
            generated_at   = EXCLUDED.generated_at
        RETURNING standup_id, replaced_count
    `, uuid.New().String(), u.UserID, string(u.Date), u.Content, rawJSON,
		u.Preferences.Tone, u.Preferences.Length, u.Preferences.CustomPrompt, u.Preferences.SprintGoal,
		u.Metadata.Source, u.Metadata.Model, u.Metadata.TokensUsed, u.Metadata.Cost, generatedAt)

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

func (s *standups) List(ctx context.Context, userID string, limit, offset int) ([]*model.StandupRecord, error) {
	if limit <= 0 {
		limit = 1<<31 - 1
	}
	if offset < 0 {
		offset = 0
	}
	// Collapse legacy duplicate rows per day before paginating.
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+standupColumns+` FROM (
            SELECT *, ROW_NUMBER() OVER (PARTITION BY standup_date ORDER BY generated_at DESC) AS rn
            FROM standups WHERE user_id = $1
        ) t
        WHERE rn = 1
        ORDER BY generated_at DESC, standup_date DESC
        LIMIT $2 OFFSET $3
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

func (s *standups) FindByDate(ctx context.Context, userID string, date model.Day) (*model.StandupRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+standupColumns+` FROM standups
        WHERE user_id = $1 AND standup_date = $2
        ORDER BY generated_at DESC LIMIT 1
    `, userID, string(date))
	rec, err := scanStandup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("standup for %s: %w", date, model.ErrNotFound)
	}
	return rec, err
}

func (s *standups) Get(ctx context.Context, userID, standupID string) (*model.StandupRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+standupColumns+` FROM standups
        WHERE user_id = $1 AND standup_id = $2
    `, userID, standupID)
	rec, err := scanStandup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("standup %s: %w", standupID, model.ErrNotFound)
	}
	return rec, err
}

func (s *standups) Delete(ctx context.Context, userID, standupID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM standups WHERE user_id = $1 AND standup_id = $2`, userID, standupID)
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
	if err := row.Scan(&rec.ID, &rec.UserID, &date, &rec.Content, &raw,
		&rec.Preferences.Tone, &rec.Preferences.Length, &rec.Preferences.CustomPrompt,
		&rec.Preferences.SprintGoal, &rec.Metadata.Source, &rec.Metadata.Model,
		&rec.Metadata.TokensUsed, &rec.Metadata.Cost, &rec.ReplacedCount, &rec.GeneratedAt); err != nil {
		return nil, err
	}
	rec.Date = model.Day(date)
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

type credentials struct{ db *sql.DB }

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
	out := *in
	row := c.db.QueryRowContext(ctx, `
        INSERT INTO credentials (credential_id, user_id, provider, access_token, refresh_token,
            expires_at, metadata, is_active, last_synced_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (user_id, provider) DO UPDATE SET
            access_token   = EXCLUDED.access_token,
            refresh_token  = EXCLUDED.refresh_token,
            expires_at     = EXCLUDED.expires_at,
            metadata       = EXCLUDED.metadata,
            is_active      = EXCLUDED.is_active,
            last_synced_at = EXCLUDED.last_synced_at
        RETURNING credential_id, created_at
    `, uuid.New().String(), in.UserID, in.Provider, in.AccessToken, in.RefreshToken,
		in.ExpiresAt, meta, in.IsActive, in.LastSyncedAt, time.Now().UTC())
	if err := row.Scan(&out.CredentialID, &out.CreationTime); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *credentials) FindActive(ctx context.Context, userID, provider string) (*model.Credential, error) {
	row := c.db.QueryRowContext(ctx, `
        SELECT `+credentialColumns+` FROM credentials
        WHERE user_id = $1 AND provider = $2 AND is_active
    `, userID, provider)
	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active %s credential: %w", provider, model.ErrNotFound)
	}
	return cred, err
}

func (c *credentials) List(ctx context.Context, userID string) ([]*model.Credential, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE user_id = $1 ORDER BY provider`, userID)
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
	res, err := c.db.ExecContext(ctx,
		`UPDATE credentials SET is_active = FALSE WHERE user_id = $1 AND provider = $2`, userID, provider)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s credential: %w", provider, model.ErrNotFound)
	}
	return nil
}

func (c *credentials) MarkSynced(ctx context.Context, userID, provider string, at time.Time) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE credentials SET last_synced_at = $3 WHERE user_id = $1 AND provider = $2`,
		userID, provider, at.UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s credential: %w", provider, model.ErrNotFound)
	}
	return nil
}

func (c *credentials) Delete(ctx context.Context, userID, provider string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE user_id = $1 AND provider = $2`, userID, provider)
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
	var refresh sql.NullString
	var expires, synced sql.NullTime
	var meta sql.NullString
	if err := row.Scan(&cred.CredentialID, &cred.UserID, &cred.Provider, &cred.AccessToken,
		&refresh, &expires, &meta, &cred.IsActive, &synced, &cred.CreationTime); err != nil {
		return nil, err
	}
	if refresh.Valid {
		cred.RefreshToken = &refresh.String
	}
	if expires.Valid {
		t := expires.Time
		cred.ExpiresAt = &t
	}
	if synced.Valid {
		t := synced.Time
		cred.LastSyncedAt = &t
	}
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
