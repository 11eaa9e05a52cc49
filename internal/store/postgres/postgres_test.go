package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standuphq/standup-engine/internal/store"
	"github.com/standuphq/standup-engine/internal/store/storetest"
)

// TestConformance runs against a real PostgreSQL instance when
// STANDUP_TEST_POSTGRES_DSN is set, e.g. from a compose environment.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("STANDUP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STANDUP_TEST_POSTGRES_DSN not set; skipping postgres conformance suite")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		db, err := Open(dsn)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		ctx := context.Background()
		if err := EnsureSchema(ctx, db); err != nil {
			t.Fatalf("EnsureSchema: %v", err)
		}
		// Isolate suite runs.
		if _, err := db.ExecContext(ctx, `TRUNCATE standups, credentials`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return NewWithDB(db)
	})
}

// TestListCollapsesLegacyDuplicateRows rebuilds the standups table in its
// pre-constraint shape, seeds two rows for the same date, and checks List
// surfaces only the newer one.
func TestListCollapsesLegacyDuplicateRows(t *testing.T) {
	dsn := os.Getenv("STANDUP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STANDUP_TEST_POSTGRES_DSN not set; skipping postgres duplicate-collapse test")
	}
	ctx := context.Background()
	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `
        DROP TABLE IF EXISTS standups;
        CREATE TABLE standups (
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
            generated_at   TIMESTAMPTZ NOT NULL
        )
    `)
	require.NoError(t, err)
	// Drop the legacy table so later runs recreate the constrained schema.
	t.Cleanup(func() { _, _ = db.ExecContext(context.Background(), `DROP TABLE IF EXISTS standups`) })

	base := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	seed := func(id, date, content string, generatedAt time.Time) {
		_, err := db.ExecContext(ctx, `
            INSERT INTO standups (standup_id, user_id, standup_date, content, source, generated_at)
            VALUES ($1,$2,$3,$4,$5,$6)
        `, id, "u1", date, content, "llm", generatedAt)
		require.NoError(t, err)
	}
	seed("s-old", "2024-01-02", "stale duplicate", base)
	seed("s-new", "2024-01-02", "regenerated", base.Add(time.Hour))
	seed("s-other", "2024-01-03", "next day", base.Add(2*time.Hour))

	recs, err := NewWithDB(db).Standups().List(ctx, "u1", 0, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "s-other", recs[0].ID)
	require.Equal(t, "s-new", recs[1].ID)
	require.Equal(t, "regenerated", recs[1].Content)
}
