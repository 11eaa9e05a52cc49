// Package storetest holds a conformance suite every store.Store
// implementation must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/store"
)

// Run exercises the compliance suite against a store.Store implementation.
// makeStore must return a clean, isolated store per call.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("StandupLifecycle", func(t *testing.T) { standupLifecycle(t, makeStore(t)) })
	t.Run("ListPagination", func(t *testing.T) { listPagination(t, makeStore(t)) })
	t.Run("ConcurrentUpsert", func(t *testing.T) { concurrentUpsert(t, makeStore(t)) })
	t.Run("Credentials", func(t *testing.T) { credentialLifecycle(t, makeStore(t)) })
}

func upsertFor(userID string, date model.Day, content string) store.UpsertStandup {
	return store.UpsertStandup{
		UserID:      userID,
		Date:        date,
		Content:     content,
		Preferences: model.Preferences{Tone: "professional", Length: "medium"},
		Metadata:    model.GenerationMetadata{Source: model.SourceBasic, GeneratedAt: time.Now().UTC()},
	}
}

func standupLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := "u-" + uuid.New().String()
	day := model.Day("2024-03-05")

	first, err := s.Standups().Upsert(ctx, upsertFor(userID, day, "v1"))
	if err != nil {
		t.Fatalf("Upsert create: %v", err)
	}
	if first.ReplacedCount != 0 || first.ID == "" {
		t.Fatalf("create: id=%q replaced=%d, want fresh id and 0", first.ID, first.ReplacedCount)
	}

	// Regenerating keeps the id and counts replacements monotonically.
	for i := 1; i <= 3; i++ {
		rec, err := s.Standups().Upsert(ctx, upsertFor(userID, day, "v2"))
		if err != nil {
			t.Fatalf("Upsert replace %d: %v", i, err)
		}
		if rec.ID != first.ID {
			t.Fatalf("replace %d changed id: %s -> %s", i, first.ID, rec.ID)
		}
		if rec.ReplacedCount != i {
			t.Fatalf("replace %d: replacedCount=%d, want %d", i, rec.ReplacedCount, i)
		}
		if rec.Content != "v2" {
			t.Fatalf("replace %d: content=%q", i, rec.Content)
		}
	}

	got, err := s.Standups().FindByDate(ctx, userID, day)
	if err != nil || got.ID != first.ID {
		t.Fatalf("FindByDate: got=%v err=%v", got, err)
	}
	if _, err := s.Standups().FindByDate(ctx, userID, "2020-01-01"); err == nil {
		t.Fatal("FindByDate for absent day should fail")
	}

	if got, err := s.Standups().Get(ctx, userID, first.ID); err != nil || got.Date != day {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	// Ownership: another user must not see the record.
	if _, err := s.Standups().Get(ctx, "someone-else", first.ID); err == nil {
		t.Fatal("Get with wrong user should fail")
	}
	if err := s.Standups().Delete(ctx, "someone-else", first.ID); err == nil {
		t.Fatal("Delete with wrong user should fail")
	}

	if err := s.Standups().Delete(ctx, userID, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Standups().Get(ctx, userID, first.ID); err == nil {
		t.Fatal("Get after delete should fail")
	}

	// Delete returned the key to absent: the next upsert starts over.
	again, err := s.Standups().Upsert(ctx, upsertFor(userID, day, "v3"))
	if err != nil {
		t.Fatalf("Upsert after delete: %v", err)
	}
	if again.ID == first.ID || again.ReplacedCount != 0 {
		t.Fatalf("after delete: id=%s replaced=%d, want new id and 0", again.ID, again.ReplacedCount)
	}
}

func listPagination(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := "u-" + uuid.New().String()

	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	var inOrder []string // ids, oldest generated first
	for i := 0; i < 7; i++ {
		day := model.DayOf(base.AddDate(0, 0, i))
		rec, err := s.Standups().Upsert(ctx, upsertFor(userID, day, "day "+day.String()))
		if err != nil {
			t.Fatalf("Upsert %s: %v", day, err)
		}
		inOrder = append(inOrder, rec.ID)
		time.Sleep(5 * time.Millisecond) // ensure distinct generation times
	}

	all, err := s.Standups().List(ctx, userID, 0, 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("List all: n=%d, want 7", len(all))
	}
	for i, rec := range all {
		if want := inOrder[len(inOrder)-1-i]; rec.ID != want {
			t.Fatalf("List order at %d: got %s want %s", i, rec.ID, want)
		}
	}

	page1, err := s.Standups().List(ctx, userID, 3, 0)
	if err != nil {
		t.Fatalf("List page1: %v", err)
	}
	page2, err := s.Standups().List(ctx, userID, 3, 3)
	if err != nil {
		t.Fatalf("List page2: %v", err)
	}
	if len(page1) != 3 || len(page2) != 3 {
		t.Fatalf("page sizes = %d, %d, want 3, 3", len(page1), len(page2))
	}
	// Page 2 is the 4th-6th most recent, and no id repeats across pages.
	seen := map[string]bool{}
	for _, r := range page1 {
		seen[r.ID] = true
	}
	for i, r := range page2 {
		if seen[r.ID] {
			t.Fatalf("id %s appears on both pages", r.ID)
		}
		if want := all[3+i].ID; r.ID != want {
			t.Fatalf("page2 at %d: got %s want %s", i, r.ID, want)
		}
	}

	// A different user sees nothing.
	if other, err := s.Standups().List(ctx, "u-"+uuid.New().String(), 0, 0); err != nil || len(other) != 0 {
		t.Fatalf("List other user: n=%d err=%v", len(other), err)
	}
}

func concurrentUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := "u-" + uuid.New().String()
	day := model.Day("2024-04-01")

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Standups().Upsert(ctx, upsertFor(userID, day, "concurrent")); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Upsert: %v", err)
	}

	// Exactly one record, and no increment lost.
	recs, err := s.Standups().List(ctx, userID, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("concurrent upserts produced %d records, want 1", len(recs))
	}
	if recs[0].ReplacedCount != n-1 {
		t.Fatalf("replacedCount=%d, want %d", recs[0].ReplacedCount, n-1)
	}
}

func credentialLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := "u-" + uuid.New().String()

	refresh := "1234abcd:deadbeef"
	cred := &model.Credential{
		UserID:       userID,
		Provider:     model.ProviderGitHub,
		AccessToken:  "aabb:ccdd",
		RefreshToken: &refresh,
		Metadata:     map[string]string{"accountLogin": "octocat"},
		IsActive:     true,
	}
	created, err := s.Credentials().Upsert(ctx, cred)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created.CredentialID == "" {
		t.Fatal("Upsert: empty credential id")
	}

	got, err := s.Credentials().FindActive(ctx, userID, model.ProviderGitHub)
	if err != nil || got.AccessToken != "aabb:ccdd" || got.Metadata["accountLogin"] != "octocat" {
		t.Fatalf("FindActive: got=%+v err=%v", got, err)
	}

	// Re-connect replaces fields but keeps identity (one per user+provider).
	cred.AccessToken = "eeff:0011"
	updated, err := s.Credentials().Upsert(ctx, cred)
	if err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	if updated.CredentialID != created.CredentialID {
		t.Fatalf("Upsert replace changed id: %s -> %s", created.CredentialID, updated.CredentialID)
	}
	if lst, err := s.Credentials().List(ctx, userID); err != nil || len(lst) != 1 {
		t.Fatalf("List: n=%d err=%v", len(lst), err)
	}

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	if err := s.Credentials().MarkSynced(ctx, userID, model.ProviderGitHub, at); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	got, err = s.Credentials().FindActive(ctx, userID, model.ProviderGitHub)
	if err != nil || got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(at) {
		t.Fatalf("after MarkSynced: got=%+v err=%v", got, err)
	}

	// Deactivated credentials stay stored but are not returned as active.
	if err := s.Credentials().Deactivate(ctx, userID, model.ProviderGitHub); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := s.Credentials().FindActive(ctx, userID, model.ProviderGitHub); err == nil {
		t.Fatal("FindActive after Deactivate should fail")
	}
	if lst, err := s.Credentials().List(ctx, userID); err != nil || len(lst) != 1 {
		t.Fatalf("List after Deactivate: n=%d err=%v", len(lst), err)
	}

	if err := s.Credentials().Delete(ctx, userID, model.ProviderGitHub); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Credentials().Delete(ctx, userID, model.ProviderGitHub); err == nil {
		t.Fatal("second Delete should fail")
	}
}
