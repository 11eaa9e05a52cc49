package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standuphq/standup-engine/internal/generator"
	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/provider"
	"github.com/standuphq/standup-engine/internal/store/memory"
	"github.com/standuphq/standup-engine/internal/vault"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type fakeAggregator struct {
	activity *model.Activity
	err      error
	calls    int
	window   model.Window
}

func (f *fakeAggregator) FetchActivity(_ context.Context, client provider.Client, w model.Window) (*model.Activity, error) {
	f.calls++
	f.window = w
	if client == nil {
		return nil, nil
	}
	return f.activity, f.err
}

type fakeGenerator struct {
	prefs model.Preferences
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, activity *model.Activity, prefs model.Preferences, date model.Day, username string) generator.Result {
	f.calls++
	f.prefs = prefs
	return generator.Result{
		Content: "generated for " + string(date),
		Metadata: model.GenerationMetadata{
			Source:      model.SourceLLM,
			Model:       "test-model",
			GeneratedAt: time.Now().UTC(),
		},
	}
}

type staticClient struct {
	reposErr error
}

func (c *staticClient) Username(context.Context) (string, error) { return "octocat", nil }
func (c *staticClient) ListRepositories(context.Context) ([]provider.Repository, error) {
	return nil, c.reposErr
}
func (c *staticClient) ListCommits(context.Context, provider.Repository, model.Window) ([]provider.Commit, error) {
	return nil, nil
}
func (c *staticClient) ListPullRequests(context.Context, provider.Repository) ([]provider.PullRequest, error) {
	return nil, nil
}
func (c *staticClient) ListIssues(context.Context, provider.Repository, time.Time) ([]provider.Issue, error) {
	return nil, nil
}

func staticFactory(client provider.Client) provider.Factory {
	return func(cred *model.Credential, token string) provider.Client {
		if cred == nil || token == "" {
			return nil
		}
		return client
	}
}

type fixture struct {
	svc  *StandupService
	intg *IntegrationService
	agg  *fakeAggregator
	gen  *fakeGenerator
	v    *vault.Vault
}

func newFixture(t *testing.T, client provider.Client, activity *model.Activity) *fixture {
	t.Helper()
	v, err := vault.NewFromHex(testKeyHex)
	require.NoError(t, err)

	s := memory.New()
	agg := &fakeAggregator{activity: activity}
	gen := &fakeGenerator{}
	factory := staticFactory(client)
	return &fixture{
		svc:  NewStandupService(s, v, factory, agg, gen, zerolog.Nop()),
		intg: NewIntegrationService(s, v, factory, zerolog.Nop()),
		agg:  agg,
		gen:  gen,
		v:    v,
	}
}

func connect(t *testing.T, f *fixture, userID string) {
	t.Helper()
	_, err := f.intg.Connect(context.Background(), ConnectRequest{
		UserID:      userID,
		Provider:    model.ProviderGitHub,
		AccessToken: "ghp_secret",
	})
	require.NoError(t, err)
}

func sampleActivity() *model.Activity {
	return &model.Activity{
		Username: "octocat",
		Commits:  []model.Commit{{ID: "c1", Message: "fix retry", Repository: "acme/api"}},
	}
}

func TestGenerateWithoutCredential(t *testing.T) {
	f := newFixture(t, &staticClient{}, sampleActivity())

	rec, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.NoError(t, err)

	assert.Equal(t, model.SourceNone, rec.Metadata.Source)
	assert.Contains(t, rec.Content, "No activity found for 2024-01-03")
	assert.Equal(t, 0, rec.ReplacedCount)
	assert.Equal(t, 0, f.gen.calls)
}

func TestGenerateWithActivity(t *testing.T) {
	f := newFixture(t, &staticClient{}, sampleActivity())
	connect(t, f, "alice")

	rec, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{Tone: "casual"})
	require.NoError(t, err)

	assert.Equal(t, model.SourceLLM, rec.Metadata.Source)
	assert.Equal(t, "generated for 2024-01-03", rec.Content)
	assert.Equal(t, "casual", f.gen.prefs.Tone)
	require.NotNil(t, rec.RawData)
	assert.Len(t, rec.RawData.Commits, 1)

	// The window is the calendar day preceding the requested date.
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), f.agg.window.Since)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), f.agg.window.Until)

	// Successful aggregation records a sync on the credential.
	creds, err := f.intg.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.NotNil(t, creds[0].LastSyncedAt)
}

func TestGenerateEmptyActivitySkipsGenerator(t *testing.T) {
	f := newFixture(t, &staticClient{}, &model.Activity{Username: "octocat"})
	connect(t, f, "alice")

	rec, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.NoError(t, err)

	assert.Equal(t, model.SourceNone, rec.Metadata.Source)
	assert.Equal(t, 0, f.gen.calls)
}

func TestGenerateAbsorbsAggregationFailure(t *testing.T) {
	f := newFixture(t, &staticClient{}, nil)
	f.agg.err = errors.New("rate limited")
	connect(t, f, "alice")

	rec, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.NoError(t, err)
	assert.Equal(t, model.SourceNone, rec.Metadata.Source)
}

func TestGenerateMalformedCiphertextPropagates(t *testing.T) {
	f := newFixture(t, &staticClient{}, sampleActivity())
	connect(t, f, "alice")

	// Corrupt the stored ciphertext behind the service's back.
	creds, err := f.intg.List(context.Background(), "alice")
	require.NoError(t, err)
	creds[0].AccessToken = "not-a-ciphertext"
	_, err = f.intg.store.Credentials().Upsert(context.Background(), creds[0])
	require.NoError(t, err)

	_, err = f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.Error(t, err)
	assert.ErrorIs(t, err, vault.ErrMalformedCiphertext)
}

func TestGenerateReplacesSameDay(t *testing.T) {
	f := newFixture(t, &staticClient{}, sampleActivity())
	connect(t, f, "alice")

	first, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.NoError(t, err)
	second, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.ReplacedCount)

	all, err := f.svc.List(context.Background(), "alice", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegenerateReusesCapturedActivity(t *testing.T) {
	f := newFixture(t, &staticClient{}, sampleActivity())
	connect(t, f, "alice")

	first, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.NoError(t, err)
	require.Equal(t, 1, f.agg.calls)

	rec, err := f.svc.Regenerate(context.Background(), "alice", first.ID, model.Preferences{Tone: "concise"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.agg.calls, "regenerate must not re-fetch activity")
	assert.Equal(t, first.ID, rec.ID)
	assert.Equal(t, 1, rec.ReplacedCount)
	assert.Equal(t, "concise", rec.Preferences.Tone)
	require.NotNil(t, rec.RawData)
}

func TestRegenerateUnknownStandup(t *testing.T) {
	f := newFixture(t, &staticClient{}, sampleActivity())

	_, err := f.svc.Regenerate(context.Background(), "alice", "missing", model.Preferences{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetVerifiesOwnership(t *testing.T) {
	f := newFixture(t, &staticClient{}, sampleActivity())
	connect(t, f, "alice")

	rec, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "mallory", rec.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	got, err := f.svc.FindByDate(context.Background(), "alice", "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestDeleteReturnsDayToAbsent(t *testing.T) {
	f := newFixture(t, &staticClient{}, sampleActivity())
	connect(t, f, "alice")

	rec, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(context.Background(), "alice", rec.ID))

	_, err = f.svc.FindByDate(context.Background(), "alice", "2024-01-03")
	assert.ErrorIs(t, err, model.ErrNotFound)

	again, err := f.svc.Generate(context.Background(), "alice", "2024-01-03", model.Preferences{})
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, again.ID)
	assert.Equal(t, 0, again.ReplacedCount)
}

func TestGenerateFallbackContentMentionsNoActivity(t *testing.T) {
	f := newFixture(t, &staticClient{}, nil)

	rec, err := f.svc.Generate(context.Background(), "bob", "2024-06-10", model.Preferences{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.Content, "No activity found for"), rec.Content)
}
