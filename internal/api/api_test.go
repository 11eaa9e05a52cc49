package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standuphq/standup-engine/internal/auth"
	"github.com/standuphq/standup-engine/internal/config"
	"github.com/standuphq/standup-engine/internal/generator"
	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/provider"
	"github.com/standuphq/standup-engine/internal/services"
	"github.com/standuphq/standup-engine/internal/store/memory"
	"github.com/standuphq/standup-engine/internal/vault"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type stubAggregator struct{ activity *model.Activity }

func (s *stubAggregator) FetchActivity(_ context.Context, client provider.Client, _ model.Window) (*model.Activity, error) {
	if client == nil {
		return nil, nil
	}
	return s.activity, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, _ *model.Activity, _ model.Preferences, date model.Day, _ string) generator.Result {
	return generator.Result{
		Content:  "report for " + string(date),
		Metadata: model.GenerationMetadata{Source: model.SourceLLM, GeneratedAt: time.Now().UTC()},
	}
}

type stubClient struct{}

func (stubClient) Username(context.Context) (string, error) { return "octocat", nil }
func (stubClient) ListRepositories(context.Context) ([]provider.Repository, error) {
	return nil, nil
}
func (stubClient) ListCommits(context.Context, provider.Repository, model.Window) ([]provider.Commit, error) {
	return nil, nil
}
func (stubClient) ListPullRequests(context.Context, provider.Repository) ([]provider.PullRequest, error) {
	return nil, nil
}
func (stubClient) ListIssues(context.Context, provider.Repository, time.Time) ([]provider.Issue, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	v, err := vault.NewFromHex(testKeyHex)
	require.NoError(t, err)

	s := memory.New()
	factory := func(cred *model.Credential, token string) provider.Client {
		if cred == nil || token == "" {
			return nil
		}
		return stubClient{}
	}
	agg := &stubAggregator{activity: &model.Activity{
		Username: "octocat",
		Commits:  []model.Commit{{ID: "c1", Message: "fix retry", Repository: "acme/api"}},
	}}

	standups := services.NewStandupService(s, v, factory, agg, stubGenerator{}, zerolog.Nop())
	integrations := services.NewIntegrationService(s, v, factory, zerolog.Nop())
	authorizer := auth.New(config.ModeDevelopment, "sk-test")

	srv := httptest.NewServer(NewRouter(standups, integrations, authorizer, nil))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func connectGitHub(t *testing.T, srv *httptest.Server, user string) {
	t.Helper()
	resp := do(t, http.MethodPost, fmt.Sprintf("%s/api/users/%s/integrations", srv.URL, user), "dev:"+user,
		map[string]any{"provider": "github", "accessToken": "ghp_secret"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/users/alice/standups", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A dev token may only act as its own user.
	resp = do(t, http.MethodGet, srv.URL+"/api/users/alice/standups", "dev:bob", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The API key may act as anyone.
	resp = do(t, http.MethodGet, srv.URL+"/api/users/alice/standups", "sk-test", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateAndFetchStandup(t *testing.T) {
	srv := newTestServer(t)
	connectGitHub(t, srv, "alice")

	resp := do(t, http.MethodPost, srv.URL+"/api/users/alice/standups/generate", "dev:alice",
		map[string]any{"date": "2024-01-03", "tone": "casual", "length": "short"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[model.StandupRecord](t, resp)

	assert.Equal(t, "report for 2024-01-03", rec.Content)
	assert.Equal(t, model.Day("2024-01-03"), rec.Date)
	assert.Equal(t, 0, rec.ReplacedCount)
	assert.NotEmpty(t, rec.ID)

	resp = do(t, http.MethodGet, srv.URL+"/api/users/alice/standups/date/2024-01-03", "dev:alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	byDate := decode[model.StandupRecord](t, resp)
	assert.Equal(t, rec.ID, byDate.ID)

	resp = do(t, http.MethodGet, srv.URL+"/api/users/alice/standups/"+rec.ID, "dev:alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateRejectsBadDate(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/users/alice/standups/generate", "dev:alice",
		map[string]any{"date": "Jan 3rd"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegenerateKeepsID(t *testing.T) {
	srv := newTestServer(t)
	connectGitHub(t, srv, "alice")

	resp := do(t, http.MethodPost, srv.URL+"/api/users/alice/standups/generate", "dev:alice",
		map[string]any{"date": "2024-01-03"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[model.StandupRecord](t, resp)

	resp = do(t, http.MethodPost, srv.URL+"/api/users/alice/standups/"+first.ID+"/regenerate", "dev:alice",
		map[string]any{"tone": "concise"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[model.StandupRecord](t, resp)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.ReplacedCount)
}

func TestRegenerateUnknownStandup(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/api/users/alice/standups/nope/regenerate", "dev:alice",
		map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListStandups(t *testing.T) {
	srv := newTestServer(t)
	connectGitHub(t, srv, "alice")

	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		resp := do(t, http.MethodPost, srv.URL+"/api/users/alice/standups/generate", "dev:alice",
			map[string]any{"date": d})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := do(t, http.MethodGet, srv.URL+"/api/users/alice/standups?limit=2", "dev:alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Standups []model.StandupRecord `json:"standups"`
		Count    int                   `json:"count"`
	}](t, resp)
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Standups, 2)
}

func TestDeleteStandup(t *testing.T) {
	srv := newTestServer(t)
	connectGitHub(t, srv, "alice")

	resp := do(t, http.MethodPost, srv.URL+"/api/users/alice/standups/generate", "dev:alice",
		map[string]any{"date": "2024-01-03"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[model.StandupRecord](t, resp)

	resp = do(t, http.MethodDelete, srv.URL+"/api/users/alice/standups/"+rec.ID, "dev:alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/users/alice/standups/date/2024-01-03", "dev:alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegrationResponsesNeverCarryTokens(t *testing.T) {
	srv := newTestServer(t)
	connectGitHub(t, srv, "alice")

	resp := do(t, http.MethodGet, srv.URL+"/api/users/alice/integrations", "dev:alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw := decode[map[string]json.RawMessage](t, resp)
	assert.NotContains(t, string(raw["integrations"]), "accessToken")
	assert.NotContains(t, string(raw["integrations"]), "ghp_")
}

func TestDisconnectIntegration(t *testing.T) {
	srv := newTestServer(t)
	connectGitHub(t, srv, "alice")

	resp := do(t, http.MethodDelete, srv.URL+"/api/users/alice/integrations/github", "dev:alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/users/alice/integrations/github", "dev:alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVerifyIntegration(t *testing.T) {
	srv := newTestServer(t)
	connectGitHub(t, srv, "alice")

	resp := do(t, http.MethodPost, srv.URL+"/api/users/alice/integrations/github/verify", "dev:alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "verified", body["status"])
}
