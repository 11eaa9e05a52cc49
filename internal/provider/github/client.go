// Package github implements provider.Client against the GitHub REST API for
// both personal-token and installation credentials.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/provider"
)

const maxPageSize = 100

// Client talks to the GitHub REST API with one credential.
type Client struct {
	http         *resty.Client
	installation bool

	mu    sync.Mutex
	login string // cached account login; self-discovered for personal tokens
}

// NewPersonalClient builds a client around a personal access token. login may
// be "" in which case it is discovered on first use.
func NewPersonalClient(baseURL, token, login string, timeout time.Duration) *Client {
	return &Client{http: newHTTP(baseURL, token, timeout), login: login}
}

// NewInstallationClient builds a client around an installation-scoped token.
func NewInstallationClient(baseURL, token, accountLogin string, timeout time.Duration) *Client {
	return &Client{http: newHTTP(baseURL, token, timeout), installation: true, login: accountLogin}
}

// Factory returns a provider.Factory that picks the strategy from the stored
// credential: an installation id in the metadata selects the installation
// strategy, otherwise the token is treated as personal. A credential without
// a usable token resolves to nil.
func Factory(baseURL string, timeout time.Duration) provider.Factory {
	return func(cred *model.Credential, token string) provider.Client {
		if cred == nil || token == "" {
			return nil
		}
		if cred.InstallationID() != "" {
			return NewInstallationClient(baseURL, token, cred.AccountLogin(), timeout)
		}
		return NewPersonalClient(baseURL, token, cred.AccountLogin(), timeout)
	}
}

func newHTTP(baseURL, token string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetAuthToken(token).
		SetHeader("Accept", "application/vnd.github+json").
		SetTimeout(timeout)
}

func (c *Client) Username(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.login != "" {
		return c.login, nil
	}
	if c.installation {
		// Installations act as an app, not a user; without stored account
		// metadata there is no login to discover.
		return "", nil
	}
	var out struct {
		Login string `json:"login"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/user")
	if err != nil {
		return "", fmt.Errorf("github /user: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("github /user: status %d", resp.StatusCode())
	}
	c.login = out.Login
	return c.login, nil
}

type apiRepo struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (r apiRepo) toRepository() provider.Repository {
	return provider.Repository{Owner: r.Owner.Login, Name: r.Name}
}

func (c *Client) ListRepositories(ctx context.Context) ([]provider.Repository, error) {
	if c.installation {
		var out struct {
			Repositories []apiRepo `json:"repositories"`
		}
		resp, err := c.http.R().SetContext(ctx).
			SetQueryParam("per_page", fmt.Sprint(maxPageSize)).
			SetResult(&out).
			Get("/installation/repositories")
		if err != nil {
			return nil, fmt.Errorf("github installation repositories: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("github installation repositories: status %d", resp.StatusCode())
		}
		repos := make([]provider.Repository, 0, len(out.Repositories))
		for _, r := range out.Repositories {
			repos = append(repos, r.toRepository())
		}
		return repos, nil
	}

	var out []apiRepo
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"per_page":    fmt.Sprint(maxPageSize),
			"sort":        "pushed",
			"affiliation": "owner,collaborator,organization_member",
		}).
		SetResult(&out).
		Get("/user/repos")
	if err != nil {
		return nil, fmt.Errorf("github user repositories: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("github user repositories: status %d", resp.StatusCode())
	}
	repos := make([]provider.Repository, 0, len(out))
	for _, r := range out {
		repos = append(repos, r.toRepository())
	}
	return repos, nil
}

func (c *Client) ListCommits(ctx context.Context, repo provider.Repository, window model.Window) ([]provider.Commit, error) {
	params := map[string]string{
		"since":    window.Since.UTC().Format(time.RFC3339),
		"until":    window.Until.UTC().Format(time.RFC3339),
		"per_page": fmt.Sprint(maxPageSize),
	}
	// Personal credentials scope commits to the account's own authorship.
	if login, err := c.Username(ctx); err == nil && login != "" && !c.installation {
		params["author"] = login
	}

	var out []struct {
		SHA    string `json:"sha"`
		URL    string `json:"html_url"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string    `json:"name"`
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		Author *struct {
			Login string `json:"login"`
		} `json:"author"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get(fmt.Sprintf("/repos/%s/%s/commits", repo.Owner, repo.Name))
	if err != nil {
		return nil, fmt.Errorf("github commits %s: %w", repo.FullName(), err)
	}
	// 409 means an empty repository; that is legitimately no commits.
	if resp.StatusCode() == http.StatusConflict {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("github commits %s: status %d", repo.FullName(), resp.StatusCode())
	}

	commits := make([]provider.Commit, 0, len(out))
	for _, raw := range out {
		author := raw.Commit.Author.Name
		if raw.Author != nil && raw.Author.Login != "" {
			author = raw.Author.Login
		}
		commits = append(commits, provider.Commit{
			SHA:       raw.SHA,
			Message:   firstLine(raw.Commit.Message),
			URL:       raw.URL,
			Author:    author,
			Timestamp: raw.Commit.Author.Date,
		})
	}
	return commits, nil
}

func (c *Client) ListPullRequests(ctx context.Context, repo provider.Repository) ([]provider.PullRequest, error) {
	var out []struct {
		Number    int        `json:"number"`
		Title     string     `json:"title"`
		URL       string     `json:"html_url"`
		State     string     `json:"state"`
		CreatedAt time.Time  `json:"created_at"`
		UpdatedAt time.Time  `json:"updated_at"`
		ClosedAt  *time.Time `json:"closed_at"`
		MergedAt  *time.Time `json:"merged_at"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"state":     "all",
			"sort":      "updated",
			"direction": "desc",
			"per_page":  fmt.Sprint(maxPageSize),
		}).
		SetResult(&out).
		Get(fmt.Sprintf("/repos/%s/%s/pulls", repo.Owner, repo.Name))
	if err != nil {
		return nil, fmt.Errorf("github pulls %s: %w", repo.FullName(), err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("github pulls %s: status %d", repo.FullName(), resp.StatusCode())
	}

	prs := make([]provider.PullRequest, 0, len(out))
	for _, raw := range out {
		prs = append(prs, provider.PullRequest{
			ID:        fmt.Sprintf("%s#%d", repo.FullName(), raw.Number),
			Title:     raw.Title,
			URL:       raw.URL,
			State:     raw.State,
			CreatedAt: raw.CreatedAt,
			UpdatedAt: raw.UpdatedAt,
			ClosedAt:  raw.ClosedAt,
			MergedAt:  raw.MergedAt,
		})
	}
	return prs, nil
}

func (c *Client) ListIssues(ctx context.Context, repo provider.Repository, since time.Time) ([]provider.Issue, error) {
	var out []struct {
		Number      int        `json:"number"`
		Title       string     `json:"title"`
		URL         string     `json:"html_url"`
		State       string     `json:"state"`
		CreatedAt   time.Time  `json:"created_at"`
		UpdatedAt   time.Time  `json:"updated_at"`
		ClosedAt    *time.Time `json:"closed_at"`
		PullRequest *struct{}  `json:"pull_request"`
	}
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"state":    "all",
			"since":    since.UTC().Format(time.RFC3339),
			"per_page": fmt.Sprint(maxPageSize),
		}).
		SetResult(&out).
		Get(fmt.Sprintf("/repos/%s/%s/issues", repo.Owner, repo.Name))
	if err != nil {
		return nil, fmt.Errorf("github issues %s: %w", repo.FullName(), err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("github issues %s: status %d", repo.FullName(), resp.StatusCode())
	}

	issues := make([]provider.Issue, 0, len(out))
	for _, raw := range out {
		// The issues endpoint returns pull requests too; skip them.
		if raw.PullRequest != nil {
			continue
		}
		issues = append(issues, provider.Issue{
			ID:        fmt.Sprintf("%s#%d", repo.FullName(), raw.Number),
			Title:     raw.Title,
			URL:       raw.URL,
			State:     raw.State,
			CreatedAt: raw.CreatedAt,
			UpdatedAt: raw.UpdatedAt,
			ClosedAt:  raw.ClosedAt,
		})
	}
	return issues, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
