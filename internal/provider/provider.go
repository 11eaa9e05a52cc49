// Package provider defines the source-control client capability the
// aggregator consumes. Implementations live under internal/provider/<name>/.
package provider

import (
	"context"
	"time"

	"github.com/standuphq/standup-engine/internal/model"
)

// Repository identifies one repository visible to a credential.
type Repository struct {
	Owner string
	Name  string
}

// FullName returns "owner/name".
func (r Repository) FullName() string { return r.Owner + "/" + r.Name }

// Commit is a raw commit as returned by the provider.
type Commit struct {
	SHA       string
	Message   string
	URL       string
	Author    string
	Timestamp time.Time
}

// PullRequest is a raw pull request as returned by the provider.
type PullRequest struct {
	ID        string
	Title     string
	URL       string
	State     string // open | closed
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
	MergedAt  *time.Time
}

// Issue is a raw issue as returned by the provider.
type Issue struct {
	ID        string
	Title     string
	URL       string
	State     string // open | closed
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// Client is the capability both credential strategies expose. A personal
// token identifies one account; an installation enumerates whatever
// repositories it has been granted.
type Client interface {
	// Username resolves the account login the credential acts as. May be ""
	// for installation credentials with no stored account metadata.
	Username(ctx context.Context) (string, error)
	ListRepositories(ctx context.Context) ([]Repository, error)
	ListCommits(ctx context.Context, repo Repository, window model.Window) ([]Commit, error)
	ListPullRequests(ctx context.Context, repo Repository) ([]PullRequest, error)
	ListIssues(ctx context.Context, repo Repository, since time.Time) ([]Issue, error)
}

// Factory resolves a stored credential plus its decrypted token into a
// usable client. A nil return means the credential cannot be resolved at
// all; callers treat that as "no activity available", not an error.
type Factory func(cred *model.Credential, token string) Client
