// Package aggregator normalizes a credential's source-control activity over a
// window. A failure in one repository contributes empty results and never
// aborts the rest of the aggregation.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/provider"
)

// Aggregator fetches and normalizes commits, pull requests, and issues across
// every repository a provider client can see.
type Aggregator struct {
	log           zerolog.Logger
	maxConcurrent int
	fetchTimeout  time.Duration
}

// New constructs an Aggregator. maxConcurrent bounds in-flight per-repository
// fetches; fetchTimeout caps each provider call so one slow repository cannot
// stall the pipeline.
func New(log zerolog.Logger, maxConcurrent int, fetchTimeout time.Duration) *Aggregator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Aggregator{log: log, maxConcurrent: maxConcurrent, fetchTimeout: fetchTimeout}
}

// FetchActivity aggregates the window's activity for the given client.
// A nil client means the credential could not be resolved; that returns
// (nil, nil), a legitimate "no activity available" outcome rather than a
// failure.
// An error is returned only when the repository list itself cannot be
// resolved; per-repository failures are logged and absorbed.
func (a *Aggregator) FetchActivity(ctx context.Context, client provider.Client, window model.Window) (*model.Activity, error) {
	if client == nil {
		return nil, nil
	}

	username, err := client.Username(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("could not resolve provider username")
		username = ""
	}

	repos, err := client.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	activity := &model.Activity{
		Username:     username,
		Commits:      []model.Commit{},
		PullRequests: []model.PullRequestEvent{},
		Issues:       []model.IssueEvent{},
	}

	// Per-repo fetches run concurrently under a semaphore. Each repository
	// fails independently; nothing here cancels sibling fetches.
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, a.maxConcurrent)
	)
	for _, repo := range repos {
		wg.Add(1)
		sem <- struct{}{}
		go func(repo provider.Repository) {
			defer wg.Done()
			defer func() { <-sem }()

			part := a.fetchRepository(ctx, client, repo, window)
			mu.Lock()
			activity.Commits = append(activity.Commits, part.Commits...)
			activity.PullRequests = append(activity.PullRequests, part.PullRequests...)
			activity.Issues = append(activity.Issues, part.Issues...)
			mu.Unlock()
		}(repo)
	}
	wg.Wait()

	return activity, nil
}

// fetchRepository collects one repository's contribution. Each of the three
// calls fails independently: an error is logged and that slice stays empty.
func (a *Aggregator) fetchRepository(ctx context.Context, client provider.Client, repo provider.Repository, window model.Window) model.Activity {
	var out model.Activity

	callCtx, cancel := a.withTimeout(ctx)
	commits, err := client.ListCommits(callCtx, repo, window)
	cancel()
	if err != nil {
		a.log.Warn().Err(err).Str("repository", repo.FullName()).Msg("commit fetch failed; skipping repository commits")
	} else {
		for _, c := range commits {
			if !window.Contains(c.Timestamp) {
				continue
			}
			out.Commits = append(out.Commits, model.Commit{
				ID:         c.SHA,
				Message:    c.Message,
				URL:        c.URL,
				Author:     c.Author,
				Timestamp:  c.Timestamp,
				Repository: repo.FullName(),
			})
		}
	}

	callCtx, cancel = a.withTimeout(ctx)
	prs, err := client.ListPullRequests(callCtx, repo)
	cancel()
	if err != nil {
		a.log.Warn().Err(err).Str("repository", repo.FullName()).Msg("pull request fetch failed; skipping repository pull requests")
	} else {
		for _, pr := range prs {
			if !touchedInWindow(pr.CreatedAt, pr.UpdatedAt, pr.ClosedAt, window) {
				continue
			}
			out.PullRequests = append(out.PullRequests, model.PullRequestEvent{
				ID:         pr.ID,
				Title:      pr.Title,
				URL:        pr.URL,
				State:      pullRequestState(pr),
				CreatedAt:  pr.CreatedAt,
				UpdatedAt:  pr.UpdatedAt,
				Repository: repo.FullName(),
				Action:     ClassifyPullRequest(pr, window),
			})
		}
	}

	callCtx, cancel = a.withTimeout(ctx)
	issues, err := client.ListIssues(callCtx, repo, window.Since)
	cancel()
	if err != nil {
		a.log.Warn().Err(err).Str("repository", repo.FullName()).Msg("issue fetch failed; skipping repository issues")
	} else {
		for _, is := range issues {
			if !touchedInWindow(is.CreatedAt, is.UpdatedAt, is.ClosedAt, window) {
				continue
			}
			out.Issues = append(out.Issues, model.IssueEvent{
				ID:         is.ID,
				Title:      is.Title,
				URL:        is.URL,
				State:      issueState(is),
				CreatedAt:  is.CreatedAt,
				UpdatedAt:  is.UpdatedAt,
				Repository: repo.FullName(),
				Action:     ClassifyIssue(is, window),
			})
		}
	}

	return out
}

func (a *Aggregator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.fetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.fetchTimeout)
}

// touchedInWindow reports whether any of the item's lifecycle instants fall
// within the window.
func touchedInWindow(created, updated time.Time, closed *time.Time, w model.Window) bool {
	if w.Contains(created) || w.Contains(updated) {
		return true
	}
	return closed != nil && w.Contains(*closed)
}
