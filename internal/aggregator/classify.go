package aggregator

import (
	"github.com/standuphq/standup-engine/internal/model"
	"github.com/standuphq/standup-engine/internal/provider"
)

// ClassifyPullRequest decides what happened to a pull request within the
// window:
//   - merged: it is closed with a merge timestamp and the close falls in the window,
//   - closed: it is closed without a merge and the close falls in the window,
//   - opened: it was created in the window and not terminated in it,
//   - reviewed: it was merely touched during the window.
//
// A terminal event inside the window outranks the open: a PR opened and
// merged within the same window reports as merged.
func ClassifyPullRequest(pr provider.PullRequest, w model.Window) model.PRAction {
	if pr.State == "closed" && pr.ClosedAt != nil && w.Contains(*pr.ClosedAt) {
		if pr.MergedAt != nil {
			return model.PRMergedInRange
		}
		return model.PRClosedInRange
	}
	if w.Contains(pr.CreatedAt) {
		return model.PROpened
	}
	return model.PRReviewed
}

// ClassifyIssue is the issue analogue: closed if closed in-window, opened if
// created in-window, else commented.
func ClassifyIssue(is provider.Issue, w model.Window) model.IssueAction {
	if is.State == "closed" && is.ClosedAt != nil && w.Contains(*is.ClosedAt) {
		return model.IssueClosedAct
	}
	if w.Contains(is.CreatedAt) {
		return model.IssueOpened
	}
	return model.IssueCommented
}

func pullRequestState(pr provider.PullRequest) model.PRState {
	if pr.MergedAt != nil {
		return model.PRMerged
	}
	if pr.State == "closed" {
		return model.PRClosed
	}
	return model.PROpen
}

func issueState(is provider.Issue) model.IssueState {
	if is.State == "closed" {
		return model.IssueClosed
	}
	return model.IssueOpen
}
