package generator

import (
	"fmt"
	"strings"
	"time"

	"github.com/standuphq/standup-engine/internal/model"
)

// genericBullets pairs a "yesterday" set with a thematically matching "today"
// set. One shared index selects the pair so the two sections stay coherent.
var genericBullets = []struct {
	yesterday []string
	today     []string
}{
	{
		yesterday: []string{
			"Continued work on ongoing development tasks",
			"Reviewed open items and synced with the team",
		},
		today: []string{
			"Carry ongoing development tasks forward",
			"Follow up on items raised in review",
		},
	},
	{
		yesterday: []string{
			"Investigated and triaged reported issues",
			"Cleaned up and refactored existing code",
		},
		today: []string{
			"Land fixes for the triaged issues",
			"Finish the refactoring pass",
		},
	},
	{
		yesterday: []string{
			"Worked through documentation and planning",
			"Prepared upcoming changes for review",
		},
		today: []string{
			"Put the prepared changes up for review",
			"Close out remaining planning items",
		},
	},
}

var blockerPhrases = []string{
	"No blockers at the moment.",
	"No blockers; waiting on a couple of reviews.",
	"None so far.",
}

// renderFallback renders the deterministic four-section report used when no
// LLM is configured or the LLM call failed. pairIdx selects the generic
// bullet pair for empty activity so the yesterday and today sections stay
// thematically matched; blockerIdx selects the blocker line independently.
// The Pipeline draws both indices; this function holds no shared state.
func renderFallback(activity *model.Activity, date model.Day, username string, pairIdx, blockerIdx int, now time.Time) string {
	var yesterday, today []string
	if activity.IsEmpty() {
		pick := genericBullets[pairIdx%len(genericBullets)]
		yesterday = pick.yesterday
		today = pick.today
	} else {
		yesterday = activityBullets(activity)
		today = []string{
			"Continue where yesterday's work left off",
			"Pick up the next items from the backlog",
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Standup for %s\n\n", date)

	b.WriteString("**Yesterday:**\n")
	for _, line := range yesterday {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\n**Today:**\n")
	for _, line := range today {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\n**Blockers:**\n")
	fmt.Fprintf(&b, "%s\n", blockerPhrases[blockerIdx%len(blockerPhrases)])

	if username == "" {
		username = "unknown"
	}
	fmt.Fprintf(&b, "\n_Generated for %s at %s_\n", username, now.Format(time.RFC3339))
	return b.String()
}

// activityBullets renders real activity into "yesterday" bullets with the
// same caps the prompt digest uses.
func activityBullets(a *model.Activity) []string {
	var out []string
	for i, c := range a.Commits {
		if i == maxPromptCommits {
			break
		}
		out = append(out, fmt.Sprintf("Committed to %s: %s", c.Repository, c.Message))
	}
	for i, pr := range a.PullRequests {
		if i == maxPromptPRs {
			break
		}
		out = append(out, fmt.Sprintf("Pull request %s in %s: %s", pr.Action, pr.Repository, pr.Title))
	}
	for i, is := range a.Issues {
		if i == maxPromptIssues {
			break
		}
		out = append(out, fmt.Sprintf("Issue %s in %s: %s", is.Action, is.Repository, is.Title))
	}
	return out
}
