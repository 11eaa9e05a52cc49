package generator

import (
	"fmt"
	"strings"

	"github.com/standuphq/standup-engine/internal/model"
)

const (
	maxPromptCommits = 5
	maxPromptPRs     = 3
	maxPromptIssues  = 3
)

// toneTemplates maps a tone to its system prompt. Unknown tones fall back to
// professional.
var toneTemplates = map[string]string{
	"professional": "You are a professional assistant writing daily standup reports. Write clearly and formally, in first person, using complete sentences. Structure the report with Yesterday, Today, and Blockers sections.",
	"casual":       "You are a friendly teammate writing a quick daily standup. Keep it relaxed and conversational, in first person. Structure the report with Yesterday, Today, and Blockers sections.",
	"detailed":     "You are a meticulous engineer writing a thorough daily standup report. In first person, explain what each change was for and call out anything noteworthy. Structure the report with Yesterday, Today, and Blockers sections.",
	"concise":      "You are an engineer writing the shortest useful daily standup. In first person, one short bullet per item, no filler. Structure the report with Yesterday, Today, and Blockers sections.",
	"work-focused": "You are an engineer writing a daily standup focused strictly on deliverables and progress toward goals. In first person, tie each item to the work it advances. Structure the report with Yesterday, Today, and Blockers sections.",
	"casual-async": "You are an engineer posting an async standup update in team chat. In first person, light tone, emoji welcome but sparing. Structure the report with Yesterday, Today, and Blockers sections.",
}

const defaultTone = "professional"

const userPromptTemplate = `Write my standup report for {date}.

My activity from the previous working day:
{activity}

Tone: {tone}
Length: {length}
{custom}{sprint}`

// buildPrompt renders the system and user prompts for a generation request.
func buildPrompt(activity *model.Activity, prefs model.Preferences, date model.Day) (system, user string) {
	system, ok := toneTemplates[prefs.Tone]
	if !ok {
		system = toneTemplates[defaultTone]
	}

	custom := ""
	if prefs.CustomPrompt != "" {
		custom = "Additional instructions: " + prefs.CustomPrompt + "\n"
	}
	sprint := ""
	if prefs.SprintGoal != "" {
		sprint = "Current sprint goal: " + prefs.SprintGoal + "\n"
	}

	r := strings.NewReplacer(
		"{date}", string(date),
		"{activity}", summarizeActivity(activity),
		"{tone}", orDefault(prefs.Tone, defaultTone),
		"{length}", orDefault(prefs.Length, "medium"),
		"{custom}", custom,
		"{sprint}", sprint,
	)
	return system, strings.TrimSpace(r.Replace(userPromptTemplate))
}

// summarizeActivity renders the capped one-line-per-item digest the user
// prompt embeds.
func summarizeActivity(a *model.Activity) string {
	if a.IsEmpty() {
		return "No recorded activity."
	}

	var b strings.Builder
	for i, c := range a.Commits {
		if i == maxPromptCommits {
			break
		}
		fmt.Fprintf(&b, "- commit (%s): %s\n", c.Repository, c.Message)
	}
	for i, pr := range a.PullRequests {
		if i == maxPromptPRs {
			break
		}
		fmt.Fprintf(&b, "- pull request %s (%s): %s\n", pr.Action, pr.Repository, pr.Title)
	}
	for i, is := range a.Issues {
		if i == maxPromptIssues {
			break
		}
		fmt.Fprintf(&b, "- issue %s (%s): %s\n", is.Action, is.Repository, is.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

// maxTokensFor maps the requested length onto a completion budget.
func maxTokensFor(length string) int {
	switch length {
	case "short":
		return 150
	case "long":
		return 500
	default: // medium and anything unrecognized
		return 300
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
