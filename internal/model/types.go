package model

import "time"

// ProviderGitHub is the only source-control provider currently supported.
const ProviderGitHub = "github"

// Credential holds a user's connection to a source-control provider.
// Token fields are ciphertext at rest; the vault package handles
// encryption and decryption at the service boundary.
type Credential struct {
	CredentialID string            `json:"credentialId"`
	UserID       string            `json:"userId"`
	Provider     string            `json:"provider"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken *string           `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time        `json:"expiresAt,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	IsActive     bool              `json:"isActive"`
	LastSyncedAt *time.Time        `json:"lastSyncedAt,omitempty"`
	CreationTime time.Time         `json:"creationTime"`
}

// InstallationID returns the provider installation id when the credential is
// installation-scoped, or "" for personal-token credentials.
func (c *Credential) InstallationID() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata["installationId"]
}

// AccountLogin returns the provider account login stored during connect, if any.
func (c *Credential) AccountLogin() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata["accountLogin"]
}

// Commit is a normalized commit touched during an activity window.
type Commit struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	URL        string    `json:"url"`
	Author     string    `json:"author"`
	Timestamp  time.Time `json:"timestamp"`
	Repository string    `json:"repository"`
}

// PRState is the lifecycle state of a pull request.
type PRState string

const (
	PROpen   PRState = "open"
	PRClosed PRState = "closed"
	PRMerged PRState = "merged"
)

// PRAction classifies what happened to a pull request within a window.
type PRAction string

const (
	PROpened        PRAction = "opened"
	PRReviewed      PRAction = "reviewed"
	PRMergedInRange PRAction = "merged"
	PRClosedInRange PRAction = "closed"
)

// PullRequestEvent is a normalized pull request touched during a window.
type PullRequestEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	State      PRState   `json:"state"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Repository string    `json:"repository"`
	Action     PRAction  `json:"action"`
}

// IssueState is the lifecycle state of an issue.
type IssueState string

const (
	IssueOpen   IssueState = "open"
	IssueClosed IssueState = "closed"
)

// IssueAction classifies what happened to an issue within a window.
type IssueAction string

const (
	IssueOpened    IssueAction = "opened"
	IssueClosedAct IssueAction = "closed"
	IssueCommented IssueAction = "commented"
)

// IssueEvent is a normalized issue touched during a window.
type IssueEvent struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	State      IssueState  `json:"state"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	Repository string      `json:"repository"`
	Action     IssueAction `json:"action"`
}

// Activity is the normalized result of aggregating a user's source-control
// activity over a window. Ordering is stable for deterministic input but no
// cross-repository ordering is guaranteed.
type Activity struct {
	Username     string             `json:"username,omitempty"`
	Commits      []Commit           `json:"commits"`
	PullRequests []PullRequestEvent `json:"pullRequests"`
	Issues       []IssueEvent       `json:"issues"`
}

// IsEmpty reports whether the activity carries no events at all.
func (a *Activity) IsEmpty() bool {
	return a == nil || (len(a.Commits) == 0 && len(a.PullRequests) == 0 && len(a.Issues) == 0)
}

// Preferences control how a standup is rendered.
type Preferences struct {
	Tone         string `json:"tone"`
	Length       string `json:"length"`
	CustomPrompt string `json:"customPrompt,omitempty"`
	SprintGoal   string `json:"sprintGoal,omitempty"`
}

// Generation sources recorded in GenerationMetadata.Source.
const (
	SourceLLM      = "llm"      // LLM call succeeded
	SourceFallback = "fallback" // LLM attempted and failed
	SourceBasic    = "basic"    // no LLM configured
	SourceNone     = "none"     // no activity; canned content, no generation ran
)

// GenerationMetadata records how a standup's content was produced.
type GenerationMetadata struct {
	Source      string    `json:"source"`
	Model       string    `json:"model,omitempty"`
	TokensUsed  int       `json:"tokensUsed,omitempty"`
	Cost        float64   `json:"cost,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// StandupRecord is the unit the ledger manages: at most one exists per
// (UserID, Date) at any time. The ID is stable across regenerations of the
// same day; ReplacedCount counts regenerations after the first.
type StandupRecord struct {
	ID            string             `json:"id"`
	UserID        string             `json:"userId"`
	Date          Day                `json:"date"`
	Content       string             `json:"content"`
	RawData       *Activity          `json:"rawData,omitempty"`
	Preferences   Preferences        `json:"preferences"`
	Metadata      GenerationMetadata `json:"generationMetadata"`
	ReplacedCount int                `json:"replacedCount"`
	GeneratedAt   time.Time          `json:"generatedAt"`
}
