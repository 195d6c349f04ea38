package model

import "time"

// User is a GitHub user as it appears on a pull request (author, assignee,
// reviewer). Name carries the login.
type User struct {
	Name      string
	HTMLURL   string
	AvatarURL string
}

// PullRequest is the transport-independent pull request record. Both the
// REST and the GraphQL payload shapes normalize into this one type.
// Instances are request-scoped; nothing persists them.
type PullRequest struct {
	ID           string
	Number       int
	Title        string
	URL          string
	Owner        Owner
	Repository   RepositoryRef
	Author       User
	Assignees    []User
	Reviewers    []Reviewer
	SourceBranch string
	TargetBranch string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Checks is nil when the head commit has no status-check rollup.
	// Only the GraphQL transport can populate it.
	Checks *CheckSummary
}
