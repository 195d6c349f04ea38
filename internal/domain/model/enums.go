package model

// PullRequestState selects which pull requests a fetch returns.
type PullRequestState string

const (
	PullStateOpen   PullRequestState = "open"
	PullStateClosed PullRequestState = "closed"
)

// Valid reports whether s is a state accepted by the fetch API.
func (s PullRequestState) Valid() bool {
	return s == PullStateOpen || s == PullStateClosed
}

// ReviewerStatus is the merged per-reviewer review state.
type ReviewerStatus string

const (
	ReviewerStatusPending          ReviewerStatus = "pending"
	ReviewerStatusApproved         ReviewerStatus = "approved"
	ReviewerStatusChangesRequested ReviewerStatus = "changes_requested"
	ReviewerStatusCommented        ReviewerStatus = "commented"
	ReviewerStatusDismissed        ReviewerStatus = "dismissed"
)

// RollupState is the overall CI status across all checks for a commit.
type RollupState string

const (
	RollupSuccess    RollupState = "success"
	RollupFailure    RollupState = "failure"
	RollupPending    RollupState = "pending"
	RollupInProgress RollupState = "in_progress"
)

// Check status values shared by the CheckRun and StatusContext mappings.
const (
	CheckStatusInProgress = "in_progress"
	CheckStatusCompleted  = "completed"
)
