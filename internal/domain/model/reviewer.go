package model

// Reviewer is the merged, deduplicated review status for one login:
// requested reviewers and submitted reviews collapse into a single record.
type Reviewer struct {
	User
	Comments int
	Status   ReviewerStatus
}

// ReviewEvent is one submitted review as delivered by the API, before
// merging. State carries the raw API value (e.g. "APPROVED").
type ReviewEvent struct {
	Reviewer User
	State    string
	Body     string
}
