package github

import (
	"strings"

	"github.com/prdeck/prdeck/internal/domain/model"
)

// reviewerRank assigns each reviewer status a position in the precedence
// order. Status updates apply only when the incoming rank is strictly
// higher, which makes "approved" sticky without any special casing.
func reviewerRank(status model.ReviewerStatus) int {
	switch status {
	case model.ReviewerStatusApproved:
		return 4
	case model.ReviewerStatusChangesRequested:
		return 3
	case model.ReviewerStatusCommented:
		return 2
	case model.ReviewerStatusDismissed:
		return 1
	default:
		return 0 // pending
	}
}

// mapReviewerStatus converts a raw API review state (e.g. "APPROVED") to a
// ReviewerStatus. Unknown states fall back to pending so an unmapped value
// never reaches the caller.
func mapReviewerStatus(state string) model.ReviewerStatus {
	switch strings.ToUpper(state) {
	case "APPROVED":
		return model.ReviewerStatusApproved
	case "CHANGES_REQUESTED":
		return model.ReviewerStatusChangesRequested
	case "COMMENTED":
		return model.ReviewerStatusCommented
	case "DISMISSED":
		return model.ReviewerStatusDismissed
	default:
		return model.ReviewerStatusPending
	}
}

// MergeReviewers combines requested reviewers (no review submitted yet)
// with submitted review events into one deduplicated record per login.
//
// Requested reviewers seed the result with status pending and zero
// comments. Events then apply in order: a non-empty body increments the
// comment counter, and the status moves only to a strictly higher-ranked
// one. Reviewers seen only in events are created from the event. Output
// order is requested order first, then first-appearance order of event
// reviewers.
func MergeReviewers(requested []model.User, events []model.ReviewEvent) []model.Reviewer {
	byLogin := make(map[string]*model.Reviewer, len(requested))
	order := make([]string, 0, len(requested))

	for _, user := range requested {
		if _, ok := byLogin[user.Name]; ok {
			continue
		}
		byLogin[user.Name] = &model.Reviewer{
			User:   user,
			Status: model.ReviewerStatusPending,
		}
		order = append(order, user.Name)
	}

	for _, event := range events {
		login := event.Reviewer.Name
		if login == "" {
			continue
		}

		status := mapReviewerStatus(event.State)

		reviewer, ok := byLogin[login]
		if !ok {
			reviewer = &model.Reviewer{
				User:   event.Reviewer,
				Status: status,
			}
			byLogin[login] = reviewer
			order = append(order, login)
		} else if reviewerRank(status) > reviewerRank(reviewer.Status) {
			reviewer.Status = status
		}

		if event.Body != "" {
			reviewer.Comments++
		}
	}

	merged := make([]model.Reviewer, 0, len(order))
	for _, login := range order {
		merged = append(merged, *byLogin[login])
	}

	return merged
}
