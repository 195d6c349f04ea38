package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prdeck/prdeck/internal/domain/model"
)

func user(login string) model.User {
	return model.User{Name: login, HTMLURL: "https://github.com/" + login}
}

func TestMergeReviewers_RequestedOnly(t *testing.T) {
	merged := MergeReviewers([]model.User{user("alice"), user("bob")}, nil)

	require.Len(t, merged, 2)
	assert.Equal(t, "alice", merged[0].Name)
	assert.Equal(t, model.ReviewerStatusPending, merged[0].Status)
	assert.Zero(t, merged[0].Comments)
	assert.Equal(t, model.ReviewerStatusPending, merged[1].Status)
}

func TestMergeReviewers_EventOnlyReviewer(t *testing.T) {
	events := []model.ReviewEvent{
		{Reviewer: user("carol"), State: "APPROVED", Body: ""},
	}

	merged := MergeReviewers(nil, events)

	require.Len(t, merged, 1)
	assert.Equal(t, "carol", merged[0].Name)
	assert.Equal(t, model.ReviewerStatusApproved, merged[0].Status)
	assert.Zero(t, merged[0].Comments)
}

func TestMergeReviewers_ApprovedIsSticky(t *testing.T) {
	events := []model.ReviewEvent{
		{Reviewer: user("alice"), State: "APPROVED"},
		{Reviewer: user("alice"), State: "COMMENTED", Body: "one more thought"},
	}

	merged := MergeReviewers([]model.User{user("alice")}, events)

	require.Len(t, merged, 1)
	assert.Equal(t, model.ReviewerStatusApproved, merged[0].Status)
	// The comment still counts even though the status did not move.
	assert.Equal(t, 1, merged[0].Comments)
}

func TestMergeReviewers_StatusEscalates(t *testing.T) {
	events := []model.ReviewEvent{
		{Reviewer: user("alice"), State: "COMMENTED", Body: "looks odd"},
		{Reviewer: user("alice"), State: "CHANGES_REQUESTED", Body: "please fix"},
	}

	merged := MergeReviewers([]model.User{user("alice")}, events)

	require.Len(t, merged, 1)
	assert.Equal(t, model.ReviewerStatusChangesRequested, merged[0].Status)
	assert.Equal(t, 2, merged[0].Comments)
}

func TestMergeReviewers_DismissedDoesNotDowngrade(t *testing.T) {
	events := []model.ReviewEvent{
		{Reviewer: user("alice"), State: "CHANGES_REQUESTED", Body: "fix"},
		{Reviewer: user("alice"), State: "DISMISSED"},
	}

	merged := MergeReviewers([]model.User{user("alice")}, events)

	require.Len(t, merged, 1)
	assert.Equal(t, model.ReviewerStatusChangesRequested, merged[0].Status)
}

func TestMergeReviewers_EmptyBodyNotCounted(t *testing.T) {
	events := []model.ReviewEvent{
		{Reviewer: user("alice"), State: "APPROVED", Body: ""},
		{Reviewer: user("alice"), State: "COMMENTED", Body: "nit"},
		{Reviewer: user("alice"), State: "COMMENTED", Body: ""},
	}

	merged := MergeReviewers([]model.User{user("alice")}, events)

	require.Len(t, merged, 1)
	assert.Equal(t, 1, merged[0].Comments)
}

func TestMergeReviewers_UnknownStateFallsBackToPending(t *testing.T) {
	events := []model.ReviewEvent{
		{Reviewer: user("alice"), State: "SOMETHING_NEW"},
	}

	merged := MergeReviewers(nil, events)

	require.Len(t, merged, 1)
	assert.Equal(t, model.ReviewerStatusPending, merged[0].Status)
}

func TestMergeReviewers_OutputOrder(t *testing.T) {
	requested := []model.User{user("alice"), user("bob")}
	events := []model.ReviewEvent{
		{Reviewer: user("carol"), State: "APPROVED"},
		{Reviewer: user("bob"), State: "COMMENTED", Body: "hm"},
		{Reviewer: user("dave"), State: "COMMENTED", Body: "hi"},
	}

	merged := MergeReviewers(requested, events)

	require.Len(t, merged, 4)
	assert.Equal(t, "alice", merged[0].Name)
	assert.Equal(t, "bob", merged[1].Name)
	assert.Equal(t, "carol", merged[2].Name)
	assert.Equal(t, "dave", merged[3].Name)
}

func TestMergeReviewers_DuplicateRequestIgnored(t *testing.T) {
	merged := MergeReviewers([]model.User{user("alice"), user("alice")}, nil)

	assert.Len(t, merged, 1)
}

func TestMergeReviewers_SkipsEmptyLoginEvents(t *testing.T) {
	events := []model.ReviewEvent{
		{Reviewer: model.User{}, State: "APPROVED"},
	}

	merged := MergeReviewers(nil, events)

	assert.Empty(t, merged)
}
