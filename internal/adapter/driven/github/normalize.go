package github

import (
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/prdeck/prdeck/internal/domain/model"
)

// GraphQL response shapes for the batched pull request query. Only the
// selected fields are declared; everything else in the payload is ignored.

type gqlActor struct {
	Login     string `json:"login"`
	URL       string `json:"url"`
	AvatarURL string `json:"avatarUrl"`
}

func (a gqlActor) toUser() model.User {
	return model.User{Name: a.Login, HTMLURL: a.URL, AvatarURL: a.AvatarURL}
}

type gqlRepository struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Owner struct {
		Login     string `json:"login"`
		URL       string `json:"url"`
		AvatarURL string `json:"avatarUrl"`
	} `json:"owner"`
	PullRequests struct {
		Nodes []gqlPullRequest `json:"nodes"`
	} `json:"pullRequests"`
}

type gqlPullRequest struct {
	// FullDatabaseID is the numeric database id (BigInt, serialized as a
	// string), matching the REST payload's id so both transports produce
	// the same identifier.
	FullDatabaseID string `json:"fullDatabaseId"`

	Number      int       `json:"number"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	HeadRefName string    `json:"headRefName"`
	BaseRefName string    `json:"baseRefName"`
	Author      gqlActor  `json:"author"`
	Assignees   struct {
		Nodes []gqlActor `json:"nodes"`
	} `json:"assignees"`
	ReviewRequests struct {
		Nodes []struct {
			RequestedReviewer gqlActor `json:"requestedReviewer"`
		} `json:"nodes"`
	} `json:"reviewRequests"`
	Reviews struct {
		Nodes []struct {
			Author gqlActor `json:"author"`
			State  string   `json:"state"`
			Body   string   `json:"body"`
		} `json:"nodes"`
	} `json:"reviews"`
	Commits struct {
		Nodes []struct {
			Commit struct {
				StatusCheckRollup *gqlStatusCheckRollup `json:"statusCheckRollup"`
			} `json:"commit"`
		} `json:"nodes"`
	} `json:"commits"`
}

type gqlStatusCheckRollup struct {
	State    string `json:"state"`
	Contexts struct {
		Nodes []gqlCheckContext `json:"nodes"`
	} `json:"contexts"`
}

// gqlCheckContext is the union of the CheckRun and StatusContext shapes;
// Typename discriminates which fields are populated.
type gqlCheckContext struct {
	Typename string `json:"__typename"`

	// CheckRun fields.
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`

	// StatusContext fields.
	Context string `json:"context"`
	State   string `json:"state"`
}

// normalizeGraphQLPullRequest converts a GraphQL pull request node into the
// internal record, merging reviewer data and mapping the CI rollup.
func normalizeGraphQLPullRequest(node gqlPullRequest, repo gqlRepository) model.PullRequest {
	assignees := make([]model.User, 0, len(node.Assignees.Nodes))
	for _, a := range node.Assignees.Nodes {
		assignees = append(assignees, a.toUser())
	}

	// Team review requests come through with an empty login; only user
	// reviewers participate in the merged status.
	var requested []model.User
	for _, rr := range node.ReviewRequests.Nodes {
		if rr.RequestedReviewer.Login == "" {
			continue
		}
		requested = append(requested, rr.RequestedReviewer.toUser())
	}

	events := make([]model.ReviewEvent, 0, len(node.Reviews.Nodes))
	for _, r := range node.Reviews.Nodes {
		events = append(events, model.ReviewEvent{
			Reviewer: r.Author.toUser(),
			State:    r.State,
			Body:     r.Body,
		})
	}

	return model.PullRequest{
		ID:     node.FullDatabaseID,
		Number: node.Number,
		Title:  node.Title,
		URL:    node.URL,
		Owner: model.Owner{
			Login:     repo.Owner.Login,
			HTMLURL:   repo.Owner.URL,
			AvatarURL: repo.Owner.AvatarURL,
		},
		Repository:   model.RepositoryRef{Name: repo.Name, HTMLURL: repo.URL},
		Author:       node.Author.toUser(),
		Assignees:    assignees,
		Reviewers:    MergeReviewers(requested, events),
		SourceBranch: node.HeadRefName,
		TargetBranch: node.BaseRefName,
		CreatedAt:    node.CreatedAt,
		UpdatedAt:    node.UpdatedAt,
		Checks:       normalizeCheckSummary(node),
	}
}

// normalizeCheckSummary maps the last commit's status-check rollup into the
// unified check representation. A pull request with no commits or no
// rollup yields nil: absence, not an error.
func normalizeCheckSummary(node gqlPullRequest) *model.CheckSummary {
	if len(node.Commits.Nodes) == 0 {
		return nil
	}

	rollup := node.Commits.Nodes[0].Commit.StatusCheckRollup
	if rollup == nil {
		return nil
	}

	checks := make([]model.Check, 0, len(rollup.Contexts.Nodes))
	for _, ctx := range rollup.Contexts.Nodes {
		checks = append(checks, normalizeCheck(ctx))
	}

	return &model.CheckSummary{
		State:  mapRollupState(rollup.State),
		Checks: checks,
	}
}

// mapRollupState converts a GraphQL StatusCheckRollup state to the unified
// rollup state.
func mapRollupState(state string) model.RollupState {
	switch strings.ToUpper(state) {
	case "SUCCESS":
		return model.RollupSuccess
	case "FAILURE", "ERROR":
		return model.RollupFailure
	case "PENDING", "EXPECTED":
		return model.RollupPending
	default:
		return model.RollupPending
	}
}

// normalizeCheck converts one rollup context into a unified check.
// CheckRun results pass their status/conclusion through lower-cased;
// legacy StatusContext results map PENDING to an in-progress check and
// everything else to a completed one with a derived conclusion.
func normalizeCheck(ctx gqlCheckContext) model.Check {
	if ctx.Typename == "StatusContext" {
		check := model.Check{Name: ctx.Context}
		if strings.ToUpper(ctx.State) == "PENDING" {
			check.Status = model.CheckStatusInProgress
			return check
		}
		check.Status = model.CheckStatusCompleted
		switch strings.ToUpper(ctx.State) {
		case "SUCCESS":
			check.Conclusion = strptr("success")
		case "FAILURE", "ERROR":
			check.Conclusion = strptr("failure")
		}
		return check
	}

	check := model.Check{
		Name:   ctx.Name,
		Status: strings.ToLower(ctx.Status),
	}
	if ctx.Conclusion != "" {
		check.Conclusion = strptr(strings.ToLower(ctx.Conclusion))
	}
	return check
}

// normalizeRESTPullRequest converts a REST pull request payload plus its
// review events into the internal record. CI status is not available over
// this transport; Checks stays nil.
func normalizeRESTPullRequest(pr *gh.PullRequest, events []model.ReviewEvent) model.PullRequest {
	assignees := make([]model.User, 0, len(pr.Assignees))
	for _, a := range pr.Assignees {
		assignees = append(assignees, restUser(a))
	}

	requested := make([]model.User, 0, len(pr.RequestedReviewers))
	for _, r := range pr.RequestedReviewers {
		requested = append(requested, restUser(r))
	}

	base := pr.GetBase()
	baseRepo := base.GetRepo()
	baseOwner := baseRepo.GetOwner()

	return model.PullRequest{
		ID:     strconv.FormatInt(pr.GetID(), 10),
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		Owner: model.Owner{
			Login:     baseOwner.GetLogin(),
			HTMLURL:   baseOwner.GetHTMLURL(),
			AvatarURL: baseOwner.GetAvatarURL(),
		},
		Repository: model.RepositoryRef{
			Name:    baseRepo.GetName(),
			HTMLURL: baseRepo.GetHTMLURL(),
		},
		Author:       restUser(pr.GetUser()),
		Assignees:    assignees,
		Reviewers:    MergeReviewers(requested, events),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: base.GetRef(),
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
	}
}

func restUser(u *gh.User) model.User {
	return model.User{
		Name:      u.GetLogin(),
		HTMLURL:   u.GetHTMLURL(),
		AvatarURL: u.GetAvatarURL(),
	}
}

func strptr(s string) *string {
	return &s
}
