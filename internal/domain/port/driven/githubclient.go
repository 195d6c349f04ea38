package driven

import (
	"context"
	"time"

	"github.com/prdeck/prdeck/internal/domain/model"
)

// GitHubClient defines the driven port for reading from the GitHub API on
// behalf of one token. Implementations are created per account through a
// factory so the orchestrator can fan out over independently-credentialed
// clients.
type GitHubClient interface {
	// FetchViewer resolves the token to its account profile (GET /user).
	FetchViewer(ctx context.Context) (model.AccountProfile, error)

	// FetchTokenExpiration probes the token's expiration date. Returns
	// nil, nil when GitHub does not report one; probe failures are not
	// errors either, since expiration is informational.
	FetchTokenExpiration(ctx context.Context) (*time.Time, error)

	// FetchOwners lists the organizations reachable by the token.
	FetchOwners(ctx context.Context) ([]model.Owner, error)

	// FetchUserRepositories lists repositories owned by the token's user.
	FetchUserRepositories(ctx context.Context) ([]model.RepositoryRef, error)

	// FetchOwnerRepositories lists repositories under the given organization.
	FetchOwnerRepositories(ctx context.Context, ownerLogin string) ([]model.RepositoryRef, error)

	// FetchPullRequests fetches pull requests for all given repositories in
	// a single batched GraphQL call and returns them normalized, in
	// repository order then UPDATED_AT DESC within each repository.
	FetchPullRequests(ctx context.Context, repos []model.TrackedRepository, state model.PullRequestState) ([]model.PullRequest, error)
}

// ClientFactory constructs a GitHubClient for a bearer token. Injected into
// services so tests can substitute fakes.
type ClientFactory func(token string) GitHubClient
