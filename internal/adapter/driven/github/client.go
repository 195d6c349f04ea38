// Package github implements the GitHubClient port using the go-github
// library for REST calls and a hand-rolled document builder for the
// batched GraphQL pull request query.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/prdeck/prdeck/internal/domain/model"
	"github.com/prdeck/prdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

const defaultAPIBaseURL = "https://api.github.com"

// Client implements the driven.GitHubClient port for one bearer token.
type Client struct {
	gh         *gh.Client
	token      string // Stored for the GraphQL Authorization header.
	graphqlURL string
	httpClient *http.Client // GraphQL transport.
}

// NewClient creates a GitHub API client for the given token with the
// following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// apiBaseURL overrides the API endpoint for GitHub Enterprise; pass ""
// for api.github.com.
func NewClient(token, apiBaseURL string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	base := strings.TrimSuffix(apiBaseURL, "/")
	if base == "" {
		base = defaultAPIBaseURL
	}

	if base != defaultAPIBaseURL {
		if u, err := url.Parse(base + "/"); err == nil {
			client.BaseURL = u
		}
	}

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: base + "/graphql",
		httpClient: graphqlHTTPClient,
	}
}

// NewFactory returns a driven.ClientFactory producing clients against the
// given API base URL. This is the composition root's injection point; the
// fan-out orchestrator calls the factory once per account token.
func NewFactory(apiBaseURL string) driven.ClientFactory {
	return func(token string) driven.GitHubClient {
		return NewClient(token, apiBaseURL)
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and
// base URL. Intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	// Derive the GraphQL URL from baseURL so httptest servers can
	// intercept GraphQL requests too.
	graphqlU := *u
	graphqlU.Path = "/graphql"

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: graphqlU.String(),
		httpClient: httpClient,
	}, nil
}

// FetchViewer resolves the client's token to its account profile.
func (c *Client) FetchViewer(ctx context.Context) (model.AccountProfile, error) {
	user, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return model.AccountProfile{}, classifyRESTError("fetching authenticated user", err)
	}

	logRateLimit(resp, "/user", 1)

	return model.AccountProfile{
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		HTMLURL:   user.GetHTMLURL(),
		AvatarURL: user.GetAvatarURL(),
	}, nil
}

// FetchOwners lists the organizations reachable by the token. The org
// list payload omits html_url, so it is composed from the login the same
// way github.com renders it.
func (c *Client) FetchOwners(ctx context.Context) ([]model.Owner, error) {
	opts := &gh.ListOptions{PerPage: 100}
	var owners []model.Owner

	for {
		orgs, resp, err := c.gh.Organizations.List(ctx, "", opts)
		if err != nil {
			return nil, classifyRESTError("listing organizations", err)
		}

		logRateLimit(resp, "/user/orgs", len(orgs))

		for _, org := range orgs {
			owners = append(owners, model.Owner{
				Login:     org.GetLogin(),
				HTMLURL:   "https://github.com/" + org.GetLogin(),
				AvatarURL: org.GetAvatarURL(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if owners == nil {
		owners = []model.Owner{}
	}

	return owners, nil
}

// FetchUserRepositories lists repositories owned by the token's user.
func (c *Client) FetchUserRepositories(ctx context.Context) ([]model.RepositoryRef, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Affiliation: "owner",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var refs []model.RepositoryRef

	for {
		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, classifyRESTError("listing user repositories", err)
		}

		logRateLimit(resp, "/user/repos", len(repos))

		for _, repo := range repos {
			refs = append(refs, model.RepositoryRef{
				Name:    repo.GetName(),
				HTMLURL: repo.GetHTMLURL(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if refs == nil {
		refs = []model.RepositoryRef{}
	}

	return refs, nil
}

// FetchOwnerRepositories lists repositories under the given organization.
func (c *Client) FetchOwnerRepositories(ctx context.Context, ownerLogin string) ([]model.RepositoryRef, error) {
	opts := &gh.RepositoryListByOrgOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var refs []model.RepositoryRef

	for {
		repos, resp, err := c.gh.Repositories.ListByOrg(ctx, ownerLogin, opts)
		if err != nil {
			return nil, classifyRESTError(fmt.Sprintf("listing repositories for %s", ownerLogin), err)
		}

		logRateLimit(resp, "/orgs/"+ownerLogin+"/repos", len(repos))

		for _, repo := range repos {
			refs = append(refs, model.RepositoryRef{
				Name:    repo.GetName(),
				HTMLURL: repo.GetHTMLURL(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if refs == nil {
		refs = []model.RepositoryRef{}
	}

	return refs, nil
}

// FetchRepositoryPullRequests lists pull requests for a single repository
// over REST, merging each pull request's review events into per-reviewer
// status. CI status is only available via the GraphQL transport and stays
// nil on this path.
func (c *Client) FetchRepositoryPullRequests(ctx context.Context, ownerLogin, repoName string, state model.PullRequestState) ([]model.PullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:       string(state),
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var pulls []model.PullRequest

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, ownerLogin, repoName, opts)
		if err != nil {
			return nil, classifyRESTError(fmt.Sprintf("listing pull requests for %s/%s", ownerLogin, repoName), err)
		}

		logRateLimit(resp, fmt.Sprintf("/repos/%s/%s/pulls", ownerLogin, repoName), len(prs))

		for _, pr := range prs {
			events, err := c.fetchReviewEvents(ctx, ownerLogin, repoName, pr.GetNumber())
			if err != nil {
				// Review data is supplementary; the pull request still
				// counts with its requested reviewers only.
				slog.Warn("fetching reviews failed",
					"repo", ownerLogin+"/"+repoName,
					"pr", pr.GetNumber(),
					"error", err,
				)
				events = nil
			}
			pulls = append(pulls, normalizeRESTPullRequest(pr, events))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if pulls == nil {
		pulls = []model.PullRequest{}
	}

	return pulls, nil
}

// fetchReviewEvents retrieves all reviews for one pull request.
func (c *Client) fetchReviewEvents(ctx context.Context, ownerLogin, repoName string, number int) ([]model.ReviewEvent, error) {
	opts := &gh.ListOptions{PerPage: 100}
	var events []model.ReviewEvent

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, ownerLogin, repoName, number, opts)
		if err != nil {
			return nil, classifyRESTError(fmt.Sprintf("listing reviews for %s/%s#%d", ownerLogin, repoName, number), err)
		}

		for _, r := range reviews {
			events = append(events, model.ReviewEvent{
				Reviewer: restUser(r.GetUser()),
				State:    r.GetState(),
				Body:     r.GetBody(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return events, nil
}

// logRateLimit logs the rate limit status after a REST call. Severity
// escalates: warn below 10% remaining quota, error on 4xx/5xx.
func logRateLimit(resp *gh.Response, endpoint string, count int) {
	if resp == nil {
		return
	}

	remaining := resp.Rate.Remaining
	limit := resp.Rate.Limit

	if resp.StatusCode >= 400 {
		slog.Error("github api call failed",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"rate_remaining", remaining,
			"rate_limit", limit,
		)
		return
	}

	if limit > 0 && remaining*10 < limit {
		slog.Warn("github rate limit low",
			"endpoint", endpoint,
			"remaining", remaining,
			"limit", limit,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"count", count,
		"rate_remaining", remaining,
		"rate_limit", limit,
	)
}
