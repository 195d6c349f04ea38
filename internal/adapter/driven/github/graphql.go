package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prdeck/prdeck/internal/domain/model"
)

// graphqlHTTPClient is the HTTP client used for GraphQL requests.
// It enforces a 30-second timeout as a safety net alongside context
// cancellation.
var graphqlHTTPClient = &http.Client{Timeout: 30 * time.Second}

// tokenExpirationHeader carries the PAT expiration date on GraphQL
// responses for tokens that have one.
const tokenExpirationHeader = "github-authentication-token-expiration"

const viewerQuery = `query { viewer { login } }`

// graphqlRequest is the JSON body sent to the GitHub GraphQL API.
type graphqlRequest struct {
	Query string `json:"query"`
}

// graphqlError is one entry of a GraphQL response's errors array.
type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// pullRequestSelection is the sub-query issued once per tracked repository
// inside the batched document. %s is the states list.
const pullRequestSelection = `
    name
    url
    owner { login url avatarUrl }
    pullRequests(states: [%s], first: 50, orderBy: {field: UPDATED_AT, direction: DESC}) {
      nodes {
        fullDatabaseId
        number
        title
        url
        createdAt
        updatedAt
        headRefName
        baseRefName
        author { login url avatarUrl }
        assignees(first: 20) { nodes { login url avatarUrl } }
        reviewRequests(first: 20) {
          nodes { requestedReviewer { ... on User { login url avatarUrl } } }
        }
        reviews(first: 50) { nodes { author { login url avatarUrl } state body } }
        commits(last: 1) {
          nodes {
            commit {
              statusCheckRollup {
                state
                contexts(first: 50) {
                  nodes {
                    __typename
                    ... on CheckRun { name status conclusion }
                    ... on StatusContext { context state }
                  }
                }
              }
            }
          }
        }
      }
    }
`

// graphqlStates maps the fetch state to the GraphQL PullRequestState list.
// "closed" includes merged, matching the REST API's state=closed.
func graphqlStates(state model.PullRequestState) string {
	if state == model.PullStateClosed {
		return "CLOSED, MERGED"
	}
	return "OPEN"
}

// repoAlias is the field alias for the i-th repository sub-query.
func repoAlias(i int) string {
	return "repo" + strconv.Itoa(i)
}

// buildPullRequestsQuery composes one document with an aliased
// repository(owner, name) sub-query per tracked repository, so the whole
// account resolves in a single API call.
func buildPullRequestsQuery(repos []model.TrackedRepository, state model.PullRequestState) string {
	selection := fmt.Sprintf(pullRequestSelection, graphqlStates(state))

	var b strings.Builder
	b.WriteString("query {\n")
	for i, repo := range repos {
		fmt.Fprintf(&b, "  %s: repository(owner: %s, name: %s) {%s  }\n",
			repoAlias(i),
			strconv.Quote(repo.Owner.Login),
			strconv.Quote(repo.Name),
			selection,
		)
	}
	b.WriteString("}")
	return b.String()
}

// FetchPullRequests fetches pull requests for all given repositories in a
// single batched GraphQL call. Results come back in repository input
// order, then UPDATED_AT DESC within each repository. A repository that
// resolves to null (deleted, renamed, or inaccessible) contributes zero
// results; the call only fails on transport, HTTP, or auth-level errors.
func (c *Client) FetchPullRequests(ctx context.Context, repos []model.TrackedRepository, state model.PullRequestState) ([]model.PullRequest, error) {
	if len(repos) == 0 {
		return []model.PullRequest{}, nil
	}

	body, err := json.Marshal(graphqlRequest{Query: buildPullRequestsQuery(repos, state)})
	if err != nil {
		return nil, fmt.Errorf("marshaling pull request query: %w", err)
	}

	status, respBody, header, err := c.doGraphQL(ctx, body)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, classifyStatus(status, respBody, header)
	}

	var resp struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []graphqlError             `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding pull request response: %w", err)
	}

	if apiErr := classifyGraphQLErrors(resp.Errors); apiErr != nil {
		if apiErr.Kind == model.APIErrorAuthFailed || len(resp.Data) == 0 {
			return nil, apiErr
		}
		// Partial data with errors: typically one alias resolved to null.
		// Keep what resolved and degrade the rest to missing.
		slog.Warn("graphql returned partial data", "error", apiErr)
	}

	var pulls []model.PullRequest
	for i, tracked := range repos {
		raw, ok := resp.Data[repoAlias(i)]
		if !ok || string(raw) == "null" {
			slog.Warn("repository missing from graphql response", "repo", tracked.FullName())
			continue
		}

		var repoNode gqlRepository
		if err := json.Unmarshal(raw, &repoNode); err != nil {
			return nil, fmt.Errorf("decoding repository %s: %w", tracked.FullName(), err)
		}

		for _, node := range repoNode.PullRequests.Nodes {
			pulls = append(pulls, normalizeGraphQLPullRequest(node, repoNode))
		}
	}

	if pulls == nil {
		pulls = []model.PullRequest{}
	}

	return pulls, nil
}

// FetchTokenExpiration probes the token's expiration date by issuing a
// minimal viewer query and reading the expiration response header.
// Expiration is informational: every failure path returns nil, nil.
func (c *Client) FetchTokenExpiration(ctx context.Context) (*time.Time, error) {
	body, err := json.Marshal(graphqlRequest{Query: viewerQuery})
	if err != nil {
		return nil, nil
	}

	status, _, header, err := c.doGraphQL(ctx, body)
	if err != nil || status != http.StatusOK {
		slog.Debug("token expiration probe failed", "status", status, "error", err)
		return nil, nil
	}

	raw := header.Get(tokenExpirationHeader)
	if raw == "" {
		return nil, nil
	}

	expires, err := parseTokenExpiration(raw)
	if err != nil {
		slog.Debug("unparseable token expiration header", "value", raw, "error", err)
		return nil, nil
	}

	return &expires, nil
}

// parseTokenExpiration parses the expiration header, which GitHub emits as
// "2026-01-02 15:04:05 UTC" (or RFC 3339 for fine-grained tokens).
func parseTokenExpiration(raw string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05 MST",
		"2006-01-02 15:04:05 -0700",
		time.RFC3339,
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized expiration format %q", raw)
}

// doGraphQL performs one POST to the GraphQL endpoint and returns the raw
// status, body, and headers for the caller to interpret. Network failures
// come back as a generic classified error; non-2xx statuses are returned,
// not raised, so semantics stay with the caller.
func (c *Client) doGraphQL(ctx context.Context, body []byte) (int, []byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("creating graphql request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, &model.APIError{Kind: model.APIErrorGeneric, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading graphql response: %w", err)
	}

	logGraphQLRateLimit(resp)

	return resp.StatusCode, respBody, resp.Header, nil
}

// logGraphQLRateLimit logs one line per GraphQL call with the rate limit
// headers. Same escalation as the REST path: warn below 10% remaining,
// error on 4xx/5xx.
func logGraphQLRateLimit(resp *http.Response) {
	remaining, _ := strconv.Atoi(resp.Header.Get("x-ratelimit-remaining"))
	limit, _ := strconv.Atoi(resp.Header.Get("x-ratelimit-limit"))

	if resp.StatusCode >= 400 {
		slog.Error("github graphql call failed",
			"status", resp.StatusCode,
			"rate_remaining", remaining,
			"rate_limit", limit,
		)
		return
	}

	if limit > 0 && remaining*10 < limit {
		slog.Warn("github rate limit low",
			"endpoint", "/graphql",
			"remaining", remaining,
			"limit", limit,
		)
		return
	}

	slog.Debug("github graphql call",
		"status", resp.StatusCode,
		"rate_remaining", remaining,
		"rate_limit", limit,
	)
}
