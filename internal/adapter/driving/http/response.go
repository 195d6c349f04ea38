package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prdeck/prdeck/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AccountResponse is the JSON representation of a registered account.
// The token never appears in responses.
type AccountResponse struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
	ExpiresAt string `json:"expires_at,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// OwnerResponse is the JSON representation of a repository owner.
type OwnerResponse struct {
	Login     string `json:"login"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
}

// RepositoryRefResponse is the JSON representation of a repository listed
// under an owner.
type RepositoryRefResponse struct {
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// TrackedRepoResponse is the JSON representation of a tracked repository.
type TrackedRepoResponse struct {
	ID        int64         `json:"id"`
	AccountID string        `json:"account_id"`
	Owner     OwnerResponse `json:"owner"`
	Name      string        `json:"name"`
	FullName  string        `json:"full_name"`
	HTMLURL   string        `json:"html_url"`
	AddedAt   string        `json:"added_at"`
}

// UserResponse is the JSON representation of a user on a pull request.
type UserResponse struct {
	Name      string `json:"name"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
}

// ReviewerResponse is the JSON representation of a merged reviewer record.
type ReviewerResponse struct {
	Name      string `json:"name"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
	Comments  int    `json:"comments"`
	Status    string `json:"status"`
}

// CheckResponse is one CI check on a pull request's head commit.
type CheckResponse struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Conclusion *string `json:"conclusion"`
}

// CheckSummaryResponse is the overall CI state plus individual checks.
type CheckSummaryResponse struct {
	State  string          `json:"state"`
	Checks []CheckResponse `json:"checks"`
}

// PullResponse is the JSON representation of an aggregated pull request.
type PullResponse struct {
	ID           string                `json:"id"`
	Number       int                   `json:"number"`
	Title        string                `json:"title"`
	URL          string                `json:"url"`
	Owner        OwnerResponse         `json:"owner"`
	Repository   RepositoryRefResponse `json:"repository"`
	Author       UserResponse          `json:"author"`
	Assignees    []UserResponse        `json:"assignees"`
	Reviewers    []ReviewerResponse    `json:"reviewers"`
	SourceBranch string                `json:"source_branch"`
	TargetBranch string                `json:"target_branch"`
	CreatedAt    string                `json:"created_at"`
	UpdatedAt    string                `json:"updated_at"`
	Checks       *CheckSummaryResponse `json:"checks,omitempty"`
}

// PullListResponse is the aggregate endpoint's body. Error is set when an
// account's credentials failed and the list is partial.
type PullListResponse struct {
	Pulls []PullResponse `json:"pulls"`
	Error string         `json:"error,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// RegisterAccountRequest is the JSON body for account registration.
type RegisterAccountRequest struct {
	Token string `json:"token"`
}

// UpdateTokenRequest is the JSON body for the token rotation endpoint.
type UpdateTokenRequest struct {
	Token string `json:"token"`
}

// AddRepositoryRequest is the JSON body for the track repository endpoint.
type AddRepositoryRequest struct {
	AccountID string `json:"account_id"`
	Owner     string `json:"owner"`
	Name      string `json:"name"`
}

// toAccountResponse converts a domain Account to its JSON representation,
// dropping the token.
func toAccountResponse(a model.Account) AccountResponse {
	resp := AccountResponse{
		ID:        a.ID,
		Login:     a.Login,
		Name:      a.Name,
		HTMLURL:   a.HTMLURL,
		AvatarURL: a.AvatarURL,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if a.ExpiresAt != nil {
		resp.ExpiresAt = a.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// toOwnerResponse converts a domain Owner to its JSON representation.
func toOwnerResponse(o model.Owner) OwnerResponse {
	return OwnerResponse{
		Login:     o.Login,
		HTMLURL:   o.HTMLURL,
		AvatarURL: o.AvatarURL,
	}
}

// toTrackedRepoResponse converts a domain TrackedRepository to its JSON
// representation.
func toTrackedRepoResponse(r model.TrackedRepository) TrackedRepoResponse {
	return TrackedRepoResponse{
		ID:        r.ID,
		AccountID: r.AccountID,
		Owner:     toOwnerResponse(r.Owner),
		Name:      r.Name,
		FullName:  r.FullName(),
		HTMLURL:   r.HTMLURL,
		AddedAt:   r.AddedAt.UTC().Format(time.RFC3339),
	}
}

// toUserResponse converts a domain User to its JSON representation.
func toUserResponse(u model.User) UserResponse {
	return UserResponse{
		Name:      u.Name,
		HTMLURL:   u.HTMLURL,
		AvatarURL: u.AvatarURL,
	}
}

// toPullResponse converts a domain PullRequest to its JSON representation.
func toPullResponse(pr model.PullRequest) PullResponse {
	assignees := make([]UserResponse, 0, len(pr.Assignees))
	for _, a := range pr.Assignees {
		assignees = append(assignees, toUserResponse(a))
	}

	reviewers := make([]ReviewerResponse, 0, len(pr.Reviewers))
	for _, r := range pr.Reviewers {
		reviewers = append(reviewers, ReviewerResponse{
			Name:      r.Name,
			HTMLURL:   r.HTMLURL,
			AvatarURL: r.AvatarURL,
			Comments:  r.Comments,
			Status:    string(r.Status),
		})
	}

	resp := PullResponse{
		ID:           pr.ID,
		Number:       pr.Number,
		Title:        pr.Title,
		URL:          pr.URL,
		Owner:        toOwnerResponse(pr.Owner),
		Repository:   RepositoryRefResponse{Name: pr.Repository.Name, HTMLURL: pr.Repository.HTMLURL},
		Author:       toUserResponse(pr.Author),
		Assignees:    assignees,
		Reviewers:    reviewers,
		SourceBranch: pr.SourceBranch,
		TargetBranch: pr.TargetBranch,
		CreatedAt:    pr.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    pr.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if pr.Checks != nil {
		checks := make([]CheckResponse, 0, len(pr.Checks.Checks))
		for _, c := range pr.Checks.Checks {
			checks = append(checks, CheckResponse{Name: c.Name, Status: c.Status, Conclusion: c.Conclusion})
		}
		resp.Checks = &CheckSummaryResponse{
			State:  string(pr.Checks.State),
			Checks: checks,
		}
	}

	return resp
}
