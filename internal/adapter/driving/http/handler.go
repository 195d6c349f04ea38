// Package httphandler is the HTTP driving adapter serving the JSON API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prdeck/prdeck/internal/application"
	"github.com/prdeck/prdeck/internal/domain/model"
	"github.com/prdeck/prdeck/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	accountSvc *application.AccountService
	pullSvc    *application.PullService
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	accountSvc *application.AccountService,
	pullSvc *application.PullService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		accountSvc: accountSvc,
		pullSvc:    pullSvc,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/pulls", h.ListPulls)
	mux.HandleFunc("GET /api/v1/accounts", h.ListAccounts)
	mux.HandleFunc("POST /api/v1/accounts", h.RegisterAccount)
	mux.HandleFunc("DELETE /api/v1/accounts/{id}", h.RemoveAccount)
	mux.HandleFunc("PUT /api/v1/accounts/{id}/token", h.UpdateToken)
	mux.HandleFunc("GET /api/v1/accounts/{id}/owners", h.ListOwners)
	mux.HandleFunc("GET /api/v1/accounts/{id}/owners/{owner}/repositories", h.ListOwnerRepositories)
	mux.HandleFunc("GET /api/v1/repositories", h.ListRepositories)
	mux.HandleFunc("POST /api/v1/repositories", h.AddRepository)
	mux.HandleFunc("DELETE /api/v1/repositories/{id}", h.RemoveRepository)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListPulls returns the aggregated pull requests across all accounts.
// When an account's credentials fail, the response is 401 but still carries
// the partial list from the healthy accounts.
func (h *Handler) ListPulls(w http.ResponseWriter, r *http.Request) {
	state := model.PullRequestState(r.URL.Query().Get("state"))
	if state == "" {
		state = model.PullStateOpen
	}
	if !state.Valid() {
		writeError(w, http.StatusBadRequest, "invalid state: expected open or closed")
		return
	}

	pulls, err := h.pullSvc.GetPullRequests(r.Context(), state)

	resp := PullListResponse{Pulls: make([]PullResponse, 0, len(pulls))}
	for _, pr := range pulls {
		resp.Pulls = append(resp.Pulls, toPullResponse(pr))
	}

	if err != nil {
		if model.IsAuthFailed(err) {
			resp.Error = err.Error()
			writeJSON(w, http.StatusUnauthorized, resp)
			return
		}
		h.logger.Error("failed to aggregate pull requests", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListAccounts returns all registered accounts, tokens excluded.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountSvc.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// RegisterAccount validates a token against the live API and registers the
// account it resolves to.
func (h *Handler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	account, err := h.accountSvc.RegisterAccount(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, driven.ErrAccountAlreadyExists) {
			writeError(w, http.StatusConflict, "account already registered for this login")
			return
		}
		h.writeUpstreamError(w, "failed to register account", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(*account))
}

// RemoveAccount deletes an account and its tracked repositories.
func (h *Handler) RemoveAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.accountSvc.RemoveAccount(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("failed to remove account", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateToken rotates an account's token. The new token must resolve to the
// same login.
func (h *Handler) UpdateToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.accountSvc.UpdateToken(r.Context(), id, req.Token); err != nil {
		switch {
		case errors.Is(err, driven.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		case errors.Is(err, application.ErrLoginMismatch):
			writeError(w, http.StatusConflict, "token belongs to a different login")
		default:
			h.writeUpstreamError(w, "failed to update token", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListOwners returns the owners reachable by an account's token.
func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	owners, err := h.accountSvc.ListOwners(r.Context(), id)
	if err != nil {
		if errors.Is(err, driven.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.writeUpstreamError(w, "failed to list owners", err)
		return
	}

	resp := make([]OwnerResponse, 0, len(owners))
	for _, o := range owners {
		resp = append(resp, toOwnerResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListOwnerRepositories returns the repositories under one owner reachable
// by an account's token.
func (h *Handler) ListOwnerRepositories(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	owner := r.PathValue("owner")

	repos, err := h.accountSvc.ListOwnerRepositories(r.Context(), id, owner)
	if err != nil {
		if errors.Is(err, driven.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.writeUpstreamError(w, "failed to list owner repositories", err)
		return
	}

	resp := make([]RepositoryRefResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, RepositoryRefResponse{Name: repo.Name, HTMLURL: repo.HTMLURL})
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListRepositories returns every tracked repository.
func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.accountSvc.ListTrackedRepositories(r.Context())
	if err != nil {
		h.logger.Error("failed to list tracked repositories", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]TrackedRepoResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toTrackedRepoResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddRepository starts tracking a repository for an account.
func (h *Handler) AddRepository(w http.ResponseWriter, r *http.Request) {
	var req AddRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}
	if !isValidRepoPart(req.Owner) || !isValidRepoPart(req.Name) {
		writeError(w, http.StatusBadRequest, "invalid owner or repository name")
		return
	}

	repo := model.TrackedRepository{
		AccountID: req.AccountID,
		Owner:     model.Owner{Login: req.Owner},
		Name:      req.Name,
		AddedAt:   time.Now().UTC(),
	}

	if err := h.accountSvc.AddRepository(r.Context(), repo); err != nil {
		switch {
		case errors.Is(err, driven.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		case errors.Is(err, driven.ErrRepoAlreadyTracked):
			writeError(w, http.StatusConflict, "repository already tracked for this account")
		default:
			h.logger.Error("failed to track repository", "repo", req.Owner+"/"+req.Name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// RemoveRepository stops tracking a repository by id.
func (h *Handler) RemoveRepository(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid repository id")
		return
	}

	if err := h.accountSvc.RemoveRepository(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrRepoNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		h.logger.Error("failed to remove tracked repository", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeUpstreamError maps a classified GitHub API failure onto an HTTP
// status. Unclassified errors are logged and become 500s.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, msg string, err error) {
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch apiErr.Kind {
	case model.APIErrorAuthFailed:
		writeError(w, http.StatusUnauthorized, apiErr.Message)
	case model.APIErrorRateLimited:
		writeError(w, http.StatusTooManyRequests, apiErr.Message)
	case model.APIErrorPermissionDenied:
		writeError(w, http.StatusForbidden, apiErr.Message)
	case model.APIErrorNotFound:
		writeError(w, http.StatusNotFound, apiErr.Message)
	default:
		h.logger.Error(msg, "kind", string(apiErr.Kind), "error", err)
		writeError(w, http.StatusBadGateway, apiErr.Message)
	}
}

// isValidRepoPart reports whether s is a plausible GitHub owner or
// repository name segment.
func isValidRepoPart(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if !isValidRepoChar(ch) {
			return false
		}
	}
	return true
}

// isValidRepoChar returns true if the rune is allowed in a repository owner or name.
func isValidRepoChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
