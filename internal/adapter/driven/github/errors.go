package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/prdeck/prdeck/internal/domain/model"
)

// kindForStatus maps an HTTP status and best-effort error message to the
// error taxonomy. Deterministic: same inputs, same kind.
func kindForStatus(status int, message string) model.APIErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return model.APIErrorAuthFailed
	case status == http.StatusForbidden:
		if strings.Contains(strings.ToLower(message), "rate limit exceeded") {
			return model.APIErrorRateLimited
		}
		return model.APIErrorPermissionDenied
	case status == http.StatusNotFound:
		return model.APIErrorNotFound
	case status >= http.StatusInternalServerError:
		return model.APIErrorServerError
	default:
		return model.APIErrorGeneric
	}
}

// classifyStatus builds an APIError from a non-2xx HTTP response. The
// message is extracted from a JSON {"message": ...} body when present,
// falling back to the raw body and finally the status text. Rate-limited
// errors carry the reset time from x-ratelimit-reset when the header is
// parseable.
func classifyStatus(status int, body []byte, header http.Header) *model.APIError {
	message := extractMessage(body, status)

	apiErr := &model.APIError{
		Kind:       kindForStatus(status, message),
		Message:    message,
		StatusCode: status,
	}

	if apiErr.Kind == model.APIErrorRateLimited {
		apiErr.ResetAt = parseRateLimitReset(header)
	}

	return apiErr
}

// classifyGraphQLErrors maps a GraphQL error array to an APIError.
// Returns nil for an empty array. Any "Bad credentials"/UNAUTHORIZED entry
// wins, since the caller must distinguish credential problems.
func classifyGraphQLErrors(errs []graphqlError) *model.APIError {
	if len(errs) == 0 {
		return nil
	}

	for _, e := range errs {
		if strings.EqualFold(e.Type, "UNAUTHORIZED") || strings.Contains(e.Message, "Bad credentials") {
			return &model.APIError{Kind: model.APIErrorAuthFailed, Message: e.Message}
		}
	}

	first := errs[0]
	kind := model.APIErrorGeneric
	switch strings.ToUpper(first.Type) {
	case "NOT_FOUND":
		kind = model.APIErrorNotFound
	case "RATE_LIMITED":
		kind = model.APIErrorRateLimited
	case "FORBIDDEN":
		kind = model.APIErrorPermissionDenied
	}

	return &model.APIError{Kind: kind, Message: first.Message}
}

// classifyRESTError translates a go-github error into the taxonomy,
// wrapped with the failing operation for context. errors.As still reaches
// the underlying *model.APIError through the wrap.
func classifyRESTError(op string, err error) error {
	var apiErr *model.APIError

	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	var respErr *gh.ErrorResponse

	switch {
	case errors.As(err, &rateErr):
		apiErr = &model.APIError{
			Kind:       model.APIErrorRateLimited,
			Message:    rateErr.Message,
			StatusCode: http.StatusForbidden,
			ResetAt:    rateErr.Rate.Reset.Time,
		}
	case errors.As(err, &abuseErr):
		apiErr = &model.APIError{
			Kind:       model.APIErrorRateLimited,
			Message:    abuseErr.Message,
			StatusCode: http.StatusForbidden,
		}
	case errors.As(err, &respErr):
		status := 0
		if respErr.Response != nil {
			status = respErr.Response.StatusCode
		}
		apiErr = &model.APIError{
			Kind:       kindForStatus(status, respErr.Message),
			Message:    respErr.Message,
			StatusCode: status,
		}
		if apiErr.Kind == model.APIErrorRateLimited && respErr.Response != nil {
			apiErr.ResetAt = parseRateLimitReset(respErr.Response.Header)
		}
	default:
		// Network-level failure or unexpected error shape.
		apiErr = &model.APIError{Kind: model.APIErrorGeneric, Message: err.Error()}
	}

	return fmt.Errorf("%s: %w", op, apiErr)
}

// extractMessage pulls an error message out of a response body: JSON
// "message" field first, then the raw body text, then the status text.
func extractMessage(body []byte, status int) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}

	return http.StatusText(status)
}

// parseRateLimitReset reads the x-ratelimit-reset header (epoch seconds).
// Returns the zero time when absent or malformed.
func parseRateLimitReset(header http.Header) time.Time {
	raw := header.Get("x-ratelimit-reset")
	if raw == "" {
		return time.Time{}
	}

	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}

	return time.Unix(epoch, 0).UTC()
}
