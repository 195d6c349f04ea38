package model

import (
	"errors"
	"time"
)

// APIErrorKind is the classification assigned to a failed GitHub API call.
// Classification happens once, at the HTTP boundary; layers above treat the
// error as opaque and only inspect the kind.
type APIErrorKind string

const (
	APIErrorAuthFailed       APIErrorKind = "AUTH_FAILED"
	APIErrorRateLimited      APIErrorKind = "RATE_LIMITED"
	APIErrorPermissionDenied APIErrorKind = "PERMISSION_DENIED"
	APIErrorNotFound         APIErrorKind = "NOT_FOUND"
	APIErrorServerError      APIErrorKind = "SERVER_ERROR"
	APIErrorGeneric          APIErrorKind = "GENERIC"
)

// APIError is a classified GitHub API failure.
type APIError struct {
	Kind       APIErrorKind
	Message    string
	StatusCode int       // HTTP status when the failure was HTTP-level, 0 otherwise.
	ResetAt    time.Time // Rate limit reset; zero unless Kind is APIErrorRateLimited and the header was present.
}

// Error formats the error with the kind as a leading tag so callers can
// pattern-match on it (e.g. "AUTH_FAILED: Bad credentials").
func (e *APIError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// AsAPIError unwraps err to its APIError, if it carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsAuthFailed reports whether err is classified as an authentication
// failure. The orchestrator and the HTTP layer use this to surface
// credential problems distinctly from everything else.
func IsAuthFailed(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == APIErrorAuthFailed
}
