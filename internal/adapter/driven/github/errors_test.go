package github

import (
	"errors"
	"net/http"
	"testing"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prdeck/prdeck/internal/domain/model"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    model.APIErrorKind
	}{
		{"unauthorized", 401, "Bad credentials", model.APIErrorAuthFailed},
		{"forbidden rate limit", 403, "API rate limit exceeded for user", model.APIErrorRateLimited},
		{"forbidden plain", 403, "Resource not accessible by personal access token", model.APIErrorPermissionDenied},
		{"not found", 404, "Not Found", model.APIErrorNotFound},
		{"server error", 500, "boom", model.APIErrorServerError},
		{"bad gateway", 502, "", model.APIErrorServerError},
		{"unprocessable", 422, "Validation Failed", model.APIErrorGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kindForStatus(tt.status, tt.message))
		})
	}
}

func TestClassifyStatus_JSONMessage(t *testing.T) {
	apiErr := classifyStatus(401, []byte(`{"message":"Bad credentials"}`), http.Header{})

	assert.Equal(t, model.APIErrorAuthFailed, apiErr.Kind)
	assert.Equal(t, "Bad credentials", apiErr.Message)
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, "AUTH_FAILED: Bad credentials", apiErr.Error())
}

func TestClassifyStatus_RawBodyFallback(t *testing.T) {
	apiErr := classifyStatus(500, []byte("upstream exploded"), http.Header{})

	assert.Equal(t, model.APIErrorServerError, apiErr.Kind)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestClassifyStatus_StatusTextFallback(t *testing.T) {
	apiErr := classifyStatus(404, nil, http.Header{})

	assert.Equal(t, model.APIErrorNotFound, apiErr.Kind)
	assert.Equal(t, "Not Found", apiErr.Message)
}

func TestClassifyStatus_RateLimitReset(t *testing.T) {
	header := http.Header{}
	header.Set("x-ratelimit-reset", "1767225600")

	apiErr := classifyStatus(403, []byte(`{"message":"API rate limit exceeded"}`), header)

	assert.Equal(t, model.APIErrorRateLimited, apiErr.Kind)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), apiErr.ResetAt)
}

func TestClassifyStatus_MalformedResetHeader(t *testing.T) {
	header := http.Header{}
	header.Set("x-ratelimit-reset", "soon")

	apiErr := classifyStatus(403, []byte(`{"message":"rate limit exceeded"}`), header)

	assert.Equal(t, model.APIErrorRateLimited, apiErr.Kind)
	assert.True(t, apiErr.ResetAt.IsZero())
}

func TestClassifyGraphQLErrors_Empty(t *testing.T) {
	assert.Nil(t, classifyGraphQLErrors(nil))
}

func TestClassifyGraphQLErrors_BadCredentialsWins(t *testing.T) {
	errs := []graphqlError{
		{Type: "NOT_FOUND", Message: "Could not resolve to a Repository"},
		{Type: "", Message: "Bad credentials"},
	}

	apiErr := classifyGraphQLErrors(errs)

	require.NotNil(t, apiErr)
	assert.Equal(t, model.APIErrorAuthFailed, apiErr.Kind)
}

func TestClassifyGraphQLErrors_TypeMapping(t *testing.T) {
	tests := []struct {
		gqlType string
		want    model.APIErrorKind
	}{
		{"NOT_FOUND", model.APIErrorNotFound},
		{"RATE_LIMITED", model.APIErrorRateLimited},
		{"FORBIDDEN", model.APIErrorPermissionDenied},
		{"SOMETHING_ELSE", model.APIErrorGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.gqlType, func(t *testing.T) {
			apiErr := classifyGraphQLErrors([]graphqlError{{Type: tt.gqlType, Message: "m"}})
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.want, apiErr.Kind)
		})
	}
}

func TestClassifyRESTError_ErrorResponse(t *testing.T) {
	ghErr := &gh.ErrorResponse{
		Response: &http.Response{StatusCode: 401},
		Message:  "Bad credentials",
	}

	err := classifyRESTError("fetching authenticated user", ghErr)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching authenticated user")
	assert.True(t, model.IsAuthFailed(err))
}

func TestClassifyRESTError_RateLimitError(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	ghErr := &gh.RateLimitError{
		Rate:    gh.Rate{Reset: gh.Timestamp{Time: reset}},
		Message: "API rate limit exceeded",
	}

	err := classifyRESTError("listing pull requests", ghErr)

	apiErr, ok := model.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, model.APIErrorRateLimited, apiErr.Kind)
	assert.Equal(t, reset, apiErr.ResetAt)
}

func TestClassifyRESTError_Unrecognized(t *testing.T) {
	err := classifyRESTError("listing organizations", errors.New("connection refused"))

	apiErr, ok := model.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, model.APIErrorGeneric, apiErr.Kind)
	assert.Contains(t, apiErr.Message, "connection refused")
}
