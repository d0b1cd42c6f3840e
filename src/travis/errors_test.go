package travis

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError_AuthFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "ErrAuthFailed sentinel",
			err:  ErrAuthFailed,
		},
		{
			name: "401 APIError",
			err:  &APIError{StatusCode: http.StatusUnauthorized, URL: "https://api.travis-ci.com/repos"},
		},
		{
			name: "wrapped 403 APIError",
			err:  fmt.Errorf("resolve: %w", &APIError{StatusCode: http.StatusForbidden}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			var userErr *UserError
			require.ErrorAs(t, wrapped, &userErr)
			assert.Equal(t, "Authentication failed", userErr.Message)
			assert.Contains(t, userErr.Hint, "TRAVIS_TOKEN")
			assert.ErrorIs(t, wrapped, ErrAuthFailed)
		})
	}
}

func TestWrapError_NotFoundKinds(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
		wantHint    string
	}{
		{
			name:        "repository",
			err:         fmt.Errorf("%w: keboola/connection", ErrRepositoryNotFound),
			wantMessage: "Repository not found",
			wantHint:    "--repo",
		},
		{
			name:        "stage",
			err:         fmt.Errorf("%w: no stage number 2", ErrStageNotFound),
			wantMessage: "Build layout not as expected",
			wantHint:    "--stage",
		},
		{
			name:        "job",
			err:         ErrJobNotFound,
			wantMessage: "Build layout not as expected",
			wantHint:    "--stage",
		},
		{
			name:        "404",
			err:         &APIError{StatusCode: http.StatusNotFound},
			wantMessage: "Resource not found",
			wantHint:    "--base-url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			var userErr *UserError
			require.ErrorAs(t, wrapped, &userErr)
			assert.Equal(t, tt.wantMessage, userErr.Message)
			assert.Contains(t, userErr.Hint, tt.wantHint)
			assert.ErrorIs(t, wrapped, tt.err)
		})
	}
}

func TestWrapError_OtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "generic error", err: errors.New("something went wrong")},
		{name: "500 APIError", err: &APIError{StatusCode: http.StatusInternalServerError}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.err, WrapError(tt.err))
		})
	}
}

func TestWrapError_NilError(t *testing.T) {
	assert.NoError(t, WrapError(nil))
}

func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name    string
		userErr *UserError
		want    string
	}{
		{
			name:    "message only",
			userErr: &UserError{Message: "Something went wrong"},
			want:    "Something went wrong",
		},
		{
			name:    "message with hint",
			userErr: &UserError{Message: "Something went wrong", Hint: "Try this"},
			want:    "Something went wrong\n\nHint: Try this",
		},
		{
			name:    "message with hint and error",
			userErr: &UserError{Message: "Something went wrong", Hint: "Try this", Err: errors.New("underlying")},
			want:    "Something went wrong\n\nHint: Try this\n\nDetails: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.userErr.Error())
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 502, URL: "https://api.travis-ci.com/repos", Body: "bad gateway"}
	assert.Equal(t, "API request to https://api.travis-ci.com/repos failed with status 502: bad gateway", err.Error())
}
