package travis

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthFailed         = errors.New("authentication failed")
	ErrNotFound           = errors.New("resource not found")
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrStageNotFound      = errors.New("stage not found")
	ErrJobNotFound        = errors.New("job not found")
	ErrPaginatorDone      = errors.New("no more pages")
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Unwrap maps well-known statuses onto sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrAuthFailed) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that TRAVIS_TOKEN holds a valid Travis CI API token with access to the repository.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrRepositoryNotFound) {
		return &UserError{
			Message: "Repository not found",
			Hint:    "Check the --repo slug and that the token's account can see the repository.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrStageNotFound) || errors.Is(err, ErrJobNotFound) {
		return &UserError{
			Message: "Build layout not as expected",
			Hint:    "Every collected build must have the selected stage (--stage) with at least one job.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrNotFound) {
		return &UserError{
			Message: "Resource not found",
			Hint:    "Check --base-url and that you have access to the repository.",
			Err:     err,
		}
	}

	return err
}
