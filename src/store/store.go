// Package store defines the interface for HTTP response cache storage and its backends.
package store

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned by Get when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Entry is a cached HTTP response.
type Entry struct {
	Key        string      `json:"key"`
	URL        string      `json:"url"`
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Fresh reports whether the entry may still be served at now.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store defines the interface for persisting cached responses.
type Store interface {
	// Get returns the entry stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores entry under entry.Key, replacing any previous value.
	Set(ctx context.Context, entry *Entry) error

	// Prune deletes entries that expired before now and returns how many were removed.
	Prune(ctx context.Context, now time.Time) (int, error)

	// Clear deletes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)

	// Close closes the store connection
	Close() error
}
