// Package httpcache provides a greedy caching http.RoundTripper.
//
// Every successful (2xx) GET or HEAD response is stored for a fixed TTL regardless of the
// server's cache directives. The cache key is derived from the method, the absolute URL and
// the values of a configurable set of request headers, so that responses fetched with one
// credential are never replayed for another.
package httpcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"travis-metrics/src/logger"
	"travis-metrics/src/store"
)

// XFromCache is set to "1" on responses replayed from the cache.
const XFromCache = "X-From-Cache"

// DefaultTTL is one year.
const DefaultTTL = 365 * 24 * time.Hour

// Transport is a caching http.RoundTripper.
type Transport struct {
	// Transport performs the real requests. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Store persists cached responses.
	Store store.Store
	// TTL is how long a stored response is served.
	TTL time.Duration
	// VaryHeaders lists request headers whose values are part of the cache key.
	VaryHeaders []string
	// Logger receives cache diagnostics. Defaults to a silent logger.
	Logger logger.Logger
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewTransport creates a Transport storing responses in st for ttl, varying on the given headers.
func NewTransport(st store.Store, ttl time.Duration, varyHeaders ...string) *Transport {
	return &Transport{
		Store:       st,
		TTL:         ttl,
		VaryHeaders: varyHeaders,
	}
}

// Client returns an *http.Client using t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) transport() http.RoundTripper {
	if t.Transport != nil {
		return t.Transport
	}
	return http.DefaultTransport
}

func (t *Transport) log() logger.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return logger.NewSilentLogger()
}

func (t *Transport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Key returns the cache key for req.
func (t *Transport) Key(req *http.Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s %s\n", req.Method, req.URL.String())
	for _, name := range t.VaryHeaders {
		fmt.Fprintf(h, "%s: ", http.CanonicalHeaderKey(name))
		for _, v := range req.Header.Values(name) {
			fmt.Fprintf(h, "%q;", v)
		}
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !cacheable(req) {
		return t.transport().RoundTrip(req)
	}

	ctx := req.Context()
	key := t.Key(req)

	entry, err := t.Store.Get(ctx, key)
	switch {
	case err == nil && entry.Fresh(t.now()):
		t.log().Debug("cache hit %s %s", req.Method, req.URL.Redacted())
		return entryResponse(entry, req), nil
	case err == nil:
		t.log().Debug("cache entry expired %s %s", req.Method, req.URL.Redacted())
	case !errors.Is(err, store.ErrNotFound):
		t.log().Warn("cache read failed for %s: %v", req.URL.Redacted(), err)
	}

	resp, err := t.transport().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := t.now()
	stored := &store.Entry{
		Key:        key,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   now,
		ExpiresAt:  now.Add(t.TTL),
	}
	if err := t.Store.Set(ctx, stored); err != nil {
		t.log().Warn("cache write failed for %s: %v", req.URL.Redacted(), err)
	}

	return resp, nil
}

func cacheable(req *http.Request) bool {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false
	}
	// Range requests would store partial bodies under the full-resource key.
	return req.Header.Get("Range") == ""
}

func entryResponse(entry *store.Entry, req *http.Request) *http.Response {
	header := entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(XFromCache, "1")

	var body io.ReadCloser = http.NoBody
	if req.Method != http.MethodHead {
		body = io.NopCloser(bytes.NewReader(entry.Body))
	}

	return &http.Response{
		Status:        strconv.Itoa(entry.StatusCode) + " " + http.StatusText(entry.StatusCode),
		StatusCode:    entry.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          body,
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}
