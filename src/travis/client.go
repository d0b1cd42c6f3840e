// Package travis provides a client for the Travis CI v3 API.
//
// Every v3 resource carries its canonical link in "@href"; the client follows those links
// instead of assembling paths itself, so the only URL it builds by hand is the builds filter.
package travis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	// APIBaseURL is the base URL for the Travis API.
	APIBaseURL = "https://api.travis-ci.com"

	// APIVersion is sent in the Travis-API-Version header.
	APIVersion = "3"

	// maxErrorBody bounds how much of an error response is kept in APIError.
	maxErrorBody = 512
)

// Client is a Travis API client.
type Client struct {
	token      string
	apiVersion string
	baseURL    *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL overrides the API root.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", raw, err)
		}
		if !u.IsAbs() {
			return fmt.Errorf("invalid base URL %q: must be absolute", raw)
		}
		c.baseURL = u
		return nil
	}
}

// WithHTTPClient sets the HTTP client, e.g. one using a caching transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithAPIVersion overrides the Travis-API-Version header value.
func WithAPIVersion(v string) Option {
	return func(c *Client) error {
		c.apiVersion = v
		return nil
	}
}

// NewClient creates a new Travis API client.
func NewClient(token string, opts ...Option) (*Client, error) {
	base, _ := url.Parse(APIBaseURL)
	c := &Client{
		token:      token,
		apiVersion: APIVersion,
		baseURL:    base,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Resolve turns a path or absolute URL returned by the API into an absolute URL.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(u).String(), nil
}

// Get issues an authenticated GET for ref and returns the response for any 2xx status.
// The caller must close the body. Other statuses are returned as *APIError.
func (c *Client) Get(ctx context.Context, ref, accept string) (*http.Response, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Travis-API-Version", c.apiVersion)
	req.Header.Set("User-Agent", "travis-metrics")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, URL: target, Body: string(body)}
	}

	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, ref string, v interface{}) error {
	resp, err := c.Get(ctx, ref, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", ref, err)
	}
	return nil
}

// ListRepositories fetches one page of repositories visible to the token.
// An empty ref fetches the first page.
func (c *Client) ListRepositories(ctx context.Context, ref string) (*RepositoriesResponse, error) {
	if ref == "" {
		ref = "repos"
	}
	var page RepositoriesResponse
	if err := c.getJSON(ctx, ref, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FindRepository returns the first visible repository whose slug equals slug.
// Pages are walked until a match is found.
func (c *Client) FindRepository(ctx context.Context, slug string) (*Repository, error) {
	ref := ""
	for {
		page, err := c.ListRepositories(ctx, ref)
		if err != nil {
			return nil, err
		}

		for _, repo := range page.Repositories {
			if repo.Slug == slug {
				found := repo
				return &found, nil
			}
		}

		ref = page.Pagination.NextHref()
		if page.Pagination.IsLast || ref == "" {
			return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, slug)
		}
	}
}

// GetBuilds fetches one page of builds.
func (c *Client) GetBuilds(ctx context.Context, ref string) (*BuildsResponse, error) {
	var page BuildsResponse
	if err := c.getJSON(ctx, ref, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetStages fetches the stages of a build with their jobs embedded.
func (c *Client) GetStages(ctx context.Context, build Build) ([]Stage, error) {
	var resp StagesResponse
	if err := c.getJSON(ctx, build.Href+"/stages?include=stage.jobs", &resp); err != nil {
		return nil, err
	}
	return resp.Stages, nil
}

// GetJobLog fetches a job's log metadata.
func (c *Client) GetJobLog(ctx context.Context, job Job) (*Log, error) {
	var log Log
	if err := c.getJSON(ctx, job.Href+"/log", &log); err != nil {
		return nil, err
	}
	if log.RawLogHref == "" {
		return nil, fmt.Errorf("log of job %d has no raw log link", job.ID)
	}
	return &log, nil
}

// OpenRawLog streams the raw log text. The caller must close the returned reader.
func (c *Client) OpenRawLog(ctx context.Context, log *Log) (io.ReadCloser, error) {
	resp, err := c.Get(ctx, log.RawLogHref, "text/plain")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// SelectStage returns the stage with the given ordinal number.
func SelectStage(stages []Stage, number int) (*Stage, error) {
	for i := range stages {
		if stages[i].Number == number {
			return &stages[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no stage number %d among %d stages", ErrStageNotFound, number, len(stages))
}

// FirstJob returns the first job of the stage.
func (s Stage) FirstJob() (*Job, error) {
	if len(s.Jobs) == 0 {
		return nil, fmt.Errorf("%w: stage %d (%s) has no jobs", ErrJobNotFound, s.Number, s.Name)
	}
	job := s.Jobs[0]
	return &job, nil
}
