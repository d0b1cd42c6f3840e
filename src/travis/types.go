package travis

import "time"

// Repository represents a Travis repository.
type Repository struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Href string `json:"@href"`
}

// Build represents a Travis build.
type Build struct {
	ID        int64  `json:"id"`
	Number    string `json:"number"`
	State     string `json:"state"`
	StartedAt string `json:"started_at"`
	Href      string `json:"@href"`
}

// StartTime parses StartedAt (RFC 3339).
func (b Build) StartTime() (time.Time, error) {
	return time.Parse(time.RFC3339, b.StartedAt)
}

// Passed reports whether the build finished successfully.
func (b Build) Passed() bool {
	return b.State == StatePassed
}

// Stage represents a stage within a build.
type Stage struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
	State  string `json:"state"`
	Jobs   []Job  `json:"jobs"`
}

// Canceled reports whether the stage was canceled.
func (s Stage) Canceled() bool {
	return s.State == StateCanceled
}

// Job represents a job within a stage.
type Job struct {
	ID    int64  `json:"id"`
	State string `json:"state"`
	Href  string `json:"@href"`
}

// Log represents a job log's metadata. The log text itself lives behind RawLogHref.
type Log struct {
	ID         int64  `json:"id"`
	Href       string `json:"@href"`
	RawLogHref string `json:"@raw_log_href"`
}

// Pagination is the "@pagination" block of collection responses.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	IsFirst bool `json:"is_first"`
	IsLast  bool `json:"is_last"`
	Next    *struct {
		Href string `json:"@href"`
	} `json:"next"`
}

// NextHref returns the next page reference, or "" when there is none.
func (p Pagination) NextHref() string {
	if p.Next == nil {
		return ""
	}
	return p.Next.Href
}

// RepositoriesResponse is the body of GET /repos.
type RepositoriesResponse struct {
	Pagination   Pagination   `json:"@pagination"`
	Repositories []Repository `json:"repositories"`
}

// BuildsResponse is the body of GET <repo>/builds.
type BuildsResponse struct {
	Pagination Pagination `json:"@pagination"`
	Builds     []Build    `json:"builds"`
}

// StagesResponse is the body of GET <build>/stages.
type StagesResponse struct {
	Stages []Stage `json:"stages"`
}

// Build and stage states used by the collector.
const (
	StatePassed   = "passed"
	StateCanceled = "canceled"
)
