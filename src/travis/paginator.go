package travis

import (
	"context"
	"net/url"
)

// BuildsHref returns the first-page reference for a repository's builds filtered by branch and state.
func BuildsHref(repo Repository, branch, state string) string {
	q := url.Values{}
	q.Set("branch.name", branch)
	q.Set("build.state", state)
	// Encode sorts keys, which happens to keep the historical branch-then-state order.
	return repo.Href + "/builds?" + q.Encode()
}

// BuildPaginator walks a cursor-paginated builds collection one page at a time.
// It is finite and not restartable: every successful Next consumes the current cursor.
type BuildPaginator struct {
	client *Client
	next   string
	pages  int
}

// NewBuildPaginator starts a paginator at firstHref.
func NewBuildPaginator(client *Client, firstHref string) *BuildPaginator {
	return &BuildPaginator{client: client, next: firstHref}
}

// HasNext reports whether another page can be fetched.
func (p *BuildPaginator) HasNext() bool {
	return p.next != ""
}

// Pages returns how many pages have been fetched.
func (p *BuildPaginator) Pages() int {
	return p.pages
}

// Next fetches the current page and advances the cursor.
// After the last page it returns ErrPaginatorDone. A failed fetch leaves the cursor in place.
func (p *BuildPaginator) Next(ctx context.Context) ([]Build, error) {
	if !p.HasNext() {
		return nil, ErrPaginatorDone
	}

	page, err := p.client.GetBuilds(ctx, p.next)
	if err != nil {
		return nil, err
	}
	p.pages++

	if page.Pagination.IsLast {
		p.next = ""
	} else {
		p.next = page.Pagination.NextHref()
	}

	return page.Builds, nil
}
