package travis

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildsHref(t *testing.T) {
	href := BuildsHref(Repository{Href: "/repo/42"}, "master", "passed")
	assert.Equal(t, "/repo/42/builds?branch.name=master&build.state=passed", href)
}

func TestBuildPaginator_VisitsEveryPageOnce(t *testing.T) {
	const pages = 4
	visits := map[int]int{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repo/42/builds", r.URL.Path)
		assert.Equal(t, "master", r.URL.Query().Get("branch.name"))
		assert.Equal(t, "passed", r.URL.Query().Get("build.state"))

		var offset int
		fmt.Sscanf(r.URL.Query().Get("offset"), "%d", &offset)
		page := offset / 2
		visits[page]++

		isLast := page == pages-1
		next := "null"
		if !isLast {
			next = fmt.Sprintf(`{"@href": "/repo/42/builds?branch.name=master&build.state=passed&offset=%d"}`, offset+2)
		}
		fmt.Fprintf(w, `{
			"@pagination": {"is_last": %t, "next": %s},
			"builds": [{"id": %d, "state": "passed"}, {"id": %d, "state": "passed"}]
		}`, isLast, next, offset+1, offset+2)
	})

	p := NewBuildPaginator(client, BuildsHref(Repository{Href: "/repo/42"}, "master", "passed"))

	var ids []int64
	for p.HasNext() {
		builds, err := p.Next(context.Background())
		require.NoError(t, err)
		for _, b := range builds {
			ids = append(ids, b.ID)
		}
	}

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, ids)
	assert.Equal(t, pages, p.Pages())
	for page := 0; page < pages; page++ {
		assert.Equal(t, 1, visits[page], "page %d", page)
	}

	_, err := p.Next(context.Background())
	assert.ErrorIs(t, err, ErrPaginatorDone)
}

func TestBuildPaginator_MissingNextLinkEndsWalk(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"@pagination": {"is_last": false}, "builds": [{"id": 1}]}`))
	})

	p := NewBuildPaginator(client, "/repo/1/builds")
	builds, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, builds, 1)
	assert.False(t, p.HasNext())
}

func TestBuildPaginator_ErrorKeepsCursor(t *testing.T) {
	fail := true
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"@pagination": {"is_last": true}, "builds": []}`))
	})

	p := NewBuildPaginator(client, "/repo/1/builds")
	_, err := p.Next(context.Background())
	require.Error(t, err)
	assert.True(t, p.HasNext())
	assert.Equal(t, 0, p.Pages())

	fail = false
	_, err = p.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, p.HasNext())
}
