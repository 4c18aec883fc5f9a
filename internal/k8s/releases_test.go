package k8s

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/charm-release/internal/config"
)

func testClient(url string) *Client {
	cfg := config.K8sConfig{TagsURL: url, Timeout: 5 * time.Second}
	return NewClient(cfg, zerolog.Nop())
}

// tagsServer serves the given tag pages, linking each page to the next.
func tagsServer(t *testing.T, pages ...[]string) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := 0
		if p := r.URL.Query().Get("page"); p != "" {
			_, err := fmt.Sscanf(p, "%d", &page)
			require.NoError(t, err)
		}
		require.Less(t, page, len(pages))

		if page < len(pages)-1 {
			next := fmt.Sprintf("<%s/?page=%d>; rel=\"next\"", server.URL, page+1)
			w.Header().Set("Link", next)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[")
		for i, name := range pages[page] {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"name": %q}`, name)
		}
		fmt.Fprint(w, "]")
	}))
	return server
}

func TestIsStableRelease(t *testing.T) {
	assert.True(t, IsStableRelease("v1.32.1"))
	assert.False(t, IsStableRelease("v1.33.0-alpha.1"))
	assert.False(t, IsStableRelease("v1.33.0-rc.2"))
}

func TestTags_FollowsPagination(t *testing.T) {
	server := tagsServer(t,
		[]string{"v1.33.0-alpha.1", "v1.32.1"},
		[]string{"v1.32.0", "v1.31.5"},
	)
	defer server.Close()

	tags, err := testClient(server.URL).Tags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.33.0-alpha.1", "v1.32.1", "v1.32.0", "v1.31.5"}, tags)
}

func TestTags_SortsNewestFirst(t *testing.T) {
	server := tagsServer(t, []string{"v1.31.5", "v1.33.0-alpha.1", "v1.32.1"})
	defer server.Close()

	tags, err := testClient(server.URL).Tags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.33.0-alpha.1", "v1.32.1", "v1.31.5"}, tags)
}

func TestTags_Empty(t *testing.T) {
	server := tagsServer(t, []string{})
	defer server.Close()

	_, err := testClient(server.URL).Tags(context.Background())
	require.Error(t, err)
}

func TestLatestStable(t *testing.T) {
	server := tagsServer(t, []string{"v1.33.0-rc.1", "v1.32.2", "v1.32.1"})
	defer server.Close()

	latest, err := testClient(server.URL).LatestStable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.32.2", latest)
}

func TestAllReleasesAfter(t *testing.T) {
	server := tagsServer(t, []string{
		"v1.34.0-alpha.1",
		"v1.33.1", "v1.33.0",
		"v1.32.3",
		"v1.31.9",
		"v1.30.2",
	})
	defer server.Close()

	client := testClient(server.URL)

	t.Run("inclusive threshold", func(t *testing.T) {
		tracks, err := client.AllReleasesAfter(context.Background(), "1.32")
		require.NoError(t, err)
		assert.Equal(t, []string{"1.32", "1.33"}, tracks)
	})

	t.Run("pre-releases are excluded", func(t *testing.T) {
		tracks, err := client.AllReleasesAfter(context.Background(), "1.34")
		require.NoError(t, err)
		assert.Empty(t, tracks)
	})

	t.Run("invalid version", func(t *testing.T) {
		_, err := client.AllReleasesAfter(context.Background(), "not-a-version")
		require.Error(t, err)
	})
}

func TestOutstandingPrerelease(t *testing.T) {
	t.Run("latest is a pre-release", func(t *testing.T) {
		server := tagsServer(t, []string{"v1.34.0-alpha.1", "v1.33.1"})
		defer server.Close()

		tag, err := testClient(server.URL).OutstandingPrerelease(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "v1.34.0-alpha.1", tag)
	})

	t.Run("latest is stable", func(t *testing.T) {
		server := tagsServer(t, []string{"v1.33.1", "v1.33.0-rc.1"})
		defer server.Close()

		tag, err := testClient(server.URL).OutstandingPrerelease(context.Background())
		require.NoError(t, err)
		assert.Empty(t, tag)
	})
}

func TestObsoletePrereleases(t *testing.T) {
	server := tagsServer(t, []string{
		"v1.34.0-alpha.2",
		"v1.34.0-alpha.1",
		"v1.33.1",
		"v1.33.0-rc.1",
	})
	defer server.Close()

	obsolete, err := testClient(server.URL).ObsoletePrereleases(context.Background())
	require.NoError(t, err)
	// The newest pre-release survives; everything older is obsolete.
	assert.Equal(t, []string{"v1.34.0-alpha.1", "v1.33.0-rc.1"}, obsolete)
}

func TestNextPageURL(t *testing.T) {
	link := `<https://api.github.com/repos/kubernetes/kubernetes/tags?page=2>; rel="next", <https://api.github.com/repos/kubernetes/kubernetes/tags?page=10>; rel="last"`
	assert.Equal(t, "https://api.github.com/repos/kubernetes/kubernetes/tags?page=2", nextPageURL(link))
	assert.Empty(t, nextPageURL(""))
	assert.Empty(t, nextPageURL(`<https://example.com>; rel="prev"`))
}
