package offline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sescincjoi/central-sci/internal/errors"
)

// memoryCache is an in-memory ports.CacheRepository for tests.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (c *memoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	delete(c.data, key)
	return ok, nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memoryCache) SetTTL(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (c *memoryCache) SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = append([]byte(nil), value...)
	return true, nil
}

func (c *memoryCache) Keys(_ context.Context, pattern string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (c *memoryCache) Health(context.Context) error { return nil }

// countingOrigin wraps an OriginFetcher and counts fetches per path.
type countingOrigin struct {
	inner   OriginFetcher
	mu      sync.Mutex
	fetches map[string]int
}

func newCountingOrigin(inner OriginFetcher) *countingOrigin {
	return &countingOrigin{inner: inner, fetches: make(map[string]int)}
}

func (o *countingOrigin) FetchAsset(ctx context.Context, path string) ([]byte, error) {
	o.mu.Lock()
	o.fetches[path]++
	o.mu.Unlock()
	return o.inner.FetchAsset(ctx, path)
}

func (o *countingOrigin) count(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fetches[path]
}

func testManifest() Manifest {
	return Manifest{
		Version: "central-sci-v4",
		Assets:  []string{"/index.html", "/pwa/app.js", "/pwa/manifest.json"},
	}
}

func testOriginFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":        {Data: []byte("<html>portal</html>")},
		"pwa/app.js":        {Data: []byte("console.log('app')")},
		"pwa/manifest.json": {Data: []byte(`{"name":"Central SCI"}`)},
	}
}

func newTestService(t *testing.T) (*CacheService, *memoryCache, *countingOrigin) {
	t.Helper()
	cache := newMemoryCache()
	origin := newCountingOrigin(NewFSOrigin(testOriginFS()))
	svc, err := NewCacheService(CacheServiceOptions{
		Cache:    cache,
		Origin:   origin,
		Manifest: testManifest(),
	})
	require.NoError(t, err)
	return svc, cache, origin
}

func TestNewCacheService_Validation(t *testing.T) {
	_, err := NewCacheService(CacheServiceOptions{Origin: NewFSOrigin(testOriginFS()), Manifest: testManifest()})
	assert.Error(t, err)

	_, err = NewCacheService(CacheServiceOptions{Cache: newMemoryCache(), Manifest: testManifest()})
	assert.Error(t, err)

	_, err = NewCacheService(CacheServiceOptions{Cache: newMemoryCache(), Origin: NewFSOrigin(testOriginFS())})
	assert.Error(t, err)
}

func TestCacheService_InstallPrimesAllAssets(t *testing.T) {
	svc, cache, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Install(ctx))

	for _, path := range testManifest().Assets {
		body, err := cache.Get(ctx, testManifest().Key(path))
		require.NoError(t, err)
		assert.NotNil(t, body, "asset %s must be primed", path)
	}
}

func TestCacheService_InstallSkipsUnchangedAssets(t *testing.T) {
	svc, _, origin := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Install(ctx))
	require.NoError(t, svc.Install(ctx))

	// Second install re-fetches but must not rewrite matching entries.
	assert.Equal(t, 2, origin.count("/index.html"))
}

func TestCacheService_InstallFailsOnMissingAsset(t *testing.T) {
	cache := newMemoryCache()
	svc, err := NewCacheService(CacheServiceOptions{
		Cache:  cache,
		Origin: NewFSOrigin(testOriginFS()),
		Manifest: Manifest{
			Version: "central-sci-v4",
			Assets:  []string{"/index.html", "/missing.js"},
		},
	})
	require.NoError(t, err)

	err = svc.Install(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	// Assets primed before the failure stay cached.
	body, getErr := cache.Get(context.Background(), "offline:central-sci-v4:/index.html")
	require.NoError(t, getErr)
	assert.NotNil(t, body)
}

func TestCacheService_FetchCacheFirst(t *testing.T) {
	svc, _, origin := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Install(ctx))
	fetchesAfterInstall := origin.count("/pwa/app.js")

	got, err := svc.Fetch(ctx, FetchRequest{Path: "/pwa/app.js"})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, got.Source)
	assert.Equal(t, []byte("console.log('app')"), got.Body)
	assert.Equal(t, fetchesAfterInstall, origin.count("/pwa/app.js"), "cache hit must not touch the origin")
}

func TestCacheService_FetchNetworkFallback(t *testing.T) {
	svc, _, origin := newTestService(t)
	ctx := context.Background()

	// Nothing installed: lookups go to the network.
	got, err := svc.Fetch(ctx, FetchRequest{Path: "/pwa/app.js"})
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, got.Source)
	assert.Equal(t, 1, origin.count("/pwa/app.js"))
}

func TestCacheService_FetchMissingEverywhere(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Fetch(context.Background(), FetchRequest{Path: "/nope.css"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCacheService_NavigationFallsBackToRoot(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Install(ctx))

	got, err := svc.Fetch(ctx, FetchRequest{Path: "/some/deep/route", Navigation: true})
	require.NoError(t, err)
	assert.Equal(t, "/index.html", got.Path)
	assert.Equal(t, SourceCache, got.Source)
	assert.Equal(t, []byte("<html>portal</html>"), got.Body)
}

func TestCacheService_NavigationBeforeInstallFetchesRoot(t *testing.T) {
	svc, _, origin := newTestService(t)

	got, err := svc.Fetch(context.Background(), FetchRequest{Path: "/anything", Navigation: true})
	require.NoError(t, err)
	assert.Equal(t, "/index.html", got.Path)
	assert.Equal(t, SourceNetwork, got.Source)
	assert.Equal(t, 1, origin.count("/index.html"))
}

func TestCacheService_ActivateSweepsOldVersions(t *testing.T) {
	svc, cache, _ := newTestService(t)
	ctx := context.Background()

	// Entries from two previous cache generations.
	require.NoError(t, cache.Set(ctx, "offline:central-sci-v2:/index.html", []byte("old"), 0))
	require.NoError(t, cache.Set(ctx, "offline:central-sci-v3:/pwa/app.js", []byte("old"), 0))

	require.NoError(t, svc.Install(ctx))

	removed, err := svc.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Current version untouched.
	body, err := cache.Get(ctx, testManifest().Key("/index.html"))
	require.NoError(t, err)
	assert.NotNil(t, body)

	stale, err := cache.Get(ctx, "offline:central-sci-v2:/index.html")
	require.NoError(t, err)
	assert.Nil(t, stale)
}

func TestManifest_RootAndContains(t *testing.T) {
	m := testManifest()
	assert.Equal(t, "/index.html", m.Root())
	assert.True(t, m.Contains("/pwa/app.js"))
	assert.False(t, m.Contains("/nope"))
	assert.Empty(t, Manifest{}.Root())
}

func TestHTTPOrigin_FetchAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.html":
			_, _ = w.Write([]byte("<html></html>"))
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	origin, err := NewHTTPOrigin(HTTPOriginConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)

	body, err := origin.FetchAsset(context.Background(), "/index.html")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html></html>"), body)

	_, err = origin.FetchAsset(context.Background(), "/missing.css")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = origin.FetchAsset(context.Background(), "/boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestHTTPOrigin_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPOrigin(HTTPOriginConfig{})
	assert.Error(t, err)
}
