package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sescincjoi/central-sci/internal/ports"
)

// OriginFetcher retrieves an asset body from the upstream origin.
type OriginFetcher interface {
	FetchAsset(ctx context.Context, path string) ([]byte, error)
}

// Source tells where a fetched asset body came from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// FetchRequest describes a single asset lookup.
type FetchRequest struct {
	Path string
	// Navigation marks a top-level document request. Navigations always
	// resolve to the cached root document when one is available.
	Navigation bool
}

// Asset is the result of a Fetch.
type Asset struct {
	Path   string
	Body   []byte
	Source Source
}

// metricsSink is the subset of the statsd client the cache service uses.
type metricsSink interface {
	Count(name string, value int64, tags map[string]string)
}

// CacheServiceOptions bundles dependencies for NewCacheService.
type CacheServiceOptions struct {
	Cache    ports.CacheRepository
	Origin   OriginFetcher
	Manifest Manifest
	Logger   *slog.Logger
	Metrics  metricsSink
	// TTL for cached assets. Zero means no expiry; entries live until the
	// next version's Activate sweeps them.
	TTL time.Duration
}

// CacheService primes, serves, and sweeps the offline asset cache.
type CacheService struct {
	cache    ports.CacheRepository
	origin   OriginFetcher
	manifest Manifest
	logger   *slog.Logger
	metrics  metricsSink
	ttl      time.Duration
}

// NewCacheService creates a new CacheService.
func NewCacheService(opts CacheServiceOptions) (*CacheService, error) {
	if opts.Cache == nil {
		return nil, errors.New("offline: cache repository is required")
	}
	if opts.Origin == nil {
		return nil, errors.New("offline: origin fetcher is required")
	}
	if len(opts.Manifest.Assets) == 0 {
		return nil, errors.New("offline: manifest has no assets")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheService{
		cache:    opts.Cache,
		origin:   opts.Origin,
		manifest: opts.Manifest,
		logger:   logger.With("component", "offline_cache"),
		metrics:  opts.Metrics,
		ttl:      opts.TTL,
	}, nil
}

// Manifest returns the manifest this service was built with.
func (s *CacheService) Manifest() Manifest { return s.manifest }

// installConcurrency bounds parallel origin fetches during Install.
const installConcurrency = 4

// Install primes every manifest asset. Like a service worker install, it
// fails as a whole when any asset cannot be fetched and stored, leaving
// already stored entries in place for a later retry.
func (s *CacheService) Install(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(installConcurrency)
	for _, path := range s.manifest.Assets {
		g.Go(func() error {
			if err := s.primeAsset(gctx, path); err != nil {
				return fmt.Errorf("install %s: %w", path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "offline cache installed",
		"version", s.manifest.Version, "assets", len(s.manifest.Assets))
	return nil
}

// primeAsset fetches one asset from the origin and stores it unless the
// cached copy already matches.
func (s *CacheService) primeAsset(ctx context.Context, path string) error {
	body, err := s.origin.FetchAsset(ctx, path)
	if err != nil {
		return err
	}

	key := s.manifest.Key(path)
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		return err
	}
	if len(cached) > 0 && string(cached) == string(body) {
		return nil
	}
	return s.cache.Set(ctx, key, body, s.ttl)
}

// Fetch resolves an asset cache-first with network fallback. Navigation
// requests resolve to the cached root document when present.
func (s *CacheService) Fetch(ctx context.Context, req FetchRequest) (Asset, error) {
	if req.Navigation {
		root := s.manifest.Root()
		body, err := s.cache.Get(ctx, s.manifest.Key(root))
		if err != nil {
			return Asset{}, err
		}
		if body != nil {
			s.count("offline.cache_hit", map[string]string{"kind": "navigation"})
			return Asset{Path: root, Body: body, Source: SourceCache}, nil
		}
		// Root not cached yet; fall through to the network for it.
		req = FetchRequest{Path: root}
	}

	body, err := s.cache.Get(ctx, s.manifest.Key(req.Path))
	if err != nil {
		return Asset{}, err
	}
	if body != nil {
		s.count("offline.cache_hit", map[string]string{"kind": "asset"})
		return Asset{Path: req.Path, Body: body, Source: SourceCache}, nil
	}

	s.count("offline.cache_miss", nil)
	body, err = s.origin.FetchAsset(ctx, req.Path)
	if err != nil {
		return Asset{}, err
	}
	return Asset{Path: req.Path, Body: body, Source: SourceNetwork}, nil
}

// Activate sweeps cache entries belonging to older manifest versions.
// It returns the number of removed entries.
func (s *CacheService) Activate(ctx context.Context) (int, error) {
	keys, err := s.cache.Keys(ctx, versionPattern)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if s.manifest.ownsKey(key) {
			continue
		}
		deleted, delErr := s.cache.Delete(ctx, key)
		if delErr != nil {
			return removed, delErr
		}
		if deleted {
			removed++
		}
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "swept stale offline cache entries",
			"version", s.manifest.Version, "removed", removed)
	}
	return removed, nil
}

func (s *CacheService) count(name string, tags map[string]string) {
	if s.metrics != nil {
		s.metrics.Count(name, 1, tags)
	}
}
