package config

import (
	"strings"
	"time"
)

// OfflineConfig contains offline asset cache configuration.
type OfflineConfig struct {
	// Version names the active cache generation (e.g. "central-sci-v4").
	// Bumping it invalidates entries cached under older versions on activate.
	Version string `env:"OFFLINE_CACHE_VERSION" envDefault:"central-sci-v1"`

	// UpstreamURL is the origin serving the static assets to prime the cache from.
	UpstreamURL string `env:"OFFLINE_UPSTREAM_URL" envDefault:"http://localhost:8081"`

	// FetchTimeout bounds each upstream asset fetch.
	FetchTimeout time.Duration `env:"OFFLINE_FETCH_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to offline cache configuration values.
func (c *OfflineConfig) Sanitize() {
	c.Version = strings.TrimSpace(c.Version)
	if c.Version == "" {
		c.Version = "central-sci-v1"
	}
	c.UpstreamURL = strings.TrimRight(strings.TrimSpace(c.UpstreamURL), "/")
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
}
