package offline

// Package offline provides the offline asset cache for the portal shell.
// It mirrors the install/fetch/activate lifecycle of a service worker:
// a fixed ordered manifest is primed at install time, lookups are
// cache-first with network fallback, and activation drops entries left
// behind by older manifest versions.

import "strings"

// Manifest is the versioned, ordered list of assets to cache for offline
// use. The root document comes first and doubles as the navigation
// fallback.
type Manifest struct {
	// Version names the cache generation (e.g. "central-sci-v4").
	// Bumping it invalidates every previously cached asset on Activate.
	Version string

	// Assets lists the paths to prime, root document first.
	Assets []string
}

// DefaultManifest returns the portal shell manifest.
func DefaultManifest() Manifest {
	return Manifest{
		Version: "central-sci-v4",
		Assets: []string{
			"/index.html",
			"/pwa/manifest.json",
			"/pwa/app.js",
			"/pwa/lucide.min.js",
			"/pwa/icons/icon-192.png",
			"/pwa/icons/icon-256.png",
		},
	}
}

// Root returns the navigation fallback document, or "" for an empty manifest.
func (m Manifest) Root() string {
	if len(m.Assets) == 0 {
		return ""
	}
	return m.Assets[0]
}

// Contains reports whether the manifest lists the given path.
func (m Manifest) Contains(path string) bool {
	for _, a := range m.Assets {
		if a == path {
			return true
		}
	}
	return false
}

// KeyPrefix returns the cache key prefix for this manifest version.
func (m Manifest) KeyPrefix() string {
	return "offline:" + m.Version + ":"
}

// Key returns the cache key for an asset path under this manifest version.
func (m Manifest) Key(path string) string {
	return m.KeyPrefix() + path
}

// versionPattern matches every cache key regardless of version.
const versionPattern = "offline:*"

// ownsKey reports whether the key belongs to this manifest version.
func (m Manifest) ownsKey(key string) bool {
	return strings.HasPrefix(key, m.KeyPrefix())
}
