package httpx

import (
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	apperrors "github.com/sescincjoi/central-sci/internal/errors"
	"github.com/sescincjoi/central-sci/internal/offline"
)

// OfflineHandlers serves the app shell and its assets through the offline
// cache, mirroring the cache-first strategy the installed client uses.
type OfflineHandlers struct {
	Svc    *offline.CacheService
	Logger *slog.Logger
}

func (h *OfflineHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// ServeAsset handles GET requests for app shell assets.
// Navigations that miss the manifest fall back to the cached root document.
func (h *OfflineHandlers) ServeAsset(w http.ResponseWriter, r *http.Request) {
	assetPath := r.URL.Path
	if assetPath == "/" {
		assetPath = h.Svc.Manifest().Root()
	}

	asset, err := h.Svc.Fetch(r.Context(), offline.FetchRequest{
		Path:       assetPath,
		Navigation: isNavigationRequest(r),
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger().ErrorContext(r.Context(), "asset fetch failed", "path", assetPath, "error", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	if ct := mime.TypeByExtension(path.Ext(asset.Path)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("X-Served-From", string(asset.Source))
	if _, err := w.Write(asset.Body); err != nil {
		// Client went away mid-response.
		return
	}
}

// Manifest returns the current offline cache manifest.
// GET /offline/manifest.
func (h *OfflineHandlers) Manifest(w http.ResponseWriter, _ *http.Request) {
	m := h.Svc.Manifest()
	WriteJSON(w, http.StatusOK, map[string]any{
		"version": m.Version,
		"assets":  m.Assets,
	})
}

// Install primes the cache with every manifest asset.
// POST /api/offline/install.
func (h *OfflineHandlers) Install(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Install(r.Context()); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "primed",
		"assets": len(h.Svc.Manifest().Assets),
	})
}

// Activate sweeps cache entries left behind by older manifest versions.
// POST /api/offline/activate.
func (h *OfflineHandlers) Activate(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Svc.Activate(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "activated",
		"removed": removed,
	})
}

// isNavigationRequest reports whether the request is a document navigation
// rather than a subresource fetch.
func isNavigationRequest(r *http.Request) bool {
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
