package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	"github.com/sescincjoi/central-sci/internal/offline"
	"github.com/sescincjoi/central-sci/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth    *service.AuthService
	Offline *offline.CacheService

	CookieDomain string
	// SSOCallbackURL enables the SSO begin/callback routes when non-empty.
	SSOCallbackURL string
	Logger         *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	var authHandlers *AuthHandlers
	if services.Auth != nil {
		authHandlers = &AuthHandlers{
			Svc:            services.Auth,
			CookieDomain:   services.CookieDomain,
			SSOCallbackURL: services.SSOCallbackURL,
			Logger:         services.Logger,
		}
		registerAuthRoutes(mux, authHandlers)
		if services.SSOCallbackURL != "" {
			registerSSORoutes(mux, authHandlers)
		}
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.Offline != nil {
		registerOfflineRoutes(mux, &OfflineHandlers{Svc: services.Offline, Logger: services.Logger}, services.Auth)
	}

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Logging(logger)(Recover(logger)(mux))
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/password-reset", h.PasswordReset)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func registerSSORoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/sso/login", h.SSOLogin)
	mux.HandleFunc("GET /auth/sso/callback", h.SSOCallback)
}

func registerOfflineRoutes(mux *http.ServeMux, h *OfflineHandlers, auth *service.AuthService) {
	// Nil-safe middleware factory for cache administration.
	adminOnly := func(hh http.Handler) http.Handler {
		if auth != nil {
			return RequireRole(auth, domainauth.RoleAdmin)(hh)
		}
		return hh
	}

	mux.HandleFunc("GET /offline/manifest", h.Manifest)
	mux.Handle("POST /api/offline/install", adminOnly(http.HandlerFunc(h.Install)))
	mux.Handle("POST /api/offline/activate", adminOnly(http.HandlerFunc(h.Activate)))

	// The app shell and its assets are served through the offline cache.
	mux.HandleFunc("GET /", h.ServeAsset)
}
