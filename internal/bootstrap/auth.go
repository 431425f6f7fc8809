package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/sescincjoi/central-sci/config"
	"github.com/sescincjoi/central-sci/internal/adapters/devauth"
	"github.com/sescincjoi/central-sci/internal/adapters/oidc"
	redisadapter "github.com/sescincjoi/central-sci/internal/adapters/redis"
	"github.com/sescincjoi/central-sci/internal/adapters/restauth"
	"github.com/sescincjoi/central-sci/internal/data"
	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	"github.com/sescincjoi/central-sci/internal/ports"
	"github.com/sescincjoi/central-sci/internal/service"
	"github.com/sescincjoi/central-sci/internal/session"
)

// AuthDeps contains dependencies for building the auth service.
type AuthDeps struct {
	Auth        config.AuthConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	States      *session.StateStore
	Logger      *slog.Logger
}

// BuildAuthService creates an auth service based on the configured auth mode.
// Returns nil if auth is not configured or configuration is invalid; the
// portal then serves only the public shell.
func BuildAuthService(ctx context.Context, deps AuthDeps) *service.AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.RedisClient == nil {
		logger.Warn("auth service disabled: redis client not configured", "mode", deps.Auth.Mode)
		return nil
	}
	if deps.DB == nil {
		logger.Warn("auth service disabled: database not configured", "mode", deps.Auth.Mode)
		return nil
	}

	// Session and record stores are shared by every mode.
	sessionStore := redisadapter.NewSessionStoreWithPrefix(deps.RedisClient, "session:")
	members := data.NewMemberRepo(deps.DB)
	enrollments := data.NewEnrollmentRepo(deps.DB)

	opts := service.AuthServiceOptions{
		Sessions:    sessionStore,
		Members:     members,
		Enrollments: enrollments,
		States:      deps.States,
		EmailDomain: deps.Auth.Password.EmailDomain,
		SessionTTL:  deps.Auth.SessionDuration,
		Logger:      logger,
	}

	switch deps.Auth.Mode {
	case config.AuthModeMock:
		prov := buildDevAuthProvider(deps.Auth.DevAuth, logger)
		if prov == nil {
			return nil
		}
		opts.Provider = prov
		// The dev provider doubles as its own change notifier so the
		// state store sees sign-ins the way it would in production.
		if deps.States != nil {
			if _, err := deps.States.ObserveAuthChanges(ctx, prov, prov, members); err != nil {
				logger.Warn("failed to observe dev auth changes", "error", err)
			}
		}

	case config.AuthModeOIDC:
		opts.Provider = buildPasswordProvider(deps.Auth.Password, logger)
		if opts.Provider == nil {
			return nil
		}
		opts.SSO = buildSSOProvider(deps.Auth.OIDC, logger)
		if opts.SSO == nil {
			return nil
		}

	default: // AuthModePassword
		opts.Provider = buildPasswordProvider(deps.Auth.Password, logger)
		if opts.Provider == nil {
			return nil
		}
	}

	svc, err := service.NewAuthService(opts)
	if err != nil {
		logger.Warn("failed to create auth service, auth disabled", "error", err)
		return nil
	}
	return svc
}

func buildPasswordProvider(cfg config.PasswordAuthConfig, logger *slog.Logger) *restauth.Provider {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		logger.Warn("password auth selected but required config missing; auth disabled",
			"base_url_empty", cfg.BaseURL == "",
			"api_key_empty", cfg.APIKey == "",
		)
		return nil
	}

	prov, err := restauth.NewProvider(restauth.ProviderConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		logger.Warn("failed to create password auth provider, auth disabled", "error", err)
		return nil
	}
	return prov
}

//nolint:ireturn // the SSO port is what the auth service consumes.
func buildSSOProvider(cfg config.OIDCConfig, logger *slog.Logger) ports.SSOProvider {
	if cfg.DiscoveryURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.Warn("AuthModeOIDC selected but required config missing; auth disabled",
			"discovery_url_empty", cfg.DiscoveryURL == "",
			"client_id_empty", cfg.ClientID == "",
			"client_secret_empty", cfg.ClientSecret == "",
		)
		return nil
	}

	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scope:        cfg.Scope,
		DiscoveryURL: cfg.DiscoveryURL,
		LogoutURL:    cfg.LogoutURL,
	})
	if err != nil {
		logger.Warn("failed to create OIDC provider, auth disabled", "error", err)
		return nil
	}
	return prov
}

func buildDevAuthProvider(cfg config.DevAuthConfig, logger *slog.Logger) *devauth.Provider {
	prov, err := devauth.NewProvider(devauth.Config{
		UID:       cfg.UID,
		Matricula: cfg.Matricula,
		Email:     cfg.Email,
		Role:      domainauth.ParseRole(cfg.Role),
	})
	if err != nil {
		logger.Warn("failed to create dev auth provider, auth disabled", "error", err)
		return nil
	}
	return prov
}
