package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/sescincjoi/central-sci/config"
)

func TestBuildAuthServiceReturnsNilWithoutRedis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		auth config.AuthConfig
	}{
		{
			name: "dev auth mode",
			auth: config.AuthConfig{
				Mode: config.AuthModeMock,
				DevAuth: config.DevAuthConfig{
					UID:       "dev-user",
					Matricula: "DEV0001",
					Email:     "dev@example.com",
					Role:      "admin",
				},
			},
		},
		{
			name: "oidc mode",
			auth: config.AuthConfig{
				Mode: config.AuthModeOIDC,
				Password: config.PasswordAuthConfig{
					BaseURL: "https://identity.example.com",
					APIKey:  "key",
				},
				OIDC: config.OIDCConfig{
					ClientID:     "client-id",
					ClientSecret: "client-secret",
					DiscoveryURL: "https://issuer.example.com",
					RedirectURL:  "https://app.example.com/auth/sso/callback",
					Scope:        "openid",
				},
			},
		},
		{
			name: "password mode",
			auth: config.AuthConfig{
				Mode: config.AuthModePassword,
				Password: config.PasswordAuthConfig{
					BaseURL: "https://identity.example.com",
					APIKey:  "key",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := AuthDeps{
				Auth:        tt.auth,
				RedisClient: nil,
				Logger:      logger,
			}

			if svc := BuildAuthService(context.Background(), deps); svc != nil {
				t.Fatalf("BuildAuthService() = %v, want nil", svc)
			}
		})
	}
}
