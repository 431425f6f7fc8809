package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	apperrors "github.com/sescincjoi/central-sci/internal/errors"
	"github.com/sescincjoi/central-sci/internal/ports"
)

// newDiscoveryServer serves a minimal OIDC discovery document.
func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()

	issuer := ""
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]string{
			"issuer":                 issuer,
			"authorization_endpoint": "https://idp.example.com/auth",
			"token_endpoint":         "https://idp.example.com/token",
			"userinfo_endpoint":      "https://idp.example.com/userinfo",
			"jwks_uri":               "https://idp.example.com/jwks",
		}
		_ = json.NewEncoder(w).Encode(doc)
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	issuer = srv.URL
	return srv
}

func createTestProvider(t *testing.T) *Provider {
	t.Helper()

	srv := newDiscoveryServer(t)
	provider, err := NewProvider(ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/auth/sso/callback",
		Scope:        "openid profile email",
		DiscoveryURL: srv.URL,
		LogoutURL:    "https://idp.example.com/logout",
	})
	require.NoError(t, err)
	return provider
}

func TestNewProvider_Success(t *testing.T) {
	provider := createTestProvider(t)
	assert.Equal(t, "https://idp.example.com/auth", provider.config.Endpoint.AuthURL)
	assert.Equal(t, "https://idp.example.com/token", provider.config.Endpoint.TokenURL)
	assert.Equal(t, "https://idp.example.com/logout", provider.LogoutURL())
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name: "missing client ID",
			config: ProviderConfig{
				ClientSecret: "secret",
				RedirectURL:  "http://localhost/callback",
				DiscoveryURL: "http://example.com",
			},
			errMsg: "client ID is required",
		},
		{
			name: "missing client secret",
			config: ProviderConfig{
				ClientID:     "client",
				RedirectURL:  "http://localhost/callback",
				DiscoveryURL: "http://example.com",
			},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "client", ClientSecret: "secret", DiscoveryURL: "http://example.com"},
			errMsg: "redirect URL is required",
		},
		{
			name: "missing discovery URL",
			config: ProviderConfig{
				ClientID:     "client",
				ClientSecret: "secret",
				RedirectURL:  "http://localhost/callback",
			},
			errMsg: "discovery URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_Begin(t *testing.T) {
	provider := createTestProvider(t)

	authURL, state, nonce, err := provider.Begin(context.Background(),
		ports.BeginInput{RedirectURL: "http://localhost:8080/auth/sso/callback"})

	require.NoError(t, err)
	assert.NotEmpty(t, authURL)
	assert.NotEmpty(t, state)
	assert.NotEmpty(t, nonce)
	assert.Contains(t, authURL, "https://idp.example.com/auth")
	assert.Contains(t, authURL, "client_id=test-client")
	assert.Contains(t, authURL, "state="+state)
	assert.Contains(t, authURL, "nonce="+nonce)
}

func TestProvider_Begin_EmptyRedirectURL(t *testing.T) {
	provider := createTestProvider(t)

	_, _, _, err := provider.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect URL is required")
}

func TestProvider_Exchange_ValidationErrors(t *testing.T) {
	provider := createTestProvider(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		input  ports.ExchangeInput
		errMsg string
	}{
		{
			name:   "missing code",
			input:  ports.ExchangeInput{State: "state", Nonce: "nonce"},
			errMsg: "authorization code is required",
		},
		{
			name:   "missing state",
			input:  ports.ExchangeInput{Code: "code", Nonce: "nonce"},
			errMsg: "state is required",
		},
		{
			name:   "missing nonce",
			input:  ports.ExchangeInput{Code: "code", State: "state"},
			errMsg: "nonce is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.Exchange(ctx, tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_Exchange_TokenEndpointUnreachable(t *testing.T) {
	provider := createTestProvider(t)

	// The discovery document points the token endpoint at a host we never
	// stood up, so the exchange itself must fail after validation passes.
	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{
		Code:  "test-code",
		State: "test-state",
		Nonce: "test-nonce",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsRemoteAuth(err))
}

func TestGenerateRandomString(t *testing.T) {
	str1, err := generateRandomString(16)
	require.NoError(t, err)
	assert.Len(t, str1, 16)

	str2, err := generateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, str2, 32)

	assert.NotEqual(t, str1, str2)

	str3, err := generateRandomString(16)
	require.NoError(t, err)
	assert.NotEqual(t, str1, str3)
}

func TestProvider_ImplementsInterface(t *testing.T) {
	provider := createTestProvider(t)
	var _ ports.SSOProvider = provider
}

func TestGetIDTokenFromToken_Success(t *testing.T) {
	tok := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "abc.def.ghi"})
	idTok, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", idTok)
}

func TestGetIDTokenFromToken_Missing(t *testing.T) {
	tok := (&oauth2.Token{}).WithExtra(map[string]any{"not_id": "x"})
	_, err := getIDTokenFromToken(tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id_token")
}

func TestGetIDTokenFromToken_Nil(t *testing.T) {
	_, err := getIDTokenFromToken(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil token")
}

func Test_mapIDTokenClaims(t *testing.T) {
	f := mapIDTokenClaims(idTokenClaims{
		Sub:        "sub-123",
		Email:      "maria@example.com",
		Name:       "Maria Silva",
		GivenName:  "Maria",
		FamilyName: "Silva",
	})
	assert.Equal(t, "sub-123", f.subject)
	assert.Equal(t, "maria@example.com", f.email)
	assert.Equal(t, "Maria Silva", f.name)
	assert.Equal(t, "Maria Silva", f.displayName())
}

func Test_idFields_displayNameFallback(t *testing.T) {
	f := idFields{givenName: "Maria", familyName: "Silva"}
	assert.Equal(t, "Maria Silva", f.displayName())

	f = idFields{givenName: "Maria"}
	assert.Equal(t, "Maria", f.displayName())

	assert.Empty(t, idFields{}.displayName())
}

func Test_fillFromUserInfoClaims(t *testing.T) {
	ui := UserInfo{
		Subject:    "sub-abc",
		Email:      "maria@example.com",
		Name:       "Maria Silva",
		GivenName:  "Maria",
		FamilyName: "Silva",
	}
	var f idFields
	fillFromUserInfoClaims(&f, ui)
	assert.Equal(t, "sub-abc", f.subject)
	assert.Equal(t, "maria@example.com", f.email)
	assert.Equal(t, "Maria Silva", f.name)

	// Verify that existing fields are not overwritten
	f2 := idFields{
		subject:    "keep",
		email:      "keep@example.com",
		name:       "Keep Name",
		givenName:  "Keep",
		familyName: "Kept",
	}
	fillFromUserInfoClaims(&f2, ui)
	assert.Equal(t, "keep", f2.subject)
	assert.Equal(t, "keep@example.com", f2.email)
	assert.Equal(t, "Keep Name", f2.name)
}
