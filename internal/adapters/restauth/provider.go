package restauth

// Package restauth implements the identity provider against a REST
// password-auth API (Identity Toolkit style endpoints). Accounts are keyed
// by a synthetic email derived from the membership number; the API issues
// a stable local id per account.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/sescincjoi/central-sci/internal/errors"
	"github.com/sescincjoi/central-sci/internal/ports"
)

// ProviderConfig holds configuration for the REST auth provider.
type ProviderConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client // Optional, defaults to a 15s-timeout client
}

// Provider implements ports.IdentityProvider over the REST password API.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewProvider creates a new REST auth provider.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signUpRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	DisplayName       string `json:"displayName,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type oobCodeRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

type accountResponse struct {
	LocalID string `json:"localId"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn verifies the credentials and returns the account's local id.
func (p *Provider) SignIn(ctx context.Context, creds ports.Credentials) (string, error) {
	if creds.Email == "" || creds.Password == "" {
		return "", apperrors.InvalidCredential("Email and password are required.")
	}

	var resp accountResponse
	err := p.post(ctx, "accounts:signInWithPassword", signInRequest{
		Email:             creds.Email,
		Password:          creds.Password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.LocalID == "" {
		return "", apperrors.RemoteAuth("Identity provider returned no account id.", nil)
	}
	return resp.LocalID, nil
}

// SignOut is a no-op: the REST API is token-based and holds no server-side
// session for us to invalidate.
func (p *Provider) SignOut(context.Context, string) error {
	return nil
}

// Register creates an account and returns its local id.
func (p *Provider) Register(ctx context.Context, in ports.RegisterInput) (string, error) {
	var resp accountResponse
	err := p.post(ctx, "accounts:signUp", signUpRequest{
		Email:             in.Email,
		Password:          in.Password,
		DisplayName:       in.DisplayName,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.LocalID == "" {
		return "", apperrors.RemoteAuth("Identity provider returned no account id.", nil)
	}
	return resp.LocalID, nil
}

// SendPasswordReset triggers the provider's password reset email.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	return p.post(ctx, "accounts:sendOobCode", oobCodeRequest{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}, nil)
}

func (p *Provider) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", endpoint, err)
	}

	url := p.baseURL + "/" + endpoint + "?key=" + p.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.RemoteAuth("Could not reach the identity provider.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return p.mapAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return apperrors.RemoteAuth("Identity provider returned an unreadable response.", decodeErr)
	}
	return nil
}

func (p *Provider) mapAPIError(resp *http.Response) error {
	var body apiError
	if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil {
		return apperrors.RemoteAuth(
			fmt.Sprintf("Identity provider request failed with status %d.", resp.StatusCode), nil)
	}

	// The API encodes the failure cause in a message token, sometimes with
	// a trailing detail ("TOO_MANY_ATTEMPTS_TRY_LATER : ...").
	token, _, _ := strings.Cut(body.Error.Message, " ")
	switch token {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return apperrors.InvalidCredential("Incorrect membership number or password.")
	case "USER_DISABLED":
		return apperrors.PermissionDenied("This account has been disabled.")
	case "EMAIL_EXISTS":
		return apperrors.Conflict("An account already exists for this membership number.")
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return apperrors.RemoteAuth("Too many attempts. Please try again later.", nil)
	default:
		return apperrors.RemoteAuth(
			fmt.Sprintf("Identity provider rejected the request (%s).", body.Error.Message), nil)
	}
}
