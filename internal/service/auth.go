package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	apperrors "github.com/sescincjoi/central-sci/internal/errors"
	"github.com/sescincjoi/central-sci/internal/ports"
	"github.com/sescincjoi/central-sci/internal/session"
)

// DefaultSessionTTL is how long a portal session stays valid.
const DefaultSessionTTL = 12 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider    ports.IdentityProvider
	SSO         ports.SSOProvider // Optional, only wired in oidc mode
	Sessions    ports.SessionStore
	Members     ports.MemberRecords
	Enrollments ports.EnrollmentRecords
	States      *session.StateStore

	// EmailDomain derives the provider account email from the membership
	// number (matricula@domain).
	EmailDomain string

	Policy     domainauth.PasswordPolicy
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// AuthService orchestrates login, registration, and session lifecycle for
// the membership portal.
type AuthService struct {
	provider    ports.IdentityProvider
	sso         ports.SSOProvider
	sessions    ports.SessionStore
	members     ports.MemberRecords
	enrollments ports.EnrollmentRecords
	states      *session.StateStore

	emailDomain string
	policy      domainauth.PasswordPolicy
	sessionTTL  time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Provider == nil {
		return nil, errors.New("auth service: identity provider is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("auth service: session store is required")
	}
	if opts.Members == nil {
		return nil, errors.New("auth service: member records are required")
	}
	if opts.EmailDomain == "" {
		return nil, errors.New("auth service: email domain is required")
	}

	policy := opts.Policy
	if policy.MinLength == 0 {
		policy = domainauth.DefaultPasswordPolicy()
	}
	ttl := opts.SessionTTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &AuthService{
		provider:    opts.Provider,
		sso:         opts.SSO,
		sessions:    opts.Sessions,
		members:     opts.Members,
		enrollments: opts.Enrollments,
		states:      opts.States,
		emailDomain: opts.EmailDomain,
		policy:      policy,
		sessionTTL:  ttl,
		logger:      logger.With("component", "auth_service"),
		now:         now,
	}, nil
}

// LoginResult contains the session created by a successful login.
type LoginResult struct {
	Session domainauth.Session
}

// Login authenticates a member by membership number and password.
func (s *AuthService) Login(ctx context.Context, matricula, password string) (*LoginResult, error) {
	matricula, err := domainauth.ValidateMatricula(matricula)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, apperrors.InvalidCredentialField("password", "Password is required.")
	}

	uid, err := s.provider.SignIn(ctx, ports.Credentials{
		Email:    s.emailFor(matricula),
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	identity, err := s.resolveMember(ctx, uid)
	if err != nil {
		return nil, err
	}

	// Best-effort access stamp; a failure must not block the login.
	if accessErr := s.members.UpdateLastAccess(ctx, uid, s.now().UTC()); accessErr != nil {
		s.logger.WarnContext(ctx, "failed to update last access", "uid", uid, "err", accessErr)
	}

	sess, err := s.createSession(ctx, identity)
	if err != nil {
		return nil, err
	}

	if s.states != nil {
		s.states.Publish(identity)
	}
	return &LoginResult{Session: sess}, nil
}

// resolveMember loads and vets the member record behind a provider uid.
// A signed-in principal without a backing record is anomalous: the
// provider session is revoked before the error is surfaced.
func (s *AuthService) resolveMember(ctx context.Context, uid string) (domainauth.Identity, error) {
	identity, err := s.members.GetByUID(ctx, uid)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.revokeProviderSession(ctx, uid)
			return domainauth.Identity{}, apperrors.NotFound("No member record exists for this account.")
		}
		return domainauth.Identity{}, err
	}
	if !identity.Active {
		s.revokeProviderSession(ctx, uid)
		return domainauth.Identity{}, apperrors.PermissionDenied("This account has been disabled.")
	}
	return identity, nil
}

func (s *AuthService) revokeProviderSession(ctx context.Context, uid string) {
	if err := s.provider.SignOut(ctx, uid); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke provider session", "uid", uid, "err", err)
	}
}

// RegisterInput groups parameters for Register.
type RegisterInput struct {
	Matricula   string
	Password    string
	DisplayName string
}

// RegisterResult contains the created member record.
type RegisterResult struct {
	Identity domainauth.Identity
}

// Register creates an account for an enrolled membership number. The
// matricula must be present in the enrollment registry, enabled, and not
// yet consumed by an earlier registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if s.enrollments == nil {
		return nil, apperrors.PermissionDenied("Registration is not available.")
	}

	matricula, err := domainauth.ValidateMatricula(in.Matricula)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Validate(in.Password); err != nil {
		return nil, err
	}

	enrollment, err := s.enrollments.Get(ctx, matricula)
	if err != nil {
		return nil, err
	}
	if enrollment.Used {
		return nil, apperrors.Conflict("This membership number has already been registered.")
	}
	if !enrollment.Enabled {
		return nil, apperrors.PermissionDenied("This membership number is not cleared for registration.")
	}

	email := s.emailFor(matricula)
	uid, err := s.provider.Register(ctx, ports.RegisterInput{
		Email:       email,
		Password:    in.Password,
		DisplayName: strings.TrimSpace(in.DisplayName),
	})
	if err != nil {
		return nil, err
	}

	identity := domainauth.Identity{
		UID:          uid,
		Matricula:    matricula,
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Role:         enrollment.Role,
		Active:       true,
		RegisteredAt: s.now().UTC(),
	}
	if createErr := s.members.Create(ctx, identity); createErr != nil {
		return nil, fmt.Errorf("create member record: %w", createErr)
	}

	if markErr := s.enrollments.MarkUsed(ctx, matricula); markErr != nil {
		// The account exists; leaving the enrollment open would allow a
		// second registration against the same matricula.
		return nil, fmt.Errorf("mark enrollment used: %w", markErr)
	}

	return &RegisterResult{Identity: identity}, nil
}

// GetSession retrieves a session by ID, expiring it lazily.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, apperrors.NotFound("Session not found.")
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil && !apperrors.IsNotFound(deleteErr) {
			s.logger.WarnContext(ctx, "failed to delete expired session", "session_id", sessionID, "err", deleteErr)
		}
		return nil, apperrors.NotFound("Session has expired.")
	}
	return &sess, nil
}

// Logout removes the session, revokes the provider session, and broadcasts
// the signed-out state.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil // Nothing to log out
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	if err == nil {
		s.revokeProviderSession(ctx, sess.UID)
	}

	if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil && !apperrors.IsNotFound(deleteErr) {
		return fmt.Errorf("delete session: %w", deleteErr)
	}

	if s.states != nil {
		s.states.PublishSignedOut()
	}
	return nil
}

// SendPasswordReset triggers the provider's reset flow for the account
// behind the membership number.
func (s *AuthService) SendPasswordReset(ctx context.Context, matricula string) error {
	matricula, err := domainauth.ValidateMatricula(matricula)
	if err != nil {
		return err
	}
	return s.provider.SendPasswordReset(ctx, s.emailFor(matricula))
}

// BeginSSOLoginResult contains the redirect parameters for an SSO login.
type BeginSSOLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginSSOLogin initiates the institutional SSO flow.
func (s *AuthService) BeginSSOLogin(ctx context.Context, redirectURL string) (*BeginSSOLoginResult, error) {
	if s.sso == nil {
		return nil, apperrors.PermissionDenied("SSO login is not available.")
	}
	if redirectURL == "" {
		return nil, apperrors.Validation("Redirect URL is required.")
	}

	authURL, state, nonce, err := s.sso.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin sso flow: %w", err)
	}
	return &BeginSSOLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteSSOLoginInput groups parameters for CompleteSSOLogin.
type CompleteSSOLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteSSOLogin finishes the SSO flow: the exchanged identity must have
// a backing member record keyed by the provider subject.
func (s *AuthService) CompleteSSOLogin(ctx context.Context, in CompleteSSOLoginInput) (*LoginResult, error) {
	if s.sso == nil {
		return nil, apperrors.PermissionDenied("SSO login is not available.")
	}

	providerIdentity, err := s.sso.Exchange(ctx, ports.ExchangeInput{
		Code:  in.Code,
		State: in.State,
		Nonce: in.Nonce,
	})
	if err != nil {
		return nil, err
	}

	identity, err := s.resolveMember(ctx, providerIdentity.UID)
	if err != nil {
		return nil, err
	}

	if accessErr := s.members.UpdateLastAccess(ctx, identity.UID, s.now().UTC()); accessErr != nil {
		s.logger.WarnContext(ctx, "failed to update last access", "uid", identity.UID, "err", accessErr)
	}

	sess, err := s.createSession(ctx, identity)
	if err != nil {
		return nil, err
	}
	if s.states != nil {
		s.states.Publish(identity)
	}
	return &LoginResult{Session: sess}, nil
}

func (s *AuthService) createSession(ctx context.Context, identity domainauth.Identity) (domainauth.Session, error) {
	sess := domainauth.Session{
		ID:          uuid.New().String(),
		UID:         identity.UID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Matricula:   identity.Matricula,
		Role:        identity.Role,
		ExpiresAt:   s.now().Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (s *AuthService) emailFor(matricula string) string {
	return strings.ToLower(matricula) + "@" + s.emailDomain
}
