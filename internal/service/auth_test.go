package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	apperrors "github.com/sescincjoi/central-sci/internal/errors"
	mockauth "github.com/sescincjoi/central-sci/internal/mocks/auth"
	"github.com/sescincjoi/central-sci/internal/session"
)

const testEmailDomain = "socios.sescinjoinville.com.br"

type authFixture struct {
	svc         *AuthService
	provider    *mockauth.MockIdentityProvider
	sso         *mockauth.MockSSOProvider
	sessions    *mockauth.MemorySessionStore
	members     *mockauth.MemoryMemberRecords
	enrollments *mockauth.MemoryEnrollmentRecords
	states      *session.StateStore
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		provider:    mockauth.NewMockIdentityProvider(),
		sso:         mockauth.NewMockSSOProvider(),
		sessions:    mockauth.NewMemorySessionStore(),
		members:     mockauth.NewMemoryMemberRecords(),
		enrollments: mockauth.NewMemoryEnrollmentRecords(),
		states:      session.NewStateStore(session.StateStoreOptions{}),
	}

	svc, err := NewAuthService(AuthServiceOptions{
		Provider:    f.provider,
		SSO:         f.sso,
		Sessions:    f.sessions,
		Members:     f.members,
		Enrollments: f.enrollments,
		States:      f.states,
		EmailDomain: testEmailDomain,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// seedMember creates a provider account plus a backing member record.
func (f *authFixture) seedMember(matricula, password string, role domainauth.Role) domainauth.Identity {
	uid := f.provider.AddAccount(emailForTest(matricula), password)
	id := domainauth.Identity{
		UID:         uid,
		Matricula:   matricula,
		Email:       emailForTest(matricula),
		DisplayName: "Maria Silva",
		Role:        role,
		Active:      true,
	}
	f.members.Add(id)
	return id
}

func emailForTest(matricula string) string {
	out := make([]byte, len(matricula))
	for i := 0; i < len(matricula); i++ {
		c := matricula[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out) + "@" + testEmailDomain
}

func TestNewAuthService_Validation(t *testing.T) {
	_, err := NewAuthService(AuthServiceOptions{})
	assert.Error(t, err)
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	member := f.seedMember("ABC1234", "Secret1!", domainauth.RoleUser)

	res, err := f.svc.Login(ctx, "abc1234", "Secret1!")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Session.ID)
	assert.Equal(t, member.UID, res.Session.UID)
	assert.Equal(t, "ABC1234", res.Session.Matricula)
	assert.Equal(t, domainauth.RoleUser, res.Session.Role)
	assert.True(t, res.Session.ExpiresAt.After(time.Now()))

	// Session is persisted and retrievable.
	got, err := f.svc.GetSession(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, member.UID, got.UID)

	// Last access was stamped.
	stored, err := f.members.GetByUID(ctx, member.UID)
	require.NoError(t, err)
	assert.False(t, stored.LastAccessAt.IsZero())

	// State store broadcasts the authenticated identity.
	assert.True(t, f.states.IsAuthenticated())
	assert.Equal(t, member.UID, f.states.Current().UID)
}

func TestAuthService_LoginCanonicalizesMatricula(t *testing.T) {
	f := newAuthFixture(t)

	member := f.seedMember("ABC1234", "Secret1!", domainauth.RoleUser)

	// Surrounding whitespace and case are folded into the canonical form
	// before the provider email is derived.
	res, err := f.svc.Login(context.Background(), "  abc1234  ", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, member.UID, res.Session.UID)
}

func TestAuthService_LoginInvalidMatricula(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "12345", "Secret1!")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "matricula", apperrors.GetField(err))
}

func TestAuthService_LoginMissingPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "ABC1234", "")
	assert.True(t, apperrors.IsInvalidCredential(err))
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seedMember("ABC1234", "Secret1!", domainauth.RoleUser)

	_, err := f.svc.Login(context.Background(), "ABC1234", "wrong")
	assert.True(t, apperrors.IsInvalidCredential(err))
	assert.Zero(t, f.sessions.Len())
}

func TestAuthService_LoginMissingRecordForcesSignOut(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Provider account exists but no member record backs it.
	uid := f.provider.AddAccount(emailForTest("GHO0001"), "Secret1!")

	_, err := f.svc.Login(ctx, "GHO0001", "Secret1!")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, []string{uid}, f.provider.SignedOutUIDs)
	assert.Zero(t, f.sessions.Len())
	assert.False(t, f.states.IsAuthenticated())
}

func TestAuthService_LoginDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	member := f.seedMember("ABC1234", "Secret1!", domainauth.RoleUser)
	require.NoError(t, f.members.SetActive(ctx, member.UID, false))

	_, err := f.svc.Login(ctx, "ABC1234", "Secret1!")
	assert.True(t, apperrors.IsPermissionDenied(err))
	assert.Equal(t, []string{member.UID}, f.provider.SignedOutUIDs)
}

func TestAuthService_LoginLastAccessFailureNonFatal(t *testing.T) {
	f := newAuthFixture(t)
	f.seedMember("ABC1234", "Secret1!", domainauth.RoleUser)
	f.members.UpdateLastAccessErr = apperrors.Internal("db down")

	res, err := f.svc.Login(context.Background(), "ABC1234", "Secret1!")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Session.ID)
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.enrollments.Add(domainauth.Enrollment{Matricula: "XYZ9999", Enabled: true, Role: domainauth.RoleAdmin})

	res, err := f.svc.Register(ctx, RegisterInput{
		Matricula:   "xyz9999",
		Password:    "Secret123",
		DisplayName: "  Ana Souza ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Identity.UID)
	assert.Equal(t, "XYZ9999", res.Identity.Matricula)
	assert.Equal(t, emailForTest("XYZ9999"), res.Identity.Email)
	assert.Equal(t, "Ana Souza", res.Identity.DisplayName)
	assert.Equal(t, domainauth.RoleAdmin, res.Identity.Role)
	assert.True(t, res.Identity.Active)

	// Enrollment consumed.
	e, err := f.enrollments.Get(ctx, "XYZ9999")
	require.NoError(t, err)
	assert.True(t, e.Used)

	// The new account can log in.
	login, err := f.svc.Login(ctx, "XYZ9999", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, res.Identity.UID, login.Session.UID)
}

func TestAuthService_RegisterUnknownMatricula(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Matricula: "XYZ9999", Password: "Secret123"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAuthService_RegisterUsedMatricula(t *testing.T) {
	f := newAuthFixture(t)
	f.enrollments.Add(domainauth.Enrollment{Matricula: "XYZ9999", Enabled: true, Used: true})

	_, err := f.svc.Register(context.Background(), RegisterInput{Matricula: "XYZ9999", Password: "Secret123"})
	assert.True(t, apperrors.IsConflict(err))
}

func TestAuthService_RegisterDisabledMatricula(t *testing.T) {
	f := newAuthFixture(t)
	f.enrollments.Add(domainauth.Enrollment{Matricula: "XYZ9999", Enabled: false})

	_, err := f.svc.Register(context.Background(), RegisterInput{Matricula: "XYZ9999", Password: "Secret123"})
	assert.True(t, apperrors.IsPermissionDenied(err))
}

func TestAuthService_RegisterWeakPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.enrollments.Add(domainauth.Enrollment{Matricula: "XYZ9999", Enabled: true})

	_, err := f.svc.Register(context.Background(), RegisterInput{Matricula: "XYZ9999", Password: "short"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "password", apperrors.GetField(err))
}

func TestAuthService_GetSessionExpired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	sess := domainauth.Session{ID: "expired", UID: "u1", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, f.sessions.Save(ctx, sess))

	_, err := f.svc.GetSession(ctx, "expired")
	assert.True(t, apperrors.IsNotFound(err))

	// Lazy expiry removed the stored session.
	assert.Zero(t, f.sessions.Len())
}

func TestAuthService_GetSessionMissing(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.GetSession(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.GetSession(context.Background(), "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	member := f.seedMember("ABC1234", "Secret1!", domainauth.RoleUser)
	res, err := f.svc.Login(ctx, "ABC1234", "Secret1!")
	require.NoError(t, err)
	require.True(t, f.states.IsAuthenticated())

	require.NoError(t, f.svc.Logout(ctx, res.Session.ID))

	assert.Zero(t, f.sessions.Len())
	assert.Contains(t, f.provider.SignedOutUIDs, member.UID)
	assert.False(t, f.states.IsAuthenticated())

	// Logging out an unknown or empty session is a no-op.
	assert.NoError(t, f.svc.Logout(ctx, "nope"))
	assert.NoError(t, f.svc.Logout(ctx, ""))
}

func TestAuthService_SendPasswordReset(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.SendPasswordReset(context.Background(), "abc1234"))
	assert.Equal(t, []string{emailForTest("ABC1234")}, f.provider.ResetEmails)

	err := f.svc.SendPasswordReset(context.Background(), "bad")
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthService_SSOLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	begin, err := f.svc.BeginSSOLogin(ctx, "http://localhost/auth/sso/callback")
	require.NoError(t, err)
	assert.NotEmpty(t, begin.AuthURL)
	assert.NotEmpty(t, begin.State)
	assert.NotEmpty(t, begin.Nonce)

	// A member record backs the SSO subject.
	f.members.Add(domainauth.Identity{
		UID:       "sso-user-1",
		Matricula: "SSO0001",
		Email:     "maria@example.com",
		Role:      domainauth.RoleUser,
		Active:    true,
	})

	res, err := f.svc.CompleteSSOLogin(ctx, CompleteSSOLoginInput{
		Code:  "code",
		State: begin.State,
		Nonce: begin.Nonce,
	})
	require.NoError(t, err)
	assert.Equal(t, "sso-user-1", res.Session.UID)
	assert.True(t, f.states.IsAuthenticated())
}

func TestAuthService_SSOLoginNoBackingRecord(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.CompleteSSOLogin(context.Background(), CompleteSSOLoginInput{
		Code: "code", State: "s", Nonce: "n",
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAuthService_SSOUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.sso = nil

	_, err := f.svc.BeginSSOLogin(context.Background(), "http://localhost/cb")
	assert.True(t, apperrors.IsPermissionDenied(err))

	_, err = f.svc.CompleteSSOLogin(context.Background(), CompleteSSOLoginInput{Code: "c", State: "s", Nonce: "n"})
	assert.True(t, apperrors.IsPermissionDenied(err))
}
