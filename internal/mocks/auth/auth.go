package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	apperrors "github.com/sescincjoi/central-sci/internal/errors"
	"github.com/sescincjoi/central-sci/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider  = (*MockIdentityProvider)(nil)
	_ ports.SSOProvider       = (*MockSSOProvider)(nil)
	_ ports.AuthStateNotifier = (*MockAuthStateNotifier)(nil)
	_ ports.SessionStore      = (*MemorySessionStore)(nil)
	_ ports.MemberRecords     = (*MemoryMemberRecords)(nil)
	_ ports.EnrollmentRecords = (*MemoryEnrollmentRecords)(nil)
)

// MockIdentityProvider simulates the identity backend. Accounts live in a
// map keyed by email; every override func takes precedence when set.
type MockIdentityProvider struct {
	SignInFunc            func(ctx context.Context, creds ports.Credentials) (string, error)
	SignOutFunc           func(ctx context.Context, uid string) error
	RegisterFunc          func(ctx context.Context, in ports.RegisterInput) (string, error)
	SendPasswordResetFunc func(ctx context.Context, email string) error

	mu       sync.Mutex
	accounts map[string]mockAccount // keyed by email
	nextID   int

	SignedOutUIDs []string
	ResetEmails   []string
}

type mockAccount struct {
	UID      string
	Password string
}

// NewMockIdentityProvider creates an empty MockIdentityProvider.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{accounts: make(map[string]mockAccount)}
}

// AddAccount seeds an account and returns its uid.
func (m *MockIdentityProvider) AddAccount(email, password string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	uid := fmt.Sprintf("mock-uid-%d", m.nextID)
	m.accounts[email] = mockAccount{UID: uid, Password: password}
	return uid
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, creds ports.Credentials) (string, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, creds)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[creds.Email]
	if !ok || acct.Password != creds.Password {
		return "", apperrors.InvalidCredential("Incorrect membership number or password.")
	}
	return acct.UID, nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, uid string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, uid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignedOutUIDs = append(m.SignedOutUIDs, uid)
	return nil
}

func (m *MockIdentityProvider) Register(ctx context.Context, in ports.RegisterInput) (string, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[in.Email]; exists {
		return "", apperrors.Conflict("An account already exists for this membership number.")
	}
	m.nextID++
	uid := fmt.Sprintf("mock-uid-%d", m.nextID)
	m.accounts[in.Email] = mockAccount{UID: uid, Password: in.Password}
	return uid, nil
}

func (m *MockIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	if m.SendPasswordResetFunc != nil {
		return m.SendPasswordResetFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetEmails = append(m.ResetEmails, email)
	return nil
}

// MockSSOProvider simulates the institutional SSO provider with
// deterministic state/nonce values.
type MockSSOProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL  string
	Identity domainauth.Identity

	callCount int
}

// NewMockSSOProvider creates a MockSSOProvider with sensible defaults.
func NewMockSSOProvider() *MockSSOProvider {
	return &MockSSOProvider{
		AuthURL: "https://mock-idp/auth",
		Identity: domainauth.Identity{
			UID:         "sso-user-1",
			Email:       "maria@example.com",
			DisplayName: "Maria Silva",
			Role:        domainauth.RoleUser,
			Active:      true,
		},
	}
}

func (m *MockSSOProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.callCount++
	return m.AuthURL, fmt.Sprintf("state-%d", m.callCount), fmt.Sprintf("nonce-%d", m.callCount), nil
}

func (m *MockSSOProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	return m.Identity, nil
}

// MockAuthStateNotifier lets a test drive auth state callbacks by hand.
type MockAuthStateNotifier struct {
	mu        sync.Mutex
	callbacks []func(uid string)
	current   string
}

// NewMockAuthStateNotifier creates a notifier reporting signed-out state.
func NewMockAuthStateNotifier() *MockAuthStateNotifier {
	return &MockAuthStateNotifier{}
}

func (m *MockAuthStateNotifier) OnAuthStateChange(_ context.Context, fn func(uid string)) (func(), error) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, fn)
	idx := len(m.callbacks) - 1
	current := m.current
	m.mu.Unlock()

	fn(current)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.callbacks) {
			m.callbacks[idx] = nil
		}
	}, nil
}

// Emit delivers a state change to every registered callback.
func (m *MockAuthStateNotifier) Emit(uid string) {
	m.mu.Lock()
	m.current = uid
	callbacks := make([]func(string), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, fn := range callbacks {
		if fn != nil {
			fn(uid)
		}
	}
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, apperrors.NotFound("session not found")
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// MemoryMemberRecords is an in-memory member record store for unit tests.
type MemoryMemberRecords struct {
	mu      sync.Mutex
	members map[string]domainauth.Identity // keyed by uid

	GetByUIDErr         error
	UpdateLastAccessErr error
}

// NewMemoryMemberRecords creates an empty MemoryMemberRecords.
func NewMemoryMemberRecords() *MemoryMemberRecords {
	return &MemoryMemberRecords{members: make(map[string]domainauth.Identity)}
}

// Add seeds a member record.
func (m *MemoryMemberRecords) Add(id domainauth.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[id.UID] = id
}

func (m *MemoryMemberRecords) GetByUID(_ context.Context, uid string) (domainauth.Identity, error) {
	if m.GetByUIDErr != nil {
		return domainauth.Identity{}, m.GetByUIDErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.members[uid]
	if !ok {
		return domainauth.Identity{}, apperrors.NotFound("Member record not found.")
	}
	return id, nil
}

func (m *MemoryMemberRecords) GetByMatricula(_ context.Context, matricula string) (domainauth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.members {
		if id.Matricula == matricula {
			return id, nil
		}
	}
	return domainauth.Identity{}, apperrors.NotFound("Member record not found.")
}

func (m *MemoryMemberRecords) Create(_ context.Context, id domainauth.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.members[id.UID]; exists {
		return apperrors.Conflict("member already exists")
	}
	m.members[id.UID] = id
	return nil
}

func (m *MemoryMemberRecords) UpdateLastAccess(_ context.Context, uid string, at time.Time) error {
	if m.UpdateLastAccessErr != nil {
		return m.UpdateLastAccessErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.members[uid]
	if !ok {
		return apperrors.NotFound("Member record not found.")
	}
	id.LastAccessAt = at
	m.members[uid] = id
	return nil
}

func (m *MemoryMemberRecords) SetActive(_ context.Context, uid string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.members[uid]
	if !ok {
		return apperrors.NotFound("Member record not found.")
	}
	id.Active = active
	m.members[uid] = id
	return nil
}

// MemoryEnrollmentRecords is an in-memory enrollment registry for unit tests.
type MemoryEnrollmentRecords struct {
	mu          sync.Mutex
	enrollments map[string]domainauth.Enrollment

	MarkUsedErr error
}

// NewMemoryEnrollmentRecords creates an empty MemoryEnrollmentRecords.
func NewMemoryEnrollmentRecords() *MemoryEnrollmentRecords {
	return &MemoryEnrollmentRecords{enrollments: make(map[string]domainauth.Enrollment)}
}

// Add seeds an enrollment.
func (m *MemoryEnrollmentRecords) Add(e domainauth.Enrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[e.Matricula] = e
}

func (m *MemoryEnrollmentRecords) Get(_ context.Context, matricula string) (domainauth.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[matricula]
	if !ok {
		return domainauth.Enrollment{}, apperrors.NotFound("Membership number is not enrolled.")
	}
	return e, nil
}

func (m *MemoryEnrollmentRecords) Create(_ context.Context, e domainauth.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.enrollments[e.Matricula]; exists {
		return apperrors.Conflict("enrollment already exists")
	}
	m.enrollments[e.Matricula] = e
	return nil
}

func (m *MemoryEnrollmentRecords) MarkUsed(_ context.Context, matricula string) error {
	if m.MarkUsedErr != nil {
		return m.MarkUsedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[matricula]
	if !ok {
		return apperrors.NotFound("Membership number is not enrolled.")
	}
	if e.Used {
		return apperrors.Conflict("Membership number has already been used for registration.")
	}
	e.Used = true
	m.enrollments[matricula] = e
	return nil
}
