package ports_test

import (
	"testing"

	mocks "github.com/sescincjoi/central-sci/internal/mocks/auth"
	"github.com/sescincjoi/central-sci/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.IdentityProvider = (*mocks.MockIdentityProvider)(nil)
	var _ ports.SSOProvider = (*mocks.MockSSOProvider)(nil)
	var _ ports.AuthStateNotifier = (*mocks.MockAuthStateNotifier)(nil)
	var _ ports.SessionStore = (*mocks.MemorySessionStore)(nil)
	var _ ports.MemberRecords = (*mocks.MemoryMemberRecords)(nil)
	var _ ports.EnrollmentRecords = (*mocks.MemoryEnrollmentRecords)(nil)
}
