package ports

import (
	"context"
	"time"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
)

// MemberRecords is the record store for member profiles, keyed by the
// provider's stable user identifier and queryable by membership number.
type MemberRecords interface {
	GetByUID(ctx context.Context, uid string) (domainauth.Identity, error)
	GetByMatricula(ctx context.Context, matricula string) (domainauth.Identity, error)
	Create(ctx context.Context, id domainauth.Identity) error

	// UpdateLastAccess stamps the member's last portal access. Callers
	// treat failures as non-fatal.
	UpdateLastAccess(ctx context.Context, uid string, at time.Time) error

	SetActive(ctx context.Context, uid string, active bool) error
}

// EnrollmentRecords is the registry of membership numbers cleared for
// registration. A matricula must exist, be enabled, and be unused before
// an account can be created for it.
type EnrollmentRecords interface {
	Get(ctx context.Context, matricula string) (domainauth.Enrollment, error)
	Create(ctx context.Context, e domainauth.Enrollment) error
	MarkUsed(ctx context.Context, matricula string) error
}
