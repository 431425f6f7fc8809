// Package devseed populates a development database with enrollments and a
// local admin member so the portal is usable right after db-reset.
package devseed

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/sescincjoi/central-sci/internal/data"
	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	apperrors "github.com/sescincjoi/central-sci/internal/errors"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB          *sql.DB
	enrollments *data.EnrollmentRepo
	members     *data.MemberRepo
}

// NewServices constructs the repositories required for seeding.
func NewServices(db *sql.DB) Services {
	return Services{
		DB:          db,
		enrollments: data.NewEnrollmentRepo(db),
		members:     data.NewMemberRepo(db),
	}
}

// Run executes the full development seeding workflow against the provided DB.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	failures := 0
	failures += seedEnrollments(ctx, svcs.enrollments, logger)
	failures += seedAdminMember(ctx, svcs.members, logger)
	if failures > 0 {
		return apperrors.Internal("Seeding finished with errors; check logs.")
	}
	return nil
}

func defaultEnrollments() []domainauth.Enrollment {
	return []domainauth.Enrollment{
		{Matricula: "SCI0001", Enabled: true, Role: domainauth.RoleAdmin},
		{Matricula: "SCI1001", Enabled: true, Role: domainauth.RoleUser},
		{Matricula: "SCI1002", Enabled: true, Role: domainauth.RoleUser},
		{Matricula: "SCI1003", Enabled: true, Role: domainauth.RoleUser},
		// Disabled entry for exercising the enrollment-disabled path.
		{Matricula: "SCI9001", Enabled: false, Role: domainauth.RoleUser},
	}
}

func seedEnrollments(ctx context.Context, repo *data.EnrollmentRepo, logger *slog.Logger) int {
	failures := 0
	for _, e := range defaultEnrollments() {
		created, err := createEnrollment(ctx, repo, e)
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to create enrollment", "matricula", e.Matricula, "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			msg := "enrollment already exists"
			if created {
				msg = "created enrollment"
			}
			logger.InfoContext(ctx, msg, "matricula", e.Matricula, "role", e.Role)
		}
	}
	return failures
}

func createEnrollment(ctx context.Context, repo *data.EnrollmentRepo, e domainauth.Enrollment) (bool, error) {
	if err := repo.Create(ctx, e); err != nil {
		if apperrors.IsConflict(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// seedAdminMember creates the local admin identity matching the mock auth
// provider defaults, so AUTH_MODE=mock sign-ins resolve to a real record.
func seedAdminMember(ctx context.Context, repo *data.MemberRepo, logger *slog.Logger) int {
	admin := domainauth.Identity{
		UID:         "dev-user",
		Email:       "dev@centralsci.org.br",
		DisplayName: "Dev Admin",
		Matricula:   "DEV0001",
		Role:        domainauth.RoleAdmin,
		Active:      true,
	}

	if err := repo.Create(ctx, admin); err != nil {
		if apperrors.IsConflict(err) {
			if logger != nil {
				logger.InfoContext(ctx, "admin member already exists", "uid", admin.UID)
			}
			return 0
		}
		if logger != nil {
			logger.ErrorContext(ctx, "failed to create admin member", "uid", admin.UID, "error", err)
		}
		return 1
	}
	if logger != nil {
		logger.InfoContext(ctx, "created admin member", "uid", admin.UID, "matricula", admin.Matricula)
	}
	return 0
}
