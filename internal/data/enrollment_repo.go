package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sescincjoi/central-sci/internal/data/pgxutil"
	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	apperrors "github.com/sescincjoi/central-sci/internal/errors"
)

// EnrollmentRepo provides database operations for the enrollment registry.
type EnrollmentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewEnrollmentRepo creates a new EnrollmentRepo with real time provider.
func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo {
	return &EnrollmentRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewEnrollmentRepoWithTimeProvider creates a new EnrollmentRepo with a custom time provider (useful for tests).
func NewEnrollmentRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *EnrollmentRepo {
	return &EnrollmentRepo{DB: db, timeProvider: tp}
}

// enrollmentRow is the database shape of an enrollment record.
type enrollmentRow struct {
	Matricula string     `db:"matricula"`
	Enabled   bool       `db:"enabled"`
	Used      bool       `db:"used"`
	Role      string     `db:"role"`
	CreatedAt time.Time  `db:"created_at"`
	UsedAt    *time.Time `db:"used_at"`
}

func (r enrollmentRow) toEnrollment() domainauth.Enrollment {
	e := domainauth.Enrollment{
		Matricula: r.Matricula,
		Enabled:   r.Enabled,
		Used:      r.Used,
		Role:      domainauth.ParseRole(r.Role),
		CreatedAt: r.CreatedAt,
	}
	if r.UsedAt != nil {
		e.UsedAt = *r.UsedAt
	}
	return e
}

const enrollmentGetQuery = `
	SELECT matricula, enabled, used, role, created_at, used_at
	FROM enrollments
	WHERE matricula = $1`

// Get retrieves an enrollment by membership number.
func (r *EnrollmentRepo) Get(ctx context.Context, matricula string) (domainauth.Enrollment, error) {
	var row enrollmentRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, enrollmentGetQuery, matricula)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[enrollmentRow])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.Enrollment{}, apperrors.NotFound("Membership number is not enrolled.")
		}
		return domainauth.Enrollment{}, apperrors.MapDBError(err)
	}
	return row.toEnrollment(), nil
}

// Create inserts a new enrollment into the registry.
func (r *EnrollmentRepo) Create(ctx context.Context, e domainauth.Enrollment) error {
	if e.Matricula == "" {
		return apperrors.ValidationField("matricula", "Membership number is required.")
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now().UTC()
	}
	role := e.Role
	if role == "" {
		role = domainauth.RoleUser
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO enrollments (matricula, enabled, used, role, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			e.Matricula,
			e.Enabled,
			e.Used,
			string(role),
			createdAt,
		)
		return execErr
	})
	return apperrors.MapDBError(err)
}

// MarkUsed consumes the enrollment so no further account can register with it.
// Returns Conflict when the enrollment was already consumed.
func (r *EnrollmentRepo) MarkUsed(ctx context.Context, matricula string) error {
	usedAt := r.timeProvider.Now().UTC()

	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, execErr := conn.Exec(ctx, `
			UPDATE enrollments SET used = TRUE, used_at = $2
			WHERE matricula = $1 AND used = FALSE`,
			matricula, usedAt)
		if execErr != nil {
			return execErr
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if rows > 0 {
		return nil
	}

	// Nothing updated: either the matricula is unknown or already used.
	if _, getErr := r.Get(ctx, matricula); getErr != nil {
		return getErr
	}
	return apperrors.Conflict("Membership number has already been used for registration.")
}
