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

// MemberRepo provides database operations for member records.
type MemberRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewMemberRepo creates a new MemberRepo with real time provider.
func NewMemberRepo(db *sql.DB) *MemberRepo {
	return &MemberRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewMemberRepoWithTimeProvider creates a new MemberRepo with a custom time provider (useful for tests).
func NewMemberRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *MemberRepo {
	return &MemberRepo{DB: db, timeProvider: tp}
}

// memberRow is the database shape of a member record.
type memberRow struct {
	UID          string     `db:"uid"`
	Matricula    string     `db:"matricula"`
	Email        string     `db:"email"`
	DisplayName  string     `db:"display_name"`
	Role         string     `db:"role"`
	Active       bool       `db:"active"`
	RegisteredAt time.Time  `db:"registered_at"`
	LastAccessAt *time.Time `db:"last_access_at"`
}

func (r memberRow) toIdentity() domainauth.Identity {
	id := domainauth.Identity{
		UID:          r.UID,
		Matricula:    r.Matricula,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		Role:         domainauth.ParseRole(r.Role),
		Active:       r.Active,
		RegisteredAt: r.RegisteredAt,
	}
	if r.LastAccessAt != nil {
		id.LastAccessAt = *r.LastAccessAt
	}
	return id
}

const (
	memberGetByUIDQuery = `
		SELECT uid, matricula, email, display_name, role, active, registered_at, last_access_at
		FROM members
		WHERE uid = $1`

	memberGetByMatriculaQuery = `
		SELECT uid, matricula, email, display_name, role, active, registered_at, last_access_at
		FROM members
		WHERE matricula = $1`
)

// GetByUID retrieves a member record by provider uid.
func (r *MemberRepo) GetByUID(ctx context.Context, uid string) (domainauth.Identity, error) {
	return r.getByQuery(ctx, memberGetByUIDQuery, uid)
}

// GetByMatricula retrieves a member record by membership number.
func (r *MemberRepo) GetByMatricula(ctx context.Context, matricula string) (domainauth.Identity, error) {
	return r.getByQuery(ctx, memberGetByMatriculaQuery, matricula)
}

// Create inserts a new member record.
func (r *MemberRepo) Create(ctx context.Context, id domainauth.Identity) error {
	if id.UID == "" {
		return apperrors.ValidationField("uid", "Member uid is required.")
	}
	if id.Matricula == "" {
		return apperrors.ValidationField("matricula", "Membership number is required.")
	}

	registeredAt := id.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = r.timeProvider.Now().UTC()
	}
	role := id.Role
	if role == "" {
		role = domainauth.RoleUser
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO members (uid, matricula, email, display_name, role, active, registered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id.UID,
			id.Matricula,
			id.Email,
			id.DisplayName,
			string(role),
			id.Active,
			registeredAt,
		)
		return execErr
	})
	return apperrors.MapDBError(err)
}

// UpdateLastAccess stamps the member's last portal access.
func (r *MemberRepo) UpdateLastAccess(ctx context.Context, uid string, at time.Time) error {
	return r.updateByUID(ctx, `UPDATE members SET last_access_at = $2 WHERE uid = $1`, uid, at.UTC())
}

// SetActive toggles the member's active flag.
func (r *MemberRepo) SetActive(ctx context.Context, uid string, active bool) error {
	return r.updateByUID(ctx, `UPDATE members SET active = $2 WHERE uid = $1`, uid, active)
}

// --- helpers ---

func (r *MemberRepo) getByQuery(ctx context.Context, q string, args ...any) (domainauth.Identity, error) {
	var row memberRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[memberRow])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.Identity{}, apperrors.NotFound("Member record not found.")
		}
		return domainauth.Identity{}, apperrors.MapDBError(err)
	}
	return row.toIdentity(), nil
}

func (r *MemberRepo) updateByUID(ctx context.Context, q, uid string, arg any) error {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, execErr := conn.Exec(ctx, q, uid, arg)
		if execErr != nil {
			return execErr
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if rows == 0 {
		return apperrors.NotFound("Member record not found.")
	}
	return nil
}
