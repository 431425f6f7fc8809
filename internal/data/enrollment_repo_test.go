package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
	apperrors "github.com/sescincjoi/central-sci/internal/errors"
	"github.com/sescincjoi/central-sci/internal/testutil"
)

func testEnrollment(matricula string) domainauth.Enrollment {
	return domainauth.Enrollment{
		Matricula: matricula,
		Enabled:   true,
		Role:      domainauth.RoleUser,
	}
}

func TestEnrollmentRepo_Create_Get(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewEnrollmentRepo(db)

		require.NoError(t, repo.Create(ctx, testEnrollment("ENR0001")))

		got, err := repo.Get(ctx, "ENR0001")
		require.NoError(t, err)
		assert.True(t, got.Enabled)
		assert.False(t, got.Used)
		assert.True(t, got.Available())
		assert.False(t, got.CreatedAt.IsZero())
		assert.True(t, got.UsedAt.IsZero())
	})
}

func TestEnrollmentRepo_GetMissing(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewEnrollmentRepo(db)

		_, err := repo.Get(context.Background(), "ZZZ9999")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestEnrollmentRepo_CreateDuplicate(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewEnrollmentRepo(db)

		require.NoError(t, repo.Create(ctx, testEnrollment("ENR0002")))
		err := repo.Create(ctx, testEnrollment("ENR0002"))
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestEnrollmentRepo_MarkUsed(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		fixed := testutil.TestTime()
		repo := NewEnrollmentRepoWithTimeProvider(db, NewFixedTimeProvider(fixed))

		require.NoError(t, repo.Create(ctx, testEnrollment("ENR0003")))
		require.NoError(t, repo.MarkUsed(ctx, "ENR0003"))

		got, err := repo.Get(ctx, "ENR0003")
		require.NoError(t, err)
		assert.True(t, got.Used)
		assert.False(t, got.Available())
		assert.WithinDuration(t, fixed, got.UsedAt, time.Second)
	})
}

func TestEnrollmentRepo_MarkUsedTwice(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewEnrollmentRepo(db)

		require.NoError(t, repo.Create(ctx, testEnrollment("ENR0004")))
		require.NoError(t, repo.MarkUsed(ctx, "ENR0004"))

		err := repo.MarkUsed(ctx, "ENR0004")
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestEnrollmentRepo_MarkUsedMissing(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewEnrollmentRepo(db)

		err := repo.MarkUsed(context.Background(), "ZZZ9999")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestEnrollmentRepo_MarkUsedConcurrent(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewEnrollmentRepo(db)

		require.NoError(t, repo.Create(ctx, testEnrollment("ENR0005")))

		// Exactly one of the concurrent consumers may win.
		runner := testutil.NewConcurrentTestRunner(t, db)
		attempt := func() error { return repo.MarkUsed(ctx, "ENR0005") }
		errs := runner.RunConcurrent(attempt, attempt, attempt)

		var wins, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case apperrors.IsConflict(err):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, 2, conflicts)
	})
}

func TestEnrollmentRepo_DisabledEnrollment(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewEnrollmentRepo(db)

		e := testEnrollment("ENR0006")
		e.Enabled = false
		require.NoError(t, repo.Create(ctx, e))

		got, err := repo.Get(ctx, "ENR0006")
		require.NoError(t, err)
		assert.False(t, got.Available())
	})
}
