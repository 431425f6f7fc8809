package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sescincjoi/central-sci/internal/data"
	domainauth "github.com/sescincjoi/central-sci/internal/domain/auth"
)

type enrollmentCreateOptions struct {
	Matricula string
	Role      string
	Disabled  bool
}

type enrollmentShowOptions struct {
	Matricula string
}

type memberSetActiveOptions struct {
	Matricula string
	UID       string
	Active    bool
}

func runEnrollmentCreate(cmdCtx *commandContext, args []string) error {
	opts, err := parseEnrollmentCreateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, time.Minute, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewEnrollmentRepo(db)
		enrollment := domainauth.Enrollment{
			Matricula: opts.Matricula,
			Enabled:   !opts.Disabled,
			Role:      domainauth.ParseRole(opts.Role),
		}
		if createErr := repo.Create(ctx, enrollment); createErr != nil {
			return fmt.Errorf("create enrollment: %w", createErr)
		}

		cmdCtx.Logger.Info("enrollment created",
			"matricula", enrollment.Matricula,
			"role", enrollment.Role,
			"enabled", enrollment.Enabled)
		return nil
	})
}

func runEnrollmentShow(cmdCtx *commandContext, args []string) error {
	opts, err := parseEnrollmentShowFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, time.Minute, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewEnrollmentRepo(db)
		enrollment, getErr := repo.Get(ctx, opts.Matricula)
		if getErr != nil {
			return getErr
		}
		return printEnrollment(enrollment)
	})
}

func printEnrollment(e domainauth.Enrollment) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "Matricula\t%s\n", e.Matricula); err != nil {
		return fmt.Errorf("write matricula: %w", err)
	}
	if err := writef(w, "Role\t%s\n", e.Role); err != nil {
		return fmt.Errorf("write role: %w", err)
	}
	if err := writef(w, "Enabled\t%t\n", e.Enabled); err != nil {
		return fmt.Errorf("write enabled: %w", err)
	}
	if err := writef(w, "Used\t%t\n", e.Used); err != nil {
		return fmt.Errorf("write used: %w", err)
	}
	if err := writef(w, "Created\t%s\n", e.CreatedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write created: %w", err)
	}
	if !e.UsedAt.IsZero() {
		if err := writef(w, "Used At\t%s\n", e.UsedAt.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("write used at: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush enrollment: %w", err)
	}
	return nil
}

func runMemberSetActive(cmdCtx *commandContext, args []string) error {
	opts, err := parseMemberSetActiveFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, time.Minute, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewMemberRepo(db)

		uid := opts.UID
		if uid == "" {
			member, getErr := repo.GetByMatricula(ctx, opts.Matricula)
			if getErr != nil {
				return getErr
			}
			uid = member.UID
		}

		if setErr := repo.SetActive(ctx, uid, opts.Active); setErr != nil {
			return fmt.Errorf("set active: %w", setErr)
		}

		cmdCtx.Logger.Info("member updated", "uid", uid, "active", opts.Active)
		return nil
	})
}

func parseEnrollmentCreateFlags(args []string) (enrollmentCreateOptions, error) {
	fs := flag.NewFlagSet("enrollment-create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts enrollmentCreateOptions
	fs.StringVar(&opts.Matricula, "matricula", "", "Membership number to enroll (required)")
	fs.StringVar(&opts.Role, "role", "user", "Role granted on registration (user or admin)")
	fs.BoolVar(&opts.Disabled, "disabled", false, "Create the enrollment in disabled state")

	if err := fs.Parse(args); err != nil {
		return enrollmentCreateOptions{}, err
	}

	opts.Matricula = strings.ToUpper(strings.TrimSpace(opts.Matricula))
	if opts.Matricula == "" {
		return enrollmentCreateOptions{}, errors.New("--matricula is required")
	}

	return opts, nil
}

func parseEnrollmentShowFlags(args []string) (enrollmentShowOptions, error) {
	fs := flag.NewFlagSet("enrollment-show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts enrollmentShowOptions
	fs.StringVar(&opts.Matricula, "matricula", "", "Membership number to look up (required)")

	if err := fs.Parse(args); err != nil {
		return enrollmentShowOptions{}, err
	}

	opts.Matricula = strings.ToUpper(strings.TrimSpace(opts.Matricula))
	if opts.Matricula == "" {
		return enrollmentShowOptions{}, errors.New("--matricula is required")
	}

	return opts, nil
}

func parseMemberSetActiveFlags(args []string) (memberSetActiveOptions, error) {
	fs := flag.NewFlagSet("member-set-active", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts memberSetActiveOptions
	fs.StringVar(&opts.Matricula, "matricula", "", "Membership number of the member (or use --uid)")
	fs.StringVar(&opts.UID, "uid", "", "Provider UID of the member (or use --matricula)")
	fs.BoolVar(&opts.Active, "active", true, "Target active state")

	if err := fs.Parse(args); err != nil {
		return memberSetActiveOptions{}, err
	}

	opts.Matricula = strings.ToUpper(strings.TrimSpace(opts.Matricula))
	opts.UID = strings.TrimSpace(opts.UID)
	if opts.Matricula == "" && opts.UID == "" {
		return memberSetActiveOptions{}, errors.New("one of --matricula or --uid is required")
	}

	return opts, nil
}
