package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sescincjoi/central-sci/internal/bootstrap"
)

// connectRedisOnly dials Redis without touching Postgres; the cache and
// session commands have no database dependency.
//
//nolint:ireturn // mirrors bootstrap.ConnectRedis.
func connectRedisOnly(cmdCtx *commandContext) (redis.UniversalClient, error) {
	if strings.TrimSpace(cmdCtx.Config.Redis.URI) == "" {
		if err := writeln(os.Stderr, "Redis client is not available: REDIS_URI is not configured"); err != nil {
			return nil, fmt.Errorf("print redis unavailable: %w", err)
		}
		return nil, errors.New("redis is not configured")
	}

	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

type clearSessionsOptions struct {
	DryRun bool
	Yes    bool
}

func runListOfflineKeys(cmdCtx *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 2*time.Minute)
	defer cancel()

	redisClient, err := connectRedisOnly(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	pattern := "offline:*"
	cmdCtx.Logger.Info("scanning redis", "pattern", pattern)

	if headerErr := writef(os.Stdout, "\nOffline Cache Keys in Redis\n"); headerErr != nil {
		return fmt.Errorf("print offline keys header: %w", headerErr)
	}

	iter := redisClient.Scan(ctx, 0, pattern, 100).Iterator()
	total, iterErr := writeOfflineKeys(offlineKeyScanInput{
		Ctx:    ctx,
		Iter:   iter,
		Client: redisClient,
		Logger: cmdCtx.Logger,
	})
	if iterErr != nil {
		return iterErr
	}

	if total == 0 {
		if nonePrintErr := writeln(os.Stdout, "(no keys found)"); nonePrintErr != nil {
			return fmt.Errorf("print offline keys none: %w", nonePrintErr)
		}
		return nil
	}

	if totalPrintErr := writef(os.Stdout, "\nTotal keys: %d\n", total); totalPrintErr != nil {
		return fmt.Errorf("print offline keys total: %w", totalPrintErr)
	}
	return nil
}

type offlineKeyScanInput struct {
	Ctx    context.Context
	Iter   *redis.ScanIterator
	Client redis.UniversalClient
	Logger *slog.Logger
}

func writeOfflineKeys(input offlineKeyScanInput) (int, error) {
	if input.Iter == nil {
		return 0, errors.New("redis scan: nil iterator")
	}

	total := 0
	for input.Iter.Next(input.Ctx) {
		key := input.Iter.Val()
		total++

		size, sizeErr := input.Client.StrLen(input.Ctx, key).Result()
		if sizeErr != nil {
			if input.Logger != nil {
				input.Logger.ErrorContext(input.Ctx, "failed to fetch key size", "key", key, "error", sizeErr)
			}
			if printErr := writef(os.Stdout, "  %s (size: error: %v)\n", key, sizeErr); printErr != nil {
				return 0, fmt.Errorf("print offline key size error: %w", printErr)
			}
			continue
		}

		if printErr := writef(os.Stdout, "  %s (%d bytes)\n", key, size); printErr != nil {
			return 0, fmt.Errorf("print offline key: %w", printErr)
		}
	}

	if err := input.Iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}

	return total, nil
}

func runClearSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseClearSessionsFlags(args)
	if err != nil {
		return err
	}
	if confirmErr := confirmClearSessions(opts); confirmErr != nil {
		return confirmErr
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 2*time.Minute)
	defer cancel()

	redisClient, err := connectRedisOnly(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	pattern := "session:*"
	cmdCtx.Logger.Info("scanning redis", "pattern", pattern, "dry_run", opts.DryRun)

	iter := redisClient.Scan(ctx, 0, pattern, 100).Iterator()
	const batchCap = 1000
	batch := make([]string, 0, batchCap)
	total := 0
	var deleted int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if opts.DryRun {
			deleted += int64(len(batch))
			batch = batch[:0]
			return nil
		}
		n, delErr := redisClient.Del(ctx, batch...).Result()
		if delErr != nil {
			return fmt.Errorf("delete sessions: %w", delErr)
		}
		deleted += n
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		total++
		batch = append(batch, iter.Val())
		if len(batch) == batchCap {
			if flushErr := flush(); flushErr != nil {
				return flushErr
			}
		}
	}
	if iterErr := iter.Err(); iterErr != nil {
		return fmt.Errorf("redis scan: %w", iterErr)
	}
	if flushErr := flush(); flushErr != nil {
		return flushErr
	}

	if total == 0 {
		return writeln(os.Stdout, "No sessions found in Redis")
	}
	if opts.DryRun {
		return writef(os.Stdout, "Dry-run: would delete %d/%d sessions\n", deleted, total)
	}
	return writef(os.Stdout, "Deleted %d/%d sessions\n", deleted, total)
}

func confirmClearSessions(opts clearSessionsOptions) error {
	if opts.Yes || opts.DryRun {
		return nil
	}
	return errors.New("clearing sessions signs every member out; re-run with --yes to confirm or --dry-run to preview")
}

func parseClearSessionsFlags(args []string) (clearSessionsOptions, error) {
	fs := flag.NewFlagSet("clear-sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts clearSessionsOptions
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Print actions without executing")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return clearSessionsOptions{}, err
	}

	return opts, nil
}
