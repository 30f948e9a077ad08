// mixdownd is the mixing daemon: it owns the job store and runs the
// sequential worker until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"mixdown/internal/config"
	"mixdown/internal/deps"
	"mixdown/internal/logging"
	"mixdown/internal/preflight"
	"mixdown/internal/queue"
	"mixdown/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, path, found, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if !found {
		logger.Info("no configuration file found, using defaults", logging.String("path", path))
	}

	for _, result := range preflight.Failed(preflight.RunAll(cfg)) {
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}
	statuses := preflight.CheckSystemDeps(cfg)
	for _, status := range statuses {
		if !status.Available && status.Optional {
			logger.Warn("optional dependency unavailable",
				logging.String("dependency", status.Name),
				logging.String("detail", status.Detail))
		}
	}
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return fmt.Errorf("missing required binaries: %s", strings.Join(missing, ", "))
	}

	// One daemon per data directory; a second instance exits instead of
	// fighting over leases.
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another mixdownd already holds %s", cfg.LockPath())
	}
	defer lock.Unlock() //nolint:errcheck

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	workerDeps, err := worker.NewDeps(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("wire worker: %w", err)
	}

	logger.Info("mixdownd started",
		logging.String("config", path),
		logging.String("database", store.Path()))

	if err := worker.New(cfg, workerDeps).Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("worker: %w", err)
	}
	logger.Info("mixdownd shut down")
	return nil
}
