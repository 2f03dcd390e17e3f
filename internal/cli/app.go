package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/config"
	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/docstore/memstore"
	"github.com/roach88/opsmemory/internal/docstore/postgres"
	"github.com/roach88/opsmemory/internal/docstore/sqlite"
	"github.com/roach88/opsmemory/internal/repo"
	"github.com/roach88/opsmemory/internal/schema"
	"github.com/roach88/opsmemory/internal/session"
	"github.com/roach88/opsmemory/internal/telemetry"
	"github.com/roach88/opsmemory/internal/timeline"
)

// app is the set of components a command works with.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    docstore.Store
	tracing  *telemetry.Provider
	repo     *repo.Repository
	sessions *session.Orchestrator
	timeline *timeline.Engine
	schema   *schema.Manager
}

// run opens the configured store, calls fn and releases everything
// afterwards. Failures to start are reported as command errors.
func run(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err, nil)
	}
	logger, err := newLogger(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err, nil)
	}

	a, err := openApp(ctx, cfg, logger, opts.Clock, cmd.ErrOrStderr())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err, map[string]string{"driver": cfg.Store.Driver})
	}
	defer a.close(ctx)

	out.VerboseLog("Using %s store", cfg.Store.Driver)
	return fn(ctx, a, out)
}

// loadConfig reads the config file and environment, then applies the
// --store and --db overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Driver != "" {
		cfg.Store.Driver = opts.Driver
	}
	if opts.Database != "" {
		if cfg.Store.Driver == config.DriverPostgres {
			cfg.Store.URL = opts.Database
		} else {
			cfg.Store.Path = opts.Database
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the structured logger. --verbose forces debug level.
func newLogger(cfg config.LogConfig, verbose bool, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, clock chrono.Clock, traceOut io.Writer) (*app, error) {
	tracing, err := telemetry.Init(ctx, cfg.Telemetry, traceOut)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	backend, err := openStore(ctx, cfg.Store)
	if err != nil {
		_ = tracing.Shutdown(ctx)
		return nil, err
	}
	store := docstore.Traced(backend, tracing.Tracer)
	logger.Debug("store opened", "driver", cfg.Store.Driver)

	repoOpts := []repo.Option{repo.WithLogger(logger)}
	if clock != nil {
		repoOpts = append(repoOpts, repo.WithClock(clock))
	}
	r := repo.New(store, repoOpts...)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		tracing:  tracing,
		repo:     r,
		sessions: session.New(r, logger),
		timeline: timeline.New(r),
		schema:   schema.NewManager(store, logger),
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memstore.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.Path)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func (a *app) close(ctx context.Context) {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown telemetry", "error", err)
	}
}

// writeFailed reports a failed store write. Missing entities and rejected
// input get their own codes.
func writeFailed(out *OutputFormatter, message string, err error) error {
	var partial *session.PartialFailureError
	switch {
	case errors.As(err, &partial):
		return out.Fail(ExitFailure, ErrCodePartial, message, err, map[string]any{
			"session_id": partial.SessionID,
			"step":       partial.Step,
			"learnings":  partial.Learnings,
			"decisions":  partial.Decisions,
			"unlinked":   partial.Unlinked,
		})
	case errors.Is(err, docstore.ErrUnknownClass):
		return out.Fail(ExitFailure, ErrCodeSchema, message+" (run 'opsmem schema install')", err, nil)
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, session.ErrSessionNotFound):
		return out.Fail(ExitFailure, ErrCodeNotFound, message, err, nil)
	case docstore.IsValidation(err), errors.Is(err, docstore.ErrDuplicateKey):
		return out.Fail(ExitFailure, ErrCodeInvalid, message, err, nil)
	default:
		return out.Fail(ExitFailure, ErrCodeWriteFailed, message, err, nil)
	}
}
