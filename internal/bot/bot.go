// Package bot assembles the pieces every entrypoint shares: the dispatch
// pipeline with all built-in commands, the history store and the background
// jobs that keep them tidy.
package bot

import (
	"context"
	"fmt"

	"github.com/keshon/commandclient/internal/command"
	"github.com/keshon/commandclient/internal/config"
	"github.com/keshon/commandclient/internal/middleware"
	"github.com/keshon/commandclient/internal/storage"
	"github.com/keshon/commandclient/pkg/cmd"
	"github.com/keshon/commandclient/pkg/dispatch"
	"github.com/keshon/commandclient/pkg/jobmgr"
	"github.com/rs/zerolog"
)

// Runtime is a ready-to-dispatch pipeline and what it depends on.
type Runtime struct {
	Pipeline *dispatch.Pipeline
	Store    storage.Store
	Jobs     *jobmgr.Manager

	detach func()
}

// Assemble opens storage, builds the pipeline, registers the built-in
// commands and starts the rate-limit janitor. Jobs are children of ctx.
func Assemble(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Runtime, error) {
	store, err := storage.Open(cfg.StorageDriver, cfg.StoragePath, logger.With().Str("component", "storage").Logger())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	p, err := dispatch.New(cfg.Dispatch(), dispatch.WithLogger(logger.With().Str("component", "dispatch").Logger()))
	if err != nil {
		store.Close()
		return nil, err
	}

	cmdLog := middleware.WithCommandLogger(logger.With().Str("component", "command").Logger())
	builtins := append(cmd.DefaultCatalog.Commands(), command.NewHelp(p), command.NewHistory(store))
	for i, c := range builtins {
		builtins[i] = cmd.Apply(c, cmdLog)
	}
	if err := p.RegisterMany(builtins...); err != nil {
		store.Close()
		return nil, fmt.Errorf("register built-ins: %w", err)
	}
	devOnly := middleware.WithDeveloperOnly(func(userID string) bool { return config.IsDeveloper(cfg, userID) })
	if err := p.Register(cmd.Apply(command.NewResetLimits(p.Limiter()), devOnly, cmdLog)); err != nil {
		store.Close()
		return nil, fmt.Errorf("register built-ins: %w", err)
	}

	rt := &Runtime{
		Pipeline: p,
		Store:    store,
		Jobs:     jobmgr.NewManager(ctx, logger.With().Str("component", "jobs").Logger()),
	}
	rt.detach = storage.AttachHistory(ctx, p.Reporter(), store, logger)

	if cfg.RatelimitSweep > 0 {
		err := rt.Jobs.Start("ratelimit-janitor", func(ctx context.Context) error {
			p.Limiter().RunJanitor(ctx, cfg.RatelimitSweep)
			return nil
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

// Close stops every job and flushes the store.
func (rt *Runtime) Close() error {
	rt.Jobs.StopAll()
	if rt.detach != nil {
		rt.detach()
	}
	return rt.Store.Close()
}
