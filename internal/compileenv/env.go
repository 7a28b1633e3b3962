// Package compileenv wires the process-scoped collaborators shared by every
// compiler and request handler.
package compileenv

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cexd/internal/compiler"
	"cexd/internal/config"
	"cexd/internal/errreport"
	"cexd/internal/janitor"
	"cexd/internal/metrics"
	"cexd/internal/queue"
	"cexd/internal/resultcache"
	"cexd/internal/version"
	"cexd/internal/workspace"
)

// Environment is created once per process.
type Environment struct {
	Config    config.Config
	Logger    *slog.Logger
	Queue     *queue.Queue
	Workspace *workspace.Tracker
	// Cache is nil when caching is disabled.
	Cache    *resultcache.Cache
	Janitor  *janitor.Janitor
	Metrics  *metrics.Metrics
	Reporter errreport.Reporter
}

// New builds the environment from cfg. Nothing is started.
func New(cfg config.Config, log *slog.Logger) (*Environment, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	env := &Environment{
		Config:    cfg,
		Logger:    log,
		Queue:     queue.New(cfg.Queue.Concurrency),
		Workspace: workspace.NewTracker(cfg.Workspace.TempRoot),
		Metrics:   metrics.New(true),
	}
	if cfg.Cache.Enabled {
		cache, err := resultcache.Open(cfg.Cache.Dir)
		if err != nil {
			// без кэша сервис работает, только медленнее
			log.Warn("result cache disabled", "dir", cfg.Cache.Dir, "err", err)
		} else {
			env.Cache = cache
		}
	}
	reporter, err := errreport.New(cfg.Errors.SentryDSN, version.Version, cfg.Errors.Environment)
	if err != nil {
		return nil, fmt.Errorf("error reporting: %w", err)
	}
	env.Reporter = reporter
	env.Janitor = janitor.New(env.Queue, env.Workspace, cfg.CleanupInterval(), log.With("component", "janitor"))
	return env, nil
}

// CompilerDeps returns the collaborators handed to compiler factories.
func (e *Environment) CompilerDeps() compiler.Deps {
	deps := compiler.Deps{
		Queue:     e.Queue,
		Workspace: e.Workspace,
		Logger:    e.Logger.With("component", "compiler"),
		Salt:      version.CacheSalt(),
	}
	if e.Cache != nil {
		deps.Cache = e.Cache
	}
	return deps
}

// Start launches background work.
func (e *Environment) Start() {
	e.Janitor.Start()
}

// Close stops the janitor, removes tracked build directories and flushes
// pending error reports.
func (e *Environment) Close() error {
	e.Janitor.Stop()
	stats, err := e.Workspace.Cleanup()
	if err == nil {
		e.Logger.Debug("workspace cleaned", "dirs", stats.Dirs, "files", stats.Files)
	}
	if !e.Reporter.Flush(2 * time.Second) {
		err = errors.Join(err, errors.New("error reports were not flushed"))
	}
	return err
}
