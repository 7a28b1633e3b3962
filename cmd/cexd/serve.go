package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cexd/internal/compileenv"
	"cexd/internal/config"
	"cexd/internal/dispatch"
	"cexd/internal/prof"
	"cexd/internal/registry"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the compile API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address, overrides [server].listen")
	serveCmd.Flags().Int("jobs", 0, "parallel compiler discovery jobs (0 = GOMAXPROCS)")
	serveCmd.Flags().String("cpu-profile", "", "write CPU profile to file")
	serveCmd.Flags().String("mem-profile", "", "write heap profile to file on shutdown")
	serveCmd.Flags().String("runtime-trace", "", "write Go runtime trace to file")
}

func profileOptions(cmd *cobra.Command) (prof.Options, error) {
	var opts prof.Options
	var err error
	if opts.CPUProfile, err = cmd.Flags().GetString("cpu-profile"); err != nil {
		return opts, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if opts.MemProfile, err = cmd.Flags().GetString("mem-profile"); err != nil {
		return opts, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if opts.RuntimeTrace, err = cmd.Flags().GetString("runtime-trace"); err != nil {
		return opts, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	return opts, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}
	jobs, _ := cmd.Flags().GetInt("jobs")

	profOpts, err := profileOptions(cmd)
	if err != nil {
		return err
	}
	if profOpts.Enabled() {
		session, err := prof.Start(profOpts)
		if err != nil {
			return err
		}
		defer func() {
			if err := session.Stop(); err != nil {
				log.Warn("profiling", "err", err)
			}
		}()
	}

	env, err := compileenv.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			log.Warn("shutdown cleanup incomplete", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(registry.Options{
		Deps:   env.CompilerDeps(),
		Logger: log.With("component", "registry"),
		Jobs:   jobs,
	})
	active, err := reg.SetCompilers(ctx, cfg.Infos())
	if err != nil {
		return fmt.Errorf("loading compilers: %w", err)
	}
	log.Info("compilers loaded", "configured", len(cfg.Compilers), "active", len(active))

	srv := &http.Server{
		Addr: cfg.Server.Listen,
		Handler: dispatch.New(dispatch.Options{
			Compilers:  reg,
			Metrics:    env.Metrics,
			Reporter:   env.Reporter,
			Logger:     log.With("component", "dispatch"),
			TextBanner: cfg.Server.TextBanner,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	env.Start()
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
