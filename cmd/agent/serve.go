package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/videostack/storyboard-agent/internal/api"
	"github.com/videostack/storyboard-agent/internal/concept"
	"github.com/videostack/storyboard-agent/internal/editor"
	"github.com/videostack/storyboard-agent/internal/generation"
	"github.com/videostack/storyboard-agent/internal/logging"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the agent HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmdCtx)
		},
	}
}

func runServe(parent context.Context, cmdCtx *commandContext) error {
	startTime := time.Now()

	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger := logging.NewLogger(cfg.LogLevel())
	cmdCtx.logger = logger
	logger.Info("starting storyboard agent", "version", Version, "data_dir", cfg.DataDir(), "config_file", cfg.Source())

	database, err := cmdCtx.openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authToken, err := ensureAuthToken(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	remote, offline, err := cmdCtx.remote()
	if err != nil {
		return err
	}
	if offline {
		logger.Warn("remote API disabled, using in-memory storyboards")
	} else {
		logger.Info("remote API configured", "base_url", cfg.APIBaseURL(), "token", logging.SanitizeToken(cfg.APIToken()))
	}

	store := storyboard.New(remote, logger)
	genService := generation.NewService(remote, generation.NewRepository(database.Conn()), store, logger)
	runner := generation.NewRunner(genService, cfg.GenerationPollInterval(), logger)
	ed := editor.New(store, genService, cfg.PollInterval(), logger)
	concepts := concept.NewService(remote, concept.NewRepository(database.Conn()), store, logger)

	server := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		Context:     ctx,
		Store:       store,
		Editor:      ed,
		Storyboards: remote,
		Concepts:    concepts,
		Generation:  genService,
		Runner:      runner,
		Settings:    database,
		ExportDir:   cfg.ExportDir(),
		Logger:      logger,
		StartTime:   startTime,
		Version:     Version,
	})

	fmt.Printf("\n  API URL:    http://%s\n  Auth Token: %s\n\n", server.Addr(), authToken)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		runner.Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := ed.Unmount(shutdownCtx); err != nil {
			logger.Warn("unsaved shot draft discarded on shutdown", "error", err)
		}
		store.Wait()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("agent stopped: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
