package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/slackmgr/todos/internal/httpapi"
	"github.com/slackmgr/todos/task"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	var skipSchemaValidation bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), rootOpts, skipSchemaValidation)
		},
	}

	cmd.Flags().BoolVar(&skipSchemaValidation, "skip-schema-validation", false, "create missing tables but do not verify their layout")

	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, skipSchemaValidation bool) error {
	cfg := opts.cfg
	logger := opts.logger

	if err := cfg.JWT.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := httpapi.NewJWTVerifier(ctx, cfg.JWT)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := closeStore(context.Background()); err != nil {
			logger.Errorf("Failed to close store: %s", err)
		}
	}()

	if err := store.Init(ctx, skipSchemaValidation); err != nil {
		return fmt.Errorf("failed to initialise %s store: %w", cfg.StoreBackend, err)
	}

	service := task.NewService(store, task.WithLogger(logger))

	server := httpapi.New(service, verifier,
		httpapi.WithLogger(logger),
		httpapi.WithPublicListing(cfg.PublicListing),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(cfg.ListenAddr)
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
