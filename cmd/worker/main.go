package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/pasarela/checkout/internal/backend"
	"github.com/pasarela/checkout/internal/bootstrap"
	infraRedis "github.com/pasarela/checkout/internal/infrastructure/redis"
	"github.com/pasarela/checkout/internal/repository/postgres"
	"github.com/pasarela/checkout/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "checkout-worker", "checkout_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	recordRepo := postgres.NewTransactionRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	backendClient := backend.New(app.Config.Backend, app.Logger)
	locker := infraRedis.NewReferenceLocker(app.Redis, app.Config.Worker.LockTTL)

	reconciler := worker.NewReconciler(
		app.Config.Worker,
		txManager,
		recordRepo,
		backendClient,
		locker,
		app.Metrics,
		app.Logger,
	)

	app.Logger.Info().
		Dur("sweep_interval", app.Config.Worker.SweepInterval).
		Int("batch_size", app.Config.Worker.BatchSize).
		Msg("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return reconciler.Run(gCtx)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
