package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pasarela/checkout/internal/backend"
	"github.com/pasarela/checkout/internal/bootstrap"
	"github.com/pasarela/checkout/internal/controller"
	"github.com/pasarela/checkout/internal/gateway"
	infraRedis "github.com/pasarela/checkout/internal/infrastructure/redis"
	"github.com/pasarela/checkout/internal/poller"
	"github.com/pasarela/checkout/internal/repository/postgres"
	"github.com/pasarela/checkout/internal/session"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "checkout-api", "checkout")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Storage ---
	recordRepo := postgres.NewTransactionRepository(app.Pool)
	sessionStorage := infraRedis.NewSessionStorage(app.Redis, app.Config.Checkout.SessionTTL)
	sessions := session.NewManager(sessionStorage, app.Config.Checkout.FeePolicy(), app.Logger)

	// --- Collaborators ---
	backendClient := backend.New(app.Config.Backend, app.Logger)
	gatewayAdapter := gateway.NewAdapter(app.Config.Gateway, app.Config.Checkout.Currency, backendClient, app.Logger)
	resultPoller := poller.New(
		app.Config.Poller.InitialDelay,
		app.Config.Poller.RetryInterval,
		backendClient,
		sessions,
		recordRepo,
		app.Metrics,
		app.Logger,
	)
	defer resultPoller.Shutdown()

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:        app.Pool,
		RedisClient: app.Redis,
		Sessions:    sessions,
		Catalog:     backendClient,
		Gateway:     gatewayAdapter,
		Poller:      resultPoller,
		Records:     recordRepo,
		Metrics:     app.Metrics,
		CORSConfig:  app.Config.Server.CORS,
		Logger:      app.Logger,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
