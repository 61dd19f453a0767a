package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"github.com/CletsyMedia/musicfy/api"
	"github.com/CletsyMedia/musicfy/auth"
	"github.com/CletsyMedia/musicfy/gateway"
	"github.com/CletsyMedia/musicfy/observability"
	"github.com/CletsyMedia/musicfy/repositories"
	"github.com/CletsyMedia/musicfy/runtime"
	"github.com/CletsyMedia/musicfy/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup (database close) always
// executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := observability.NewLogger(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Components: registry and trackers first, then the coordinator,
	// then the transport adapters that depend on all of them.
	registry := runtime.NewRegistry(log)
	activity := runtime.NewActivityTracker(registry)
	presence := runtime.NewPresence(log, registry, activity)
	store := repositories.NewMessageRepository(db, log, config.HistoryPageSize)
	messages := services.NewMessageService(log, store, registry)

	tokens := auth.NewTokenValidator(config.JWTSecret)
	ws := gateway.NewController(log, tokens, presence, activity, messages,
		config.ConnectionBufferSize, config.ReadLimit, config.WriteTimeout)
	handlers := api.NewMessageHandlers(log, messages, registry)
	router := api.SetupRouter(tokens, ws, handlers)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}
