package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coin-ledger-go/internal/api"
	"coin-ledger-go/internal/coingecko"
	"coin-ledger-go/internal/config"
	"coin-ledger-go/internal/database"
	"coin-ledger-go/internal/ledger"
	"coin-ledger-go/internal/logger"
	"coin-ledger-go/internal/store"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	st := store.New(db, log)

	// Initialize the price oracle. An unreachable API only degrades quotes, it doesn't stop the ledger.
	oracle := coingecko.NewClient(&cfg.Oracle, cfg.Ledger.ReferenceCurrency, log)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.Oracle.Timeout)
	if err := oracle.Ping(pingCtx); err != nil {
		log.Warn("CoinGecko API is not reachable, trades will fail until it is", zap.Error(err))
	} else {
		log.Info("Successfully connected to CoinGecko API.")
	}
	cancelPing()

	resolver := ledger.NewResolver(log, st, oracle, cfg.Ledger.ReferenceCurrency, cfg.Oracle.Timeout)
	engine := ledger.NewEngine(log, &cfg.Ledger, st, st, st, resolver)
	provisioner, err := ledger.NewProvisioner(log, &cfg.Ledger, st, st)
	if err != nil {
		log.Fatal("Failed to initialize account provisioning", zap.Error(err))
	}

	server := api.NewAPIServer(cfg.Server.Port, engine, provisioner, log)
	server.Start()

	// Wait for a shutdown signal
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Ledger has been shut down.")
}
