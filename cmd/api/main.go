package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modular-banking-backend/internal/api"
	"github.com/modular-banking-backend/internal/api/service"
	"github.com/modular-banking-backend/internal/config"
	"github.com/modular-banking-backend/internal/data/mongo"
	"github.com/modular-banking-backend/internal/data/postgres"
	"github.com/modular-banking-backend/internal/logger"
	"github.com/modular-banking-backend/internal/platform/messaging/producers"
	"github.com/modular-banking-backend/internal/platform/persistence"
	"github.com/modular-banking-backend/internal/transfer"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for completed transfer events
	eventProducer, err := producers.NewTransferEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize transfer event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	ledgerRepo := mongo.NewTransactionRepository(log, mongoDB.Database())
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize the transfer engine and services
	engine := transfer.NewEngine(
		log,
		postgresDB,
		accountRepo,
		ledgerRepo,
		outboxRepo,
		auditRepo,
		eventProducer,
		cfg.Transfer.CommitAttempts,
	)
	accountService := service.NewAccountService(log, accountRepo, auditRepo, cfg.Transfer.DefaultDailyLimit)
	transactionService := service.NewTransactionService(log, ledgerRepo, accountRepo)

	// Initialize REST server
	server := api.NewServer(log, cfg, engine, transactionService, accountService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing transfer event producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
