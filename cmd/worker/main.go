package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/modular-banking-backend/internal/config"
	"github.com/modular-banking-backend/internal/data/mongo"
	"github.com/modular-banking-backend/internal/data/postgres"
	"github.com/modular-banking-backend/internal/logger"
	"github.com/modular-banking-backend/internal/platform/messaging/producers"
	"github.com/modular-banking-backend/internal/platform/persistence"
	"github.com/modular-banking-backend/internal/worker/outboxrelay"
	"github.com/modular-banking-backend/internal/worker/resetter"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	ledgerRepo := mongo.NewTransactionRepository(log, mongoDB.Database())

	// Initialize Kafka producers
	eventProducer, err := producers.NewTransferEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize transfer event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil when no DLQ topic is configured; hand the poller a
	// nil interface rather than a typed nil so its nil check holds.
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	// Initialize the outbox relay
	relayPublisher := outboxrelay.NewRelayPublisher(log, outboxRepo, ledgerRepo, eventProducer)
	poller, err := outboxrelay.NewPoller(&cfg.Outbox, outboxRepo, relayPublisher, deadLetters, log)
	if err != nil {
		log.Error("Failed to initialize outbox relay", "error", err)
		os.Exit(1)
	}

	// Initialize the daily limit resetter
	limitResetter := resetter.NewResetter(&cfg.Resetter, accountRepo, log)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start outbox relay in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Start resetter in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		limitResetter.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All workers stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Release the relay worker pool
	poller.Shutdown()

	// Close Kafka producers
	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing transfer event producer", "error", err)
	}
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err != nil {
		log.Error("Worker shutdown completed with errors")
	} else {
		log.Info("Worker shutdown completed successfully")
	}
}
