package outboxrelay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/modular-banking-backend/internal/config"
	"github.com/modular-banking-backend/internal/domain/outbox"
	"github.com/modular-banking-backend/internal/platform/messaging/producers"
)

// Poller drains pending outbox messages on a fixed interval, fanning each
// batch out over a worker pool.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        Publisher
	dlq              producers.DeadLetterPublisher
	pool             *ants.Pool
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

// NewPoller creates a poller with its own worker pool. dlq may be nil; rows
// that exhaust their attempts are then parked without a dead letter copy.
func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher Publisher,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox relay worker pool: %w", err)
	}

	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		dlq:              dlq,
		pool:             pool,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}, nil
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox relay",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"worker_pool_size", p.pool.Cap(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox relay stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

// Shutdown releases the worker pool
func (p *Poller) Shutdown() {
	p.logger.Info("Shutting down outbox relay worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	// The whole batch settles before the next tick so a slow broker cannot
	// pile up duplicate in-flight work for the same rows.
	var wg sync.WaitGroup
	for _, msg := range messages {
		msg := msg
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			p.processMessage(ctx, msg)
		}); err != nil {
			wg.Done()
			p.logger.Error("Failed to submit outbox message to worker pool",
				"outbox_id", msg.ID, "error", err)
		}
	}
	wg.Wait()

	return nil
}

func (p *Poller) processMessage(ctx context.Context, msg *outbox.Message) {
	err := p.publisher.Settle(ctx, msg)
	if err == nil {
		return
	}

	p.logger.Error("Failed to settle outbox message",
		"outbox_id", msg.ID,
		"record_id", msg.RecordID.String(),
		"current_attempts", msg.Attempts,
		"error", err,
	)

	if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
		p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
		return
	}

	if msg.Attempts+1 >= p.maxRetryAttempts {
		p.logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
			"outbox_id", msg.ID,
			"record_id", msg.RecordID.String(),
			"attempts_made", msg.Attempts+1,
		)

		if p.dlq != nil {
			if errDLQ := p.dlq.PublishToDLQ(ctx, msg.RecordID.String(), msg.Payload, err.Error()); errDLQ != nil {
				p.logger.Error("Failed to publish exhausted outbox message to DLQ",
					"outbox_id", msg.ID, "error", errDLQ)
			}
		}

		if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
			p.logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries",
				"outbox_id", msg.ID, "error", errUpdate)
		}
	}
}
