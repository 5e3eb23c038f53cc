// Package outboxrelay drains the transfer outbox. It is the recovery path for
// transfers whose post-commit side effects failed: every pending row is
// replayed into the ledger and the event stream until it settles or exhausts
// its attempt budget and lands on the dead letter queue.
package outboxrelay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modular-banking-backend/internal/domain/outbox"
	"github.com/modular-banking-backend/internal/domain/transaction"
	"github.com/modular-banking-backend/internal/transfer"
)

// Publisher settles a single pending outbox message
type Publisher interface {
	Settle(ctx context.Context, message *outbox.Message) error
}

// RelayPublisher implements Publisher over the ledger and the event stream
type RelayPublisher struct {
	outboxRepo outbox.Repository
	ledger     transaction.Repository
	events     transfer.EventPublisher
	logger     *slog.Logger
}

// NewRelayPublisher creates a publisher. events may be nil when no event
// stream is configured; ledger settlement alone then marks the row processed.
func NewRelayPublisher(
	logger *slog.Logger,
	outboxRepo outbox.Repository,
	ledger transaction.Repository,
	events transfer.EventPublisher,
) *RelayPublisher {
	return &RelayPublisher{
		outboxRepo: outboxRepo,
		ledger:     ledger,
		events:     events,
		logger:     logger,
	}
}

// Settle replays the message's transfer record into the ledger and the event
// stream, then marks the row processed. Replaying an already settled record is
// safe: the ledger append dedupes on record id.
func (p *RelayPublisher) Settle(ctx context.Context, message *outbox.Message) error {
	record, err := message.Record()
	if err != nil {
		p.logger.Error("Failed to unmarshal transfer record from outbox payload",
			"outbox_id", message.ID, "record_id", message.RecordID.String(), "error", err)
		// A corrupt payload never becomes publishable; park it immediately.
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to park outbox message after unmarshal error",
				"outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	if err := p.ledger.Append(ctx, record); err != nil {
		if !errors.Is(err, transaction.ErrDuplicateRecord{}) {
			p.logger.Error("Failed to append outbox record to ledger",
				"outbox_id", message.ID, "record_id", record.ID.String(), "error", err)
			return fmt.Errorf("failed to append ledger record %s: %w", record.ID, err)
		}
		p.logger.Debug("Ledger record already present, continuing settlement",
			"record_id", record.ID.String())
	}

	if p.events != nil {
		if err := p.events.Publish(ctx, record.FromAccount, transfer.NewCompletedEvent(record)); err != nil {
			p.logger.Error("Failed to publish transfer event for outbox record",
				"outbox_id", message.ID, "record_id", record.ID.String(), "error", err)
			return fmt.Errorf("failed to publish event for record %s: %w", record.ID, err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		p.logger.Error("Settled outbox record but failed to mark it PROCESSED",
			"outbox_id", message.ID, "record_id", record.ID.String(), "error", err)
		return fmt.Errorf("settled record %s but failed to mark outbox %d processed: %w", record.ID, message.ID, err)
	}

	p.logger.Info("Outbox message settled",
		"outbox_id", message.ID, "record_id", record.ID.String())
	return nil
}
