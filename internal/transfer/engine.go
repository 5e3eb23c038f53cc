// Package transfer implements the fund transfer engine. A transfer validates
// against live account state, commits its balance deltas atomically together
// with an outbox row, and then records ledger, audit and event side effects.
// Only the atomic phase can fail a transfer; side effect failures are logged
// and recovered by the outbox relay.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/audit"
	"github.com/modular-banking-backend/internal/domain/identity"
	"github.com/modular-banking-backend/internal/domain/outbox"
	"github.com/modular-banking-backend/internal/domain/transaction"
)

// EventTypeTransferCompleted is the event type carried on the event stream
const EventTypeTransferCompleted = "transfer.completed"

// CompletedEvent is the payload published for every committed transfer
type CompletedEvent struct {
	EventType string              `json:"event_type"`
	Record    *transaction.Record `json:"record"`
}

// NewCompletedEvent wraps a committed record for publishing
func NewCompletedEvent(record *transaction.Record) *CompletedEvent {
	return &CompletedEvent{
		EventType: EventTypeTransferCompleted,
		Record:    record,
	}
}

// Request describes a transfer the caller wants to execute. Amount is in
// minor units. IdempotencyKey is optional; when present, a replayed request
// returns the originally persisted record instead of moving money twice.
type Request struct {
	SenderAccount   string
	ReceiverAccount string
	Amount          int64
	Description     string
	IdempotencyKey  string
}

// Engine executes transfers. It is safe for concurrent use; all state lives
// in the account store and correctness under concurrency comes from row locks
// and conditional updates, not from the engine itself.
type Engine struct {
	logger         *slog.Logger
	tx             TxRunner
	accounts       account.Repository
	ledger         transaction.Repository
	outboxRepo     outbox.Repository
	auditor        audit.Recorder
	events         EventPublisher
	commitAttempts int
}

// NewEngine creates a transfer engine. events may be nil when no event stream
// is wired; the outbox relay still publishes on recovery.
func NewEngine(
	logger *slog.Logger,
	tx TxRunner,
	accounts account.Repository,
	ledger transaction.Repository,
	outboxRepo outbox.Repository,
	auditor audit.Recorder,
	events EventPublisher,
	commitAttempts int,
) *Engine {
	if commitAttempts <= 0 {
		commitAttempts = 1
	}
	return &Engine{
		logger:         logger,
		tx:             tx,
		accounts:       accounts,
		ledger:         ledger,
		outboxRepo:     outboxRepo,
		auditor:        auditor,
		events:         events,
		commitAttempts: commitAttempts,
	}
}

// Transfer moves funds between two accounts on behalf of the authenticated
// caller. Only customers may initiate transfers; admins and auditors manage
// and observe accounts but never move money themselves.
// Validation failures are reported in a fixed order: amount, sender,
// receiver, distinct accounts, balance, daily limit. The sender lookup is
// scoped to the caller, so transferring from another user's account reports
// the sender as not found rather than revealing it exists.
func (e *Engine) Transfer(ctx context.Context, id identity.Identity, req Request) (*transaction.Record, error) {
	if err := identity.Authorize(id, identity.RoleCustomer); err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, account.ErrInvalidAmount
	}

	if req.IdempotencyKey != "" {
		existing, err := e.ledger.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			e.logger.Warn("Idempotency lookup failed, proceeding without replay protection",
				"idempotency_key", req.IdempotencyKey,
				"error", err)
		} else if existing != nil {
			e.logger.Info("Replaying transfer for idempotency key",
				"idempotency_key", req.IdempotencyKey,
				"record_id", existing.ID.String())
			return existing, nil
		}
	}

	sender, err := e.accounts.FindByNumberAndOwner(ctx, req.SenderAccount, id.UserID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, ErrSenderNotFound
		}
		return nil, fmt.Errorf("failed to load sender account: %w", err)
	}

	receiver, err := e.accounts.FindByAccountNumber(ctx, req.ReceiverAccount)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("failed to load receiver account: %w", err)
	}

	if sender.AccountNumber == receiver.AccountNumber {
		return nil, ErrSameAccount
	}

	// Precheck on the unlocked snapshot so obviously doomed transfers are
	// denied without opening a transaction. The locked state is re-checked
	// inside the atomic phase.
	if err := sender.CanDebit(req.Amount); err != nil {
		e.recordDenied(ctx, id, req, err)
		return nil, err
	}

	record, err := transaction.NewTransfer(req.SenderAccount, req.ReceiverAccount, req.Amount, req.Description, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	msg, err := e.commit(ctx, id, record)
	if err != nil {
		return nil, err
	}

	e.finalize(ctx, id, record, msg)

	return record, nil
}

// commit runs the atomic phase: lock both accounts, re-validate the sender
// against locked state, apply the balance deltas and write the outbox row,
// all in one database transaction. Conflicting commits are retried up to the
// configured attempt budget. Any other store failure aborts the transfer
// immediately with the outcome unconfirmed.
func (e *Engine) commit(ctx context.Context, id identity.Identity, record *transaction.Record) (*outbox.Message, error) {
	var msg *outbox.Message

	for attempt := 1; attempt <= e.commitAttempts; attempt++ {
		err := e.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
			accounts := e.accounts.WithTx(tx)

			sender, receiver, err := lockPair(ctx, accounts, record.FromAccount, record.ToAccount)
			if err != nil {
				return err
			}

			if err := sender.CanDebit(record.Amount); err != nil {
				return err
			}

			if err := accounts.ApplyTransferDelta(ctx, sender.ID, receiver.ID, record.Amount); err != nil {
				return err
			}

			m, err := outbox.NewMessage(record)
			if err != nil {
				return fmt.Errorf("failed to build outbox message: %w", err)
			}
			if err := e.outboxRepo.WithTx(tx).Create(ctx, m); err != nil {
				return err
			}

			msg = m
			return nil
		})
		if err == nil {
			return msg, nil
		}

		if errors.Is(err, account.ErrInsufficientBalance) || errors.Is(err, account.ErrDailyLimitExceeded) {
			// Locked state disagreed with the precheck snapshot; this is a
			// denial, not a conflict, so it is not retried.
			e.recordDenied(ctx, id, Request{
				SenderAccount:   record.FromAccount,
				ReceiverAccount: record.ToAccount,
				Amount:          record.Amount,
			}, err)
			return nil, err
		}

		if !errors.Is(err, account.ErrConcurrentModification{}) {
			// The store failed mid-phase; whether the transaction committed
			// cannot be known here, so surface it as an abort with the cause
			// attached instead of a generic failure.
			e.logger.Error("Transfer aborted, atomic phase failed",
				"record_id", record.ID.String(),
				"attempt", attempt,
				"error", err)
			return nil, ErrTransferAborted{Attempts: attempt, Cause: err}
		}

		e.logger.Warn("Transfer commit conflicted, retrying",
			"record_id", record.ID.String(),
			"attempt", attempt)
	}

	e.logger.Error("Transfer aborted, commit attempts exhausted",
		"record_id", record.ID.String(),
		"attempts", e.commitAttempts)
	return nil, ErrTransferAborted{Attempts: e.commitAttempts}
}

// finalize runs the post-commit side effects: ledger append, event publish,
// outbox settlement and the audit entry. None of these can fail the transfer;
// when the ledger or event write fails the outbox row stays pending and the
// relay finishes the job.
func (e *Engine) finalize(ctx context.Context, id identity.Identity, record *transaction.Record, msg *outbox.Message) {
	settled := true

	if err := e.ledger.Append(ctx, record); err != nil && !errors.Is(err, transaction.ErrDuplicateRecord{}) {
		e.logger.Warn("Ledger append failed, outbox relay will recover",
			"record_id", record.ID.String(),
			"error", err)
		settled = false
	}

	if settled && e.events != nil {
		if err := e.events.Publish(ctx, record.FromAccount, NewCompletedEvent(record)); err != nil {
			e.logger.Warn("Event publish failed, outbox relay will recover",
				"record_id", record.ID.String(),
				"error", err)
			settled = false
		}
	}

	if settled {
		if err := e.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusProcessed); err != nil {
			e.logger.Warn("Failed to mark outbox message processed",
				"outbox_id", msg.ID,
				"error", err)
		}
	}

	entry := audit.NewEntry(id.UserID, audit.ActionTransferFunds, "transaction", record.ID.String(), map[string]interface{}{
		"from_account": record.FromAccount,
		"to_account":   record.ToAccount,
		"amount":       record.Amount,
	})
	if err := e.auditor.Record(ctx, entry); err != nil {
		e.logger.Warn("Audit record failed for completed transfer",
			"record_id", record.ID.String(),
			"error", err)
	}
}

// recordDenied writes a TRANSFER_DENIED audit entry. Failures are logged only;
// a denial must surface to the caller even when the trail cannot be written.
func (e *Engine) recordDenied(ctx context.Context, id identity.Identity, req Request, cause error) {
	entry := audit.NewEntry(id.UserID, audit.ActionTransferDenied, "transaction", "", map[string]interface{}{
		"from_account": req.SenderAccount,
		"to_account":   req.ReceiverAccount,
		"amount":       req.Amount,
		"reason":       cause.Error(),
	})
	if err := e.auditor.Record(ctx, entry); err != nil {
		e.logger.Warn("Audit record failed for denied transfer", "error", err)
	}
}

// lockPair locks both accounts in account-number order to avoid deadlocks
// between transfers running in opposite directions.
func lockPair(ctx context.Context, accounts account.Repository, from, to string) (sender, receiver *account.Account, err error) {
	first, second := from, to
	if second < first {
		first, second = second, first
	}

	a, err := accounts.LockForTransfer(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := accounts.LockForTransfer(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if a.AccountNumber == from {
		return a, b, nil
	}
	return b, a, nil
}
