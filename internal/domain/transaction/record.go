package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidAmount = errors.New("transaction amount must be positive")

// Type defines possible transaction operations
type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeTransfer   Type = "transfer"
)

// Status defines transaction outcomes. The transfer engine only ever persists
// completed records; pending is never stored, and flagged is reserved for a
// future fraud-review flow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusFlagged   Status = "flagged"
)

// Record is a ledger entry for a transfer attempt that passed validation.
// From/to hold account numbers rather than account references so history
// survives account deactivation. Amount is in minor units.
type Record struct {
	ID              uuid.UUID `json:"id" bson:"id"`
	FromAccount     string    `json:"from_account" bson:"from_account"`
	ToAccount       string    `json:"to_account" bson:"to_account"`
	Amount          int64     `json:"amount" bson:"amount"`
	TransactionType Type      `json:"transaction_type" bson:"transaction_type"`
	Status          Status    `json:"status" bson:"status"`
	Description     string    `json:"description,omitempty" bson:"description,omitempty"`
	IdempotencyKey  string    `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}

// NewTransfer builds a completed transfer record ready for the atomic phase.
// The id and timestamp are fixed here so the outbox payload, the ledger entry
// and the caller's response all agree.
func NewTransfer(fromAccount, toAccount string, amount int64, description, idempotencyKey string) (*Record, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Record{
		ID:              uuid.New(),
		FromAccount:     fromAccount,
		ToAccount:       toAccount,
		Amount:          amount,
		TransactionType: TypeTransfer,
		Status:          StatusCompleted,
		Description:     description,
		IdempotencyKey:  idempotencyKey,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
