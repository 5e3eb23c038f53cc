package transaction

import (
	"context"

	"github.com/google/uuid"
)

// ListLimit caps how many records a single listing returns
const ListLimit = 100

// Repository manages the append-only transaction ledger
type Repository interface {
	// Append stores a record. Appending the same record id twice returns
	// ErrDuplicateRecord, which makes the outbox relay's replay idempotent.
	Append(ctx context.Context, record *Record) error

	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// GetByIdempotencyKey returns nil, nil when no record carries the key
	GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*Record, error)

	// ListForAccount returns records where the account appears as sender or
	// receiver, newest first, capped at limit (and never more than ListLimit).
	ListForAccount(ctx context.Context, accountNumber string, limit int) ([]*Record, error)

	// ListRecent returns the newest records across all accounts, for
	// privileged (admin/auditor) history queries.
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
}

// ErrRecordNotFound indicates missing ledger record
type ErrRecordNotFound struct {
	ID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "transaction record not found: " + e.ID.String()
}

// Is matches any ErrRecordNotFound when the target carries a nil id
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateRecord indicates record id uniqueness violation
type ErrDuplicateRecord struct {
	ID uuid.UUID
}

func (e ErrDuplicateRecord) Error() string {
	return "duplicate transaction record: " + e.ID.String()
}

// Is matches any ErrDuplicateRecord when the target carries a nil id
func (e ErrDuplicateRecord) Is(target error) bool {
	t, ok := target.(ErrDuplicateRecord)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
