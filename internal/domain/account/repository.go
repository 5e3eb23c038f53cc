package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations. Balance and
// daily-transferred mutations go exclusively through ApplyTransferDelta and
// ResetAllDailyLimits, both of which re-validate constraints against the
// stored state at commit time.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	FindByAccountNumber(ctx context.Context, number string) (*Account, error)

	// FindByNumberAndOwner backs the sender-ownership check: a miss does not
	// reveal whether the account exists for a different owner.
	FindByNumberAndOwner(ctx context.Context, number string, userID string) (*Account, error)

	ListByUserID(ctx context.Context, userID string) ([]*Account, error)
	ListAll(ctx context.Context) ([]*Account, error)
	Deactivate(ctx context.Context, number string) error

	// LockForTransfer acquires a row lock on the account for the duration of
	// the enclosing transaction and returns its current state.
	LockForTransfer(ctx context.Context, number string) (*Account, error)

	// ApplyTransferDelta debits the sender (balance down, daily-transferred up)
	// and credits the receiver in two conditional updates that re-check the
	// balance and daily-limit constraints in SQL. Returns
	// ErrConcurrentModification if either constraint no longer holds.
	ApplyTransferDelta(ctx context.Context, senderID, receiverID uuid.UUID, amount int64) error

	// ResetAllDailyLimits zeroes every account's daily-transferred counter and
	// returns the number of accounts reset.
	ResetAllDailyLimits(ctx context.Context) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates a conditional update found the stored
// constraints no longer satisfied at commit time
type ErrConcurrentModification struct {
	AccountNumber string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountNumber
}

// Is matches any ErrConcurrentModification when the target has no account number
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.AccountNumber == "" {
		return true
	}
	return e.AccountNumber == t.AccountNumber
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountNumber string
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountNumber
}

// Is matches any ErrAccountNotFound when the target has no account number
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountNumber == "" {
		return true
	}
	return e.AccountNumber == t.AccountNumber
}
