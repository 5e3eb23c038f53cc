package service

import (
	"context"

	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/identity"
	"github.com/modular-banking-backend/internal/domain/transaction"
	"github.com/modular-banking-backend/internal/transfer"
)

// TransferService executes fund transfers on behalf of an authenticated caller.
// Satisfied by *transfer.Engine.
type TransferService interface {
	Transfer(ctx context.Context, id identity.Identity, req transfer.Request) (*transaction.Record, error)
}

// AccountService defines account administration and balance operations
type AccountService interface {
	// CreateAccount opens an account for a user. Admin only.
	// A non-positive dailyLimit falls back to the configured default.
	CreateAccount(ctx context.Context, id identity.Identity, userID string, accountType account.Type, initialDeposit, dailyLimit int64) (*account.Account, error)

	// ListAccounts returns the caller's own accounts for customers, or every
	// account for admins and auditors.
	ListAccounts(ctx context.Context, id identity.Identity) ([]*account.Account, error)

	// GetBalance retrieves an account for a balance lookup. Customers only see
	// their own accounts; a foreign number reports ErrAccountNotFound.
	GetBalance(ctx context.Context, id identity.Identity, number string) (*account.Account, error)

	// DeactivateAccount clears the account's active flag. Admin only.
	DeactivateAccount(ctx context.Context, id identity.Identity, number string) error
}

// TransactionService defines ledger history queries
type TransactionService interface {
	// ListTransactions returns history newest first, capped at limit. With an
	// account number, customers must own the account (ErrNotAuthorized
	// otherwise); without one, only admins and auditors may query.
	ListTransactions(ctx context.Context, id identity.Identity, accountNumber string, limit int) ([]*transaction.Record, error)
}
