// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the banking backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/platform/persistence"
)

const accountColumns = `id, user_id, account_number, account_type, balance, daily_transfer_limit, daily_transferred, is_active, created_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls. The returned repository will use the provided
// transaction for all database operations.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account in the database. A duplicate account number
// surfaces as a unique-constraint error from the driver.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, account_number, account_type, balance, daily_transfer_limit, daily_transferred, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.UserID,
		acc.AccountNumber,
		acc.AccountType,
		acc.Balance,
		acc.DailyTransferLimit,
		acc.DailyTransferred,
		acc.IsActive,
		acc.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.UserID,
		&acc.AccountNumber,
		&acc.AccountType,
		&acc.Balance,
		&acc.DailyTransferLimit,
		&acc.DailyTransferred,
		&acc.IsActive,
		&acc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// FindByAccountNumber retrieves an account by its externally visible number
func (r *AccountRepository) FindByAccountNumber(ctx context.Context, number string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_number = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountNumber: number}
		}
		r.logger.Error("Failed to get account", "account_number", number, "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// FindByNumberAndOwner retrieves an account only when it belongs to the given
// user. A miss is reported as not-found either way, so callers cannot learn
// whether the number exists under a different owner.
func (r *AccountRepository) FindByNumberAndOwner(ctx context.Context, number string, userID string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_number = $1 AND user_id = $2
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, number, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountNumber: number}
		}
		r.logger.Error("Failed to get account by number and owner", "account_number", number, "error", err)
		return nil, fmt.Errorf("failed to get account by number and owner: %w", err)
	}

	return acc, nil
}

// ListByUserID retrieves all accounts owned by a user, oldest first
func (r *AccountRepository) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list accounts by user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list accounts by user: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// ListAll retrieves every account, oldest first
func (r *AccountRepository) ListAll(ctx context.Context) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]*account.Account, error) {
	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}
	return accounts, nil
}

// Deactivate clears the active flag. Accounts are never deleted.
func (r *AccountRepository) Deactivate(ctx context.Context, number string) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE
		WHERE account_number = $1
	`

	result, err := r.querier.Exec(ctx, query, number)
	if err != nil {
		r.logger.Error("Failed to deactivate account", "account_number", number, "error", err)
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountNumber: number}
	}

	return nil
}

// LockForTransfer obtains a row lock on the account and returns its current state.
// This must be used within a transaction; the lock is held until commit or rollback.
func (r *AccountRepository) LockForTransfer(ctx context.Context, number string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_number = $1
		FOR UPDATE
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountNumber: number}
		}
		r.logger.Error("Failed to lock account for transfer", "account_number", number, "error", err)
		return nil, fmt.Errorf("failed to lock account for transfer: %w", err)
	}

	return acc, nil
}

// ApplyTransferDelta moves amount from sender to receiver. Both updates
// re-check their constraints against the stored state, so even a caller
// working from a stale read cannot overdraw the balance or breach the daily
// cap; a failed condition reports ErrConcurrentModification and the enclosing
// transaction must roll back.
func (r *AccountRepository) ApplyTransferDelta(ctx context.Context, senderID, receiverID uuid.UUID, amount int64) error {
	debit := `
		UPDATE accounts
		SET balance = balance - $1, daily_transferred = daily_transferred + $1
		WHERE id = $2
		  AND balance >= $1
		  AND daily_transferred + $1 <= daily_transfer_limit
	`

	result, err := r.querier.Exec(ctx, debit, amount, senderID)
	if err != nil {
		r.logger.Error("Failed to debit sender", "sender_id", senderID.String(), "error", err)
		return fmt.Errorf("failed to debit sender: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{}
	}

	credit := `
		UPDATE accounts
		SET balance = balance + $1
		WHERE id = $2
	`

	result, err = r.querier.Exec(ctx, credit, amount, receiverID)
	if err != nil {
		r.logger.Error("Failed to credit receiver", "receiver_id", receiverID.String(), "error", err)
		return fmt.Errorf("failed to credit receiver: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{}
	}

	return nil
}

// ResetAllDailyLimits zeroes the daily-transferred counter on every account
// that has accrued anything, returning the number of accounts reset. Row locks
// make the reset safe against in-flight transfers; running it twice in a row
// is a no-op the second time.
func (r *AccountRepository) ResetAllDailyLimits(ctx context.Context) (int64, error) {
	query := `
		UPDATE accounts
		SET daily_transferred = 0
		WHERE daily_transferred <> 0
	`

	result, err := r.querier.Exec(ctx, query)
	if err != nil {
		r.logger.Error("Failed to reset daily limits", "error", err)
		return 0, fmt.Errorf("failed to reset daily limits: %w", err)
	}

	return result.RowsAffected(), nil
}
