package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/identity"
	"github.com/modular-banking-backend/internal/domain/transaction"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	ledgerRepo  transaction.Repository
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(logger *slog.Logger, ledgerRepo transaction.Repository, accountRepo account.Repository) TransactionService {
	return &TransactionServiceImpl{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// ListTransactions returns ledger history newest first, capped at limit.
// Customers may only query accounts they own; querying a foreign account is an
// authorization failure, not a not-found, per the external contract.
func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, id identity.Identity, accountNumber string, limit int) ([]*transaction.Record, error) {
	if limit <= 0 || limit > transaction.ListLimit {
		limit = transaction.ListLimit
	}

	if accountNumber == "" {
		if err := identity.Authorize(id, identity.RoleAdmin, identity.RoleAuditor); err != nil {
			return nil, err
		}
		return s.ledgerRepo.ListRecent(ctx, limit)
	}

	if err := identity.Authorize(id, identity.RoleCustomer, identity.RoleAdmin, identity.RoleAuditor); err != nil {
		return nil, err
	}

	if id.Role == identity.RoleCustomer {
		if _, err := s.accountRepo.FindByNumberAndOwner(ctx, accountNumber, id.UserID); err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				return nil, identity.ErrNotAuthorized{Role: id.Role, Required: []identity.Role{identity.RoleAdmin, identity.RoleAuditor}}
			}
			return nil, err
		}
	}

	return s.ledgerRepo.ListForAccount(ctx, accountNumber, limit)
}
