package service

import (
	"context"
	"log/slog"

	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/audit"
	"github.com/modular-banking-backend/internal/domain/identity"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo       account.Repository
	auditor           audit.Recorder
	logger            *slog.Logger
	defaultDailyLimit int64
}

// NewAccountService creates a new account service
func NewAccountService(logger *slog.Logger, accountRepo account.Repository, auditor audit.Recorder, defaultDailyLimit int64) AccountService {
	return &AccountServiceImpl{
		accountRepo:       accountRepo,
		auditor:           auditor,
		logger:            logger,
		defaultDailyLimit: defaultDailyLimit,
	}
}

// CreateAccount opens an account for a user. Admin only.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, id identity.Identity, userID string, accountType account.Type, initialDeposit, dailyLimit int64) (*account.Account, error) {
	if err := identity.Authorize(id, identity.RoleAdmin); err != nil {
		return nil, err
	}

	if dailyLimit <= 0 {
		dailyLimit = s.defaultDailyLimit
	}

	acc, err := account.NewAccount(userID, accountType, initialDeposit, dailyLimit)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, audit.NewEntry(id.UserID, audit.ActionAdminCreateAccount, "account", acc.AccountNumber, map[string]interface{}{
		"owner_user_id": userID,
		"account_type":  string(accountType),
	}))

	return acc, nil
}

// ListAccounts returns the caller's accounts, or all accounts for privileged roles
func (s *AccountServiceImpl) ListAccounts(ctx context.Context, id identity.Identity) ([]*account.Account, error) {
	if err := identity.Authorize(id, identity.RoleCustomer, identity.RoleAdmin, identity.RoleAuditor); err != nil {
		return nil, err
	}

	if id.Role == identity.RoleCustomer {
		return s.accountRepo.ListByUserID(ctx, id.UserID)
	}
	return s.accountRepo.ListAll(ctx)
}

// GetBalance retrieves an account for a balance lookup. The lookup is scoped
// to the caller for customers, so a foreign account number reports not found
// rather than revealing it exists. Every lookup leaves a VIEW_BALANCE trail.
func (s *AccountServiceImpl) GetBalance(ctx context.Context, id identity.Identity, number string) (*account.Account, error) {
	if err := identity.Authorize(id, identity.RoleCustomer, identity.RoleAdmin, identity.RoleAuditor); err != nil {
		return nil, err
	}

	var acc *account.Account
	var err error
	if id.Role == identity.RoleCustomer {
		acc, err = s.accountRepo.FindByNumberAndOwner(ctx, number, id.UserID)
	} else {
		acc, err = s.accountRepo.FindByAccountNumber(ctx, number)
	}
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, audit.NewEntry(id.UserID, audit.ActionViewBalance, "account", acc.AccountNumber, nil))

	return acc, nil
}

// DeactivateAccount clears the account's active flag. Admin only.
func (s *AccountServiceImpl) DeactivateAccount(ctx context.Context, id identity.Identity, number string) error {
	if err := identity.Authorize(id, identity.RoleAdmin); err != nil {
		return err
	}

	if err := s.accountRepo.Deactivate(ctx, number); err != nil {
		return err
	}

	s.recordAudit(ctx, audit.NewEntry(id.UserID, audit.ActionAccountDeactivated, "account", number, nil))

	return nil
}

// recordAudit writes the trail entry, logging rather than failing the
// operation when the write does not go through
func (s *AccountServiceImpl) recordAudit(ctx context.Context, entry *audit.Entry) {
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Warn("Audit record failed",
			"action", entry.Action,
			"resource_id", entry.ResourceID,
			"error", err)
	}
}
