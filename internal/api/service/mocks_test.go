package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/audit"
	"github.com/modular-banking-backend/internal/domain/transaction"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) Create(ctx context.Context, acc *account.Account) error {
	return m.Called(ctx, acc).Error(0)
}

func (m *mockAccountRepo) FindByAccountNumber(ctx context.Context, number string) (*account.Account, error) {
	args := m.Called(ctx, number)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) FindByNumberAndOwner(ctx context.Context, number, userID string) (*account.Account, error) {
	args := m.Called(ctx, number, userID)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	args := m.Called(ctx, userID)
	if accounts, ok := args.Get(0).([]*account.Account); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) ListAll(ctx context.Context) ([]*account.Account, error) {
	args := m.Called(ctx)
	if accounts, ok := args.Get(0).([]*account.Account); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) Deactivate(ctx context.Context, number string) error {
	return m.Called(ctx, number).Error(0)
}

func (m *mockAccountRepo) LockForTransfer(ctx context.Context, number string) (*account.Account, error) {
	args := m.Called(ctx, number)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) ApplyTransferDelta(ctx context.Context, senderID, receiverID uuid.UUID, amount int64) error {
	return m.Called(ctx, senderID, receiverID, amount).Error(0)
}

func (m *mockAccountRepo) ResetAllDailyLimits(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccountRepo) WithTx(tx pgx.Tx) account.Repository { return m }

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) Record(ctx context.Context, entry *audit.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

type mockLedgerRepo struct {
	mock.Mock
}

func (m *mockLedgerRepo) Append(ctx context.Context, record *transaction.Record) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Record, error) {
	args := m.Called(ctx, id)
	if record, ok := args.Get(0).(*transaction.Record); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedgerRepo) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Record, error) {
	args := m.Called(ctx, key)
	if record, ok := args.Get(0).(*transaction.Record); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedgerRepo) ListForAccount(ctx context.Context, accountNumber string, limit int) ([]*transaction.Record, error) {
	args := m.Called(ctx, accountNumber, limit)
	if records, ok := args.Get(0).([]*transaction.Record); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedgerRepo) ListRecent(ctx context.Context, limit int) ([]*transaction.Record, error) {
	args := m.Called(ctx, limit)
	if records, ok := args.Get(0).([]*transaction.Record); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}
