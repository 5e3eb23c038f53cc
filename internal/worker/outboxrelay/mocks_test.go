package outboxrelay

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/modular-banking-backend/internal/domain/outbox"
	"github.com/modular-banking-backend/internal/domain/transaction"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testMessage(t *testing.T) *outbox.Message {
	t.Helper()
	record, err := transaction.NewTransfer("111122223333", "444455556666", 2500, "", "")
	require.NoError(t, err)
	msg, err := outbox.NewMessage(record)
	require.NoError(t, err)
	msg.ID = 7
	return msg
}

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *mockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if messages, ok := args.Get(0).([]*outbox.Message); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutboxRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutboxRepo) GetByRecordID(ctx context.Context, recordID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, recordID)
	if message, ok := args.Get(0).(*outbox.Message); ok {
		return message, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository { return m }

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Append(ctx context.Context, record *transaction.Record) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockLedger) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Record, error) {
	args := m.Called(ctx, id)
	if record, ok := args.Get(0).(*transaction.Record); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Record, error) {
	args := m.Called(ctx, key)
	if record, ok := args.Get(0).(*transaction.Record); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) ListForAccount(ctx context.Context, accountNumber string, limit int) ([]*transaction.Record, error) {
	args := m.Called(ctx, accountNumber, limit)
	if records, ok := args.Get(0).([]*transaction.Record); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) ListRecent(ctx context.Context, limit int) ([]*transaction.Record, error) {
	args := m.Called(ctx, limit)
	if records, ok := args.Get(0).([]*transaction.Record); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) Publish(ctx context.Context, key string, value interface{}) error {
	return m.Called(ctx, key, value).Error(0)
}

type mockDLQ struct {
	mock.Mock
}

func (m *mockDLQ) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	return m.Called(ctx, key, originalMessageValue, reason).Error(0)
}

func (m *mockDLQ) Close() error {
	return m.Called().Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Settle(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}
