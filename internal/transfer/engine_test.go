package transfer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/audit"
	"github.com/modular-banking-backend/internal/domain/identity"
	"github.com/modular-banking-backend/internal/domain/outbox"
	"github.com/modular-banking-backend/internal/domain/transaction"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeStore is an in-memory account store. A single mutex plays the role of
// the database transaction: ExecuteTx holds it for the whole callback, so
// locked reads and conditional updates see serialized state exactly like rows
// locked FOR UPDATE do.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*account.Account // keyed by account number
}

func newFakeStore(accounts ...*account.Account) *fakeStore {
	s := &fakeStore{accounts: make(map[string]*account.Account)}
	for _, acc := range accounts {
		s.accounts[acc.AccountNumber] = acc
	}
	return s
}

func (s *fakeStore) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(nil)
}

func (s *fakeStore) WithTx(tx pgx.Tx) account.Repository { return s }

func (s *fakeStore) Create(ctx context.Context, acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acc.AccountNumber] = acc
	return nil
}

func (s *fakeStore) findLocked(number string) (*account.Account, error) {
	acc, ok := s.accounts[number]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountNumber: number}
	}
	copied := *acc
	return &copied, nil
}

func (s *fakeStore) FindByAccountNumber(ctx context.Context, number string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(number)
}

func (s *fakeStore) FindByNumberAndOwner(ctx context.Context, number, userID string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.findLocked(number)
	if err != nil {
		return nil, err
	}
	if acc.UserID != userID {
		return nil, account.ErrAccountNotFound{AccountNumber: number}
	}
	return acc, nil
}

func (s *fakeStore) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	return nil, nil
}

func (s *fakeStore) ListAll(ctx context.Context) ([]*account.Account, error) { return nil, nil }

func (s *fakeStore) Deactivate(ctx context.Context, number string) error { return nil }

// LockForTransfer is called inside ExecuteTx, which already holds the mutex
func (s *fakeStore) LockForTransfer(ctx context.Context, number string) (*account.Account, error) {
	return s.findLocked(number)
}

func (s *fakeStore) ApplyTransferDelta(ctx context.Context, senderID, receiverID uuid.UUID, amount int64) error {
	var sender, receiver *account.Account
	for _, acc := range s.accounts {
		switch acc.ID {
		case senderID:
			sender = acc
		case receiverID:
			receiver = acc
		}
	}
	if sender == nil || receiver == nil {
		return account.ErrAccountNotFound{}
	}
	if sender.Balance < amount || sender.DailyTransferred+amount > sender.DailyTransferLimit {
		return account.ErrConcurrentModification{AccountNumber: sender.AccountNumber}
	}
	sender.Balance -= amount
	sender.DailyTransferred += amount
	receiver.Balance += amount
	return nil
}

func (s *fakeStore) ResetAllDailyLimits(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, acc := range s.accounts {
		if acc.DailyTransferred != 0 {
			acc.DailyTransferred = 0
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) get(number string) account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.accounts[number]
}

// fakeLedger is an in-memory append-only transaction ledger
type fakeLedger struct {
	mu        sync.Mutex
	records   []*transaction.Record
	appendErr error
}

func (l *fakeLedger) Append(ctx context.Context, record *transaction.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	for _, existing := range l.records {
		if existing.ID == record.ID {
			return transaction.ErrDuplicateRecord{ID: record.ID}
		}
	}
	l.records = append(l.records, record)
	return nil
}

func (l *fakeLedger) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, record := range l.records {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, transaction.ErrRecordNotFound{ID: id}
}

func (l *fakeLedger) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, record := range l.records {
		if record.IdempotencyKey == key {
			return record, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) ListForAccount(ctx context.Context, number string, limit int) ([]*transaction.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*transaction.Record
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		record := l.records[i]
		if record.FromAccount == number || record.ToAccount == number {
			out = append(out, record)
		}
	}
	return out, nil
}

func (l *fakeLedger) ListRecent(ctx context.Context, limit int) ([]*transaction.Record, error) {
	return nil, nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// fakeOutbox is an in-memory outbox repository
type fakeOutbox struct {
	mu       sync.Mutex
	nextID   int64
	messages map[int64]*outbox.Message
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{messages: make(map[int64]*outbox.Message)}
}

func (o *fakeOutbox) Create(ctx context.Context, message *outbox.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	message.ID = o.nextID
	copied := *message
	o.messages[message.ID] = &copied
	return nil
}

func (o *fakeOutbox) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*outbox.Message
	for _, message := range o.messages {
		if message.Status == outbox.StatusPending && len(out) < limit {
			copied := *message
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (o *fakeOutbox) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	message, ok := o.messages[id]
	if !ok {
		return outbox.ErrMessageNotFound{ID: id}
	}
	message.Status = status
	return nil
}

func (o *fakeOutbox) IncrementAttempts(ctx context.Context, id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	message, ok := o.messages[id]
	if !ok {
		return outbox.ErrMessageNotFound{ID: id}
	}
	message.IncrementAttempts()
	return nil
}

func (o *fakeOutbox) Delete(ctx context.Context, id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.messages, id)
	return nil
}

func (o *fakeOutbox) GetByRecordID(ctx context.Context, recordID uuid.UUID) (*outbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, message := range o.messages {
		if message.RecordID == recordID {
			copied := *message
			return &copied, nil
		}
	}
	return nil, outbox.ErrMessageNotFound{}
}

func (o *fakeOutbox) WithTx(tx pgx.Tx) outbox.Repository { return o }

func (o *fakeOutbox) statuses() map[outbox.Status]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[outbox.Status]int)
	for _, message := range o.messages {
		out[message.Status]++
	}
	return out
}

// fakeAuditor collects audit entries, optionally failing every write
type fakeAuditor struct {
	mu      sync.Mutex
	entries []*audit.Entry
	err     error
}

func (a *fakeAuditor) Record(ctx context.Context, entry *audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

func (a *fakeAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, entry := range a.entries {
		out = append(out, entry.Action)
	}
	return out
}

// fakeEvents collects published events, optionally failing every publish
type fakeEvents struct {
	mu        sync.Mutex
	published []interface{}
	err       error
}

func (e *fakeEvents) Publish(ctx context.Context, key string, value interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.published = append(e.published, value)
	return nil
}

type engineFixture struct {
	engine  *Engine
	store   *fakeStore
	ledger  *fakeLedger
	outbox  *fakeOutbox
	auditor *fakeAuditor
	events  *fakeEvents
}

func newEngineFixture(t *testing.T, accounts ...*account.Account) *engineFixture {
	t.Helper()
	store := newFakeStore(accounts...)
	ledger := &fakeLedger{}
	ob := newFakeOutbox()
	auditor := &fakeAuditor{}
	events := &fakeEvents{}
	engine := NewEngine(testLogger(), store, store, ledger, ob, auditor, events, 3)
	return &engineFixture{engine: engine, store: store, ledger: ledger, outbox: ob, auditor: auditor, events: events}
}

func mustAccount(t *testing.T, userID, number string, balance, limit, transferred int64) *account.Account {
	t.Helper()
	return &account.Account{
		ID:                 uuid.New(),
		UserID:             userID,
		AccountNumber:      number,
		AccountType:        account.TypeChecking,
		Balance:            balance,
		DailyTransferLimit: limit,
		DailyTransferred:   transferred,
		IsActive:           true,
	}
}

var customer = identity.Identity{UserID: "alice", Role: identity.RoleCustomer}

func TestEngine_Transfer_Success(t *testing.T) {
	ctx := context.Background()
	sender := mustAccount(t, "alice", "111122223333", 500, 1000, 0)
	receiver := mustAccount(t, "bob", "444455556666", 100, 1000, 0)
	f := newEngineFixture(t, sender, receiver)

	record, err := f.engine.Transfer(ctx, customer, Request{
		SenderAccount:   "111122223333",
		ReceiverAccount: "444455556666",
		Amount:          200,
		Description:     "rent",
	})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, transaction.StatusCompleted, record.Status)
	assert.Equal(t, int64(200), record.Amount)

	gotSender := f.store.get("111122223333")
	gotReceiver := f.store.get("444455556666")
	assert.Equal(t, int64(300), gotSender.Balance)
	assert.Equal(t, int64(200), gotSender.DailyTransferred)
	assert.Equal(t, int64(300), gotReceiver.Balance)

	assert.Equal(t, 1, f.ledger.count(), "exactly one ledger record")
	assert.Equal(t, map[outbox.Status]int{outbox.StatusProcessed: 1}, f.outbox.statuses())
	assert.Equal(t, []string{audit.ActionTransferFunds}, f.auditor.actions())
	assert.Len(t, f.events.published, 1)

	// Second transfer breaches the daily cap accrued by the first.
	_, err = f.engine.Transfer(ctx, customer, Request{
		SenderAccount:   "111122223333",
		ReceiverAccount: "444455556666",
		Amount:          900,
	})
	assert.ErrorIs(t, err, account.ErrDailyLimitExceeded)

	gotSender = f.store.get("111122223333")
	gotReceiver = f.store.get("444455556666")
	assert.Equal(t, int64(300), gotSender.Balance, "denied transfer must not move funds")
	assert.Equal(t, int64(200), gotSender.DailyTransferred)
	assert.Equal(t, int64(300), gotReceiver.Balance)
	assert.Equal(t, 1, f.ledger.count(), "denied transfer leaves no record")
	assert.Contains(t, f.auditor.actions(), audit.ActionTransferDenied)
}

func TestEngine_Transfer_ValidationOrder(t *testing.T) {
	ctx := context.Background()
	sender := mustAccount(t, "alice", "111122223333", 500, 1000, 0)
	receiver := mustAccount(t, "bob", "444455556666", 100, 1000, 0)

	t.Run("InvalidAmount", func(t *testing.T) {
		f := newEngineFixture(t, sender, receiver)
		// Everything else is wrong too; the amount check must win.
		_, err := f.engine.Transfer(ctx, customer, Request{SenderAccount: "nope", ReceiverAccount: "nope", Amount: 0})
		assert.ErrorIs(t, err, account.ErrInvalidAmount)
	})

	t.Run("SenderNotFound", func(t *testing.T) {
		f := newEngineFixture(t, sender, receiver)
		_, err := f.engine.Transfer(ctx, customer, Request{SenderAccount: "999999999999", ReceiverAccount: "nope", Amount: 100})
		assert.ErrorIs(t, err, ErrSenderNotFound)
	})

	t.Run("ForeignSenderReportsNotFound", func(t *testing.T) {
		f := newEngineFixture(t, sender, receiver)
		// bob's account exists but alice does not own it.
		_, err := f.engine.Transfer(ctx, customer, Request{SenderAccount: "444455556666", ReceiverAccount: "111122223333", Amount: 100})
		assert.ErrorIs(t, err, ErrSenderNotFound)
	})

	t.Run("ReceiverNotFound", func(t *testing.T) {
		f := newEngineFixture(t, sender, receiver)
		_, err := f.engine.Transfer(ctx, customer, Request{SenderAccount: "111122223333", ReceiverAccount: "999999999999", Amount: 100})
		assert.ErrorIs(t, err, ErrReceiverNotFound)
	})

	t.Run("SameAccount", func(t *testing.T) {
		f := newEngineFixture(t, sender, receiver)
		_, err := f.engine.Transfer(ctx, customer, Request{SenderAccount: "111122223333", ReceiverAccount: "111122223333", Amount: 100})
		assert.ErrorIs(t, err, ErrSameAccount)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		f := newEngineFixture(t, sender, receiver)
		_, err := f.engine.Transfer(ctx, customer, Request{SenderAccount: "111122223333", ReceiverAccount: "444455556666", Amount: 501})
		assert.ErrorIs(t, err, account.ErrInsufficientBalance)
		assert.Contains(t, f.auditor.actions(), audit.ActionTransferDenied)
	})

	t.Run("InsufficientBalanceBeatsDailyLimit", func(t *testing.T) {
		tight := mustAccount(t, "alice", "111122223333", 100, 1000, 1000)
		f := newEngineFixture(t, tight, receiver)
		_, err := f.engine.Transfer(ctx, customer, Request{SenderAccount: "111122223333", ReceiverAccount: "444455556666", Amount: 500})
		assert.ErrorIs(t, err, account.ErrInsufficientBalance)
	})
}

func TestEngine_Transfer_NotAuthorized(t *testing.T) {
	ctx := context.Background()

	// Transfers are a customer capability; admins and auditors are refused.
	for _, id := range []identity.Identity{
		{UserID: "eve", Role: identity.RoleAuditor},
		{UserID: "root", Role: identity.RoleAdmin},
	} {
		t.Run(string(id.Role), func(t *testing.T) {
			f := newEngineFixture(t)
			_, err := f.engine.Transfer(ctx, id, Request{
				SenderAccount:   "111122223333",
				ReceiverAccount: "444455556666",
				Amount:          100,
			})
			assert.ErrorIs(t, err, identity.ErrNotAuthorized{})
		})
	}
}

// brokenTxRunner fails every atomic phase the way an unreachable store does
type brokenTxRunner struct {
	err error
}

func (r *brokenTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.err
}

func TestEngine_Transfer_StoreFailureSurfacesAbort(t *testing.T) {
	ctx := context.Background()
	sender := mustAccount(t, "alice", "111122223333", 500, 1000, 0)
	receiver := mustAccount(t, "bob", "444455556666", 100, 1000, 0)

	store := newFakeStore(sender, receiver)
	ledger := &fakeLedger{}
	ob := newFakeOutbox()
	auditor := &fakeAuditor{}
	storeErr := errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")
	engine := NewEngine(testLogger(), &brokenTxRunner{err: storeErr}, store, ledger, ob, auditor, &fakeEvents{}, 3)

	_, err := engine.Transfer(ctx, customer, Request{
		SenderAccount:   "111122223333",
		ReceiverAccount: "444455556666",
		Amount:          200,
	})
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrTransferAborted{}, "store failures in the atomic phase are aborts, not generic errors")
	assert.ErrorIs(t, err, storeErr, "the cause must stay reachable through the abort")

	var aborted ErrTransferAborted
	require.ErrorAs(t, err, &aborted)
	assert.Equal(t, 1, aborted.Attempts, "an unrecognized failure is not retried")

	assert.Equal(t, 0, ledger.count(), "no ledger record for an aborted transfer")
	assert.Empty(t, ob.statuses(), "no outbox row for an aborted transfer")
}

func TestEngine_Transfer_IdempotencyReplay(t *testing.T) {
	ctx := context.Background()
	sender := mustAccount(t, "alice", "111122223333", 500, 1000, 0)
	receiver := mustAccount(t, "bob", "444455556666", 100, 1000, 0)
	f := newEngineFixture(t, sender, receiver)

	first, err := f.engine.Transfer(ctx, customer, Request{
		SenderAccount:   "111122223333",
		ReceiverAccount: "444455556666",
		Amount:          200,
		IdempotencyKey:  "req-1",
	})
	require.NoError(t, err)

	replayed, err := f.engine.Transfer(ctx, customer, Request{
		SenderAccount:   "111122223333",
		ReceiverAccount: "444455556666",
		Amount:          200,
		IdempotencyKey:  "req-1",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, replayed.ID, "replay must return the original record")
	assert.Equal(t, int64(300), f.store.get("111122223333").Balance, "replay must not move funds again")
	assert.Equal(t, 1, f.ledger.count())
}

func TestEngine_Transfer_AuditFailureDoesNotUnwind(t *testing.T) {
	ctx := context.Background()
	sender := mustAccount(t, "alice", "111122223333", 500, 1000, 0)
	receiver := mustAccount(t, "bob", "444455556666", 100, 1000, 0)
	f := newEngineFixture(t, sender, receiver)
	f.auditor.err = errors.New("audit store down")

	record, err := f.engine.Transfer(ctx, customer, Request{
		SenderAccount:   "111122223333",
		ReceiverAccount: "444455556666",
		Amount:          200,
	})
	require.NoError(t, err, "audit failures never fail a transfer")
	require.NotNil(t, record)
	assert.Equal(t, int64(300), f.store.get("111122223333").Balance)
	assert.Equal(t, 1, f.ledger.count())
}

func TestEngine_Transfer_LedgerFailureLeavesOutboxPending(t *testing.T) {
	ctx := context.Background()
	sender := mustAccount(t, "alice", "111122223333", 500, 1000, 0)
	receiver := mustAccount(t, "bob", "444455556666", 100, 1000, 0)
	f := newEngineFixture(t, sender, receiver)
	f.ledger.appendErr = errors.New("mongo down")

	record, err := f.engine.Transfer(ctx, customer, Request{
		SenderAccount:   "111122223333",
		ReceiverAccount: "444455556666",
		Amount:          200,
	})
	require.NoError(t, err, "committed funds movement must be reported even when the append fails")
	require.NotNil(t, record)

	assert.Equal(t, int64(300), f.store.get("111122223333").Balance)
	assert.Equal(t, map[outbox.Status]int{outbox.StatusPending: 1}, f.outbox.statuses(),
		"the outbox row stays pending for the relay")
	assert.Empty(t, f.events.published, "events wait for the relay when the ledger append fails")
}

func TestEngine_Transfer_ConcurrentOverdrawPrevented(t *testing.T) {
	ctx := context.Background()
	const n = 8
	const amount = 100

	sender := mustAccount(t, "alice", "111122223333", n*amount-1, 1_000_000, 0)
	receiver := mustAccount(t, "bob", "444455556666", 0, 1_000_000, 0)
	f := newEngineFixture(t, sender, receiver)

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Transfer(ctx, customer, Request{
				SenderAccount:   "111122223333",
				ReceiverAccount: "444455556666",
				Amount:          amount,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, account.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, n-1, succeeded, "the last transfer must fail on the re-validated balance")
	assert.Equal(t, 1, insufficient)

	gotSender := f.store.get("111122223333")
	gotReceiver := f.store.get("444455556666")
	assert.Equal(t, int64(amount-1), gotSender.Balance, "sender ends with n*amount-1 - (n-1)*amount")
	assert.GreaterOrEqual(t, gotSender.Balance, int64(0), "the account must never be overdrawn")
	assert.Equal(t, int64((n-1)*amount), gotReceiver.Balance)
	assert.Equal(t, n-1, f.ledger.count(), "exactly one ledger record per successful transfer")
}
