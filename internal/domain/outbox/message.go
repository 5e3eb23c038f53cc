package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/modular-banking-backend/internal/domain/transaction"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a committed transfer record for reliable publishing to the
// ledger and the event stream. It is written in the same database transaction
// as the balance deltas, so a committed transfer always leaves a trace even if
// the post-commit ledger append fails.
type Message struct {
	ID            int64           `json:"id"`
	RecordID      uuid.UUID       `json:"record_id"`
	SenderAccount string          `json:"sender_account"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a transfer record into a pending outbox message
func NewMessage(record *transaction.Record) (*Message, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	return &Message{
		RecordID:      record.ID,
		SenderAccount: record.FromAccount,
		Payload:       payload,
		Status:        StatusPending,
		Attempts:      0,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Record extracts the transfer record from the payload
func (m *Message) Record() (*transaction.Record, error) {
	var record transaction.Record
	if err := json.Unmarshal(m.Payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
