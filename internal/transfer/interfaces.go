package transfer

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxRunner abstracts transaction execution over the account store so the
// engine can be tested without a live database.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// EventPublisher publishes completed transfer events to the event stream
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}
