// Package mongo provides MongoDB implementations of the ledger and audit
// stores. Documents are append-only; nothing in this package updates or
// deletes an existing record.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/modular-banking-backend/internal/domain/transaction"
)

const (
	// TransactionCollectionName is the name of the ledger collection in MongoDB
	TransactionCollectionName = "transactions"
)

// TransactionRepository implements the transaction.Repository interface for MongoDB
type TransactionRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewTransactionRepository creates a new MongoDB transaction repository
func NewTransactionRepository(logger *slog.Logger, db *mongo.Database) transaction.Repository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a new transaction record after checking for duplicates.
// Returns ErrDuplicateRecord if a record with the same id already exists,
// which lets the outbox relay replay a committed transfer safely.
func (r *TransactionRepository) Append(ctx context.Context, record *transaction.Record) error {
	collection := r.db.Collection(TransactionCollectionName)

	existing, err := r.GetByID(ctx, record.ID)
	if err != nil && !errors.Is(err, transaction.ErrRecordNotFound{}) {
		r.logger.Error("Failed to check for existing transaction record",
			"record_id", record.ID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing transaction record: %w", err)
	}

	if existing != nil {
		return transaction.ErrDuplicateRecord{ID: record.ID}
	}

	_, err = collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to append transaction record",
			"record_id", record.ID.String(),
			"error", err)
		return fmt.Errorf("failed to append transaction record: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction record by its id.
// Returns ErrRecordNotFound if no record exists.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Record, error) {
	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"id": id}
	var record transaction.Record
	err := collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, transaction.ErrRecordNotFound{ID: id}
		}
		r.logger.Error("Failed to get transaction record",
			"record_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get transaction record: %w", err)
	}

	return &record, nil
}

// GetByIdempotencyKey retrieves a transaction record using its idempotency key.
// Returns nil if no record exists, enabling idempotent transfer processing.
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*transaction.Record, error) {
	if idempotencyKey == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}

	collection := r.db.Collection(TransactionCollectionName)

	filter := bson.M{"idempotency_key": idempotencyKey}
	var record transaction.Record
	err := collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No record carries this idempotency key
		}
		r.logger.Error("Failed to get transaction record by idempotency key",
			"idempotency_key", idempotencyKey,
			"error", err)
		return nil, fmt.Errorf("failed to get transaction record by idempotency key: %w", err)
	}

	return &record, nil
}

// ListForAccount retrieves records where the account appears as sender or
// receiver, sorted by creation time in descending order (newest first).
// The result is capped at limit, never exceeding transaction.ListLimit.
func (r *TransactionRepository) ListForAccount(ctx context.Context, accountNumber string, limit int) ([]*transaction.Record, error) {
	collection := r.db.Collection(TransactionCollectionName)

	if limit <= 0 || limit > transaction.ListLimit {
		limit = transaction.ListLimit
	}

	filter := bson.M{
		"$or": []bson.M{
			{"from_account": accountNumber},
			{"to_account": accountNumber},
		},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list transaction records",
			"account_number", accountNumber,
			"error", err)
		return nil, fmt.Errorf("failed to list transaction records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*transaction.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode transaction records",
			"account_number", accountNumber,
			"error", err)
		return nil, fmt.Errorf("failed to decode transaction records: %w", err)
	}

	return records, nil
}

// ListRecent retrieves the newest records across all accounts.
// Results are sorted by creation time in descending order.
func (r *TransactionRepository) ListRecent(ctx context.Context, limit int) ([]*transaction.Record, error) {
	collection := r.db.Collection(TransactionCollectionName)

	if limit <= 0 || limit > transaction.ListLimit {
		limit = transaction.ListLimit
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list recent transaction records", "error", err)
		return nil, fmt.Errorf("failed to list recent transaction records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*transaction.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode transaction records", "error", err)
		return nil, fmt.Errorf("failed to decode transaction records: %w", err)
	}

	return records, nil
}
