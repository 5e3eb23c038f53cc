package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/modular-banking-backend/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "audit_logs"
)

// AuditRepository implements the audit.Recorder interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Recorder {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends an audit entry. Entries are insert-only; there is no update
// or delete path through this repository.
func (r *AuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to record audit entry",
			"action", entry.Action,
			"user_id", entry.UserID,
			"error", err)
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}
