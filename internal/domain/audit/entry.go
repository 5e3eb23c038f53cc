// Package audit models the append-only security trail kept separately from the
// financial ledger. Entries are recorded as a side effect of mutating
// operations and are never updated or deleted.
package audit

import (
	"context"
	"time"
)

// Well-known audit actions
const (
	ActionTransferFunds      = "TRANSFER_FUNDS"
	ActionTransferDenied     = "TRANSFER_DENIED"
	ActionViewBalance        = "VIEW_BALANCE"
	ActionAdminCreateAccount = "ADMIN_CREATE_ACCOUNT"
	ActionAccountDeactivated = "ACCOUNT_DEACTIVATED"
)

// Entry is a single audit trail record
type Entry struct {
	UserID       string                 `json:"user_id" bson:"user_id"`
	Action       string                 `json:"action" bson:"action"`
	ResourceType string                 `json:"resource_type" bson:"resource_type"`
	ResourceID   string                 `json:"resource_id,omitempty" bson:"resource_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty" bson:"details,omitempty"`
	Timestamp    time.Time              `json:"timestamp" bson:"timestamp"`
}

// NewEntry builds an audit entry stamped with the current time
func NewEntry(userID, action, resourceType, resourceID string, details map[string]interface{}) *Entry {
	return &Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		Timestamp:    time.Now().UTC(),
	}
}

// Recorder appends entries to the audit trail. A failed Record never unwinds
// the operation being audited; callers log the gap and move on.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}
