package content

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tensorline/tensorline-backend/internal/db"
)

// AuditLogger appends immutable lifecycle records to the audit table. Rows
// are never updated or deleted from this side; an external audit UI reads
// them.
type AuditLogger struct {
	store db.Store
}

func NewAuditLogger(store db.Store) *AuditLogger {
	return &AuditLogger{store: store}
}

// Record appends one audit entry. snapshot may be nil (restores, or deletes
// whose pre-read failed); when present it is embedded under
// metadata.content_snapshot.
func (a *AuditLogger) Record(ctx context.Context, action string, contentType Type, contentID, actor string, snapshot db.Row) error {
	metadata := db.Row{}
	if snapshot != nil {
		metadata["content_snapshot"] = snapshot
	}

	row := db.Row{
		"id":           uuid.NewString(),
		"content_type": string(contentType),
		"content_id":   contentID,
		"content_name": displayName(snapshot),
		"action":       action,
		"performed_by": actor,
		"performed_at": nowUTC(),
		"metadata":     metadata,
	}

	if err := a.store.Insert(ctx, TableAuditLog, []db.Row{row}); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
