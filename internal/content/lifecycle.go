package content

import (
	"context"
	"fmt"

	"github.com/tensorline/tensorline-backend/internal/db"
	"github.com/tensorline/tensorline-backend/internal/metrics"
	"github.com/tensorline/tensorline-backend/internal/report"
	"go.uber.org/zap"
)

// Lifecycle drives the two-state soft-delete machine per content item:
// Active (deleted_at null) and Deleted (deleted_at set, unpublished). Audit
// writes are fire-and-forget; their failure is captured to the report sink
// and never rolls back the primary transition.
type Lifecycle struct {
	store   db.Store
	audit   *AuditLogger
	sink    report.Sink
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewLifecycle(store db.Store, audit *AuditLogger, sink report.Sink, logger *zap.SugaredLogger, m *metrics.Metrics) *Lifecycle {
	if sink == nil {
		sink = report.NopSink{}
	}
	return &Lifecycle{store: store, audit: audit, sink: sink, logger: logger, metrics: m}
}

// SoftDelete transitions an item to Deleted: junction edges get a cascade
// deleted_at, the row is unpublished and stamped, and an audit entry with a
// best-effort snapshot is appended when the actor is known. Success is
// defined solely by the content-row update.
func (l *Lifecycle) SoftDelete(ctx context.Context, t Type, contentID, actor string) error {
	table := TableFor(t)

	snapshot, err := db.SelectOne(ctx, l.store, table, db.Query{Conds: []db.Cond{db.Eq("id", contentID)}})
	if err != nil {
		// Non-fatal: proceed without a snapshot.
		snapshot = nil
		if l.logger != nil {
			l.logger.Warnw("Pre-delete snapshot read failed",
				"content_type", t, "content_id", contentID, "error", err)
		}
	}

	now := nowUTC()
	for _, cfg := range RelationshipsFor(t) {
		if !cfg.TracksDeletes {
			continue
		}
		_, err := l.store.Update(ctx, cfg.Junction,
			db.Row{"deleted_at": now},
			db.Eq(cfg.SourceField, contentID),
			db.IsNull("deleted_at"),
		)
		if err != nil && l.logger != nil {
			l.logger.Errorw("Junction cascade failed on soft delete",
				"junction", cfg.Junction, "content_id", contentID, "error", err)
		}
	}

	touched, err := l.store.Update(ctx, table,
		db.Row{"deleted_at": now, "deleted_by": actor, "published": false},
		db.Eq("id", contentID),
	)
	if err != nil {
		return fmt.Errorf("soft delete %s %s: %w", t, contentID, err)
	}
	if touched == 0 {
		return db.ErrNotFound
	}

	if l.metrics != nil {
		l.metrics.RecordSoftDelete(ctx, string(t))
	}
	l.recordAudit(ctx, ActionSoftDelete, t, contentID, actor, snapshot)
	return nil
}

// Restore transitions an item back to Active. Restored items always return
// to draft state: a human must re-review before republishing. Returns the
// updated row (best effort; nil if the re-read fails).
func (l *Lifecycle) Restore(ctx context.Context, t Type, contentID, actor string) (db.Row, error) {
	table := TableFor(t)

	touched, err := l.store.Update(ctx, table,
		db.Row{"deleted_at": nil, "deleted_by": nil, "published": false},
		db.Eq("id", contentID),
	)
	if err != nil {
		return nil, fmt.Errorf("restore %s %s: %w", t, contentID, err)
	}
	if touched == 0 {
		return nil, db.ErrNotFound
	}

	// No is-null guard here: rows deleted before the cascade existed were
	// never stamped, so the unconditional clear is correct.
	for _, cfg := range RelationshipsFor(t) {
		if !cfg.TracksDeletes {
			continue
		}
		_, err := l.store.Update(ctx, cfg.Junction,
			db.Row{"deleted_at": nil},
			db.Eq(cfg.SourceField, contentID),
		)
		if err != nil && l.logger != nil {
			l.logger.Errorw("Junction restore failed",
				"junction", cfg.Junction, "content_id", contentID, "error", err)
		}
	}

	if l.metrics != nil {
		l.metrics.RecordRestore(ctx, string(t))
	}
	l.recordAudit(ctx, ActionRestore, t, contentID, actor, nil)

	row, err := db.SelectOne(ctx, l.store, table, db.Query{Conds: []db.Cond{db.Eq("id", contentID)}})
	if err != nil {
		if l.logger != nil {
			l.logger.Warnw("Post-restore read failed",
				"content_type", t, "content_id", contentID, "error", err)
		}
		return nil, nil
	}
	return row, nil
}

// HardDelete physically removes an item and all of its junction rows. No
// audit trail, no state machine; used only for empty-trash operations.
func (l *Lifecycle) HardDelete(ctx context.Context, t Type, contentID string) error {
	for _, cfg := range RelationshipsFor(t) {
		if _, err := l.store.Delete(ctx, cfg.Junction, db.Eq(cfg.SourceField, contentID)); err != nil {
			return fmt.Errorf("hard delete %s edges for %s: %w", cfg.Kind, contentID, err)
		}
	}

	if _, err := l.store.Delete(ctx, TableFor(t), db.Eq("id", contentID)); err != nil {
		return fmt.Errorf("hard delete %s %s: %w", t, contentID, err)
	}
	return nil
}

// recordAudit appends an audit entry when the actor is known. Failures are
// captured to the report sink and never fail the primary operation.
func (l *Lifecycle) recordAudit(ctx context.Context, action string, t Type, contentID, actor string, snapshot db.Row) {
	if actor == "" || l.audit == nil {
		return
	}
	if err := l.audit.Record(ctx, action, t, contentID, actor, snapshot); err != nil {
		l.sink.CaptureException(err, map[string]any{
			"operation":    "lifecycle",
			"action":       action,
			"content_type": string(t),
			"content_id":   contentID,
		})
		if l.metrics != nil {
			l.metrics.RecordAuditFailure(ctx, string(t))
		}
	}
}
