package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/tensorline/tensorline-backend/internal/db"
	"github.com/tensorline/tensorline-backend/internal/metrics"
	"go.uber.org/zap"
)

// RelationshipSet is the desired edge set for one relationship kind. An
// empty TargetIDs slice is a valid "clear all edges of this kind"
// instruction; there is no partial-update mode.
type RelationshipSet struct {
	Config    RelationshipConfig
	TargetIDs []string
}

// SyncResult reports the outcome for one relationship kind.
type SyncResult struct {
	Kind string
	Err  error
}

// SyncEngine reconciles junction-table rows to desired target-id sets with
// delete-then-insert semantics. Kinds touch disjoint tables and run
// concurrently; within one kind the delete completes before the insert.
//
// Sync is not transactional: a failure between delete and insert leaves that
// kind's edges empty until the next save, and one kind's failure never
// aborts its siblings.
type SyncEngine struct {
	store   db.Store
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewSyncEngine(store db.Store, logger *zap.SugaredLogger, m *metrics.Metrics) *SyncEngine {
	return &SyncEngine{store: store, logger: logger, metrics: m}
}

// Sync reconciles every given relationship kind for contentID. The returned
// results carry one entry per kind, in input order; callers treat failures
// as secondary bookkeeping, not as a failure of the enclosing save.
func (e *SyncEngine) Sync(ctx context.Context, contentID string, sets []RelationshipSet) []SyncResult {
	results := make([]SyncResult, len(sets))

	var wg sync.WaitGroup
	for i, set := range sets {
		wg.Add(1)
		go func(i int, set RelationshipSet) {
			defer wg.Done()
			results[i] = SyncResult{
				Kind: set.Config.Kind,
				Err:  e.syncKind(ctx, contentID, set),
			}
		}(i, set)
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			if e.logger != nil {
				e.logger.Errorw("Relationship sync failed for kind",
					"kind", r.Kind,
					"content_id", contentID,
					"error", r.Err,
				)
			}
			if e.metrics != nil {
				e.metrics.RecordSyncFailure(ctx, r.Kind)
			}
		}
	}
	return results
}

func (e *SyncEngine) syncKind(ctx context.Context, contentID string, set RelationshipSet) error {
	cfg := set.Config

	if _, err := e.store.Delete(ctx, cfg.Junction, db.Eq(cfg.SourceField, contentID)); err != nil {
		return fmt.Errorf("clear %s edges: %w", cfg.Kind, err)
	}

	if len(set.TargetIDs) == 0 {
		return nil
	}

	now := nowUTC()
	rows := make([]db.Row, 0, len(set.TargetIDs))
	for _, targetID := range set.TargetIDs {
		rows = append(rows, db.Row{
			cfg.SourceField: contentID,
			cfg.TargetField: targetID,
			"created_at":    now,
		})
	}

	if err := e.store.Insert(ctx, cfg.Junction, rows); err != nil {
		return fmt.Errorf("insert %s edges: %w", cfg.Kind, err)
	}
	return nil
}
