package transform

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chatsync/b2csync/pkg/models"
)

// transformLogStore persists TransformLog rows, mirroring pkg/extract's
// logStore (spec §3: the Transform Engine owns transform_logs the same way
// the Extract Engine owns extract_logs).
type transformLogStore struct {
	db *sql.DB
}

func (l *transformLogStore) create(ctx context.Context, transformID string, entityType models.EntityType, syncID *string, startedAt time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO transform_logs (transform_id, sync_id, entity_type, status, started_at)
		VALUES ($1, $2, $3, 'running', $4)
	`, transformID, syncID, entityType, startedAt)
	if err != nil {
		return fmt.Errorf("transform: create log %s: %w", transformID, err)
	}
	return nil
}

func (l *transformLogStore) finalize(ctx context.Context, transformID string, status models.RunStatus, counters models.RunCounters, errMsg *string, metadata map[string]any) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("transform: marshal log metadata: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		UPDATE transform_logs SET
			status = $2, finished_at = now(),
			records_fetched = $3, records_processed = $4, records_created = $5,
			records_updated = $6, records_skipped = $7, records_failed = $8,
			error_message = $9, metadata = $10
		WHERE transform_id = $1
	`, transformID, status, counters.RecordsFetched, counters.RecordsProcessed, counters.RecordsCreated,
		counters.RecordsUpdated, counters.RecordsSkipped, counters.RecordsFailed, errMsg, metaJSON)
	if err != nil {
		return fmt.Errorf("transform: finalize log %s: %w", transformID, err)
	}
	return nil
}

// completedSyncIDs returns the sync ids of every completed Extract run
// covering entityType (spec §4.5: "pending rows whose syncId belongs to an
// ExtractLog with status=completed for the same entityType or all").
func (l *transformLogStore) completedSyncIDs(ctx context.Context, entityType models.EntityType) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT sync_id FROM extract_logs
		WHERE status = 'completed' AND (entity_type = $1 OR entity_type = $2)
	`, entityType, models.EntityAll)
	if err != nil {
		return nil, fmt.Errorf("transform: query completed extract logs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("transform: scan sync id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
