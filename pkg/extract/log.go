package extract

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chatsync/b2csync/pkg/models"
)

// logStore persists ExtractLog rows directly — the Extract Engine owns
// exclusive write access to extract_logs (spec §3: "The Extract Engine
// exclusively owns inserts to raw tables and its own ExtractLog").
type logStore struct {
	db *sql.DB
}

func (l *logStore) create(ctx context.Context, syncID string, entityType models.EntityType, startedAt time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO extract_logs (sync_id, entity_type, status, started_at)
		VALUES ($1, $2, 'running', $3)
	`, syncID, entityType, startedAt)
	if err != nil {
		return fmt.Errorf("extract: create log %s: %w", syncID, err)
	}
	return nil
}

func (l *logStore) finalize(ctx context.Context, syncID string, status models.RunStatus, counters models.RunCounters, errMsg *string, metadata map[string]any) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("extract: marshal log metadata: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		UPDATE extract_logs SET
			status = $2, finished_at = now(),
			records_fetched = $3, records_processed = $4, records_created = $5,
			records_updated = $6, records_skipped = $7, records_failed = $8,
			error_message = $9, metadata = $10
		WHERE sync_id = $1
	`, syncID, status, counters.RecordsFetched, counters.RecordsProcessed, counters.RecordsCreated,
		counters.RecordsUpdated, counters.RecordsSkipped, counters.RecordsFailed, errMsg, metaJSON)
	if err != nil {
		return fmt.Errorf("extract: finalize log %s: %w", syncID, err)
	}
	return nil
}
