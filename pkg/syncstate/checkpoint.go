package syncstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/staging"
)

// UpsertCheckpoint writes the current progress snapshot for a run. Called
// periodically by the Extract/Transform engines, not just at completion, so
// an operator can observe an in-flight run.
func (s *Store) UpsertCheckpoint(ctx context.Context, cp *models.SyncCheckpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_checkpoints (run_id, total_records, processed_records, successful_records, failed_records, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (run_id) DO UPDATE SET
			total_records      = EXCLUDED.total_records,
			processed_records  = EXCLUDED.processed_records,
			successful_records = EXCLUDED.successful_records,
			failed_records     = EXCLUDED.failed_records,
			status             = EXCLUDED.status,
			updated_at         = now()
	`, cp.RunID, cp.TotalRecords, cp.ProcessedRecords, cp.SuccessfulRecords, cp.FailedRecords, cp.Status)
	if err != nil {
		return fmt.Errorf("syncstate: upsert checkpoint %s: %w", cp.RunID, err)
	}
	return nil
}

// GetCheckpoint returns the checkpoint for a run id, or nil if none exists.
func (s *Store) GetCheckpoint(ctx context.Context, runID string) (*models.SyncCheckpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, total_records, processed_records, successful_records, failed_records, status, updated_at
		FROM sync_checkpoints WHERE run_id = $1
	`, runID)

	var cp models.SyncCheckpoint
	err := row.Scan(&cp.RunID, &cp.TotalRecords, &cp.ProcessedRecords, &cp.SuccessfulRecords, &cp.FailedRecords, &cp.Status, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("syncstate: get checkpoint %s: %w", runID, err)
	}
	return &cp, nil
}

// FindStaleRuns reports checkpoints still marked "running" whose last update
// is older than timeout — a run whose process likely crashed mid-flight.
// Purely a read/reporting helper; it does not cancel anything, since
// cancellation is cooperative and explicit per spec §4.7.
func (s *Store) FindStaleRuns(ctx context.Context, timeout time.Duration) ([]models.SyncCheckpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, total_records, processed_records, successful_records, failed_records, status, updated_at
		FROM sync_checkpoints
		WHERE status = $1 AND updated_at < now() - $2::interval
		ORDER BY updated_at ASC
	`, models.RunStatusRunning, fmt.Sprintf("%d seconds", int(timeout.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("syncstate: find stale runs: %w", err)
	}
	defer rows.Close()

	var out []models.SyncCheckpoint
	for rows.Next() {
		var cp models.SyncCheckpoint
		if err := rows.Scan(&cp.RunID, &cp.TotalRecords, &cp.ProcessedRecords, &cp.SuccessfulRecords, &cp.FailedRecords, &cp.Status, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("syncstate: scan stale run: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// PurgeProcessedRawRows deletes raw_contacts/raw_chats rows that finished
// processing (processed or failed) before olderThan. The cutoff comes from
// the caller; this function does not read RetentionConfig (spec SUPPLEMENTED FEATURES: ambient
// housekeeping in the shape of tarsy's SessionRetentionDays cleanup).
func (s *Store) PurgeProcessedRawRows(ctx context.Context, olderThan time.Time) (int64, error) {
	var total int64
	for _, kind := range []staging.Kind{staging.KindContacts, staging.KindChats} {
		n, err := s.purgeTable(ctx, kind, olderThan)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Store) purgeTable(ctx context.Context, kind staging.Kind, olderThan time.Time) (int64, error) {
	table, err := kind.Table()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE processing_status IN ('processed', 'failed') AND processed_at < $1
	`, table), olderThan)
	if err != nil {
		return 0, fmt.Errorf("syncstate: purge %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("syncstate: purge %s rows affected: %w", table, err)
	}
	return n, nil
}
