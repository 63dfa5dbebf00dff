// Package syncstate holds the per-entity-type resume bookmark (SyncState)
// and per-run progress snapshot (SyncCheckpoint) used for resumability and
// observability across Extract and Transform runs (spec §4.4 step 1, §6).
package syncstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chatsync/b2csync/pkg/database"
	"github.com/chatsync/b2csync/pkg/models"
)

// Store is the sync-state and checkpoint repository.
type Store struct {
	db *sql.DB
}

// New builds a Store from a database.Client's pooled connection.
func New(client *database.Client) *Store {
	return &Store{db: client.DB()}
}

// Get returns the bookmark for an entity type, or nil if none has been
// recorded yet (a full sync has never completed for it).
func (s *Store) Get(ctx context.Context, entityType models.EntityType) (*models.SyncState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entity_type, last_sync_timestamp, last_synced_id, last_sync_offset, sync_status, updated_at
		FROM sync_state WHERE entity_type = $1
	`, entityType)

	var st models.SyncState
	err := row.Scan(&st.EntityType, &st.LastSyncTimestamp, &st.LastSyncedID, &st.LastSyncOffset, &st.SyncStatus, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("syncstate: get %s: %w", entityType, err)
	}
	return &st, nil
}

// Upsert replaces the bookmark for an entity type. Called by the Extract
// Engine at the end of a successful run.
func (s *Store) Upsert(ctx context.Context, st *models.SyncState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (entity_type, last_sync_timestamp, last_synced_id, last_sync_offset, sync_status, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (entity_type) DO UPDATE SET
			last_sync_timestamp = EXCLUDED.last_sync_timestamp,
			last_synced_id      = EXCLUDED.last_synced_id,
			last_sync_offset    = EXCLUDED.last_sync_offset,
			sync_status         = EXCLUDED.sync_status,
			updated_at          = now()
	`, st.EntityType, st.LastSyncTimestamp, st.LastSyncedID, st.LastSyncOffset, st.SyncStatus)
	if err != nil {
		return fmt.Errorf("syncstate: upsert %s: %w", st.EntityType, err)
	}
	return nil
}
