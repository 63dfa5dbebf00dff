// Package staging is the raw append-only landing area the Extract Engine
// writes into and the Transform Engine reads pending rows from (spec §4.3).
// There is no ORM here — plain parameterized SQL through *sql.DB, the same
// way the rest of this pipeline's persistence is written.
package staging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatsync/b2csync/pkg/database"
	"github.com/chatsync/b2csync/pkg/models"
)

// Kind selects which raw table a Store operation targets.
type Kind string

const (
	KindContacts Kind = "contacts"
	KindChats    Kind = "chats"
)

// Table returns the underlying raw table name for a Kind.
func (k Kind) Table() (string, error) {
	switch k {
	case KindContacts:
		return "raw_contacts", nil
	case KindChats:
		return "raw_chats", nil
	default:
		return "", fmt.Errorf("staging: unknown kind %q", k)
	}
}

// Row is one raw record to append during an Extract run.
type Row struct {
	UpstreamID string
	RawJSON    []byte
	APIPage    int
	APIOffset  int
	FetchedAt  time.Time
}

// Store is the raw staging repository for both raw_contacts and raw_chats.
type Store struct {
	db *sql.DB
}

// New builds a Store from a database.Client's pooled connection.
func New(client *database.Client) *Store {
	return &Store{db: client.DB()}
}

// InsertBatch appends rows for one Extract page, skipping any row whose
// (syncId, upstreamId) pair already exists (spec §4.3: "batched insert with
// skipDuplicates by natural key"). Returns the number of rows actually
// inserted, which may be less than len(rows).
func (s *Store) InsertBatch(ctx context.Context, kind Kind, syncID string, rows []Row) (int, error) {
	table, err := kind.Table()
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("staging: begin insert batch: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, sync_id, upstream_id, raw_json, api_page, api_offset, fetched_at, processing_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		ON CONFLICT (sync_id, upstream_id) DO NOTHING
	`, table)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("staging: prepare insert batch: %w", err)
	}
	defer stmt.Close()

	var inserted int
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, uuid.NewString(), syncID, row.UpstreamID, row.RawJSON, row.APIPage, row.APIOffset, row.FetchedAt)
		if err != nil {
			return inserted, fmt.Errorf("staging: insert %s row: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("staging: rows affected for %s: %w", table, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("staging: commit insert batch: %w", err)
	}
	return inserted, nil
}

// PendingForSyncIDs returns pending rows belonging to any of the given sync
// ids, ordered by fetchedAt ascending (spec §5: "raw rows are processed in
// insertion order").
func (s *Store) PendingForSyncIDs(ctx context.Context, kind Kind, syncIDs []string, limit int) ([]models.RawRecord, error) {
	table, err := kind.Table()
	if err != nil {
		return nil, err
	}
	if len(syncIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, sync_id, upstream_id, raw_json, api_page, api_offset, fetched_at,
		       processing_status, processing_attempt, processing_error, processed_at
		FROM %s
		WHERE processing_status = 'pending' AND sync_id = ANY($1)
		ORDER BY fetched_at ASC
		LIMIT $2
	`, table)

	rows, err := s.db.QueryContext(ctx, query, pqStringArray(syncIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("staging: query pending %s: %w", table, err)
	}
	defer rows.Close()
	return scanRawRecords(rows)
}

// PendingForSyncID returns pending rows for exactly one sync id (spec §4.5
// legacy single-batch mode).
func (s *Store) PendingForSyncID(ctx context.Context, kind Kind, syncID string, limit int) ([]models.RawRecord, error) {
	return s.PendingForSyncIDs(ctx, kind, []string{syncID}, limit)
}

func scanRawRecords(rows *sql.Rows) ([]models.RawRecord, error) {
	var out []models.RawRecord
	for rows.Next() {
		var r models.RawRecord
		if err := rows.Scan(&r.ID, &r.SyncID, &r.UpstreamID, &r.RawJSON, &r.APIPage, &r.APIOffset,
			&r.FetchedAt, &r.ProcessingStatus, &r.ProcessingAttempt, &r.ProcessingError, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("staging: scan raw record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkProcessed transitions a raw row to processed, incrementing its
// processing attempt (spec §4.3: "processingAttempt increments on every
// transform attempt").
func (s *Store) MarkProcessed(ctx context.Context, kind Kind, id string) error {
	table, err := kind.Table()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET processing_status = 'processed', processing_attempt = processing_attempt + 1,
		              processing_error = NULL, processed_at = now()
		WHERE id = $1
	`, table)
	_, err = s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("staging: mark %s processed: %w", table, err)
	}
	return nil
}

// MarkFailed transitions a raw row to failed with an error message, without
// aborting the surrounding Transform run (spec §4.5: "mark that single raw
// row failed with the error and continue").
func (s *Store) MarkFailed(ctx context.Context, kind Kind, id string, reason string) error {
	table, err := kind.Table()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET processing_status = 'failed', processing_attempt = processing_attempt + 1,
		              processing_error = $2
		WHERE id = $1
	`, table)
	_, err = s.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("staging: mark %s failed: %w", table, err)
	}
	return nil
}

// pqStringArray renders a Go string slice as a Postgres text array literal
// for use with = ANY($1); avoids pulling in lib/pq just for array encoding.
func pqStringArray(ss []string) string {
	out := "{"
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += `"` + escapeArrayElement(s) + `"`
	}
	return out + "}"
}

func escapeArrayElement(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
