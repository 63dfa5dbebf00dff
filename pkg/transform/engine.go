// Package transform drives C7: idempotent reconciliation of staged raw
// records into normalized contacts, agents, departments, chats, and
// messages, with change detection, stub-upgrade semantics, status-history
// tracking, and SLA recomputation (spec §4.5).
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatsync/b2csync/pkg/cancel"
	"github.com/chatsync/b2csync/pkg/config"
	"github.com/chatsync/b2csync/pkg/database"
	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/sla"
	"github.com/chatsync/b2csync/pkg/staging"
)

const defaultBatchSize = 1000

// outcome classifies what processContact/processChat did with one raw row.
type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
	outcomeFailed
)

// Engine is the C7 Transform Engine.
type Engine struct {
	repo       *repo
	staging    *staging.Store
	calculator *sla.Calculator
	logs       *transformLogStore
}

// New builds a Transform Engine from its collaborators (spec §9: engines
// take explicit dependencies at construction, same as the Extract Engine).
func New(client *database.Client, stagingStore *staging.Store, slaCfg *config.SLAConfig, officeHoursCfg *config.OfficeHoursConfig) (*Engine, error) {
	calculator, err := sla.NewCalculator(slaCfg, officeHoursCfg)
	if err != nil {
		return nil, fmt.Errorf("transform: build sla calculator: %w", err)
	}
	return &Engine{
		repo:       newRepo(client),
		staging:    stagingStore,
		calculator: calculator,
		logs:       &transformLogStore{db: client.DB()},
	}, nil
}

// Run executes one Transform run for a single entity type. transformID is
// the id recorded on the TransformLog.
func (e *Engine) Run(ctx context.Context, token *cancel.Token, transformID string, entityType models.EntityType, opts Options) (*models.TransformLog, error) {
	if entityType != models.EntityContacts && entityType != models.EntityChats {
		return nil, fmt.Errorf("transform: entityType must be contacts or chats, got %q", entityType)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	startedAt := time.Now()
	kind := kindForEntity(entityType)

	var syncIDs []string
	if opts.ExtractSyncID != nil {
		syncIDs = []string{*opts.ExtractSyncID}
	} else {
		ids, err := e.logs.completedSyncIDs(ctx, entityType)
		if err != nil {
			return nil, err
		}
		syncIDs = ids
	}

	if err := e.logs.create(ctx, transformID, entityType, opts.ExtractSyncID, startedAt); err != nil {
		return nil, err
	}

	var counters models.RunCounters

	rows, err := e.staging.PendingForSyncIDs(ctx, kind, syncIDs, opts.BatchSize)
	if err != nil {
		msg := err.Error()
		_ = e.logs.finalize(ctx, transformID, models.RunStatusFailed, counters, &msg, nil)
		return e.buildLog(transformID, entityType, opts.ExtractSyncID, models.RunStatusFailed, startedAt, counters), err
	}
	counters.RecordsFetched = len(rows)

	slog.Info("transform run started", "transform_id", transformID, "entity_type", entityType, "pending", len(rows))

	for _, raw := range rows {
		if err := token.Check(transformID); err != nil {
			_ = e.logs.finalize(ctx, transformID, models.RunStatusCancelled, counters, nil, nil)
			slog.Warn("transform run cancelled", "transform_id", transformID)
			return e.buildLog(transformID, entityType, opts.ExtractSyncID, models.RunStatusCancelled, startedAt, counters), err
		}

		result, procErr := e.processRow(ctx, kind, raw, raw.SyncID, transformID, entityType)
		counters.RecordsProcessed++

		if procErr != nil {
			var cancelled *cancel.CancelledError
			if errors.As(procErr, &cancelled) {
				_ = e.logs.finalize(ctx, transformID, models.RunStatusCancelled, counters, nil, nil)
				return e.buildLog(transformID, entityType, opts.ExtractSyncID, models.RunStatusCancelled, startedAt, counters), procErr
			}
			counters.RecordsFailed++
			reason := procErr.Error()
			if markErr := e.staging.MarkFailed(ctx, kind, raw.ID, reason); markErr != nil {
				slog.Error("transform: failed to mark raw row failed", "raw_id", raw.ID, "error", markErr)
			}
			slog.Warn("transform: record failed, continuing", "raw_id", raw.ID, "error", procErr)
			continue
		}

		switch result {
		case outcomeCreated:
			counters.RecordsCreated++
		case outcomeUpdated:
			counters.RecordsUpdated++
		case outcomeSkipped:
			counters.RecordsSkipped++
		}

		if markErr := e.staging.MarkProcessed(ctx, kind, raw.ID); markErr != nil {
			slog.Error("transform: failed to mark raw row processed", "raw_id", raw.ID, "error", markErr)
		}
	}

	if err := e.logs.finalize(ctx, transformID, models.RunStatusCompleted, counters, nil, nil); err != nil {
		return nil, err
	}

	slog.Info("transform run completed", "transform_id", transformID, "entity_type", entityType,
		"created", counters.RecordsCreated, "updated", counters.RecordsUpdated, "failed", counters.RecordsFailed)

	return e.buildLog(transformID, entityType, opts.ExtractSyncID, models.RunStatusCompleted, startedAt, counters), nil
}

func (e *Engine) processRow(ctx context.Context, kind staging.Kind, raw models.RawRecord, syncID, transformID string, entityType models.EntityType) (outcome, error) {
	switch entityType {
	case models.EntityContacts:
		return e.processContact(ctx, raw)
	case models.EntityChats:
		return e.processChat(ctx, raw, syncID, transformID)
	default:
		return outcomeFailed, fmt.Errorf("transform: unsupported entity type %q", entityType)
	}
}

func (e *Engine) buildLog(transformID string, entityType models.EntityType, syncID *string, status models.RunStatus, startedAt time.Time, counters models.RunCounters) *models.TransformLog {
	now := time.Now()
	return &models.TransformLog{
		TransformID: transformID,
		SyncID:      syncID,
		EntityType:  entityType,
		Status:      status,
		StartedAt:   startedAt,
		FinishedAt:  &now,
		Counters:    counters,
	}
}

func kindForEntity(entityType models.EntityType) staging.Kind {
	if entityType == models.EntityChats {
		return staging.KindChats
	}
	return staging.KindContacts
}
