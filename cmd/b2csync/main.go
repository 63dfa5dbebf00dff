// Command b2csync drives one Extract or Transform run against the
// configured upstream conversational-messaging platform, mirroring staged
// records into the normalized analytics store (spec §4).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/chatsync/b2csync/pkg/cancel"
	"github.com/chatsync/b2csync/pkg/config"
	"github.com/chatsync/b2csync/pkg/database"
	"github.com/chatsync/b2csync/pkg/extract"
	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/queue"
	"github.com/chatsync/b2csync/pkg/staging"
	"github.com/chatsync/b2csync/pkg/syncstate"
	"github.com/chatsync/b2csync/pkg/transform"
	"github.com/chatsync/b2csync/pkg/upstream"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	command := flag.String("command", "extract", "run mode: extract | transform")
	entity := flag.String("entity", "all", "entity type: contacts | chats | all")
	fullSync := flag.Bool("full-sync", false, "ignore sync state and pull the full history (extract only)")
	preset := flag.String("preset", "", "time range preset: 1d | 7d | 30d | 90d | custom | full (extract only)")
	extractSyncID := flag.String("extract-sync-id", "", "restrict a transform run to one extract run's batch (legacy mode)")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("error closing database client", "error", err)
		}
	}()

	entityType := models.EntityType(*entity)
	if entityType != models.EntityContacts && entityType != models.EntityChats && entityType != models.EntityAll {
		slog.Error("invalid -entity", "entity", *entity)
		os.Exit(1)
	}

	manager := cancel.NewManager()

	var runErr error
	switch *command {
	case "extract":
		runErr = runExtract(ctx, cfg, dbClient, manager, entityType, *fullSync, config.TimeRangePreset(*preset))
	case "transform":
		runErr = runTransform(ctx, cfg, dbClient, manager, entityType, *extractSyncID)
	default:
		slog.Error("invalid -command, expected extract or transform", "command", *command)
		os.Exit(1)
	}

	if runErr != nil {
		slog.Error("run failed", "command", *command, "error", runErr)
		os.Exit(1)
	}
}

func runExtract(ctx context.Context, cfg *config.Config, dbClient *database.Client, manager *cancel.Manager, entityType models.EntityType, fullSync bool, preset config.TimeRangePreset) error {
	client := upstream.NewClient(cfg.Upstream)
	q := queue.New(cfg.Queue)
	stagingStore := staging.New(dbClient)
	syncStateStore := syncstate.New(dbClient)
	engine := extract.New(client, q, stagingStore, syncStateStore, dbClient)

	opts := extract.Options{
		BatchSize:       cfg.Upstream.PageSize,
		FullSync:        fullSync,
		TimeRangePreset: preset,
		MaxPages:        cfg.Extract.MaxPages,
	}

	entityTypes := []models.EntityType{entityType}
	if entityType == models.EntityAll {
		entityTypes = []models.EntityType{models.EntityContacts, models.EntityChats}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, et := range entityTypes {
		et := et
		g.Go(func() error {
			runID := uuid.NewString()
			runCtx, token, cleanup := manager.Register(gctx, runID)
			defer cleanup()

			log, err := engine.Run(runCtx, token, runID, et, opts)
			if err != nil {
				return fmt.Errorf("extract %s: %w", et, err)
			}
			slog.Info("extract run finished", "sync_id", log.SyncID, "entity_type", et, "status", log.Status,
				"fetched", log.Counters.RecordsFetched, "created", log.Counters.RecordsCreated)
			return nil
		})
	}
	return g.Wait()
}

func runTransform(ctx context.Context, cfg *config.Config, dbClient *database.Client, manager *cancel.Manager, entityType models.EntityType, extractSyncID string) error {
	stagingStore := staging.New(dbClient)
	engine, err := transform.New(dbClient, stagingStore, cfg.SLA, cfg.OfficeHours)
	if err != nil {
		return err
	}

	var opts transform.Options
	opts.BatchSize = cfg.Upstream.PageSize
	if extractSyncID != "" {
		opts.ExtractSyncID = &extractSyncID
	}

	entityTypes := []models.EntityType{entityType}
	if entityType == models.EntityAll {
		entityTypes = []models.EntityType{models.EntityContacts, models.EntityChats}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, et := range entityTypes {
		et := et
		g.Go(func() error {
			transformID := uuid.NewString()
			runCtx, token, cleanup := manager.Register(gctx, transformID)
			defer cleanup()

			log, err := engine.Run(runCtx, token, transformID, et, opts)
			if err != nil && !errors.Is(err, cancel.ErrCancelled) {
				return fmt.Errorf("transform %s: %w", et, err)
			}
			if log != nil {
				slog.Info("transform run finished", "transform_id", log.TransformID, "entity_type", et, "status", log.Status,
					"created", log.Counters.RecordsCreated, "updated", log.Counters.RecordsUpdated, "failed", log.Counters.RecordsFailed)
			}
			return nil
		})
	}
	return g.Wait()
}
