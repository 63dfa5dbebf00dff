package transform

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chatsync/b2csync/pkg/cancel"
	"github.com/chatsync/b2csync/pkg/config"
	"github.com/chatsync/b2csync/pkg/database"
	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/staging"
	"github.com/chatsync/b2csync/pkg/upstream"
)

func newTestEngine(t *testing.T) (*Engine, *database.Client, *staging.Store) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := database.NewClient(ctx, database.Config{
		Host:         host,
		Port:         port.Int(),
		User:         "test",
		Password:     "test",
		Database:     "test",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	stagingStore := staging.New(client)
	engine, err := New(client, stagingStore, config.DefaultSLAConfig(), config.DefaultOfficeHoursConfig())
	require.NoError(t, err)

	return engine, client, stagingStore
}

func newToken(ctx context.Context) (context.Context, *cancel.Token, func()) {
	manager := cancel.NewManager()
	return manager.Register(ctx, "run-1")
}

func TestEngineRunCreatesContact(t *testing.T) {
	engine, _, stagingStore := newTestEngine(t)
	ctx := context.Background()

	mobile := "555-0100"
	raw, err := json.Marshal(upstream.RawContact{ContactID: "contact-1", FullName: "Jane Doe", Mobile: &mobile})
	require.NoError(t, err)

	_, err = stagingStore.InsertBatch(ctx, staging.KindContacts, "sync-1", []staging.Row{
		{UpstreamID: "contact-1", RawJSON: raw, FetchedAt: time.Now()},
	})
	require.NoError(t, err)

	runCtx, token, cleanup := newToken(ctx)
	defer cleanup()

	syncID := "sync-1"
	log, err := engine.Run(runCtx, token, "transform-1", models.EntityContacts, Options{ExtractSyncID: &syncID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, log.Status)
	assert.Equal(t, 1, log.Counters.RecordsCreated)
	assert.Equal(t, 0, log.Counters.RecordsFailed)

	contact, err := engine.repo.getContactByUpstreamID(ctx, "contact-1")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "Jane Doe", contact.FullName)
}

func TestEngineRunSkipsUnchangedContactOnSecondPass(t *testing.T) {
	engine, _, stagingStore := newTestEngine(t)
	ctx := context.Background()

	raw, err := json.Marshal(upstream.RawContact{ContactID: "contact-2", FullName: "Bob"})
	require.NoError(t, err)

	_, err = stagingStore.InsertBatch(ctx, staging.KindContacts, "sync-1", []staging.Row{
		{UpstreamID: "contact-2", RawJSON: raw, FetchedAt: time.Now()},
	})
	require.NoError(t, err)

	syncID := "sync-1"
	runCtx, token, cleanup := newToken(ctx)
	defer cleanup()
	_, err = engine.Run(runCtx, token, "transform-1", models.EntityContacts, Options{ExtractSyncID: &syncID})
	require.NoError(t, err)

	// Re-stage the same record under a second sync id; nothing about the
	// contact changed, so the second pass should skip it.
	_, err = stagingStore.InsertBatch(ctx, staging.KindContacts, "sync-2", []staging.Row{
		{UpstreamID: "contact-2", RawJSON: raw, FetchedAt: time.Now()},
	})
	require.NoError(t, err)

	syncID2 := "sync-2"
	runCtx2, token2, cleanup2 := newToken(ctx)
	defer cleanup2()
	log2, err := engine.Run(runCtx2, token2, "transform-2", models.EntityContacts, Options{ExtractSyncID: &syncID2})
	require.NoError(t, err)
	assert.Equal(t, 1, log2.Counters.RecordsSkipped)
	assert.Equal(t, 0, log2.Counters.RecordsUpdated)
}

func TestEngineRunIsolatesBadRecordAndContinues(t *testing.T) {
	engine, _, stagingStore := newTestEngine(t)
	ctx := context.Background()

	badRaw := []byte(`{"FullName": "missing id"}`)
	goodRaw, err := json.Marshal(upstream.RawContact{ContactID: "contact-3", FullName: "Good Record"})
	require.NoError(t, err)

	_, err = stagingStore.InsertBatch(ctx, staging.KindContacts, "sync-1", []staging.Row{
		{UpstreamID: "bad", RawJSON: badRaw, FetchedAt: time.Now()},
		{UpstreamID: "contact-3", RawJSON: goodRaw, FetchedAt: time.Now().Add(time.Second)},
	})
	require.NoError(t, err)

	syncID := "sync-1"
	runCtx, token, cleanup := newToken(ctx)
	defer cleanup()
	log, err := engine.Run(runCtx, token, "transform-1", models.EntityContacts, Options{ExtractSyncID: &syncID})
	require.NoError(t, err)

	assert.Equal(t, 1, log.Counters.RecordsFailed)
	assert.Equal(t, 1, log.Counters.RecordsCreated)

	contact, err := engine.repo.getContactByUpstreamID(ctx, "contact-3")
	require.NoError(t, err)
	assert.NotNil(t, contact)
}

func TestEngineRunCreatesChatWithSLA(t *testing.T) {
	engine, _, stagingStore := newTestEngine(t)
	ctx := context.Background()

	opened := time.Now().Add(-time.Hour)
	pickedUp := opened.Add(time.Minute)
	response := opened.Add(2 * time.Minute)
	closed := opened.Add(30 * time.Minute)

	duration := "0:30:00"
	raw, err := json.Marshal(upstream.RawChat{
		ChatID:     "chat-1",
		Provider:   "whatsapp",
		Status:     "CLOSED",
		CreatedAt:  opened,
		OpenedAt:   &opened,
		PickedUpAt: &pickedUp,
		ResponseAt: &response,
		ClosedAt:   &closed,
		Duration:   &duration,
		Messages: []upstream.RawMessage{
			{Type: "text", Incoming: true, Timestamp: opened},
			{Type: "text", Incoming: false, Timestamp: response},
		},
	})
	require.NoError(t, err)

	_, err = stagingStore.InsertBatch(ctx, staging.KindChats, "sync-1", []staging.Row{
		{UpstreamID: "chat-1", RawJSON: raw, FetchedAt: time.Now()},
	})
	require.NoError(t, err)

	syncID := "sync-1"
	runCtx, token, cleanup := newToken(ctx)
	defer cleanup()
	log, err := engine.Run(runCtx, token, "transform-1", models.EntityChats, Options{ExtractSyncID: &syncID})
	require.NoError(t, err)

	assert.Equal(t, 1, log.Counters.RecordsCreated)

	chat, err := engine.repo.getChatByUpstreamID(ctx, "chat-1")
	require.NoError(t, err)
	require.NotNil(t, chat)
	require.NotNil(t, chat.DurationSeconds)
	assert.Equal(t, 1800, *chat.DurationSeconds)
	require.NotNil(t, chat.SLA.PickupSLAMet)
	assert.True(t, *chat.SLA.PickupSLAMet)
}

func TestEngineRunChatDirectionConversionIsIdempotentOnRerun(t *testing.T) {
	engine, _, stagingStore := newTestEngine(t)
	ctx := context.Background()

	opened := time.Now().Add(-time.Hour)
	agentMsgAt := opened
	customerMsgAt := opened.Add(time.Minute)

	raw, err := json.Marshal(upstream.RawChat{
		ChatID:    "chat-2",
		Provider:  "whatsapp",
		Status:    "CLOSED",
		CreatedAt: opened,
		OpenedAt:  &opened,
		Messages: []upstream.RawMessage{
			{Type: "text", Incoming: false, Timestamp: agentMsgAt},
			{Type: "text", Incoming: true, Timestamp: customerMsgAt},
		},
	})
	require.NoError(t, err)

	_, err = stagingStore.InsertBatch(ctx, staging.KindChats, "sync-1", []staging.Row{
		{UpstreamID: "chat-2", RawJSON: raw, FetchedAt: time.Now()},
	})
	require.NoError(t, err)

	syncID := "sync-1"
	runCtx, token, cleanup := newToken(ctx)
	defer cleanup()
	log, err := engine.Run(runCtx, token, "transform-1", models.EntityChats, Options{ExtractSyncID: &syncID})
	require.NoError(t, err)
	require.Equal(t, 1, log.Counters.RecordsCreated)

	chat, err := engine.repo.getChatByUpstreamID(ctx, "chat-2")
	require.NoError(t, err)
	require.NotNil(t, chat)
	// Direction is detected from the first message only at insert time
	// (spec §4.5.2 step 4); the later customer message does not retroactively
	// flip it on the same run that inserted it.
	assert.Equal(t, models.DirectionOutgoing, chat.Direction)

	// Reprocess the exact same raw row under a new sync id. Both messages
	// are already persisted, so nothing about the chat is actually new —
	// the run must report skipped, not updated, and direction must not
	// flip to incoming just because the full raw payload still contains a
	// customer message.
	_, err = stagingStore.InsertBatch(ctx, staging.KindChats, "sync-2", []staging.Row{
		{UpstreamID: "chat-2", RawJSON: raw, FetchedAt: time.Now()},
	})
	require.NoError(t, err)

	syncID2 := "sync-2"
	runCtx2, token2, cleanup2 := newToken(ctx)
	defer cleanup2()
	log2, err := engine.Run(runCtx2, token2, "transform-2", models.EntityChats, Options{ExtractSyncID: &syncID2})
	require.NoError(t, err)
	assert.Equal(t, 1, log2.Counters.RecordsSkipped)
	assert.Equal(t, 0, log2.Counters.RecordsUpdated)

	chatAfter, err := engine.repo.getChatByUpstreamID(ctx, "chat-2")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionOutgoing, chatAfter.Direction)
}

func TestEngineRunChatDirectionConvertsWhenCustomerMessageGenuinelyArrivesLater(t *testing.T) {
	engine, _, stagingStore := newTestEngine(t)
	ctx := context.Background()

	opened := time.Now().Add(-time.Hour)
	agentMsgAt := opened

	rawV1, err := json.Marshal(upstream.RawChat{
		ChatID:    "chat-3",
		Provider:  "whatsapp",
		Status:    "OPEN",
		CreatedAt: opened,
		OpenedAt:  &opened,
		Messages: []upstream.RawMessage{
			{Type: "text", Incoming: false, Timestamp: agentMsgAt},
		},
	})
	require.NoError(t, err)

	_, err = stagingStore.InsertBatch(ctx, staging.KindChats, "sync-1", []staging.Row{
		{UpstreamID: "chat-3", RawJSON: rawV1, FetchedAt: time.Now()},
	})
	require.NoError(t, err)

	syncID := "sync-1"
	runCtx, token, cleanup := newToken(ctx)
	defer cleanup()
	_, err = engine.Run(runCtx, token, "transform-1", models.EntityChats, Options{ExtractSyncID: &syncID})
	require.NoError(t, err)

	chat, err := engine.repo.getChatByUpstreamID(ctx, "chat-3")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionOutgoing, chat.Direction)

	// A later extract observes the same chat with a genuinely new customer
	// reply appended. This run must convert direction to incoming and
	// report updated.
	customerMsgAt := opened.Add(time.Minute)
	rawV2, err := json.Marshal(upstream.RawChat{
		ChatID:    "chat-3",
		Provider:  "whatsapp",
		Status:    "OPEN",
		CreatedAt: opened,
		OpenedAt:  &opened,
		Messages: []upstream.RawMessage{
			{Type: "text", Incoming: false, Timestamp: agentMsgAt},
			{Type: "text", Incoming: true, Timestamp: customerMsgAt},
		},
	})
	require.NoError(t, err)

	_, err = stagingStore.InsertBatch(ctx, staging.KindChats, "sync-2", []staging.Row{
		{UpstreamID: "chat-3", RawJSON: rawV2, FetchedAt: time.Now()},
	})
	require.NoError(t, err)

	syncID2 := "sync-2"
	runCtx2, token2, cleanup2 := newToken(ctx)
	defer cleanup2()
	log2, err := engine.Run(runCtx2, token2, "transform-2", models.EntityChats, Options{ExtractSyncID: &syncID2})
	require.NoError(t, err)
	assert.Equal(t, 1, log2.Counters.RecordsUpdated)

	chatAfter, err := engine.repo.getChatByUpstreamID(ctx, "chat-3")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionIncoming, chatAfter.Direction)
	assert.Equal(t, models.DirectionOutgoing, chatAfter.OriginalDirection)
}
