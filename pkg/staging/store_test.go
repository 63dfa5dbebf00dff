package staging

import (
	"context"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chatsync/b2csync/pkg/database"
)

// newTestStore brings up a throwaway PostgreSQL container, applies the
// pipeline's migrations through database.NewClient, and returns a Store
// backed by it (same pattern as pkg/database's own test helper).
func newTestStore(t *testing.T) *Store {
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

	return New(client)
}

func TestInsertBatchSkipsDuplicatesByNaturalKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rows := []Row{
		{UpstreamID: "c1", RawJSON: []byte(`{"a":1}`), FetchedAt: time.Now()},
		{UpstreamID: "c1", RawJSON: []byte(`{"a":1}`), FetchedAt: time.Now()},
		{UpstreamID: "c2", RawJSON: []byte(`{"a":2}`), FetchedAt: time.Now()},
	}

	inserted, err := store.InsertBatch(ctx, KindContacts, "sync-1", rows)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	pending, err := store.PendingForSyncID(ctx, KindContacts, "sync-1", 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestMarkProcessedAndFailed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertBatch(ctx, KindChats, "sync-1", []Row{
		{UpstreamID: "chat-1", RawJSON: []byte(`{}`), FetchedAt: time.Now()},
	})
	require.NoError(t, err)

	pending, err := store.PendingForSyncID(ctx, KindChats, "sync-1", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, store.MarkProcessed(ctx, KindChats, pending[0].ID))

	stillPending, err := store.PendingForSyncID(ctx, KindChats, "sync-1", 10)
	require.NoError(t, err)
	assert.Empty(t, stillPending)

	_, err = store.InsertBatch(ctx, KindChats, "sync-2", []Row{
		{UpstreamID: "chat-2", RawJSON: []byte(`{}`), FetchedAt: time.Now()},
	})
	require.NoError(t, err)
	pending2, err := store.PendingForSyncID(ctx, KindChats, "sync-2", 10)
	require.NoError(t, err)
	require.Len(t, pending2, 1)

	require.NoError(t, store.MarkFailed(ctx, KindChats, pending2[0].ID, "boom"))
	stillPending2, err := store.PendingForSyncID(ctx, KindChats, "sync-2", 10)
	require.NoError(t, err)
	assert.Empty(t, stillPending2)
}

func TestKindTableRejectsUnknownKind(t *testing.T) {
	_, err := Kind("bogus").Table()
	assert.Error(t, err)
}

func TestPendingForSyncIDsEmptyReturnsNil(t *testing.T) {
	store := newTestStore(t)
	rows, err := store.PendingForSyncIDs(context.Background(), KindContacts, nil, 10)
	assert.NoError(t, err)
	assert.Nil(t, rows)
}

func TestEscapeArrayElement(t *testing.T) {
	assert.Equal(t, `a\"b`, escapeArrayElement(`a"b`))
	assert.Equal(t, `a\\b`, escapeArrayElement(`a\b`))
}
