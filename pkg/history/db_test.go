package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarassess/pkg/workflow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(id string, completed time.Time) workflow.Record {
	return workflow.Record{
		StartedAt:       completed.Add(-30 * time.Second),
		CompletedAt:     completed,
		SessionID:       id,
		Address:         "1 Main St",
		EnergyNeeds:     "2 adults, EV",
		SolarScore:      "82",
		ProposalSummary: "### Key Benefits\n* Lower bills",
	}
}

func TestAssessmentCompletedAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	completed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.AssessmentCompleted(ctx, record("s1", completed)))

	entry, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", entry.Address)
	assert.Equal(t, "82", entry.SolarScore)
	assert.True(t, completed.Equal(entry.CompletedAt))
	assert.True(t, completed.Add(-30*time.Second).Equal(entry.StartedAt))
	assert.False(t, entry.SavingsInfographic)
	assert.Nil(t, entry.SavingsAt)
}

func TestAssessmentCompletedReplacesSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	completed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.AssessmentCompleted(ctx, record("s1", completed)))
	rec := record("s1", completed)
	rec.SolarScore = "90"
	require.NoError(t, store.AssessmentCompleted(ctx, rec))

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "90", entries[0].SolarScore)
}

func TestSavingsGenerated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	savingsTime := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	store.now = func() time.Time { return savingsTime }

	require.NoError(t, store.AssessmentCompleted(ctx, record("s1", savingsTime.Add(-time.Minute))))
	require.NoError(t, store.SavingsGenerated(ctx, "s1"))

	entry, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, entry.SavingsInfographic)
	require.NotNil(t, entry.SavingsAt)
	assert.True(t, savingsTime.Equal(*entry.SavingsAt))

	assert.ErrorIs(t, store.SavingsGenerated(ctx, "missing"), ErrNotFound)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.AssessmentCompleted(ctx, record(id, base.Add(time.Duration(i)*time.Minute))))
	}

	entries, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].SessionID)
	assert.Equal(t, "b", entries[1].SessionID)
}

func TestListEmpty(t *testing.T) {
	entries, err := openTestStore(t).List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestGetMissing(t *testing.T) {
	_, err := openTestStore(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopenKeepsDataAndSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.AssessmentCompleted(context.Background(), record("s1", time.Now())))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	version, err := GetSchemaVersion(store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	_, err = store.Get(context.Background(), "s1")
	assert.NoError(t, err)
}

func TestMigratesVersionOneDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = GetSchemaVersion(db)
	require.NoError(t, err)
	require.NoError(t, runMigration(db, 1))
	require.NoError(t, setSchemaVersion(db, 1))
	require.NoError(t, db.Close())

	store, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	version, err := GetSchemaVersion(store.db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	require.NoError(t, store.AssessmentCompleted(context.Background(), record("s1", time.Now())))
	assert.NoError(t, store.SavingsGenerated(context.Background(), "s1"))
}

func TestStoreAsWorkflowSink(t *testing.T) {
	store := openTestStore(t)
	var sink workflow.HistorySink = store
	require.NoError(t, sink.AssessmentCompleted(context.Background(), record("s1", time.Now())))
}
