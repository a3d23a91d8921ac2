package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdg-tools/crosswalk-cli/internal/record"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testRecords(t *testing.T) []record.Record {
	t.Helper()
	records, err := record.ImportCollection([]byte(`[{"unsd_code":"11.3.1","tier":"2"},{"id":"x","tags":["a","b"]}]`))
	require.NoError(t, err)
	return records
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, "baseline", testRecords(t))
	require.NoError(t, err)
	assert.Equal(t, "baseline", saved.Name)
	assert.Equal(t, 2, saved.Records)
	assert.NotEmpty(t, saved.ID)

	restored, err := store.Restore(ctx, "baseline")
	require.NoError(t, err)
	require.Len(t, restored, 2)

	code, _ := restored[0].Get("unsd_code")
	assert.Equal(t, "11.3.1", code)
	tags, _ := restored[1].Get("tags")
	assert.Len(t, tags, 2)
}

func TestSaveSameNameReplaces(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "work", testRecords(t))
	require.NoError(t, err)

	shorter, err := record.ImportCollection([]byte(`[{"only":"one"}]`))
	require.NoError(t, err)
	_, err = store.Save(ctx, "work", shorter)
	require.NoError(t, err)

	snaps, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 1, snaps[0].Records)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "first", testRecords(t))
	require.NoError(t, err)
	_, err = store.Save(ctx, "second", testRecords(t))
	require.NoError(t, err)

	snaps, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
}

func TestRestoreMissing(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	_, err := store.Restore(context.Background(), "absent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDelete(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "doomed", testRecords(t))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "doomed"))

	snaps, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	assert.Error(t, store.Delete(ctx, "doomed"))
}

func TestSaveEmptyCollection(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, "empty", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.Records)

	restored, err := store.Restore(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, restored)
}
