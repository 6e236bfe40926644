package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anasnay11/mobility-pipeline/pkg/logger"
	"github.com/anasnay11/mobility-pipeline/pkg/storage"
	"github.com/anasnay11/mobility-pipeline/pkg/storage/local"
)

func testStorage(t *testing.T) *local.LocalStorage {
	t.Helper()
	return local.NewTestStorage(t.TempDir(), logger.NewTestLogger())
}

func TestStoreAndGet(t *testing.T) {
	ls := testStorage(t)
	ctx := context.Background()

	date := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	key := storage.SnapshotKey(date, "paris_realtime_bicycle_data.json")
	assert.Equal(t, "raw/2024-11-20/paris_realtime_bicycle_data.json", key)

	stored, err := ls.Store(ctx, strings.NewReader(`[{"stationcode":"16107"}]`), key)
	require.NoError(t, err)
	assert.Equal(t, key, stored)

	r, err := ls.Get(ctx, key)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, `[{"stationcode":"16107"}]`, string(data))
}

func TestStoreOverwritesSameKey(t *testing.T) {
	ls := testStorage(t)
	ctx := context.Background()

	key := "raw/2024-11-20/communes_data.json"
	_, err := ls.Store(ctx, strings.NewReader("old"), key)
	require.NoError(t, err)
	_, err = ls.Store(ctx, strings.NewReader("new"), key)
	require.NoError(t, err)

	r, err := ls.Get(ctx, key)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestGetMissingKey(t *testing.T) {
	ls := testStorage(t)
	_, err := ls.Get(context.Background(), "raw/2024-11-20/absent.json")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	ls := testStorage(t)
	ctx := context.Background()

	key := "raw/2024-11-20/communes_data.json"
	_, err := ls.Store(ctx, strings.NewReader("x"), key)
	require.NoError(t, err)

	require.NoError(t, ls.Delete(ctx, key))
	_, err = ls.Get(ctx, key)
	assert.Error(t, err)
}

func TestCleanupBefore(t *testing.T) {
	ls := testStorage(t)
	ctx := context.Background()

	old := "raw/2024-11-01/communes_data.json"
	recent := "raw/2024-11-20/communes_data.json"
	for _, key := range []string{old, recent} {
		_, err := ls.Store(ctx, strings.NewReader("x"), key)
		require.NoError(t, err)
	}
	// Non-date directories survive cleanup untouched.
	require.NoError(t, os.MkdirAll(filepath.Join(ls.Root(), "raw", "scratch"), 0755))

	threshold := time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ls.CleanupBefore(ctx, threshold))

	_, err := os.Stat(filepath.Join(ls.Root(), "raw", "2024-11-01"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(ls.Root(), filepath.FromSlash(recent)))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(ls.Root(), "raw", "scratch"))
	assert.NoError(t, err)
}

func TestCleanupBeforeNoSnapshots(t *testing.T) {
	ls := testStorage(t)
	assert.NoError(t, ls.CleanupBefore(context.Background(), time.Now()))
}
