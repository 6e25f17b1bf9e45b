package roadmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	store := NewFileStore()
	path := filepath.Join(t.TempDir(), "arm.roadmap")

	require.NoError(t, store.Save(context.Background(), path, []byte("graph-bytes")))

	got, err := store.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("graph-bytes"), got)
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store := NewFileStore()
	path := filepath.Join(t.TempDir(), "arm.roadmap")

	require.NoError(t, store.Save(context.Background(), path, []byte("v1")))
	require.NoError(t, store.Save(context.Background(), path, []byte("v2")))

	got, err := store.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestFileStore_SaveCreatesParentDirs(t *testing.T) {
	store := NewFileStore()
	path := filepath.Join(t.TempDir(), "nested", "deep", "arm.roadmap")

	require.NoError(t, store.Save(context.Background(), path, []byte("x")))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore()
	_, err := store.Load(context.Background(), filepath.Join(t.TempDir(), "nope.roadmap"))
	assert.Error(t, err)
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	store := NewFileStore()
	dir := t.TempDir()
	path := filepath.Join(dir, "arm.roadmap")

	require.NoError(t, store.Save(context.Background(), path, []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_CancelledContext(t *testing.T) {
	store := NewFileStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, filepath.Join(t.TempDir(), "arm.roadmap"), []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Load(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}
