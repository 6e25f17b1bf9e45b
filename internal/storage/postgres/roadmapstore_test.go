package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboplan/roboplan/internal/storage/postgres"
	"github.com/roboplan/roboplan/internal/storage/roadmap"
	"github.com/roboplan/roboplan/internal/testutil"
)

func uniquePath(prefix string) string {
	return fmt.Sprintf("%s_%d.roadmap", prefix, time.Now().UnixNano())
}

func TestRoadmapStore_SaveAndLoad(t *testing.T) {
	store := postgres.NewRoadmapStore(testutil.NewPool(t))
	ctx := context.Background()
	path := uniquePath("arm")

	require.NoError(t, store.Save(ctx, path, []byte("graph-v1")))

	data, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("graph-v1"), data)
}

func TestRoadmapStore_SaveOverwrites(t *testing.T) {
	store := postgres.NewRoadmapStore(testutil.NewPool(t))
	ctx := context.Background()
	path := uniquePath("arm")

	require.NoError(t, store.Save(ctx, path, []byte("graph-v1")))
	require.NoError(t, store.Save(ctx, path, []byte("graph-v2")))

	data, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("graph-v2"), data)
}

func TestRoadmapStore_LoadMissing(t *testing.T) {
	store := postgres.NewRoadmapStore(testutil.NewPool(t))

	_, err := store.Load(context.Background(), "never-stored.roadmap")
	assert.ErrorIs(t, err, postgres.ErrRoadmapNotFound)
}

func TestRoadmapStore_List(t *testing.T) {
	store := postgres.NewRoadmapStore(testutil.NewPool(t))
	ctx := context.Background()

	first := uniquePath("first")
	second := uniquePath("second")
	require.NoError(t, store.Save(ctx, first, []byte("a")))
	require.NoError(t, store.Save(ctx, second, []byte("b")))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	paths := []string{records[0].Path, records[1].Path}
	assert.Contains(t, paths, first)
	assert.Contains(t, paths, second)
	assert.False(t, records[0].UpdatedAt.Before(records[1].UpdatedAt), "newest first")
}

func TestRoadmapStore_Delete(t *testing.T) {
	store := postgres.NewRoadmapStore(testutil.NewPool(t))
	ctx := context.Background()
	path := uniquePath("arm")

	require.NoError(t, store.Save(ctx, path, []byte("graph")))
	require.NoError(t, store.Delete(ctx, path))

	_, err := store.Load(ctx, path)
	assert.ErrorIs(t, err, postgres.ErrRoadmapNotFound)

	assert.ErrorIs(t, store.Delete(ctx, path), postgres.ErrRoadmapNotFound)
}

func TestRoadmapStore_ImplementsStoreContract(t *testing.T) {
	var _ roadmap.Store = (*postgres.RoadmapStore)(nil)
}
