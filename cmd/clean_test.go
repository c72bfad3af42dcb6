package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/friedchicken888/cab432-a2/cache"
	"github.com/friedchicken888/cab432-a2/database/dbtest"
	"github.com/friedchicken888/cab432-a2/database/models"
	repo "github.com/friedchicken888/cab432-a2/database/repo/artifacts"
	"github.com/friedchicken888/cab432-a2/internal/artifacts"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/friedchicken888/cab432-a2/storage/blobtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDangling(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	mem, err := cache.NewMemoryCache(cache.MemoryConfig{NumCounters: 1000, MaxCost: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })
	svc := artifacts.NewService(repo.NewRepository(db), cache.NewLayer(mem, time.Second, nil), time.Hour)
	blobs := blobtest.New()

	kept, err := blobs.Put(ctx, []byte("png"), "image/png")
	require.NoError(t, err)
	_, err = svc.Create(ctx, fractal.Params{Width: 10}, "kept", kept)
	require.NoError(t, err)
	lost, err := svc.Create(ctx, fractal.Params{Width: 20}, "lost", "fractals/gone.png")
	require.NoError(t, err)
	require.NoError(t, db.DB().Create(&models.GalleryEntry{UserID: "u1", FractalID: lost.ID, FractalHash: "lost"}).Error)

	stats, err := cleanDangling(ctx, db.DB(), blobs, svc, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.checked)
	assert.Equal(t, 1, stats.dangling)
	assert.Equal(t, 0, stats.deleted)

	stats, err = cleanDangling(ctx, db.DB(), blobs, svc, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.deleted)
	assert.Empty(t, stats.errors)

	_, err = svc.FindByHashUncached(ctx, "lost")
	assert.ErrorIs(t, err, fractal.ErrNotFound)
	_, err = svc.FindByHashUncached(ctx, "kept")
	assert.NoError(t, err)

	var entries int64
	require.NoError(t, db.DB().Model(&models.GalleryEntry{}).Count(&entries).Error)
	assert.Zero(t, entries)
}
