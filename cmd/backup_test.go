package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/friedchicken888/cab432-a2/database/dbtest"
	"github.com/friedchicken888/cab432-a2/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := dbtest.Open(t).DB()
	seedSource(t, src)

	var archive bytes.Buffer
	meta, err := writeBackup(ctx, src, "sqlite", nil, &archive)
	require.NoError(t, err)
	assert.Equal(t, []string{"fractals", "gallery", "history"}, meta.Tables)
	assert.Equal(t, int64(2), meta.RecordCount["fractals"])

	dst := dbtest.Open(t).DB()
	stats, err := readBackup(ctx, dst, bytes.NewReader(archive.Bytes()), restoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Restored["fractals"])
	assert.Equal(t, int64(1), stats.Restored["gallery"])
	assert.Equal(t, int64(2), stats.Restored["history"])

	var f models.Fractal
	require.NoError(t, dst.First(&f, 2).Error)
	assert.Equal(t, "h2", f.Hash)
	assert.Equal(t, "new-2", f.BlobKey)

	// existing primary keys are skipped
	stats, err = readBackup(ctx, dst, bytes.NewReader(archive.Bytes()), restoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Read["fractals"])
	assert.Zero(t, stats.Restored["fractals"])
	assert.Equal(t, int64(2), countRows(t, dst, &models.Fractal{}))
}

func TestRestore_DryRunAndTruncate(t *testing.T) {
	ctx := context.Background()
	src := dbtest.Open(t).DB()
	seedSource(t, src)

	var archive bytes.Buffer
	_, err := writeBackup(ctx, src, "sqlite", nil, &archive)
	require.NoError(t, err)

	dst := dbtest.Open(t).DB()
	other := fractalRow(7, "h7", "other")
	require.NoError(t, dst.Create(&other).Error)

	stats, err := readBackup(ctx, dst, bytes.NewReader(archive.Bytes()), restoreOptions{DryRun: true, Truncate: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Read["fractals"])
	assert.Equal(t, int64(1), countRows(t, dst, &models.Fractal{}))

	_, err = readBackup(ctx, dst, bytes.NewReader(archive.Bytes()), restoreOptions{Truncate: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), countRows(t, dst, &models.Fractal{}))
	assert.Error(t, dst.First(&models.Fractal{}, 7).Error)
}

func TestBackup_SelectedTables(t *testing.T) {
	var archive bytes.Buffer
	meta, err := writeBackup(context.Background(), dbtest.Open(t).DB(), "sqlite", []string{"history", "fractals"}, &archive)
	require.NoError(t, err)
	assert.Equal(t, []string{"fractals", "history"}, meta.Tables)

	_, err = writeBackup(context.Background(), dbtest.Open(t).DB(), "sqlite", []string{"albums"}, &archive)
	assert.Error(t, err)
}

func TestReadBackup_RejectsGarbage(t *testing.T) {
	_, err := readBackup(context.Background(), dbtest.Open(t).DB(), bytes.NewReader([]byte("not gzip")), restoreOptions{})
	assert.Error(t, err)
}
