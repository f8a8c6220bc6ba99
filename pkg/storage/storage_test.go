package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/pkg/storage"
)

func TestLocalDiskRoundTrip(t *testing.T) {
	d, err := storage.NewLocalDisk(t.TempDir(), "http://shop.test/storage/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.Put(ctx, "exports/a.csv", []byte("a"), "text/csv"))
	require.NoError(t, d.Put(ctx, "exports/nested/b.xlsx", []byte("bb"), ""))
	require.NoError(t, d.Put(ctx, "other/c.txt", []byte("c"), ""))

	got, err := d.Get(ctx, "exports/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))

	ok, err := d.Exists(ctx, "exports/nested/b.xlsx")
	require.NoError(t, err)
	assert.True(t, ok)

	files, err := d.List(ctx, "exports")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "exports/a.csv", files[0].Path)
	assert.EqualValues(t, 2, files[1].Size)

	require.NoError(t, d.Delete(ctx, "exports/a.csv"))
	require.NoError(t, d.Delete(ctx, "exports/a.csv"))
	_, err = d.Get(ctx, "exports/a.csv")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	files, err = d.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, files)

	assert.Equal(t, "http://shop.test/storage/exports/a.csv", d.URL("exports/a.csv"))
}

func TestLocalDiskRejectsEscapes(t *testing.T) {
	d, err := storage.NewLocalDisk(t.TempDir(), "")
	require.NoError(t, err)
	assert.Error(t, d.Put(context.Background(), "../outside.txt", []byte("x"), ""))
}

func TestManager(t *testing.T) {
	d, err := storage.NewLocalDisk(t.TempDir(), "")
	require.NoError(t, err)

	m := storage.NewManager("s3")
	m.Register("local", d)
	assert.Equal(t, d, m.Default())
	_, err = m.Disk("s3")
	assert.Error(t, err)
	assert.Equal(t, []string{"local"}, m.Names())
}
