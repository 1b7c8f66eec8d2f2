package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/quillback/fingerid/internal/db"
	"github.com/quillback/fingerid/internal/fingerid/store"
	"github.com/quillback/fingerid/internal/fingerid/store/sqlite"
)

func newTestKV(t *testing.T) *sqlite.KV {
	t.Helper()

	ctx := context.Background()
	db, err := dbpkg.Open(ctx, dbpkg.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
		Env:  "dev",
	})
	require.NoError(t, err)

	writer := dbpkg.NewWorker(db)
	t.Cleanup(func() {
		writer.Close()
		_ = db.Close()
	})

	return sqlite.NewKV(db, writer)
}

func TestKV_GetMissingKey(t *testing.T) {
	kv := newTestKV(t)

	_, err := kv.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestKV_SetGetRoundTrip(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte(`{"a":1}`)))

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)
}

func TestKV_SetOverwrites(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v1")))
	require.NoError(t, kv.Set(ctx, "k", []byte("v2")))

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestKV_Delete(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	require.NoError(t, kv.Delete(ctx, "k"))

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting a missing key is fine.
	require.NoError(t, kv.Delete(ctx, "k"))
}

func TestKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	db1, err := dbpkg.Open(ctx, dbpkg.Config{Path: path})
	require.NoError(t, err)
	w1 := dbpkg.NewWorker(db1)
	kv1 := sqlite.NewKV(db1, w1)
	require.NoError(t, kv1.Set(ctx, store.KeyGallery, []byte("[]")))
	w1.Close()
	require.NoError(t, db1.Close())

	db2, err := dbpkg.Open(ctx, dbpkg.Config{Path: path})
	require.NoError(t, err)
	w2 := dbpkg.NewWorker(db2)
	t.Cleanup(func() {
		w2.Close()
		_ = db2.Close()
	})

	got, err := sqlite.NewKV(db2, w2).Get(ctx, store.KeyGallery)
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), got)
}
