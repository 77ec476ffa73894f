package fsstore

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-vds/selection"
	"github.com/robert-malhotra/go-vds/source"
	"github.com/robert-malhotra/go-vds/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(afero.NewMemMapFs(), WithRoot("/data"))
	require.NoError(t, s.CreateFile("a.h5"))
	return s
}

func TestCreateOpen(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Create(ctx, "a.h5", "/grp/x", store.Spec{Dims: []uint64{3}, ElementSize: 1}, []byte{1, 2, 3}))

	names, err := s.Datasets("a.h5")
	require.NoError(t, err)
	assert.Equal(t, []string{"/grp/x"}, names)

	ds, err := s.OpenDataset(ctx, "a.h5", "/grp/x", source.AccessOptions{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, ds.Dims())
	assert.True(t, s.Files().IsOpen("a.h5"))

	buf := make([]byte, 3)
	all := selection.All([]uint64{3})
	require.NoError(t, ds.ReadSelection(all, all, buf))
	assert.Equal(t, []byte{1, 2, 3}, buf)

	require.NoError(t, ds.WriteSelection(all, all, []byte{4, 5, 6}))
	again, err := s.OpenDataset(ctx, "a.h5", "/grp/x", source.AccessOptions{ReadOnly: true})
	require.NoError(t, err)
	require.NoError(t, again.ReadSelection(all, all, buf))
	assert.Equal(t, []byte{4, 5, 6}, buf)
	require.ErrorIs(t, again.WriteSelection(all, all, buf), source.ErrReadOnly)

	require.NoError(t, ds.Close())
	assert.True(t, s.Files().IsOpen("a.h5"))
	require.NoError(t, again.Close())
	assert.False(t, s.Files().IsOpen("a.h5"))
}

func TestAbsent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.OpenDataset(ctx, "missing.h5", "/x", source.AccessOptions{})
	require.ErrorIs(t, err, source.ErrAbsent)
	_, err = s.OpenDataset(ctx, "a.h5", "/x", source.AccessOptions{})
	require.ErrorIs(t, err, source.ErrAbsent)
	_, err = s.Datasets("missing.h5")
	require.ErrorIs(t, err, source.ErrAbsent)
	require.ErrorIs(t, s.Remove(ctx, "a.h5", "/x"), source.ErrAbsent)
	require.ErrorIs(t, s.Resize(ctx, "a.h5", "/x", []uint64{1}), source.ErrAbsent)
	assert.Empty(t, s.Files().Open())
}

func TestResizeRefresh(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	spec := store.Spec{Dims: []uint64{2}, MaxDims: []uint64{selection.Unlimited}, ElementSize: 1, Fill: []byte{7}}
	require.NoError(t, s.Create(ctx, "a.h5", "/x", spec, []byte{1, 2}))

	ds, err := s.OpenDataset(ctx, "a.h5", "/x", source.AccessOptions{ReadOnly: true})
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, s.Resize(ctx, "a.h5", "/x", []uint64{4}))
	require.NoError(t, ds.Refresh(ctx))
	assert.Equal(t, []uint64{4}, ds.Dims())

	buf := make([]byte, 4)
	all := selection.All([]uint64{4})
	require.NoError(t, ds.ReadSelection(all, all, buf))
	assert.Equal(t, []byte{1, 2, 7, 7}, buf)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Create(ctx, "a.h5", "/x", store.Spec{Dims: []uint64{1}, ElementSize: 1}, nil))
	require.NoError(t, s.Remove(ctx, "a.h5", "/x"))
	names, err := s.Datasets("a.h5")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.RemoveFile("a.h5"))
	_, err = s.Datasets("a.h5")
	require.ErrorIs(t, err, source.ErrAbsent)
}

func TestEmptyDatasetName(t *testing.T) {
	s := newStore(t)
	_, err := s.OpenDataset(context.Background(), "a.h5", "/", source.AccessOptions{})
	require.ErrorIs(t, err, store.ErrInvalidSpec)
}
