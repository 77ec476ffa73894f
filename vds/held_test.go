package vds

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-vds/selection"
)

func TestHold(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l := halvesLayout(t, s, []string{"a.h5", "b.h5"})

	empty, err := l.Hold()
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
	require.NoError(t, empty.Release())

	_, _, err = l.ReadAll(ctx)
	require.NoError(t, err)
	h, err := l.Hold()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h5", "b.h5"}, h.Files())

	require.NoError(t, l.Close())
	assert.Equal(t, []string{"a.h5", "b.h5"}, s.Files().Open())

	require.NoError(t, h.Release())
	assert.Empty(t, s.Files().Open())
	require.NoError(t, h.Release())
}

type stubFile struct {
	name  string
	holds int
	err   error
}

func (f *stubFile) Name() string { return f.name }
func (f *stubFile) Hold()        { f.holds++ }
func (f *stubFile) Release() error {
	f.holds--
	return f.err
}

func TestHeldFileSetReleaseJoinsErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	a, b, c := &stubFile{name: "a", err: errA}, &stubFile{name: "b", err: errB}, &stubFile{name: "c"}
	h := &HeldFileSet{}
	for _, f := range []*stubFile{a, b, c} {
		f.Hold()
		h.files = append(h.files, f)
	}

	err := h.Release()
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Zero(t, a.holds+b.holds+c.holds)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createSource(t, s, "src.h5", "/data", []uint64{10}, []uint64{unlim}, seq(1, 10))
	l := unlimitedLayout(t, s)

	dims, got, err := l.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10}, dims)
	assert.Equal(t, seq(1, 10), got)

	require.NoError(t, s.Resize(ctx, "src.h5", "/data", []uint64{7}))
	require.NoError(t, l.Refresh(ctx))
	assert.Equal(t, []uint64{7}, l.Dims())
	assert.Equal(t, []string{"src.h5"}, s.Files().Open())

	dims, got, err = l.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, dims)
	assert.Equal(t, seq(1, 7), got)

	require.NoError(t, s.Resize(ctx, "src.h5", "/data", []uint64{12}))
	require.NoError(t, l.Refresh(ctx))
	got, err = l.ReadSlice(ctx, []uint64{6}, []uint64{6})
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0, 0, 0, 0}, got)
}

func TestRefreshFindsNewSource(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l := halvesLayout(t, s, []string{"a.h5"})

	all := selection.All([]uint64{10})
	buf := make([]byte, 10)
	require.NoError(t, l.Read(ctx, all, all, buf))
	assert.Equal(t, append(seq(1, 5), 0, 0, 0, 0, 0), buf)
	assert.Equal(t, KnownAbsent, l.Mappings()[1].Blocks()[0].State)

	createSource(t, s, "b.h5", "/x", []uint64{5}, nil, seq(101, 5))
	require.NoError(t, l.Refresh(ctx))
	require.NoError(t, l.Read(ctx, all, all, buf))
	assert.Equal(t, append(seq(1, 5), seq(101, 5)...), buf)
	assert.Equal(t, Open, l.Mappings()[1].Blocks()[0].State)
}

func TestRefreshClosed(t *testing.T) {
	l := unlimitedLayout(t, newStore(t))
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Refresh(context.Background()), ErrClosed)
}
