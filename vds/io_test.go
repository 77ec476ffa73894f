package vds

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-vds/selection"
	"github.com/robert-malhotra/go-vds/source"
	"github.com/robert-malhotra/go-vds/store/fsstore"
)

// halvesLayout maps [0,5) to a.h5:/x and [5,10) to b.h5:/x. Only the
// sources named in present are created.
func halvesLayout(t *testing.T, s *fsstore.Store, present []string, opts ...Option) *Layout {
	t.Helper()
	data := map[string][]byte{"a.h5": seq(1, 5), "b.h5": seq(101, 5)}
	for _, f := range present {
		createSource(t, s, f, "/x", []uint64{5}, nil, data[f])
	}
	m1 := mapping(t, block(t, []uint64{0}, []uint64{5}), selection.All(nil), "a.h5", "/x")
	m2 := mapping(t, block(t, []uint64{5}, []uint64{5}), selection.All(nil), "b.h5", "/x")
	l, err := NewLayout(s, Shape{Dims: []uint64{10}, ElementSize: 1}, []*Mapping{m1, m2}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func readSource(t *testing.T, s *fsstore.Store, file, dataset string) []byte {
	t.Helper()
	ds, err := s.OpenDataset(context.Background(), file, dataset, source.AccessOptions{ReadOnly: true})
	require.NoError(t, err)
	defer ds.Close()
	all := selection.All(ds.Dims())
	buf := make([]byte, all.NumElements())
	require.NoError(t, ds.ReadSelection(all, all, buf))
	return buf
}

func TestReadFill(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts []Option
		want []byte
	}{
		{"zero fill", nil, append(seq(1, 5), 0, 0, 0, 0, 0)},
		{"fill value", []Option{WithFillValue([]byte{0xFF})}, append(seq(1, 5), bytes.Repeat([]byte{0xFF}, 5)...)},
		{"undefined fill", []Option{WithUndefinedFill()}, append(seq(1, 5), bytes.Repeat([]byte{0xEE}, 5)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := halvesLayout(t, newStore(t), []string{"a.h5"}, tt.opts...)
			buf := bytes.Repeat([]byte{0xEE}, 10)
			all := selection.All([]uint64{10})
			require.NoError(t, l.Read(ctx, all, all, buf))
			assert.Equal(t, tt.want, buf)
		})
	}
}

func TestReadScatter(t *testing.T) {
	ctx := context.Background()
	l := halvesLayout(t, newStore(t), []string{"a.h5", "b.h5"})

	// Elements 3..7 land at every other element of a 10-element buffer.
	fileSel := block(t, []uint64{3}, []uint64{5})
	memSel, err := selection.Hyperslab([]uint64{10}, []selection.Dim{{Start: 0, Stride: 2, Count: 5, Block: 1}})
	require.NoError(t, err)
	buf := bytes.Repeat([]byte{0xEE}, 10)
	require.NoError(t, l.Read(ctx, fileSel, memSel, buf))
	assert.Equal(t, []byte{4, 0xEE, 5, 0xEE, 101, 0xEE, 102, 0xEE, 103, 0xEE}, buf)

	got, err := l.ReadSlice(ctx, []uint64{4}, []uint64{3})
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 101, 102}, got)
}

func TestReadRequestErrors(t *testing.T) {
	ctx := context.Background()
	l := halvesLayout(t, newStore(t), []string{"a.h5", "b.h5"})
	all := selection.All([]uint64{10})

	err := l.Read(ctx, block(t, []uint64{8}, []uint64{4}), selection.All([]uint64{4}), make([]byte, 4))
	assert.ErrorIs(t, err, ErrOutOfBounds)

	err = l.Read(ctx, all, all, make([]byte, 9))
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	err = l.Read(ctx, all, selection.All([]uint64{4}), make([]byte, 10))
	assert.ErrorIs(t, err, selection.ErrCountMismatch)

	err = l.Read(ctx, all, selection.All(nil), make([]byte, 10))
	assert.ErrorIs(t, err, selection.ErrUnknownExtent)

	_, err = l.ReadSlice(ctx, []uint64{9}, []uint64{2})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, l.Read(ctx, selection.None([]uint64{10}), selection.None([]uint64{0}), nil))
}

func TestReadSkipsUntouchedSources(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l := halvesLayout(t, s, []string{"a.h5", "b.h5"})

	got, err := l.ReadSlice(ctx, []uint64{1}, []uint64{2})
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, got)
	assert.Equal(t, []string{"a.h5"}, s.Files().Open())
	assert.Equal(t, NotAttempted, l.Mappings()[1].Blocks()[0].State)
}

func TestParallelRejected(t *testing.T) {
	l := halvesLayout(t, newStore(t), []string{"a.h5", "b.h5"}, WithAccessOptions(source.AccessOptions{Parallel: true}))
	all := selection.All([]uint64{10})
	err := l.Read(context.Background(), all, all, make([]byte, 10))
	assert.ErrorIs(t, err, ErrParallelUnsupported)
	err = l.Write(context.Background(), all, all, make([]byte, 10))
	assert.ErrorIs(t, err, ErrParallelUnsupported)
}

func TestWrite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l := halvesLayout(t, s, []string{"a.h5", "b.h5"})

	fileSel := block(t, []uint64{3}, []uint64{4})
	require.NoError(t, l.Write(ctx, fileSel, selection.All([]uint64{4}), []byte{40, 50, 60, 70}))

	assert.Equal(t, []byte{1, 2, 3, 40, 50}, readSource(t, s, "a.h5", "/x"))
	assert.Equal(t, []byte{60, 70, 103, 104, 105}, readSource(t, s, "b.h5", "/x"))

	_, got, err := l.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 40, 50, 60, 70, 103, 104, 105}, got)
}

func TestWriteCoverage(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l := halvesLayout(t, s, []string{"a.h5"})

	all := selection.All([]uint64{10})
	err := l.Write(ctx, all, all, bytes.Repeat([]byte{9}, 10))
	var cerr *CoverageError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, CoverageError{Requested: 10, Covered: 5}, *cerr)
	assert.Equal(t, seq(1, 5), readSource(t, s, "a.h5", "/x"))

	// Entirely inside the mapped half.
	require.NoError(t, l.Write(ctx, block(t, []uint64{0}, []uint64{2}), selection.All([]uint64{2}), []byte{7, 8}))
	assert.Equal(t, []byte{7, 8, 3, 4, 5}, readSource(t, s, "a.h5", "/x"))
}

func TestWriteOverlapRejected(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createSource(t, s, "a.h5", "/x", []uint64{4}, nil, seq(1, 4))
	createSource(t, s, "b.h5", "/x", []uint64{4}, nil, seq(11, 4))
	m1 := mapping(t, block(t, []uint64{0}, []uint64{4}), selection.All(nil), "a.h5", "/x")
	m2 := mapping(t, block(t, []uint64{2}, []uint64{4}), selection.All(nil), "b.h5", "/x")
	l, err := NewLayout(s, Shape{Dims: []uint64{6}, ElementSize: 1}, []*Mapping{m1, m2})
	require.NoError(t, err)
	defer l.Close()

	// Reads apply mappings in order; the later one wins where they overlap.
	_, got, err := l.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 11, 12, 13, 14}, got)

	all := selection.All([]uint64{6})
	err = l.Write(ctx, all, all, make([]byte, 6))
	var cerr *CoverageError
	require.ErrorAs(t, err, &cerr)
	assert.EqualValues(t, 8, cerr.Covered)
	assert.Equal(t, seq(1, 4), readSource(t, s, "a.h5", "/x"))
}

func TestWriteOverlapHidesGap(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createSource(t, s, "a.h5", "/x", []uint64{4}, nil, seq(1, 4))
	createSource(t, s, "b.h5", "/x", []uint64{4}, nil, seq(11, 4))
	// [0,4) and [2,6) overlap by two elements; [6,8) is unmapped.
	m1 := mapping(t, block(t, []uint64{0}, []uint64{4}), selection.All(nil), "a.h5", "/x")
	m2 := mapping(t, block(t, []uint64{2}, []uint64{4}), selection.All(nil), "b.h5", "/x")
	l, err := NewLayout(s, Shape{Dims: []uint64{8}, ElementSize: 1}, []*Mapping{m1, m2})
	require.NoError(t, err)
	defer l.Close()

	all := selection.All([]uint64{8})
	err = l.Write(ctx, all, all, seq(90, 8))
	var cerr *CoverageError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, CoverageError{Requested: 8, Covered: 6}, *cerr)
	assert.Equal(t, seq(1, 4), readSource(t, s, "a.h5", "/x"))
	assert.Equal(t, seq(11, 4), readSource(t, s, "b.h5", "/x"))
}

func TestReadOnlySources(t *testing.T) {
	ctx := context.Background()
	l := halvesLayout(t, newStore(t), []string{"a.h5", "b.h5"}, WithAccessOptions(source.AccessOptions{ReadOnly: true}))
	sel := block(t, []uint64{0}, []uint64{2})
	err := l.Write(ctx, sel, selection.All([]uint64{2}), []byte{1, 2})
	var ioErr *IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.ErrorIs(t, err, source.ErrReadOnly)
}

func TestReadPartialBlock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createBlocks(t, s, 5, 0, 1, 2)
	createSource(t, s, "row.h5", "/r", []uint64{12}, []uint64{unlim}, seq(100, 12))

	// Row 0 is fed by five-element blocks, row 1 by one growing source
	// that is shorter than the blocks reach.
	row := func(r uint64) selection.Dim { return selection.Dim{Start: r, Stride: 1, Count: 1, Block: 1} }
	blocks := mapping(t, slab(t, row(0), selection.Dim{Start: 0, Stride: 5, Count: unlim, Block: 5}),
		selection.All(nil), "blk%b.h5", "/d")
	tail := mapping(t, slab(t, row(1), unlimitedRun(0)), slab(t, unlimitedRun(0)), "row.h5", "/r")
	l, err := NewLayout(s, Shape{Dims: []uint64{2, 0}, MaxDims: []uint64{2, unlim}, ElementSize: 1}, []*Mapping{blocks, tail})
	require.NoError(t, err)
	defer l.Close()

	dims, got, err := l.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 12}, dims)
	want := append(append(append(seq(1, 5), seq(11, 5)...), 21, 22), seq(100, 12)...)
	assert.Equal(t, want, got)

	// A read inside the partial block only.
	got, err = l.ReadSlice(ctx, []uint64{0, 11}, []uint64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []byte{22}, got)
}

func TestReadClearsProjections(t *testing.T) {
	l := halvesLayout(t, newStore(t), []string{"a.h5", "b.h5"})
	_, _, err := l.ReadAll(context.Background())
	require.NoError(t, err)
	for _, m := range l.mappings {
		for _, b := range m.bindings() {
			assert.Nil(t, b.projected)
		}
	}
}
