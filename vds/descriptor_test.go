package vds

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/selection"
	"github.com/robert-malhotra/go-vds/store"
)

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	createBlocks(t, s, 5, 0, 1)
	createSource(t, s, "row.h5", "/r", []uint64{2}, nil, []byte{7, 8})

	row := func(r uint64) selection.Dim { return selection.Dim{Start: r, Stride: 1, Count: 1, Block: 1} }
	blocks := mapping(t, slab(t, row(0), selection.Dim{Start: 0, Stride: 5, Count: unlim, Block: 5}),
		selection.All(nil), "blk%b.h5", "/d")
	fixed := mapping(t, block(t, []uint64{1, 0}, []uint64{1, 2}), selection.All(nil), "row.h5", "/r")
	l, err := NewLayout(s, Shape{Dims: []uint64{2, 2}, MaxDims: []uint64{2, unlim}, ElementSize: 1},
		[]*Mapping{blocks, fixed}, WithFillValue([]byte{0xAB}), WithView(LastAvailable))
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Resolve(ctx)
	require.NoError(t, err)
	require.True(t, l.Dirty())

	var saved bytes.Buffer
	require.NoError(t, Save(&saved, l))
	assert.False(t, l.Dirty())

	loaded, err := Load(bytes.NewReader(saved.Bytes()), s, WithView(LastAvailable))
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, []uint64{2, 10}, loaded.Dims())
	assert.Equal(t, []uint64{2, unlim}, loaded.MaxDims())
	assert.Equal(t, 1, loaded.ElementSize())
	fill, defined := loaded.FillValue()
	assert.True(t, defined)
	assert.Equal(t, []byte{0xAB}, fill)
	require.Len(t, loaded.Mappings(), 2)
	for i, m := range loaded.Mappings() {
		want := l.Mappings()[i]
		assert.Equal(t, want.SourceFile().String(), m.SourceFile().String())
		assert.Equal(t, want.SourceDataset().String(), m.SourceDataset().String())
		assert.True(t, selection.Equal(want.Virtual(), m.Virtual()), "mapping %d virtual", i)
		assert.True(t, selection.Equal(want.Source(), m.Source()), "mapping %d source", i)
	}

	_, want, err := l.ReadAll(ctx)
	require.NoError(t, err)
	_, got, err := loaded.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 11, 12, 13, 14, 15, 7, 8, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB}, got)

	var again bytes.Buffer
	require.NoError(t, Save(&again, loaded))
	assert.Equal(t, saved.Bytes(), again.Bytes())
}

func TestSaveLoadUndefinedFill(t *testing.T) {
	l := halvesLayout(t, newStore(t), nil, WithUndefinedFill())
	var saved bytes.Buffer
	require.NoError(t, Save(&saved, l))

	loaded, err := Load(bytes.NewReader(saved.Bytes()), newStore(t))
	require.NoError(t, err)
	_, defined := loaded.FillValue()
	assert.False(t, defined)

	// Options given to Load override the stored fill value.
	loaded, err = Load(bytes.NewReader(saved.Bytes()), newStore(t), WithFillValue([]byte{3}))
	require.NoError(t, err)
	fill, defined := loaded.FillValue()
	assert.True(t, defined)
	assert.Equal(t, []byte{3}, fill)
}

func TestLoadRejectsSourceContainer(t *testing.T) {
	container, err := store.Encode(store.Spec{Dims: []uint64{4}, ElementSize: 1}, nil)
	require.NoError(t, err)
	_, err = Load(binary.NewBuffer(container), newStore(t))
	assert.ErrorIs(t, err, ErrNotVirtual)
}

func TestLoadCorruptMappingBlock(t *testing.T) {
	l := halvesLayout(t, newStore(t), nil)
	var saved bytes.Buffer
	require.NoError(t, Save(&saved, l))

	data := saved.Bytes()
	// The mapping block holds the source file names; flip a byte of one.
	i := bytes.Index(data, []byte("b.h5"))
	require.Positive(t, i)
	data[i] = 'c'
	_, err := Load(bytes.NewReader(data), newStore(t))
	assert.Error(t, err)
}
