package vds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-vds/selection"
)

func TestNewMappingValidation(t *testing.T) {
	points, err := selection.Points(nil, []uint64{1}, []uint64{3})
	require.NoError(t, err)
	five := block(t, []uint64{0}, []uint64{5})
	four := block(t, []uint64{0}, []uint64{4})
	perBlock := slab(t, selection.Dim{Start: 0, Stride: 5, Count: unlim, Block: 5})
	pairs := slab(t,
		selection.Dim{Start: 0, Stride: 1, Count: 1, Block: 2},
		unlimitedRun(0))

	tests := []struct {
		name    string
		virtual *selection.Selection
		src     *selection.Selection
		file    string
		ok      bool
	}{
		{"limited equal counts", five, five, "a.h5", true},
		{"limited unknown source extent", five, selection.All(nil), "a.h5", true},
		{"limited count mismatch", five, four, "a.h5", false},
		{"points", points, block(t, []uint64{0}, []uint64{2}), "a.h5", false},
		{"unlimited both sides", slab(t, unlimitedRun(0)), slab(t, unlimitedRun(3)), "a.h5", true},
		{"unlimited slice mismatch", pairs, slab(t, unlimitedRun(0)), "a.h5", false},
		{"limited virtual unlimited source", five, slab(t, unlimitedRun(0)), "a.h5", false},
		{"unlimited virtual without template", perBlock, five, "a.h5", false},
		{"templated", perBlock, five, "a%b.h5", true},
		{"templated unknown source extent", perBlock, selection.All(nil), "a%b.h5", true},
		{"templated block mismatch", perBlock, four, "a%b.h5", false},
		{"template on limited mapping", five, five, "a%b.h5", false},
		{"template on unlimited source", slab(t, unlimitedRun(0)), slab(t, unlimitedRun(0)), "a%b.h5", false},
		{"bad specifier", five, five, "a%d.h5", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMapping(tt.virtual, tt.src, tt.file, "/x")
			if tt.ok {
				require.NoError(t, err)
				assert.NotNil(t, m)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestMappingAccessors(t *testing.T) {
	virtual := slab(t, selection.Dim{Start: 2, Stride: 5, Count: unlim, Block: 3})
	m := mapping(t, virtual, block(t, []uint64{0}, []uint64{3}), "run%b.h5", "/d%%%b")

	assert.True(t, m.Templated())
	assert.Equal(t, 0, m.UnlimitedDim())
	assert.Equal(t, "run%b.h5", m.SourceFile().String())
	assert.Equal(t, "/d%%%b", m.SourceDataset().String())
	assert.Same(t, virtual, m.Virtual())
	assert.Empty(t, m.Blocks())

	b, err := m.block(9)
	require.NoError(t, err)
	assert.Equal(t, "run9.h5", b.file)
	assert.Equal(t, "/d%9", b.dataset)
	start, end, err := b.virtual.Bounds()
	require.NoError(t, err)
	assert.Equal(t, []uint64{47}, start)
	assert.Equal(t, []uint64{49}, end)

	again, err := m.block(9)
	require.NoError(t, err)
	assert.Same(t, b, again)
	require.Len(t, m.Blocks(), 1)
	assert.Equal(t, BlockInfo{Index: 9, File: "run9.h5", Dataset: "/d%9", State: NotAttempted}, m.Blocks()[0])

	limited := mapping(t, block(t, []uint64{1}, []uint64{3}), selection.All(nil), "a.h5", "/x")
	assert.False(t, limited.Templated())
	assert.Equal(t, -1, limited.UnlimitedDim())
}

func TestMinDims(t *testing.T) {
	dims := make([]uint64, 2)
	mapping(t, block(t, []uint64{3, 1}, []uint64{2, 2}), selection.All(nil), "a.h5", "/x").minDims(dims)
	assert.Equal(t, []uint64{5, 3}, dims)

	mapping(t,
		slab(t, selection.Dim{Start: 6, Stride: 1, Count: 1, Block: 1}, unlimitedRun(0)),
		slab(t, unlimitedRun(0)), "a.h5", "/x").minDims(dims)
	assert.Equal(t, []uint64{7, 3}, dims)

	mapping(t, selection.All(nil), selection.All(nil), "a.h5", "/x").minDims(dims)
	assert.Equal(t, []uint64{7, 3}, dims)
}
