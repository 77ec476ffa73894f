package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/internal/message"
	"github.com/robert-malhotra/go-vds/selection"
)

func block(t *testing.T, extent, start, count []uint64) *selection.Selection {
	t.Helper()
	s, err := selection.Block(extent, start, count)
	require.NoError(t, err)
	return s
}

func TestPlan(t *testing.T) {
	// A 2x2 corner of a 4x4 space onto a contiguous 1-d memory range.
	mem := block(t, []uint64{10}, []uint64{3}, []uint64{4})
	file := block(t, []uint64{4, 4}, []uint64{1, 1}, []uint64{2, 2})

	steps, err := Plan(mem, file)
	require.NoError(t, err)
	assert.Equal(t, []Step{{Mem: 3, File: 5, Count: 2}, {Mem: 5, File: 9, Count: 2}}, steps)

	_, err = Plan(block(t, []uint64{10}, []uint64{0}, []uint64{3}), file)
	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestFill(t *testing.T) {
	buf := make([]byte, 6*2)
	sel := block(t, []uint64{6}, []uint64{1}, []uint64{3})
	require.NoError(t, Fill(sel, buf, 2, []byte{0xAB, 0xCD}))
	assert.Equal(t, []byte{0, 0, 0xAB, 0xCD, 0xAB, 0xCD, 0xAB, 0xCD, 0, 0, 0, 0}, buf)

	require.NoError(t, Fill(sel, buf, 2, nil))
	assert.Equal(t, make([]byte, 12), buf)

	assert.Error(t, Fill(sel, buf, 2, []byte{1}))
	assert.ErrorIs(t, Fill(sel, buf[:4], 2, nil), ErrBufferTooSmall)
}

func TestReshape(t *testing.T) {
	// 2x3 grown to 3x2: the overlapping 2x2 corner survives.
	data := []byte{1, 2, 3, 4, 5, 6}
	out, err := Reshape(data, []uint64{2, 3}, []uint64{3, 2}, 1, []byte{9})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 4, 5, 9, 9}, out)

	out, err = Reshape(nil, []uint64{0}, []uint64{3}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, out)
}

func TestContiguous(t *testing.T) {
	const addr = 64
	ds := message.NewDataspace([]uint64{3, 4}, nil)
	dt := message.NewInteger(2, false)
	dl := message.NewContiguousLayout(addr, 3*4*2)
	buf := binary.NewBuffer(make([]byte, addr+24))

	c, err := NewContiguous(dl, ds, dt, buf, buf)
	require.NoError(t, err)
	assert.EqualValues(t, 24, c.Size())
	assert.Equal(t, []uint64{3, 4}, c.Dims())

	// Write column 2 from a 3-element memory buffer.
	mem := selection.All([]uint64{3})
	col := block(t, nil, []uint64{0, 2}, []uint64{3, 1})
	require.NoError(t, c.WriteSelection(mem, col, []byte{1, 0, 2, 0, 3, 0}))

	got := make([]byte, 24)
	require.NoError(t, c.ReadSelection(selection.All([]uint64{12}), selection.All(nil), got))
	assert.Equal(t, []byte{
		0, 0, 0, 0, 1, 0, 0, 0,
		0, 0, 0, 0, 2, 0, 0, 0,
		0, 0, 0, 0, 3, 0, 0, 0,
	}, got)

	out := make([]byte, 4)
	require.NoError(t, c.ReadSelection(selection.All([]uint64{2}), block(t, nil, []uint64{1, 2}, []uint64{2, 1}), out))
	assert.Equal(t, []byte{2, 0, 3, 0}, out)

	// Selections outside the dataset are rejected.
	err = c.ReadSelection(selection.All([]uint64{2}), block(t, nil, []uint64{2, 3}, []uint64{2, 1}), out)
	assert.ErrorIs(t, err, selection.ErrOutOfExtent)

	ro, err := NewContiguous(dl, ds, dt, buf, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, ro.WriteSelection(mem, col, make([]byte, 6)), ErrReadOnly)

	_, err = NewContiguous(message.NewContiguousLayout(addr, 10), ds, dt, buf, nil)
	assert.Error(t, err)
}
