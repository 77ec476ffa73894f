package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlloc(t *testing.T) {
	a := New(48)

	assert.EqualValues(t, 48, a.Alloc(100, "header"))
	assert.EqualValues(t, 148, a.Alloc(0, "empty"))
	assert.EqualValues(t, 152, a.AllocAligned(10, 8, "heap"))
	assert.EqualValues(t, 162, a.EOF())

	f := a.Func("data")
	assert.EqualValues(t, 162, f(38))
	assert.EqualValues(t, 200, a.EOF())

	all := a.Allocations()
	require.Len(t, all, 3)
	assert.Equal(t, "data", all[2].Tag)
	assert.NoError(t, a.Validate())
}

func TestValidateOverlap(t *testing.T) {
	a := New(0)
	a.Alloc(10, "a")
	a.allocations = append(a.allocations, Allocation{Addr: 5, Size: 2, Tag: "b"})
	assert.ErrorContains(t, a.Validate(), "overlapping")

	b := New(16)
	b.allocations = append(b.allocations, Allocation{Addr: 0, Size: 2, Tag: "early"})
	assert.ErrorContains(t, b.Validate(), "before base")
}
