package alloc

import (
	"fmt"
	"sort"
)

// Allocator hands out non-overlapping address ranges in a container file,
// always at the current end of file.
type Allocator struct {
	eof         uint64
	base        uint64
	allocations []Allocation
}

// Allocation represents a single allocation made.
type Allocation struct {
	Addr uint64
	Size uint64
	Tag  string // what the range holds, for layout dumps
}

// New creates an Allocator whose first allocation lands at base, typically
// right after the superblock.
func New(base uint64) *Allocator {
	return &Allocator{eof: base, base: base}
}

// Alloc reserves size bytes and returns their address.
func (a *Allocator) Alloc(size uint64, tag string) uint64 {
	addr := a.eof
	if size == 0 {
		return addr
	}
	a.eof += size
	a.allocations = append(a.allocations, Allocation{Addr: addr, Size: size, Tag: tag})
	return addr
}

// AllocAligned reserves size bytes at the next multiple of alignment.
func (a *Allocator) AllocAligned(size, alignment uint64, tag string) uint64 {
	if alignment > 1 {
		if r := a.eof % alignment; r != 0 {
			a.eof += alignment - r
		}
	}
	return a.Alloc(size, tag)
}

// Func adapts the allocator to writers that take an allocation callback.
func (a *Allocator) Func(tag string) func(size int64) uint64 {
	return func(size int64) uint64 {
		if size < 0 {
			panic("negative allocation size")
		}
		return a.Alloc(uint64(size), tag)
	}
}

// EOF returns the current end-of-file address.
func (a *Allocator) EOF() uint64 {
	return a.eof
}

// Allocations returns the allocations in address order.
func (a *Allocator) Allocations() []Allocation {
	out := append([]Allocation(nil), a.allocations...)
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Validate checks that allocations don't overlap and are within bounds.
func (a *Allocator) Validate() error {
	all := a.Allocations()
	for i, cur := range all {
		if cur.Addr < a.base {
			return fmt.Errorf("%s at 0x%x is before base address 0x%x", cur.Tag, cur.Addr, a.base)
		}
		if cur.Addr+cur.Size > a.eof {
			return fmt.Errorf("%s at 0x%x size %d extends past EOF 0x%x", cur.Tag, cur.Addr, cur.Size, a.eof)
		}
		if i > 0 {
			prev := all[i-1]
			if prev.Addr+prev.Size > cur.Addr {
				return fmt.Errorf("overlapping allocations: %s [0x%x, size %d] and %s [0x%x, size %d]",
					prev.Tag, prev.Addr, prev.Size, cur.Tag, cur.Addr, cur.Size)
			}
		}
	}
	return nil
}
