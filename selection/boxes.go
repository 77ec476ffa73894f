package selection

import (
	"fmt"
	"slices"
)

// Run is a contiguous range of row-major element offsets.
type Run struct {
	Offset uint64
	Length uint64
}

func sortBoxes(boxes []Box) {
	slices.SortFunc(boxes, func(a, b Box) int { return slices.Compare(a.Start, b.Start) })
}

// intersectBox returns the overlap of a and b.
func intersectBox(a, b Box) (Box, bool) {
	out := Box{Start: make([]uint64, len(a.Start)), Count: make([]uint64, len(a.Start))}
	for i := range a.Start {
		lo := max(a.Start[i], b.Start[i])
		hi := min(a.Start[i]+a.Count[i], b.Start[i]+b.Count[i])
		if hi <= lo {
			return Box{}, false
		}
		out.Start[i] = lo
		out.Count[i] = hi - lo
	}
	return out, true
}

// subtractBox returns the pieces of a not covered by b. The pieces are
// disjoint.
func subtractBox(a, b Box) []Box {
	ov, ok := intersectBox(a, b)
	if !ok {
		return []Box{a}
	}
	var out []Box
	rest := a.clone()
	for i := range a.Start {
		if rest.Start[i] < ov.Start[i] {
			below := rest.clone()
			below.Count[i] = ov.Start[i] - rest.Start[i]
			out = append(out, below)
		}
		if hi := rest.Start[i] + rest.Count[i]; hi > ov.Start[i]+ov.Count[i] {
			above := rest.clone()
			above.Start[i] = ov.Start[i] + ov.Count[i]
			above.Count[i] = hi - above.Start[i]
			out = append(out, above)
		}
		rest.Start[i] = ov.Start[i]
		rest.Count[i] = ov.Count[i]
	}
	return out
}

func subtractBoxes(pieces []Box, b Box) []Box {
	var out []Box
	for _, p := range pieces {
		out = append(out, subtractBox(p, b)...)
	}
	return out
}

// boxList returns the selection as disjoint boxes. It fails for unlimited
// selections and for All selections without an extent.
func (s *Selection) boxList() ([]Box, error) {
	switch s.kind {
	case KindNone:
		return nil, nil
	case KindAll:
		if s.extent == nil {
			return nil, ErrUnknownExtent
		}
		for _, e := range s.extent {
			if e == 0 {
				return nil, nil
			}
		}
		return []Box{{Start: make([]uint64, s.rank), Count: slices.Clone(s.extent)}}, nil
	case KindPoints:
		out := make([]Box, len(s.points))
		for i, p := range s.points {
			out[i] = Box{Start: slices.Clone(p), Count: ones(s.rank)}
		}
		return out, nil
	}
	if s.regular == nil {
		out := make([]Box, len(s.boxes))
		for i, b := range s.boxes {
			out[i] = b.clone()
		}
		return out, nil
	}
	if s.IsUnlimited() {
		return nil, ErrUnlimited
	}

	// Per-dimension segments; a dimension whose blocks touch collapses to
	// one segment.
	type seg struct{ start, count uint64 }
	segs := make([][]seg, s.rank)
	for i, d := range s.regular {
		if d.Count == 1 || d.Stride == d.Block {
			segs[i] = []seg{{d.Start, d.Count * d.Block}}
			continue
		}
		segs[i] = make([]seg, d.Count)
		for j := uint64(0); j < d.Count; j++ {
			segs[i][j] = seg{d.Start + j*d.Stride, d.Block}
		}
	}

	var out []Box
	idx := make([]int, s.rank)
	for {
		b := Box{Start: make([]uint64, s.rank), Count: make([]uint64, s.rank)}
		for i := range idx {
			b.Start[i] = segs[i][idx[i]].start
			b.Count[i] = segs[i][idx[i]].count
		}
		out = append(out, b)

		i := s.rank - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(segs[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out, nil
		}
	}
}

func ones(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// Runs returns the selected elements as sorted, merged row-major runs within
// the selection's extent.
func (s *Selection) Runs() ([]Run, error) {
	if s.extent == nil {
		return nil, ErrUnknownExtent
	}
	if s.IsUnlimited() {
		return nil, ErrUnlimited
	}
	if s.kind == KindAll {
		n := s.NumElements()
		if n == 0 {
			return nil, nil
		}
		return []Run{{Offset: 0, Length: n}}, nil
	}
	boxes, err := s.boxList()
	if err != nil {
		return nil, err
	}
	for _, b := range boxes {
		for i := range b.Start {
			if b.Start[i]+b.Count[i] > s.extent[i] {
				return nil, fmt.Errorf("%w: %v in %v", ErrOutOfExtent, s, s.extent)
			}
		}
	}
	return boxRuns(boxes, s.extent), nil
}

// coverExtent returns an extent at least as large as both the selection's
// extent and its bounding box. Row-major order does not depend on the extent
// as long as every element fits, so runs computed in the cover extent order
// elements the same way as runs in any other enclosing extent.
func (s *Selection) coverExtent(boxes []Box) []uint64 {
	cover := make([]uint64, s.rank)
	copy(cover, s.extent)
	for _, b := range boxes {
		for i := range b.Start {
			cover[i] = max(cover[i], b.Start[i]+b.Count[i])
		}
	}
	return cover
}

// boxRuns linearizes disjoint boxes in extent.
func boxRuns(boxes []Box, extent []uint64) []Run {
	rank := len(extent)
	strides := make([]uint64, rank)
	acc := uint64(1)
	for i := rank - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= extent[i]
	}

	var runs []Run
	for _, b := range boxes {
		if rank == 0 {
			runs = append(runs, Run{Offset: 0, Length: 1})
			continue
		}
		// k is the outermost dimension below which the box spans the
		// whole extent, so each row of dims [0,k) is one run.
		k := rank - 1
		for k > 0 && b.Start[k] == 0 && b.Count[k] == extent[k] {
			k--
		}
		length := b.Count[k] * strides[k]
		base := b.Start[k] * strides[k]

		idx := make([]uint64, k)
		for {
			off := base
			for i := 0; i < k; i++ {
				off += (b.Start[i] + idx[i]) * strides[i]
			}
			runs = append(runs, Run{Offset: off, Length: length})

			i := k - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < b.Count[i] {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				break
			}
		}
	}
	return mergeRuns(runs)
}

func mergeRuns(runs []Run) []Run {
	if len(runs) == 0 {
		return nil
	}
	slices.SortFunc(runs, func(a, b Run) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	})
	out := runs[:1]
	for _, r := range runs[1:] {
		last := &out[len(out)-1]
		if last.Offset+last.Length == r.Offset {
			last.Length += r.Length
			continue
		}
		out = append(out, r)
	}
	return out
}

// runBoxes converts row-major runs in extent back into disjoint boxes.
func runBoxes(runs []Run, extent []uint64) []Box {
	var out []Box
	for _, r := range runs {
		out = appendRangeBoxes(out, nil, extent, r.Offset, r.Offset+r.Length)
	}
	return out
}

// appendRangeBoxes decomposes the linear range [lo, hi) of a space with the
// given extent, prefixed by fixed outer coordinates.
func appendRangeBoxes(out []Box, prefix []uint64, extent []uint64, lo, hi uint64) []Box {
	if lo >= hi {
		return out
	}
	if len(extent) == 1 {
		return append(out, prefixed(prefix, []uint64{lo}, []uint64{hi - lo}))
	}
	row := uint64(1)
	for _, e := range extent[1:] {
		row *= e
	}
	inner := extent[1:]
	loRow, loOff := lo/row, lo%row
	hiRow, hiOff := hi/row, hi%row

	if loRow == hiRow {
		return appendRangeBoxes(out, append(slices.Clone(prefix), loRow), inner, loOff, hiOff)
	}
	if loOff != 0 {
		out = appendRangeBoxes(out, append(slices.Clone(prefix), loRow), inner, loOff, row)
		loRow++
	}
	if hiRow > loRow {
		start := append([]uint64{loRow}, make([]uint64, len(inner))...)
		count := append([]uint64{hiRow - loRow}, inner...)
		out = append(out, prefixed(prefix, start, count))
	}
	if hiOff != 0 {
		out = appendRangeBoxes(out, append(slices.Clone(prefix), hiRow), inner, 0, hiOff)
	}
	return out
}

func prefixed(prefix, start, count []uint64) Box {
	b := Box{
		Start: make([]uint64, 0, len(prefix)+len(start)),
		Count: make([]uint64, 0, len(prefix)+len(count)),
	}
	b.Start = append(append(b.Start, prefix...), start...)
	b.Count = append(b.Count, ones(len(prefix))...)
	b.Count = append(b.Count, count...)
	return b
}
