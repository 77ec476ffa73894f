package selection

import (
	"fmt"
	"slices"
)

func checkRanks(a, b *Selection) error {
	if a.rank != 0 && b.rank != 0 && a.rank != b.rank {
		return fmt.Errorf("%w: %d and %d", ErrRank, a.rank, b.rank)
	}
	return nil
}

func resultExtent(a, b *Selection) []uint64 {
	if a.extent != nil {
		return a.extent
	}
	return b.extent
}

func resultRank(a, b *Selection) int {
	return max(a.rank, b.rank)
}

// Intersect returns the elements selected by both a and b, in a's extent.
func Intersect(a, b *Selection) (*Selection, error) {
	if err := checkRanks(a, b); err != nil {
		return nil, err
	}
	ext, rank := resultExtent(a, b), resultRank(a, b)
	if a.kind == KindNone || b.kind == KindNone {
		return None(ext).withRank(rank), nil
	}
	if a.kind == KindAll && b.kind == KindAll {
		return All(ext), nil
	}
	ab, err := a.boxList()
	if err != nil {
		return nil, err
	}
	bb, err := b.boxList()
	if err != nil {
		return nil, err
	}
	var out []Box
	for _, x := range ab {
		for _, y := range bb {
			if ov, ok := intersectBox(x, y); ok {
				out = append(out, ov)
			}
		}
	}
	if len(out) == len(ab) && sameBoxes(out, ab) {
		c := a.shallow()
		c.extent, c.rank = ext, rank
		return c, nil
	}
	return fromBoxes(ext, rank, out), nil
}

func sameBoxes(a, b []Box) bool {
	return slices.EqualFunc(a, b, func(x, y Box) bool {
		return slices.Equal(x.Start, y.Start) && slices.Equal(x.Count, y.Count)
	})
}

// Subtract returns the elements of a not selected by b, in a's extent.
func Subtract(a, b *Selection) (*Selection, error) {
	if err := checkRanks(a, b); err != nil {
		return nil, err
	}
	if b.kind == KindNone {
		return a.shallow(), nil
	}
	ab, err := a.boxList()
	if err != nil {
		return nil, err
	}
	bb, err := b.boxList()
	if err != nil {
		return nil, err
	}
	pieces := ab
	for _, y := range bb {
		pieces = subtractBoxes(pieces, y)
		if len(pieces) == 0 {
			break
		}
	}
	return fromBoxes(resultExtent(a, b), resultRank(a, b), pieces), nil
}

// Union returns the elements selected by a or b, in a's extent.
func Union(a, b *Selection) (*Selection, error) {
	if err := checkRanks(a, b); err != nil {
		return nil, err
	}
	if b.kind == KindNone {
		return a.shallow(), nil
	}
	if a.kind == KindNone {
		out := b.shallow()
		out.extent = resultExtent(a, b)
		return out, nil
	}
	ab, err := a.boxList()
	if err != nil {
		return nil, err
	}
	rest, err := Subtract(b, a)
	if err != nil {
		return nil, err
	}
	rb, err := rest.boxList()
	if err != nil {
		return nil, err
	}
	return fromBoxes(resultExtent(a, b), resultRank(a, b), append(ab, rb...)), nil
}

// ClipToExtent drops the elements outside the selection's extent.
func (s *Selection) ClipToExtent() (*Selection, error) {
	if s.extent == nil {
		return nil, ErrUnknownExtent
	}
	if s.kind == KindAll || s.kind == KindNone {
		return s.shallow(), nil
	}
	whole := All(s.extent)
	return Intersect(s, whole)
}

// Within reports whether every selected element lies inside extent.
func (s *Selection) Within(extent []uint64) bool {
	if s.IsEmpty() {
		return true
	}
	if s.kind == KindAll {
		return s.extent != nil && len(extent) == len(s.extent) && allLE(s.extent, extent)
	}
	_, end, err := s.Bounds()
	if err != nil || len(end) != len(extent) {
		return false
	}
	for i := range end {
		if end[i] == Unlimited || end[i] >= extent[i] {
			return false
		}
	}
	return true
}

func allLE(a, b []uint64) bool {
	for i := range a {
		if a[i] > b[i] {
			return false
		}
	}
	return true
}

// ProjectIntersection maps the part of src that lies in srcIntersect onto
// dst. src and dst must select the same number of elements; the i-th element
// of src (row-major) corresponds to the i-th element of dst. The result is
// the set of dst elements whose src counterpart is in srcIntersect, placed
// in dst's extent.
func ProjectIntersection(src, dst, srcIntersect *Selection) (*Selection, error) {
	if err := checkRanks(src, srcIntersect); err != nil {
		return nil, err
	}
	if src.IsUnlimited() || dst.IsUnlimited() {
		return nil, ErrUnlimited
	}
	if n, m := src.NumElements(), dst.NumElements(); n != m {
		return nil, fmt.Errorf("%w: source %d, destination %d", ErrCountMismatch, n, m)
	}

	isect, err := Intersect(src, srcIntersect)
	if err != nil {
		return nil, err
	}
	total := src.NumElements()
	got := isect.NumElements()
	switch {
	case got == 0:
		return None(dst.extent).withRank(dst.rank), nil
	case got == total:
		return dst.shallow(), nil
	}

	srcBoxes, err := src.boxList()
	if err != nil {
		return nil, err
	}
	srcExt := src.coverExtent(srcBoxes)
	srcRuns := boxRuns(srcBoxes, srcExt)

	inBoxes, err := isect.boxList()
	if err != nil {
		return nil, err
	}
	inRuns := boxRuns(inBoxes, srcExt)

	// Ordinal ranges of the intersection within src.
	type span struct{ lo, hi uint64 }
	var ords []span
	var base uint64
	si := 0
	for _, r := range inRuns {
		for si < len(srcRuns) && srcRuns[si].Offset+srcRuns[si].Length <= r.Offset {
			base += srcRuns[si].Length
			si++
		}
		if si == len(srcRuns) || r.Offset < srcRuns[si].Offset {
			return nil, fmt.Errorf("selection: intersection escapes source")
		}
		lo := base + (r.Offset - srcRuns[si].Offset)
		ords = append(ords, span{lo, lo + r.Length})
	}

	dstBoxes, err := dst.boxList()
	if err != nil {
		return nil, err
	}
	dstExt := dst.coverExtent(dstBoxes)
	dstRuns := boxRuns(dstBoxes, dstExt)

	// Map ordinals onto dst runs.
	var out []Run
	base = 0
	di := 0
	for _, o := range ords {
		lo := o.lo
		for lo < o.hi {
			for di < len(dstRuns) && base+dstRuns[di].Length <= lo {
				base += dstRuns[di].Length
				di++
			}
			if di == len(dstRuns) {
				return nil, fmt.Errorf("%w: destination exhausted", ErrCountMismatch)
			}
			r := dstRuns[di]
			n := min(o.hi, base+r.Length) - lo
			out = append(out, Run{Offset: r.Offset + (lo - base), Length: n})
			lo += n
		}
	}
	return fromBoxes(dst.extent, dst.rank, runBoxes(mergeRuns(out), dstExt)), nil
}
