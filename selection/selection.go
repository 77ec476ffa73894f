package selection

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Unlimited marks an unlimited count (and an unbounded end coordinate).
const Unlimited uint64 = math.MaxUint64

// Errors
var (
	ErrRank           = errors.New("selection: rank mismatch")
	ErrInvalid        = errors.New("selection: invalid hyperslab")
	ErrUnlimited      = errors.New("selection: operation requires a limited selection")
	ErrNotUnlimited   = errors.New("selection: operation requires an unlimited regular hyperslab")
	ErrUnknownExtent  = errors.New("selection: extent is unknown")
	ErrEmpty          = errors.New("selection: selection is empty")
	ErrCountMismatch  = errors.New("selection: element counts differ")
	ErrOutOfExtent    = errors.New("selection: selection exceeds extent")
	ErrEncoding       = errors.New("selection: malformed encoding")
	ErrNotEncodable   = errors.New("selection: coordinates too large to encode")
	ErrKindNotAllowed = errors.New("selection: selection kind not allowed")
)

// Kind is the selection type. Values match the HDF5 serialized type codes.
type Kind uint8

const (
	KindNone      Kind = 0
	KindPoints    Kind = 1
	KindHyperslab Kind = 2
	KindAll       Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPoints:
		return "points"
	case KindHyperslab:
		return "hyperslab"
	case KindAll:
		return "all"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Dim describes one dimension of a regular hyperslab.
type Dim struct {
	Start  uint64
	Stride uint64
	Count  uint64 // Unlimited for an open-ended pattern
	Block  uint64
}

// end returns one past the last selected index.
func (d Dim) end() uint64 {
	return d.Start + (d.Count-1)*d.Stride + d.Block
}

// Box is an N-dimensional rectangle of Count[i] indices starting at Start[i].
type Box struct {
	Start []uint64
	Count []uint64
}

func (b Box) clone() Box {
	return Box{Start: slices.Clone(b.Start), Count: slices.Clone(b.Count)}
}

func (b Box) numElements() uint64 {
	n := uint64(1)
	for _, c := range b.Count {
		n *= c
	}
	return n
}

// Selection is an immutable set of elements in an N-dimensional space.
type Selection struct {
	kind    Kind
	rank    int
	extent  []uint64 // nil when unknown
	regular []Dim    // regular hyperslabs
	boxes   []Box    // irregular hyperslabs; disjoint, sorted by start
	points  [][]uint64
}

// All selects every element of extent.
func All(extent []uint64) *Selection {
	return &Selection{kind: KindAll, rank: len(extent), extent: slices.Clone(extent)}
}

// None selects nothing in a space of the given extent.
func None(extent []uint64) *Selection {
	return &Selection{kind: KindNone, rank: len(extent), extent: slices.Clone(extent)}
}

// Points selects the given coordinates. Duplicates are dropped and the points
// are kept in row-major order.
func Points(extent []uint64, coords ...[]uint64) (*Selection, error) {
	if len(coords) == 0 {
		return None(extent), nil
	}
	rank := len(coords[0])
	if extent != nil && len(extent) != rank {
		return nil, fmt.Errorf("%w: point rank %d, extent rank %d", ErrRank, rank, len(extent))
	}
	pts := make([][]uint64, 0, len(coords))
	for _, c := range coords {
		if len(c) != rank {
			return nil, fmt.Errorf("%w: points of rank %d and %d", ErrRank, rank, len(c))
		}
		pts = append(pts, slices.Clone(c))
	}
	slices.SortFunc(pts, func(a, b []uint64) int { return slices.Compare(a, b) })
	pts = slices.CompactFunc(pts, func(a, b []uint64) bool { return slices.Equal(a, b) })
	return &Selection{kind: KindPoints, rank: rank, extent: slices.Clone(extent), points: pts}, nil
}

// Hyperslab builds a regular hyperslab. extent may be nil when the space is
// not yet known. A zero count or block in any dimension yields None.
func Hyperslab(extent []uint64, dims []Dim) (*Selection, error) {
	if extent != nil && len(extent) != len(dims) {
		return nil, fmt.Errorf("%w: %d dims, extent rank %d", ErrRank, len(dims), len(extent))
	}
	norm := make([]Dim, len(dims))
	unlimited := 0
	for i, d := range dims {
		if d.Count == 0 || d.Block == 0 {
			return None(extent).withRank(len(dims)), nil
		}
		if d.Block == Unlimited {
			return nil, fmt.Errorf("%w: unlimited block in dimension %d", ErrInvalid, i)
		}
		if d.Stride == 0 {
			if d.Count > 1 {
				return nil, fmt.Errorf("%w: zero stride in dimension %d", ErrInvalid, i)
			}
			d.Stride = 1
		}
		if d.Count > 1 && d.Stride < d.Block {
			return nil, fmt.Errorf("%w: overlapping blocks in dimension %d", ErrInvalid, i)
		}
		if d.Start > Unlimited-d.Block {
			return nil, fmt.Errorf("%w: dimension %d overflows", ErrInvalid, i)
		}
		if d.Count == Unlimited {
			unlimited++
		} else if (d.Count-1) > (Unlimited-d.Start-d.Block)/d.Stride {
			return nil, fmt.Errorf("%w: dimension %d overflows", ErrInvalid, i)
		}
		norm[i] = d
	}
	if unlimited > 1 {
		return nil, fmt.Errorf("%w: more than one unlimited dimension", ErrInvalid)
	}
	return &Selection{kind: KindHyperslab, rank: len(dims), extent: slices.Clone(extent), regular: norm}, nil
}

// Block selects the single box [start, start+count).
func Block(extent, start, count []uint64) (*Selection, error) {
	if len(start) != len(count) {
		return nil, fmt.Errorf("%w: start rank %d, count rank %d", ErrRank, len(start), len(count))
	}
	dims := make([]Dim, len(start))
	for i := range start {
		dims[i] = Dim{Start: start[i], Stride: 1, Count: 1, Block: count[i]}
	}
	return Hyperslab(extent, dims)
}

// Boxes builds an irregular hyperslab from possibly overlapping boxes.
func Boxes(extent []uint64, boxes []Box) (*Selection, error) {
	if len(boxes) == 0 {
		return None(extent), nil
	}
	rank := len(boxes[0].Start)
	var out []Box
	for _, b := range boxes {
		if len(b.Start) != rank || len(b.Count) != rank {
			return nil, fmt.Errorf("%w: box rank", ErrRank)
		}
		if b.numElements() == 0 {
			continue
		}
		pieces := []Box{b.clone()}
		for _, have := range out {
			pieces = subtractBoxes(pieces, have)
		}
		out = append(out, pieces...)
	}
	return fromBoxes(extent, rank, out), nil
}

// fromBoxes wraps disjoint boxes, taking ownership of them.
func fromBoxes(extent []uint64, rank int, boxes []Box) *Selection {
	if len(boxes) == 0 {
		return None(extent).withRank(rank)
	}
	sortBoxes(boxes)
	return &Selection{kind: KindHyperslab, rank: rank, extent: slices.Clone(extent), boxes: boxes}
}

func (s *Selection) withRank(rank int) *Selection {
	s.rank = rank
	return s
}

// Kind returns the selection type.
func (s *Selection) Kind() Kind { return s.kind }

// Rank returns the dimensionality. All and None selections decoded from
// storage report 0 until an extent is attached.
func (s *Selection) Rank() int { return s.rank }

// Extent returns a copy of the space extent, or nil if unknown.
func (s *Selection) Extent() []uint64 { return slices.Clone(s.extent) }

// ExtentKnown reports whether the space extent has been set.
func (s *Selection) ExtentKnown() bool { return s.extent != nil }

// WithExtent returns the same selection placed in a space of the given extent.
func (s *Selection) WithExtent(extent []uint64) (*Selection, error) {
	if extent == nil {
		return nil, fmt.Errorf("%w: nil extent", ErrUnknownExtent)
	}
	if s.rank != 0 && len(extent) != s.rank {
		return nil, fmt.Errorf("%w: selection rank %d, extent rank %d", ErrRank, s.rank, len(extent))
	}
	c := s.shallow()
	c.rank = len(extent)
	c.extent = slices.Clone(extent)
	return c, nil
}

// shallow copies the header; element slices are never mutated so they can be
// shared between copies.
func (s *Selection) shallow() *Selection {
	c := *s
	return &c
}

// Regular returns the per-dimension description of a regular hyperslab.
func (s *Selection) Regular() ([]Dim, bool) {
	if s.kind != KindHyperslab || s.regular == nil {
		return nil, false
	}
	return slices.Clone(s.regular), true
}

// IsUnlimited reports whether the selection has an unlimited count.
func (s *Selection) IsUnlimited() bool {
	return s.UnlimitedDim() >= 0
}

// UnlimitedDim returns the index of the unlimited dimension, or -1.
func (s *Selection) UnlimitedDim() int {
	for i, d := range s.regular {
		if d.Count == Unlimited {
			return i
		}
	}
	return -1
}

// NumElements returns the number of selected elements, Unlimited for an
// unlimited selection. An All selection with unknown extent reports 0.
func (s *Selection) NumElements() uint64 {
	switch s.kind {
	case KindNone:
		return 0
	case KindAll:
		if s.extent == nil {
			return 0
		}
		n := uint64(1)
		for _, e := range s.extent {
			n *= e
		}
		return n
	case KindPoints:
		return uint64(len(s.points))
	}
	if s.regular != nil {
		if s.IsUnlimited() {
			return Unlimited
		}
		n := uint64(1)
		for _, d := range s.regular {
			n *= d.Count * d.Block
		}
		return n
	}
	var n uint64
	for _, b := range s.boxes {
		n += b.numElements()
	}
	return n
}

// NumElementsNonUnlimited returns the number of elements in one slice
// across the unlimited dimension, or NumElements for a limited selection.
func (s *Selection) NumElementsNonUnlimited() uint64 {
	u := s.UnlimitedDim()
	if u < 0 {
		return s.NumElements()
	}
	n := uint64(1)
	for i, d := range s.regular {
		if i != u {
			n *= d.Count * d.Block
		}
	}
	return n
}

// Bounds returns the inclusive bounding box of the selection. The end
// coordinate in an unlimited dimension is Unlimited.
func (s *Selection) Bounds() (start, end []uint64, err error) {
	switch s.kind {
	case KindNone:
		return nil, nil, ErrEmpty
	case KindAll:
		if s.extent == nil {
			return nil, nil, ErrUnknownExtent
		}
		start = make([]uint64, s.rank)
		end = make([]uint64, s.rank)
		for i, e := range s.extent {
			if e == 0 {
				return nil, nil, ErrEmpty
			}
			end[i] = e - 1
		}
		return start, end, nil
	case KindPoints:
		start = slices.Clone(s.points[0])
		end = slices.Clone(s.points[0])
		for _, p := range s.points[1:] {
			for i, c := range p {
				start[i] = min(start[i], c)
				end[i] = max(end[i], c)
			}
		}
		return start, end, nil
	}
	if s.regular != nil {
		start = make([]uint64, s.rank)
		end = make([]uint64, s.rank)
		for i, d := range s.regular {
			start[i] = d.Start
			if d.Count == Unlimited {
				end[i] = Unlimited
			} else {
				end[i] = d.end() - 1
			}
		}
		return start, end, nil
	}
	start = slices.Clone(s.boxes[0].Start)
	end = make([]uint64, s.rank)
	for _, b := range s.boxes {
		for i := range b.Start {
			start[i] = min(start[i], b.Start[i])
			end[i] = max(end[i], b.Start[i]+b.Count[i]-1)
		}
	}
	return start, end, nil
}

// IsEmpty reports whether the selection has no elements.
func (s *Selection) IsEmpty() bool {
	return s.kind == KindNone || (!s.IsUnlimited() && s.NumElements() == 0)
}

// Equal reports whether two selections select the same elements with the
// same description. Extents are ignored.
func Equal(a, b *Selection) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNone, KindAll:
		return true
	case KindPoints:
		return slices.EqualFunc(a.points, b.points, func(x, y []uint64) bool { return slices.Equal(x, y) })
	}
	if (a.regular == nil) != (b.regular == nil) {
		return false
	}
	if a.regular != nil {
		return slices.Equal(a.regular, b.regular)
	}
	return slices.EqualFunc(a.boxes, b.boxes, func(x, y Box) bool {
		return slices.Equal(x.Start, y.Start) && slices.Equal(x.Count, y.Count)
	})
}

func (s *Selection) String() string {
	var sb strings.Builder
	sb.WriteString(s.kind.String())
	switch {
	case s.kind == KindPoints:
		fmt.Fprintf(&sb, "(%d)", len(s.points))
	case s.regular != nil:
		sb.WriteString("{")
		for i, d := range s.regular {
			if i > 0 {
				sb.WriteString(", ")
			}
			count := fmt.Sprint(d.Count)
			if d.Count == Unlimited {
				count = "UNLIM"
			}
			fmt.Fprintf(&sb, "%d:%d:%s:%d", d.Start, d.Stride, count, d.Block)
		}
		sb.WriteString("}")
	case s.kind == KindHyperslab:
		fmt.Fprintf(&sb, "[%d boxes]", len(s.boxes))
	}
	if s.extent != nil {
		fmt.Fprintf(&sb, " in %v", s.extent)
	}
	return sb.String()
}
