package message

import (
	"fmt"

	"github.com/robert-malhotra/go-vds/internal/binary"
)

// Unlimited marks an unbounded maximum dimension.
const Unlimited = ^uint64(0)

// DataspaceType represents the type of dataspace.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0 // Single element
	DataspaceSimple DataspaceType = 1 // Regular N-dimensional array
	DataspaceNull   DataspaceType = 2 // No data
)

// Dataspace represents a dataspace message (type 0x0001).
type Dataspace struct {
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil means same as Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// Rank returns the number of dimensions.
func (m *Dataspace) Rank() int { return len(m.Dimensions) }

// NumElements returns the total number of elements in the dataspace.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	default:
		return 0
	}
}

// NewDataspace creates a simple dataspace. maxDims may be nil.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{
		SpaceType:  DataspaceSimple,
		Dimensions: dims,
		MaxDims:    maxDims,
	}
}

func parseDataspace(data []byte, r *binary.Reader) (*Dataspace, error) {
	if len(data) < 4 {
		return nil, ErrTruncated
	}
	if data[0] != 2 {
		return nil, fmt.Errorf("%w: dataspace version %d", ErrUnsupported, data[0])
	}
	rank := int(data[1])
	hasMax := data[2]&0x01 != 0
	ds := &Dataspace{SpaceType: DataspaceType(data[3])}
	if ds.SpaceType != DataspaceSimple {
		return ds, nil
	}

	n := r.LengthSize()
	want := 4 + rank*n
	if hasMax {
		want += rank * n
	}
	if len(data) < want {
		return nil, ErrTruncated
	}

	read := func(off int) uint64 {
		v := binary.DecodeUint(data[off:], n, r.ByteOrder())
		if n < 8 && v == uint64(1)<<(8*n)-1 {
			return Unlimited
		}
		return v
	}
	ds.Dimensions = make([]uint64, rank)
	for i := range ds.Dimensions {
		ds.Dimensions[i] = binary.DecodeUint(data[4+i*n:], n, r.ByteOrder())
	}
	if hasMax {
		ds.MaxDims = make([]uint64, rank)
		for i := range ds.MaxDims {
			ds.MaxDims[i] = read(4 + (rank+i)*n)
		}
	}
	return ds, nil
}

// Serialize writes a version 2 dataspace.
func (m *Dataspace) Serialize(w *binary.Writer) error {
	flags := uint8(0)
	if m.MaxDims != nil {
		flags |= 0x01
	}
	for _, b := range []uint8{2, uint8(len(m.Dimensions)), flags, uint8(m.SpaceType)} {
		if err := w.WriteUint8(b); err != nil {
			return err
		}
	}
	for _, d := range m.Dimensions {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	for _, d := range m.MaxDims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the size in bytes when serialized.
func (m *Dataspace) SerializedSize(w *binary.Writer) int {
	return 4 + (len(m.Dimensions)+len(m.MaxDims))*w.LengthSize()
}
