package store

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/robert-malhotra/go-vds/internal/alloc"
	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/internal/layout"
	"github.com/robert-malhotra/go-vds/internal/message"
	"github.com/robert-malhotra/go-vds/internal/object"
	"github.com/robert-malhotra/go-vds/internal/superblock"
	"github.com/robert-malhotra/go-vds/selection"
)

// Errors
var (
	ErrInvalidSpec = errors.New("invalid dataset spec")
	ErrExceedsMax  = errors.New("dimensions exceed maximum dimensions")
)

// Spec describes a source dataset to create.
type Spec struct {
	Dims        []uint64
	MaxDims     []uint64 // nil means fixed at Dims; selection.Unlimited is extendible
	ElementSize int
	Fill        []byte // nil fills with zeros
}

func (s Spec) validate() error {
	if s.ElementSize <= 0 {
		return fmt.Errorf("%w: element size %d", ErrInvalidSpec, s.ElementSize)
	}
	if s.Fill != nil && len(s.Fill) != s.ElementSize {
		return fmt.Errorf("%w: fill value is %d bytes, element is %d", ErrInvalidSpec, len(s.Fill), s.ElementSize)
	}
	if s.MaxDims != nil {
		if len(s.MaxDims) != len(s.Dims) {
			return fmt.Errorf("%w: rank %d with %d maximum dimensions", ErrInvalidSpec, len(s.Dims), len(s.MaxDims))
		}
		if !fits(s.Dims, s.MaxDims) {
			return fmt.Errorf("%w: %v > %v", ErrExceedsMax, s.Dims, s.MaxDims)
		}
	}
	return nil
}

func fits(dims, maxDims []uint64) bool {
	for i := range dims {
		if maxDims[i] != selection.Unlimited && dims[i] > maxDims[i] {
			return false
		}
	}
	return true
}

// Meta is the parsed header of a stored dataset.
type Meta struct {
	Dataspace *message.Dataspace
	Datatype  *message.Datatype
	FillValue *message.FillValue
	Layout    *message.DataLayout
}

// Dims returns the current dimensions.
func (m *Meta) Dims() []uint64 { return slices.Clone(m.Dataspace.Dimensions) }

// MaxDims returns the maximum dimensions, defaulting to Dims.
func (m *Meta) MaxDims() []uint64 {
	if m.Dataspace.MaxDims == nil {
		return m.Dims()
	}
	return slices.Clone(m.Dataspace.MaxDims)
}

// Spec reconstructs the spec the dataset was created with, at its current
// dimensions.
func (m *Meta) Spec() Spec {
	return Spec{
		Dims:        m.Dims(),
		MaxDims:     slices.Clone(m.Dataspace.MaxDims),
		ElementSize: int(m.Datatype.Size),
		Fill:        m.FillValue.Value,
	}
}

func numElements(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

// Encode builds a container for spec. data holds the raw row-major
// elements; nil fills the dataset with the spec's fill value.
func Encode(spec Spec, data []byte) ([]byte, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	size := numElements(spec.Dims) * uint64(spec.ElementSize)
	if data != nil && uint64(len(data)) != size {
		return nil, fmt.Errorf("%w: %d bytes of data for %d", ErrInvalidSpec, len(data), size)
	}

	cfg := binary.DefaultConfig()
	sb := superblock.New(cfg)
	a := alloc.New(uint64(sb.Size()))

	dl := message.NewContiguousLayout(0, size)
	msgs := object.DatasetMessages(
		message.NewDataspace(slices.Clone(spec.Dims), slices.Clone(spec.MaxDims)),
		message.NewOpaque(uint32(spec.ElementSize)),
		&message.FillValue{Value: spec.Fill},
		dl,
	)
	sizer := binary.NewWriter(binary.NewBuffer(nil), cfg)
	hdrAddr := a.AllocAligned(uint64(object.HeaderSize(sizer, msgs)), 8, "object header")
	dl.Address = a.AllocAligned(size, 8, "raw data")
	if err := a.Validate(); err != nil {
		return nil, err
	}
	sb.RootAddress = hdrAddr
	sb.EOFAddress = a.EOF()

	buf := binary.NewBuffer(make([]byte, a.EOF()))
	if _, err := sb.Write(buf); err != nil {
		return nil, err
	}
	if _, err := object.WriteHeader(binary.NewWriter(buf, cfg).At(int64(hdrAddr)), msgs); err != nil {
		return nil, err
	}
	raw := buf.Bytes()[dl.Address : dl.Address+size]
	if data != nil {
		copy(raw, data)
	} else if err := layout.Fill(selection.All(spec.Dims), raw, spec.ElementSize, spec.Fill); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadMeta parses the container header from r.
func ReadMeta(r io.ReaderAt) (*Meta, error) {
	sb, err := superblock.Read(r)
	if err != nil {
		return nil, err
	}
	hdr, err := object.Read(binary.NewReader(r, sb.Config()), sb.RootAddress)
	if err != nil {
		return nil, err
	}
	ds, dt, fv, dl, err := hdr.Dataset()
	if err != nil {
		return nil, err
	}
	if dl.Class != message.LayoutContiguous {
		return nil, fmt.Errorf("%w: source datasets must be contiguous", message.ErrUnsupported)
	}
	return &Meta{Dataspace: ds, Datatype: dt, FillValue: fv, Layout: dl}, nil
}

// Resize rewrites a container at new dimensions, keeping every element
// inside both shapes.
func Resize(container []byte, dims []uint64) ([]byte, error) {
	r := binary.NewBuffer(container)
	meta, err := ReadMeta(r)
	if err != nil {
		return nil, err
	}
	spec := meta.Spec()
	if len(dims) != len(spec.Dims) {
		return nil, fmt.Errorf("%w: rank %d, dataset rank %d", ErrInvalidSpec, len(dims), len(spec.Dims))
	}
	if !fits(dims, meta.MaxDims()) {
		return nil, fmt.Errorf("%w: %v > %v", ErrExceedsMax, dims, meta.MaxDims())
	}
	old := make([]byte, meta.Layout.Size)
	if n, _ := r.ReadAt(old, int64(meta.Layout.Address)); n != len(old) {
		return nil, fmt.Errorf("raw data truncated: %d of %d bytes", n, len(old))
	}
	data, err := layout.Reshape(old, spec.Dims, dims, spec.ElementSize, spec.Fill)
	if err != nil {
		return nil, err
	}
	spec.Dims = slices.Clone(dims)
	return Encode(spec, data)
}
