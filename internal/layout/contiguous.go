package layout

import (
	"fmt"
	"io"
	"slices"

	"github.com/robert-malhotra/go-vds/internal/message"
	"github.com/robert-malhotra/go-vds/selection"
)

// Contiguous represents contiguous storage layout.
// Data is stored in a single row-major block in the file.
type Contiguous struct {
	address  uint64
	dims     []uint64
	elemSize int
	r        io.ReaderAt
	w        io.WriterAt // nil when read-only
}

// NewContiguous creates a contiguous layout handler. w may be nil.
func NewContiguous(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	r io.ReaderAt,
	w io.WriterAt,
) (*Contiguous, error) {
	if layout.Class != message.LayoutContiguous {
		return nil, fmt.Errorf("%w: layout class %d is not contiguous", message.ErrUnsupported, layout.Class)
	}
	c := &Contiguous{
		address:  layout.Address,
		dims:     slices.Clone(dataspace.Dimensions),
		elemSize: int(datatype.Size),
		r:        r,
		w:        w,
	}
	if want := c.Size(); layout.Size != want {
		return nil, fmt.Errorf("contiguous layout holds %d bytes, dataspace needs %d", layout.Size, want)
	}
	return c, nil
}

// Address returns the data address.
func (c *Contiguous) Address() uint64 { return c.address }

// Size returns the data size in bytes.
func (c *Contiguous) Size() uint64 {
	return numElements(c.dims) * uint64(c.elemSize)
}

// Dims returns the dataset dimensions.
func (c *Contiguous) Dims() []uint64 { return slices.Clone(c.dims) }

// ElementSize returns the element size in bytes.
func (c *Contiguous) ElementSize() int { return c.elemSize }

func (c *Contiguous) plan(mem, file *selection.Selection, buf []byte) ([]Step, error) {
	file, err := file.WithExtent(c.dims)
	if err != nil {
		return nil, fmt.Errorf("file selection: %w", err)
	}
	if err := CheckBuffer(mem, buf, c.elemSize); err != nil {
		return nil, err
	}
	return Plan(mem, file)
}

// ReadSelection reads the file elements of file into the memory elements of
// mem within buf.
func (c *Contiguous) ReadSelection(mem, file *selection.Selection, buf []byte) error {
	steps, err := c.plan(mem, file, buf)
	if err != nil {
		return err
	}
	es := uint64(c.elemSize)
	for _, s := range steps {
		dst := buf[s.Mem*es : (s.Mem+s.Count)*es]
		if _, err := c.r.ReadAt(dst, int64(c.address+s.File*es)); err != nil {
			return fmt.Errorf("reading contiguous data: %w", err)
		}
	}
	return nil
}

// WriteSelection writes the memory elements of mem within buf to the file
// elements of file.
func (c *Contiguous) WriteSelection(mem, file *selection.Selection, buf []byte) error {
	if c.w == nil {
		return ErrReadOnly
	}
	steps, err := c.plan(mem, file, buf)
	if err != nil {
		return err
	}
	es := uint64(c.elemSize)
	for _, s := range steps {
		src := buf[s.Mem*es : (s.Mem+s.Count)*es]
		if _, err := c.w.WriteAt(src, int64(c.address+s.File*es)); err != nil {
			return fmt.Errorf("writing contiguous data: %w", err)
		}
	}
	return nil
}
