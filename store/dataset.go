package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-vds/internal/layout"
	"github.com/robert-malhotra/go-vds/selection"
	"github.com/robert-malhotra/go-vds/source"
)

// Storage is the random-access bytes of one dataset container.
type Storage interface {
	io.ReaderAt
	io.WriterAt

	// Flush persists writes made through WriteAt.
	Flush() error

	// Reload picks up changes made through other handles.
	Reload() error

	Close() error
}

// Dataset serves source.Dataset over a Storage.
type Dataset struct {
	name     string
	file     *File
	st       Storage
	readOnly bool
	meta     *Meta
	data     *layout.Contiguous
	closed   bool
}

var _ source.Dataset = (*Dataset)(nil)

// OpenDataset parses the container in st. On success the dataset owns st
// and one reference on file; on failure the caller keeps both.
func OpenDataset(name string, file *File, st Storage, readOnly bool) (*Dataset, error) {
	d := &Dataset{name: name, file: file, st: st, readOnly: readOnly}
	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) load() error {
	meta, err := ReadMeta(d.st)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", d.name, err)
	}
	var w io.WriterAt
	if !d.readOnly {
		w = d.st
	}
	data, err := layout.NewContiguous(meta.Layout, meta.Dataspace, meta.Datatype, d.st, w)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", d.name, err)
	}
	d.meta, d.data = meta, data
	return nil
}

func (d *Dataset) Name() string { return d.name }
func (d *Dataset) File() source.File { return d.file }
func (d *Dataset) Dims() []uint64 { return d.meta.Dims() }
func (d *Dataset) MaxDims() []uint64 { return d.meta.MaxDims() }
func (d *Dataset) ElementSize() int { return d.data.ElementSize() }
func (d *Dataset) Meta() *Meta { return d.meta }

// ReadSelection implements source.Dataset.
func (d *Dataset) ReadSelection(mem, file *selection.Selection, buf []byte) error {
	if d.closed {
		return source.ErrClosed
	}
	return d.data.ReadSelection(mem, file, buf)
}

// WriteSelection implements source.Dataset.
func (d *Dataset) WriteSelection(mem, file *selection.Selection, buf []byte) error {
	switch {
	case d.closed:
		return source.ErrClosed
	case d.readOnly:
		return source.ErrReadOnly
	}
	if err := d.data.WriteSelection(mem, file, buf); err != nil {
		return err
	}
	return d.st.Flush()
}

// Refresh implements source.Dataset.
func (d *Dataset) Refresh(ctx context.Context) error {
	if d.closed {
		return source.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.st.Reload(); err != nil {
		return fmt.Errorf("dataset %s: %w", d.name, err)
	}
	return d.load()
}

// Close implements source.Dataset.
func (d *Dataset) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return errors.Join(d.st.Close(), d.file.Release())
}
