package vds

import (
	"errors"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-vds/internal/alloc"
	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/internal/heap"
	"github.com/robert-malhotra/go-vds/internal/message"
	"github.com/robert-malhotra/go-vds/internal/object"
	"github.com/robert-malhotra/go-vds/internal/superblock"
	"github.com/robert-malhotra/go-vds/source"
)

// ErrNotVirtual is returned by Load for a container holding a dataset that
// is not virtual.
var ErrNotVirtual = errors.New("dataset layout is not virtual")

// Save writes a descriptor of l to w: its current dimensions, element
// size, fill value and mappings. A saved layout is no longer dirty.
func Save(w io.Writer, l *Layout) error {
	release, err := l.claim()
	if err != nil {
		return err
	}
	defer release()

	cfg := binary.DefaultConfig()
	entries := make([]message.MappingEntry, len(l.mappings))
	for i, m := range l.mappings {
		entries[i] = message.MappingEntry{
			SourceFile:    m.fileTmpl.String(),
			SourceDataset: m.dsetTmpl.String(),
			Source:        m.source,
			Virtual:       m.virtual,
		}
	}
	block, err := message.EncodeMappingBlock(entries, cfg)
	if err != nil {
		return fmt.Errorf("encoding mappings: %w", err)
	}

	sb := superblock.New(cfg)
	a := alloc.New(uint64(sb.Size()))
	buf := binary.NewBuffer(nil)
	bw := binary.NewWriter(buf, cfg)

	fv := &message.FillValue{Undefined: l.opts.undefFill, Value: l.opts.fill}
	dl := message.NewVirtualLayout(0, 0)
	msgs := object.DatasetMessages(
		message.NewDataspace(l.Dims(), l.MaxDims()),
		message.NewOpaque(uint32(l.elemSize)),
		fv,
		dl,
	)
	hdrAddr := a.AllocAligned(uint64(object.HeaderSize(bw, msgs)), 8, "object header")

	hw := heap.NewWriter(bw, a.Func("global heap"))
	dl.HeapIndex = hw.Add(block)
	if dl.HeapAddress, err = hw.Write(); err != nil {
		return fmt.Errorf("writing mapping block: %w", err)
	}
	if _, err := object.WriteHeader(bw.At(int64(hdrAddr)), msgs); err != nil {
		return fmt.Errorf("writing object header: %w", err)
	}
	if err := a.Validate(); err != nil {
		return err
	}
	sb.RootAddress = hdrAddr
	sb.EOFAddress = a.EOF()
	if _, err := sb.Write(buf); err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	l.dirty = false
	return nil
}

// Load reads a descriptor written by Save and builds a layout over
// backend. The stored fill value applies unless opts override it.
func Load(r io.ReaderAt, backend source.Backend, opts ...Option) (*Layout, error) {
	sb, err := superblock.Read(r)
	if err != nil {
		return nil, err
	}
	br := binary.NewReader(r, sb.Config())
	hdr, err := object.Read(br, sb.RootAddress)
	if err != nil {
		return nil, err
	}
	ds, dt, fv, dl, err := hdr.Dataset()
	if err != nil {
		return nil, err
	}
	if !dl.IsVirtual() {
		return nil, fmt.Errorf("%w: layout class %d", ErrNotVirtual, dl.Class)
	}
	block, err := heap.ReadObject(br, heap.ID{Collection: dl.HeapAddress, Index: dl.HeapIndex})
	if err != nil {
		return nil, fmt.Errorf("reading mapping block: %w", err)
	}
	entries, err := message.DecodeMappingBlock(block, sb.Config())
	if err != nil {
		return nil, err
	}

	mappings := make([]*Mapping, len(entries))
	for i, e := range entries {
		if mappings[i], err = NewMapping(e.Virtual, e.Source, e.SourceFile, e.SourceDataset); err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
	}

	stored := WithFillValue(fv.Value)
	if fv.Undefined {
		stored = WithUndefinedFill()
	}
	shape := Shape{Dims: ds.Dimensions, MaxDims: ds.MaxDims, ElementSize: int(dt.Size)}
	return NewLayout(backend, shape, mappings, append([]Option{stored}, opts...)...)
}
