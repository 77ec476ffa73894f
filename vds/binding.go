package vds

import (
	"context"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-vds/selection"
	"github.com/robert-malhotra/go-vds/source"
)

// BindingState is the state of a mapping's handle on one source dataset.
type BindingState uint8

const (
	NotAttempted BindingState = iota
	Open
	KnownAbsent
)

func (s BindingState) String() string {
	switch s {
	case NotAttempted:
		return "not-attempted"
	case Open:
		return "open"
	case KnownAbsent:
		return "absent"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// binding is one concrete source dataset of a mapping.
type binding struct {
	file    string
	dataset string

	virtual        *selection.Selection
	clippedVirtual *selection.Selection // nil: no I/O through this binding
	clippedSource  *selection.Selection
	partial        bool // clipped selections are computed at I/O time

	state  BindingState
	ds     source.Dataset
	exists bool

	// projected is the memory selection this binding services during one
	// Read or Write call.
	projected *selection.Selection
}

func (b *binding) info(index uint64) BlockInfo {
	return BlockInfo{Index: index, File: b.file, Dataset: b.dataset, State: b.state, Exists: b.exists}
}

func (b *binding) clearClipped() {
	b.clippedVirtual, b.clippedSource, b.partial = nil, nil, false
}

// close releases the source dataset. The binding can be opened again.
func (b *binding) close() error {
	if b.state != Open {
		return nil
	}
	err := b.ds.Close()
	b.ds = nil
	b.state = NotAttempted
	return err
}

// forget lets a known-absent source be probed again.
func (b *binding) forget() {
	if b.state == KnownAbsent {
		b.state = NotAttempted
	}
}

// open opens the binding's source dataset unless it was already opened or
// found absent. A missing source is not an error.
func (l *Layout) open(ctx context.Context, m *Mapping, b *binding) error {
	if b.state != NotAttempted {
		return nil
	}
	ds, err := source.Open(ctx, l.backend, b.file, b.dataset, l.opts.access)
	if errors.Is(err, source.ErrAbsent) {
		b.state, b.exists = KnownAbsent, false
		l.metrics.opens.WithLabelValues("absent").Inc()
		l.logger.Debug().Str("file", b.file).Str("dataset", b.dataset).Msg("Source dataset not found")
		return nil
	}
	if err != nil {
		l.metrics.opens.WithLabelValues("error").Inc()
		return &IoError{Op: "open", File: b.file, Dataset: b.dataset, Err: err}
	}

	if err := l.checkSource(m, ds); err != nil {
		l.metrics.opens.WithLabelValues("error").Inc()
		return errors.Join(&IoError{Op: "open", File: b.file, Dataset: b.dataset, Err: err}, ds.Close())
	}
	b.ds, b.state, b.exists = ds, Open, true
	l.metrics.opens.WithLabelValues("open").Inc()
	l.logger.Debug().Str("file", b.file).Str("dataset", b.dataset).Uints64("dims", ds.Dims()).Msg("Opened source dataset")
	return nil
}

func (l *Layout) checkSource(m *Mapping, ds source.Dataset) error {
	if ds.ElementSize() != l.elemSize {
		return fmt.Errorf("%w: source %d bytes, virtual %d bytes", ErrElementSize, ds.ElementSize(), l.elemSize)
	}
	dims := ds.Dims()
	if r := m.source.Rank(); r != 0 && r != len(dims) {
		return fmt.Errorf("%w: source selection rank %d, dataset rank %d", selection.ErrRank, r, len(dims))
	}
	return m.patchSource(dims)
}
