package vds

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/robert-malhotra/go-vds/selection"
	"github.com/robert-malhotra/go-vds/source"
)

// Shape describes the virtual dataset's space and elements.
type Shape struct {
	Dims        []uint64
	MaxDims     []uint64 // nil means fixed at Dims; selection.Unlimited is extendible
	ElementSize int
}

// ResolveState tracks extent resolution.
type ResolveState uint8

const (
	Uninitialized ResolveState = iota
	PartiallyResolved
	Resolved
)

func (s ResolveState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case PartiallyResolved:
		return "partially-resolved"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Layout is a virtual dataset: its space, its mappings, and the open source
// datasets behind them. A Layout is not safe for concurrent use; a second
// caller entering while another operation runs gets ErrConcurrentAccess.
type Layout struct {
	backend  source.Backend
	opts     *options
	logger   zerolog.Logger
	metrics  *metrics
	mappings []*Mapping

	elemSize int
	dims     []uint64
	maxDims  []uint64
	minDims  []uint64

	state  ResolveState
	dirty  bool
	closed bool
	busy   atomic.Bool
}

// NewLayout builds a virtual dataset over backend. Mappings are copied; the
// layout owns its copies and their source handles. Nothing is built unless
// every mapping fits the shape.
func NewLayout(backend source.Backend, shape Shape, mappings []*Mapping, opts ...Option) (*Layout, error) {
	const op = "new layout"
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if backend == nil {
		return nil, validationErr(op, "no source backend")
	}
	if shape.ElementSize <= 0 {
		return nil, validationErr(op, "element size %d", shape.ElementSize)
	}
	if o.fill != nil && len(o.fill) != shape.ElementSize {
		return nil, validationErr(op, "fill value is %d bytes, element is %d", len(o.fill), shape.ElementSize)
	}
	rank := len(shape.Dims)
	maxDims := slices.Clone(shape.MaxDims)
	if maxDims == nil {
		maxDims = slices.Clone(shape.Dims)
	}
	if len(maxDims) != rank {
		return nil, validationErr(op, "rank %d with %d maximum dimensions", rank, len(maxDims))
	}
	for i := range shape.Dims {
		if maxDims[i] != selection.Unlimited && shape.Dims[i] > maxDims[i] {
			return nil, validationErr(op, "dimensions %v exceed maximum %v", shape.Dims, maxDims)
		}
	}

	built := make([]*Mapping, 0, len(mappings))
	minDims := make([]uint64, rank)
	for i, m := range mappings {
		if r := m.virtual.Rank(); r != 0 && r != rank {
			return nil, validationErr(op, "mapping %d: virtual selection rank %d, dataset rank %d", i, r, rank)
		}
		c, err := m.clone(shape.Dims)
		if err != nil {
			return nil, &ValidationError{Op: op, Reason: fmt.Sprintf("mapping %d", i), Err: err}
		}
		if u := c.unlimVirtual; u >= 0 && maxDims[u] != selection.Unlimited {
			return nil, validationErr(op, "mapping %d: unlimited in dimension %d, which is not extendible", i, u)
		}
		c.minDims(minDims)
		built = append(built, c)
	}
	for i := range minDims {
		if shape.Dims[i] < minDims[i] {
			return nil, validationErr(op, "dimensions %v too small for mapped region %v", shape.Dims, minDims)
		}
	}

	l := &Layout{
		backend:  backend,
		opts:     o,
		logger:   o.logger.With().Str("module", "vds").Logger(),
		mappings: built,
		elemSize: shape.ElementSize,
		dims:     slices.Clone(shape.Dims),
		maxDims:  maxDims,
		minDims:  minDims,
	}
	var err error
	if l.metrics, err = newMetrics(o.registerer); err != nil {
		return nil, err
	}
	return l, nil
}

// clone copies the mapping's definition with fresh resolution state and
// places its virtual selection in a space of extent.
func (m *Mapping) clone(extent []uint64) (*Mapping, error) {
	virtual, err := m.virtual.WithExtent(extent)
	if err != nil {
		return nil, err
	}
	c := &Mapping{
		virtual:      virtual,
		source:       m.source,
		fileTmpl:     m.fileTmpl,
		dsetTmpl:     m.dsetTmpl,
		unlimVirtual: m.unlimVirtual,
		unlimSource:  m.unlimSource,
	}
	if !c.Templated() {
		c.single = &binding{file: m.fileTmpl.Build(0), dataset: m.dsetTmpl.Build(0), virtual: virtual}
	}
	return c, nil
}

func (l *Layout) claim() (release func(), err error) {
	if !l.busy.CompareAndSwap(false, true) {
		return nil, ErrConcurrentAccess
	}
	if l.closed {
		l.busy.Store(false)
		return nil, ErrClosed
	}
	return func() { l.busy.Store(false) }, nil
}

// Dims returns the current dimensions.
func (l *Layout) Dims() []uint64 { return slices.Clone(l.dims) }

// MaxDims returns the maximum dimensions.
func (l *Layout) MaxDims() []uint64 { return slices.Clone(l.maxDims) }

// MinDims returns the smallest dimensions that hold every limited part of
// every mapping.
func (l *Layout) MinDims() []uint64 { return slices.Clone(l.minDims) }

// ElementSize returns the element size in bytes.
func (l *Layout) ElementSize() int { return l.elemSize }

// Mappings returns the layout's mappings in declaration order.
func (l *Layout) Mappings() []*Mapping { return slices.Clone(l.mappings) }

// View returns the view policy.
func (l *Layout) View() View { return l.opts.view }

// Gap returns the templated-mapping gap tolerance.
func (l *Layout) Gap() uint64 { return l.opts.gap }

// AccessOptions returns the options used to open source datasets.
func (l *Layout) AccessOptions() source.AccessOptions { return l.opts.access }

// FillValue returns the fill value and whether one is defined. A defined
// nil value means zeros.
func (l *Layout) FillValue() ([]byte, bool) {
	return slices.Clone(l.opts.fill), !l.opts.undefFill
}

// State returns the resolution state.
func (l *Layout) State() ResolveState { return l.state }

// Dirty reports whether the dimensions changed since the layout was built,
// loaded or saved.
func (l *Layout) Dirty() bool { return l.dirty }

// Close closes every open source dataset. The layout is unusable afterwards.
func (l *Layout) Close() error {
	release, err := l.claim()
	if err != nil {
		return err
	}
	defer release()

	var errs []error
	for _, m := range l.mappings {
		for _, b := range m.bindings() {
			if err := b.close(); err != nil {
				errs = append(errs, &IoError{Op: "close", File: b.file, Dataset: b.dataset, Err: err})
			}
		}
	}
	l.closed = true
	return errors.Join(errs...)
}
