package vds

import (
	"context"
	"fmt"

	"github.com/robert-malhotra/go-vds/internal/layout"
	"github.com/robert-malhotra/go-vds/selection"
)

type ioOp uint8

const (
	opRead ioOp = iota
	opWrite
)

func (op ioOp) String() string {
	if op == opWrite {
		return "write"
	}
	return "read"
}

// target is one source dataset serving part of a request.
type target struct {
	m *Mapping
	b *binding
}

// Read reads the elements of fileSel, a selection in the virtual dataset,
// into the elements of memSel within buf. Elements no source provides get
// the fill value.
func (l *Layout) Read(ctx context.Context, fileSel, memSel *selection.Selection, buf []byte) error {
	release, err := l.claim()
	if err != nil {
		return err
	}
	defer release()
	return l.transfer(ctx, opRead, fileSel, memSel, buf)
}

// Write writes the elements of memSel within buf to the elements of fileSel
// in the virtual dataset. Every element of fileSel must be backed by an
// existing source dataset; otherwise a *CoverageError is returned and
// nothing is written.
func (l *Layout) Write(ctx context.Context, fileSel, memSel *selection.Selection, buf []byte) error {
	release, err := l.claim()
	if err != nil {
		return err
	}
	defer release()
	return l.transfer(ctx, opWrite, fileSel, memSel, buf)
}

// ReadAll resolves the extent and reads the whole virtual dataset. It
// returns the dimensions read along with the row-major elements.
func (l *Layout) ReadAll(ctx context.Context) ([]uint64, []byte, error) {
	release, err := l.claim()
	if err != nil {
		return nil, nil, err
	}
	defer release()

	if err := l.resolve(ctx); err != nil {
		return nil, nil, err
	}
	dims := l.Dims()
	buf := make([]byte, numElements(dims)*uint64(l.elemSize))
	if err := l.transfer(ctx, opRead, selection.All(dims), selection.All(dims), buf); err != nil {
		return nil, nil, err
	}
	return dims, buf, nil
}

// ReadSlice reads the block of count elements starting at start.
func (l *Layout) ReadSlice(ctx context.Context, start, count []uint64) ([]byte, error) {
	release, err := l.claim()
	if err != nil {
		return nil, err
	}
	defer release()

	if l.state != Resolved {
		if err := l.resolve(ctx); err != nil {
			return nil, err
		}
	}
	fileSel, err := selection.Block(l.dims, start, count)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, numElements(count)*uint64(l.elemSize))
	if err := l.transfer(ctx, opRead, fileSel, selection.All(count), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func numElements(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

func (l *Layout) transfer(ctx context.Context, op ioOp, fileSel, memSel *selection.Selection, buf []byte) error {
	if l.opts.access.Parallel {
		return ErrParallelUnsupported
	}
	if l.state != Resolved {
		if err := l.resolve(ctx); err != nil {
			return err
		}
	}

	fileSel, err := fileSel.WithExtent(l.dims)
	if err != nil {
		return fmt.Errorf("file selection: %w", err)
	}
	if !fileSel.Within(l.dims) {
		return fmt.Errorf("%w: %v in %v", ErrOutOfBounds, fileSel, l.dims)
	}
	if !memSel.ExtentKnown() {
		return fmt.Errorf("memory selection: %w", selection.ErrUnknownExtent)
	}
	n := fileSel.NumElements()
	if m := memSel.NumElements(); m != n {
		return fmt.Errorf("%w: file %d, memory %d", selection.ErrCountMismatch, n, m)
	}
	if need := numElements(memSel.Extent()) * uint64(l.elemSize); uint64(len(buf)) < need {
		return fmt.Errorf("%w: have %d bytes, memory space needs %d", ErrBufferTooSmall, len(buf), need)
	}
	if n == 0 {
		return nil
	}

	targets, covered, err := l.project(ctx, fileSel, memSel)
	defer func() {
		for _, t := range targets {
			t.b.projected = nil
		}
	}()
	if err != nil {
		return err
	}
	l.metrics.mappingsPerRequest.Observe(float64(len(targets)))
	if op == opWrite {
		if covered != n {
			return &CoverageError{Requested: n, Covered: covered}
		}
		// Overlapping mappings can make the sum match while leaving a gap.
		rest, err := uncovered(memSel, targets)
		if err != nil {
			return err
		}
		if !rest.IsEmpty() {
			return &CoverageError{Requested: n, Covered: n - rest.NumElements()}
		}
	}
	l.logger.Debug().Stringer("op", op).Uint64("elements", n).Int("sources", len(targets)).Msg("Dispatching request")

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcSel, err := selection.ProjectIntersection(t.b.clippedVirtual, t.b.clippedSource, fileSel)
		if err != nil {
			return err
		}
		if op == opWrite {
			err = t.b.ds.WriteSelection(t.b.projected, srcSel, buf)
		} else {
			err = t.b.ds.ReadSelection(t.b.projected, srcSel, buf)
		}
		if err != nil {
			return &IoError{Op: op.String(), File: t.b.file, Dataset: t.b.dataset, Err: err}
		}
		l.metrics.elements.WithLabelValues(op.String()).Add(float64(t.b.projected.NumElements()))
	}

	if op == opRead && !l.opts.undefFill {
		return l.fill(memSel, targets, buf)
	}
	return nil
}

// project finds the source datasets that hold part of fileSel and records
// on each binding the part of memSel it services. It returns the bindings
// and how many elements they cover together.
func (l *Layout) project(ctx context.Context, fileSel, memSel *selection.Selection) ([]target, uint64, error) {
	var targets []target
	var covered uint64
	start, end, err := fileSel.Bounds()
	if err != nil {
		return nil, 0, err
	}

	for _, m := range l.mappings {
		if err := ctx.Err(); err != nil {
			return targets, 0, err
		}
		var candidates []*binding
		if m.Templated() {
			if candidates, err = l.candidates(m, start, end); err != nil {
				return targets, 0, err
			}
		} else {
			candidates = []*binding{m.single}
		}

		for _, b := range candidates {
			if err := l.clipPartial(ctx, m, b); err != nil {
				return targets, 0, err
			}
			if b.clippedVirtual == nil {
				continue
			}
			proj, err := selection.ProjectIntersection(fileSel, memSel, b.clippedVirtual)
			if err != nil {
				return targets, 0, err
			}
			if proj.IsEmpty() {
				continue
			}
			if err := l.open(ctx, m, b); err != nil {
				return targets, 0, err
			}
			if b.state != Open {
				continue
			}
			if !countable(b.clippedSource) {
				b.clippedSource = m.source
			}
			b.projected = proj
			targets = append(targets, target{m: m, b: b})
			covered += proj.NumElements()
		}
	}
	return targets, covered, nil
}

// candidates returns the blocks of a templated mapping that may intersect
// the bounding box from start to end.
func (l *Layout) candidates(m *Mapping, start, end []uint64) ([]*binding, error) {
	u := m.unlimVirtual
	first, _, err := m.virtual.FirstIncompleteBlock(start[u])
	if err != nil {
		return nil, err
	}
	last, partial, err := m.virtual.FirstIncompleteBlock(end[u] + 1)
	if err != nil {
		return nil, err
	}
	if partial {
		last++
	}
	last = min(last, m.used, uint64(len(m.blocks)))

	var out []*binding
	for j := first; j < last; j++ {
		if b := m.blocks[j]; b != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

// uncovered returns the elements of memSel no target services.
func uncovered(memSel *selection.Selection, targets []target) (*selection.Selection, error) {
	rest := memSel
	for _, t := range targets {
		var err error
		if rest, err = selection.Subtract(rest, t.b.projected); err != nil {
			return nil, err
		}
	}
	return rest, nil
}

// fill writes the fill value to the elements of memSel no source serviced.
func (l *Layout) fill(memSel *selection.Selection, targets []target, buf []byte) error {
	rest, err := uncovered(memSel, targets)
	if err != nil {
		return err
	}
	if rest.IsEmpty() {
		return nil
	}
	if err := layout.Fill(rest, buf, l.elemSize, l.opts.fill); err != nil {
		return err
	}
	l.metrics.elements.WithLabelValues("fill").Add(float64(rest.NumElements()))
	return nil
}
