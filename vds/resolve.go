package vds

import (
	"context"
	"slices"

	"github.com/robert-malhotra/go-vds/selection"
)

// Resolve computes the current dimensions from the mappings and returns
// them. Missing source datasets contribute nothing; they are not errors.
func (l *Layout) Resolve(ctx context.Context) ([]uint64, error) {
	release, err := l.claim()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := l.resolve(ctx); err != nil {
		return nil, err
	}
	return l.Dims(), nil
}

func (l *Layout) resolve(ctx context.Context) error {
	l.state = PartiallyResolved

	newDims := slices.Clone(l.dims)
	contributed := make([]bool, len(newDims))
	for i, m := range l.mappings {
		if err := ctx.Err(); err != nil {
			return err
		}
		u := m.unlimVirtual
		if u < 0 {
			m.single.forget()
			continue
		}
		var clip uint64
		var err error
		if m.Templated() {
			clip, err = l.scanBlocks(ctx, i, m)
		} else {
			clip, err = l.probeSource(ctx, i, m)
		}
		if err != nil {
			return err
		}
		switch {
		case !contributed[u]:
			newDims[u], contributed[u] = clip, true
		case l.opts.view == FirstMissing && clip < newDims[u]:
			newDims[u] = clip
		case l.opts.view == LastAvailable && clip > newDims[u]:
			newDims[u] = clip
		}
	}
	for i := range newDims {
		if contributed[i] && newDims[i] < l.minDims[i] {
			newDims[i] = l.minDims[i]
		}
	}

	if !slices.Equal(newDims, l.dims) {
		l.logger.Debug().Uints64("from", l.dims).Uints64("dims", newDims).Stringer("view", l.opts.view).Msg("Virtual extent changed")
		l.metrics.extentChanges.Inc()
		l.dims = newDims
		l.dirty = true
	}

	for _, m := range l.mappings {
		if err := l.clip(m); err != nil {
			return err
		}
	}
	l.state = Resolved
	return nil
}

// probeSource returns the extent a non-templated unlimited mapping supports
// in its virtual unlimited dimension.
func (l *Layout) probeSource(ctx context.Context, i int, m *Mapping) (uint64, error) {
	b := m.single
	b.forget()
	if err := l.open(ctx, m, b); err != nil {
		return 0, err
	}
	if b.state != Open {
		m.srcExtentValid, m.clipSize = false, 0
		return 0, nil
	}

	ext := b.ds.Dims()[m.unlimSource]
	if m.srcExtentValid && ext == m.srcExtent {
		return m.clipSize, nil
	}
	clip, err := m.virtual.ClipExtentMatch(m.source, ext, l.opts.view == FirstMissing)
	if err != nil {
		return 0, err
	}
	l.logger.Debug().Int("mapping", i).Uint64("source-extent", ext).Uint64("clip", clip).Msg("Source extent changed")
	m.srcExtent, m.srcExtentValid, m.clipSize = ext, true, clip
	return clip, nil
}

// scanBlocks discovers the source datasets of a templated mapping and
// returns the extent they support. The scan stops after more than gap
// consecutive missing blocks.
func (l *Layout) scanBlocks(ctx context.Context, i int, m *Mapping) (uint64, error) {
	next := uint64(0) // one past the last block found
	for j := uint64(0); j-next <= l.opts.gap; j++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		b, err := m.block(j)
		if err != nil {
			return 0, err
		}
		if b.exists {
			next = j + 1
			continue
		}
		b.forget()
		if err := l.open(ctx, m, b); err != nil {
			return 0, err
		}
		if b.state == Open {
			next = j + 1
			// Probing must not leave every block open.
			if err := b.close(); err != nil {
				return 0, &IoError{Op: "close", File: b.file, Dataset: b.dataset, Err: err}
			}
		}
	}

	used := next
	if l.opts.view == FirstMissing {
		used = 0
		for used < uint64(len(m.blocks)) && m.blocks[used] != nil && m.blocks[used].exists {
			used++
		}
	}
	if used != m.used {
		l.logger.Debug().Int("mapping", i).Uint64("blocks", used).Msg("Source blocks changed")
		m.used = used
	}
	if used == 0 {
		return 0, nil
	}

	dims, _ := m.virtual.Regular()
	d := dims[m.unlimVirtual]
	if l.opts.view == FirstMissing {
		return d.Start + used*d.Stride, nil
	}
	return d.Start + (used-1)*d.Stride + d.Block, nil
}

// clip recomputes the clipped selections of every binding of m for the
// current dimensions.
func (l *Layout) clip(m *Mapping) error {
	dims := l.dims
	u := m.unlimVirtual
	switch {
	case u < 0:
		v, err := m.virtual.WithExtent(dims)
		if err != nil {
			return err
		}
		m.single.clippedVirtual, m.single.clippedSource = v, m.source
		return nil

	case !m.Templated():
		b := m.single
		b.clearClipped()
		if b.state != Open || !m.srcExtentValid {
			return nil
		}
		limit := min(dims[u], m.clipSize)
		v, err := m.virtual.ClipUnlimited(limit)
		if err != nil {
			return err
		}
		if v, err = v.WithExtent(dims); err != nil {
			return err
		}
		srcLimit, err := m.source.ClipExtentMatch(m.virtual, limit, false)
		if err != nil {
			return err
		}
		s, err := m.source.ClipUnlimited(srcLimit)
		if err != nil {
			return err
		}
		b.clippedVirtual, b.clippedSource = v, s
		return nil
	}

	first, partial, err := m.virtual.FirstIncompleteBlock(dims[u])
	if err != nil {
		return err
	}
	for j, b := range m.blocks {
		if b == nil {
			continue
		}
		b.clearClipped()
		switch idx := uint64(j); {
		case idx >= m.used:
		case idx < first:
			v, err := b.virtual.WithExtent(dims)
			if err != nil {
				return err
			}
			b.clippedVirtual, b.clippedSource = v, m.source
		case idx == first && partial:
			b.partial = true
		}
	}
	return nil
}

// clipPartial computes the clipped selections of a block that straddles
// the extent. The source selection must be countable, which may take
// opening the block to learn the source extent.
func (l *Layout) clipPartial(ctx context.Context, m *Mapping, b *binding) error {
	if !b.partial || b.clippedVirtual != nil {
		return nil
	}
	if !countable(m.source) {
		if err := l.open(ctx, m, b); err != nil {
			return err
		}
		if !countable(m.source) {
			return nil
		}
	}
	v, err := b.virtual.WithExtent(l.dims)
	if err != nil {
		return err
	}
	cv, err := v.ClipToExtent()
	if err != nil {
		return err
	}
	cs, err := selection.ProjectIntersection(v, m.source, cv)
	if err != nil {
		return err
	}
	b.clippedVirtual, b.clippedSource = cv, cs
	return nil
}
