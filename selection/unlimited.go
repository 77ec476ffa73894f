package selection

import "slices"

// unlimited returns the unlimited dimension and its description.
func (s *Selection) unlimited() (int, Dim, error) {
	u := s.UnlimitedDim()
	if u < 0 {
		return -1, Dim{}, ErrNotUnlimited
	}
	return u, s.regular[u], nil
}

// SlicesWithin returns how many indices of the unlimited dimension the
// pattern selects below extent.
func (s *Selection) SlicesWithin(extent uint64) (uint64, error) {
	_, d, err := s.unlimited()
	if err != nil {
		return 0, err
	}
	return slicesWithin(d, extent), nil
}

func slicesWithin(d Dim, extent uint64) uint64 {
	if extent <= d.Start {
		return 0
	}
	n := extent - d.Start
	full, rem := n/d.Stride, n%d.Stride
	return full*d.Block + min(rem, d.Block)
}

// ClipExtent returns the smallest extent of the unlimited dimension that
// holds exactly slices selected indices. With includeTrailingGap the extent
// runs up to the start of the next block when the last block is complete,
// so a following missing block is counted as part of the extent.
func (s *Selection) ClipExtent(slices uint64, includeTrailingGap bool) (uint64, error) {
	_, d, err := s.unlimited()
	if err != nil {
		return 0, err
	}
	return clipExtent(d, slices, includeTrailingGap), nil
}

func clipExtent(d Dim, slices uint64, includeTrailingGap bool) uint64 {
	if slices == 0 {
		if includeTrailingGap {
			return d.Start
		}
		return 0
	}
	if d.Block == d.Stride {
		return d.Start + slices
	}
	count := slices / d.Block
	rem := slices - count*d.Block
	switch {
	case rem > 0:
		return d.Start + count*d.Stride + rem
	case includeTrailingGap:
		return d.Start + count*d.Stride
	default:
		return d.Start + (count-1)*d.Stride + d.Block
	}
}

// ClipExtentMatch returns the extent of s's unlimited dimension that
// corresponds to match clipped at matchExtent in match's unlimited dimension.
// Both selections must have equal element counts across their limited
// dimensions.
func (s *Selection) ClipExtentMatch(match *Selection, matchExtent uint64, includeTrailingGap bool) (uint64, error) {
	_, d, err := s.unlimited()
	if err != nil {
		return 0, err
	}
	_, md, err := match.unlimited()
	if err != nil {
		return 0, err
	}
	return clipExtent(d, slicesWithin(md, matchExtent), includeTrailingGap), nil
}

// ClipUnlimited returns the limited part of the pattern below extent in the
// unlimited dimension. The result keeps s's space extent.
func (s *Selection) ClipUnlimited(extent uint64) (*Selection, error) {
	u, d, err := s.unlimited()
	if err != nil {
		return nil, err
	}
	if extent <= d.Start {
		return None(s.extent).withRank(s.rank), nil
	}
	n := extent - d.Start
	full, rem := n/d.Stride, n%d.Stride
	if rem >= d.Block {
		full++
		rem = 0
	}

	dims := slices.Clone(s.regular)
	if rem == 0 {
		dims[u].Count = full
		return Hyperslab(s.extent, dims)
	}
	if full == 0 {
		dims[u] = Dim{Start: d.Start, Stride: d.Stride, Count: 1, Block: rem}
		return Hyperslab(s.extent, dims)
	}

	dims[u].Count = full
	whole, err := Hyperslab(s.extent, dims)
	if err != nil {
		return nil, err
	}
	tail := slices.Clone(s.regular)
	tail[u] = Dim{Start: d.Start + full*d.Stride, Stride: d.Stride, Count: 1, Block: rem}
	part, err := Hyperslab(s.extent, tail)
	if err != nil {
		return nil, err
	}
	return Union(whole, part)
}

// UnlimitedBlock returns block j of the pattern: one repetition in the
// unlimited dimension, all of the pattern in the others.
func (s *Selection) UnlimitedBlock(j uint64) (*Selection, error) {
	u, d, err := s.unlimited()
	if err != nil {
		return nil, err
	}
	dims := slices.Clone(s.regular)
	dims[u] = Dim{Start: d.Start + j*d.Stride, Stride: d.Stride, Count: 1, Block: d.Block}
	return Hyperslab(s.extent, dims)
}

// FirstIncompleteBlock returns the index of the first block that does not
// lie entirely below extent, and whether that block is partially below it.
func (s *Selection) FirstIncompleteBlock(extent uint64) (uint64, bool, error) {
	_, d, err := s.unlimited()
	if err != nil {
		return 0, false, err
	}
	if extent <= d.Start {
		return 0, false, nil
	}
	n := extent - d.Start
	idx := (n + d.Stride - d.Block) / d.Stride
	return idx, d.Stride*idx < n, nil
}
