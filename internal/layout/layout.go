package layout

import (
	"errors"
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-vds/selection"
)

// Errors
var (
	ErrCountMismatch  = errors.New("memory and file selections select different element counts")
	ErrBufferTooSmall = errors.New("buffer too small for memory space")
	ErrReadOnly       = errors.New("storage is read-only")
)

// Step copies Count elements between memory element Mem and file element
// File.
type Step struct {
	Mem   uint64
	File  uint64
	Count uint64
}

// Plan pairs the row-major runs of mem and file. Both selections need known
// extents and must select the same number of elements.
func Plan(mem, file *selection.Selection) ([]Step, error) {
	if n, m := mem.NumElements(), file.NumElements(); n != m {
		return nil, fmt.Errorf("%w: memory %d, file %d", ErrCountMismatch, n, m)
	}
	mr, err := mem.Runs()
	if err != nil {
		return nil, fmt.Errorf("memory selection: %w", err)
	}
	fr, err := file.Runs()
	if err != nil {
		return nil, fmt.Errorf("file selection: %w", err)
	}

	var steps []Step
	for len(mr) > 0 && len(fr) > 0 {
		n := min(mr[0].Length, fr[0].Length)
		steps = append(steps, Step{Mem: mr[0].Offset, File: fr[0].Offset, Count: n})
		mr[0].Offset += n
		mr[0].Length -= n
		fr[0].Offset += n
		fr[0].Length -= n
		if mr[0].Length == 0 {
			mr = mr[1:]
		}
		if fr[0].Length == 0 {
			fr = fr[1:]
		}
	}
	return steps, nil
}

// numElements returns the product of dims.
func numElements(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

// CheckBuffer verifies that buf holds every element of the memory space.
func CheckBuffer(mem *selection.Selection, buf []byte, elemSize int) error {
	if !mem.ExtentKnown() {
		return fmt.Errorf("memory selection: %w", selection.ErrUnknownExtent)
	}
	need := numElements(mem.Extent()) * uint64(elemSize)
	if uint64(len(buf)) < need {
		return fmt.Errorf("%w: have %d bytes, memory space needs %d", ErrBufferTooSmall, len(buf), need)
	}
	return nil
}

// Fill writes value into every element of sel within buf. An empty value
// fills with zeros.
func Fill(sel *selection.Selection, buf []byte, elemSize int, value []byte) error {
	if len(value) != 0 && len(value) != elemSize {
		return fmt.Errorf("fill value is %d bytes, element is %d", len(value), elemSize)
	}
	if err := CheckBuffer(sel, buf, elemSize); err != nil {
		return err
	}
	runs, err := sel.Runs()
	if err != nil {
		return err
	}
	zero := len(value) == 0 || !slices.ContainsFunc(value, func(b byte) bool { return b != 0 })
	es := uint64(elemSize)
	for _, r := range runs {
		dst := buf[r.Offset*es : (r.Offset+r.Length)*es]
		if zero {
			clear(dst)
			continue
		}
		for off := 0; off < len(dst); off += elemSize {
			copy(dst[off:], value)
		}
	}
	return nil
}

// Copy moves elements between two in-memory buffers: the elements of srcSel
// in src land on the elements of dstSel in dst.
func Copy(dst []byte, dstSel *selection.Selection, src []byte, srcSel *selection.Selection, elemSize int) error {
	if err := CheckBuffer(dstSel, dst, elemSize); err != nil {
		return err
	}
	if err := CheckBuffer(srcSel, src, elemSize); err != nil {
		return err
	}
	steps, err := Plan(dstSel, srcSel)
	if err != nil {
		return err
	}
	es := uint64(elemSize)
	for _, s := range steps {
		copy(dst[s.Mem*es:(s.Mem+s.Count)*es], src[s.File*es:(s.File+s.Count)*es])
	}
	return nil
}

// Reshape returns the raw data of a dataset resized from oldDims to newDims.
// Elements inside both shapes keep their coordinates; new elements are set
// to fill (zeros when fill is empty).
func Reshape(data []byte, oldDims, newDims []uint64, elemSize int, fill []byte) ([]byte, error) {
	if len(oldDims) != len(newDims) {
		return nil, fmt.Errorf("%w: reshape from rank %d to %d", selection.ErrRank, len(oldDims), len(newDims))
	}
	out := make([]byte, numElements(newDims)*uint64(elemSize))
	if err := Fill(selection.All(newDims), out, elemSize, fill); err != nil {
		return nil, err
	}
	common := make([]uint64, len(oldDims))
	for i := range common {
		common[i] = min(oldDims[i], newDims[i])
	}
	if numElements(common) == 0 {
		return out, nil
	}
	zeros := make([]uint64, len(common))
	src, err := selection.Block(oldDims, zeros, common)
	if err != nil {
		return nil, err
	}
	dst, err := src.WithExtent(newDims)
	if err != nil {
		return nil, err
	}
	if err := Copy(out, dst, data, src, elemSize); err != nil {
		return nil, err
	}
	return out, nil
}
