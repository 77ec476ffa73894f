package vds

import (
	"github.com/robert-malhotra/go-vds/selection"
)

// Mapping relates a region of the virtual dataset to a region of one
// source dataset, or to a family of source datasets when the source names
// are templates.
type Mapping struct {
	virtual      *selection.Selection
	source       *selection.Selection
	fileTmpl     *NameTemplate
	dsetTmpl     *NameTemplate
	unlimVirtual int
	unlimSource  int

	// Non-templated mappings have a single binding; templated mappings
	// have one per block, indexed by block number.
	single *binding
	blocks []*binding
	used   uint64

	srcExtent      uint64
	srcExtentValid bool
	clipSize       uint64
}

// NewMapping validates a mapping. virtual selects in the virtual dataset and
// source in the dataset named by sourceFile and sourceDataset. Either
// selection may come without an extent.
func NewMapping(virtual, source *selection.Selection, sourceFile, sourceDataset string) (*Mapping, error) {
	if err := preCheck(virtual, source); err != nil {
		return nil, err
	}
	fileTmpl, err := ParseNameTemplate(sourceFile)
	if err != nil {
		return nil, err
	}
	dsetTmpl, err := ParseNameTemplate(sourceDataset)
	if err != nil {
		return nil, err
	}
	m := &Mapping{
		virtual:      virtual,
		source:       source,
		fileTmpl:     fileTmpl,
		dsetTmpl:     dsetTmpl,
		unlimVirtual: virtual.UnlimitedDim(),
		unlimSource:  source.UnlimitedDim(),
	}
	if err := m.postCheck(); err != nil {
		return nil, err
	}
	return m, nil
}

// countable reports whether NumElements is meaningful for s.
func countable(s *selection.Selection) bool {
	return s.Kind() != selection.KindAll || s.ExtentKnown()
}

func unlimitedDims(s *selection.Selection) int {
	dims, ok := s.Regular()
	if !ok {
		return 0
	}
	n := 0
	for _, d := range dims {
		if d.Count == selection.Unlimited {
			n++
		}
	}
	return n
}

func preCheck(virtual, source *selection.Selection) error {
	const op = "validate mapping"
	if virtual.Kind() == selection.KindPoints || source.Kind() == selection.KindPoints {
		return validationErr(op, "point selections are not supported")
	}
	if unlimitedDims(virtual) > 1 || unlimitedDims(source) > 1 {
		return validationErr(op, "more than one unlimited dimension in a selection")
	}
	switch {
	case virtual.IsUnlimited() && source.IsUnlimited():
		if v, s := virtual.NumElementsNonUnlimited(), source.NumElementsNonUnlimited(); v != s {
			return validationErr(op, "virtual selects %d elements per unlimited slice, source selects %d", v, s)
		}
	case !virtual.IsUnlimited() && source.IsUnlimited():
		return validationErr(op, "limited virtual selection with unlimited source selection")
	case !virtual.IsUnlimited() && !source.IsUnlimited():
		if countable(virtual) && countable(source) {
			if v, s := virtual.NumElements(), source.NumElements(); v != s {
				return validationErr(op, "virtual selects %d elements, source selects %d", v, s)
			}
		}
	}
	return nil
}

func (m *Mapping) postCheck() error {
	const op = "validate mapping"
	subs := m.fileTmpl.Substitutions() + m.dsetTmpl.Substitutions()
	if m.unlimVirtual < 0 || m.unlimSource >= 0 {
		if subs > 0 {
			return validationErr(op, "name substitution requires an unlimited virtual selection and a limited source selection")
		}
		return nil
	}
	if m.virtual.Kind() != selection.KindHyperslab {
		return validationErr(op, "templated mapping requires a hyperslab virtual selection")
	}
	if subs == 0 {
		return validationErr(op, "unlimited virtual selection with limited source selection requires %%b in the source file or dataset name")
	}
	return m.checkBlockSize()
}

// checkBlockSize compares one virtual block against the source selection.
// It is deferred until the source extent is known.
func (m *Mapping) checkBlockSize() error {
	if !countable(m.source) {
		return nil
	}
	block, err := m.virtual.UnlimitedBlock(0)
	if err != nil {
		return &ValidationError{Op: "validate mapping", Reason: "virtual block", Err: err}
	}
	if v, s := block.NumElements(), m.source.NumElements(); v != s {
		return validationErr("validate mapping", "virtual block selects %d elements, source selects %d", v, s)
	}
	return nil
}

// Templated reports whether the source names vary per block.
func (m *Mapping) Templated() bool {
	return m.fileTmpl.Substitutions()+m.dsetTmpl.Substitutions() > 0
}

// Virtual returns the unclipped virtual selection.
func (m *Mapping) Virtual() *selection.Selection { return m.virtual }

// Source returns the unclipped source selection.
func (m *Mapping) Source() *selection.Selection { return m.source }

// SourceFile returns the source file name template.
func (m *Mapping) SourceFile() *NameTemplate { return m.fileTmpl }

// SourceDataset returns the source dataset name template.
func (m *Mapping) SourceDataset() *NameTemplate { return m.dsetTmpl }

// UnlimitedDim returns the unlimited dimension of the virtual selection, or
// -1.
func (m *Mapping) UnlimitedDim() int { return m.unlimVirtual }

// UsedBlocks returns how many blocks of a templated mapping are in use
// after the last resolution.
func (m *Mapping) UsedBlocks() uint64 { return m.used }

// BlockInfo describes one source dataset of a mapping.
type BlockInfo struct {
	Index   uint64
	File    string
	Dataset string
	State   BindingState
	Exists  bool
}

// Blocks describes the source datasets the mapping has referenced so far.
func (m *Mapping) Blocks() []BlockInfo {
	if m.single != nil {
		return []BlockInfo{m.single.info(0)}
	}
	out := make([]BlockInfo, 0, len(m.blocks))
	for j, b := range m.blocks {
		if b != nil {
			out = append(out, b.info(uint64(j)))
		}
	}
	return out
}

// block returns the binding of block j, creating it on first reference.
func (m *Mapping) block(j uint64) (*binding, error) {
	if j >= uint64(len(m.blocks)) {
		n := max(uint64(cap(m.blocks)), 4)
		for n <= j {
			n *= 2
		}
		grown := make([]*binding, j+1, n)
		copy(grown, m.blocks)
		m.blocks = grown
	}
	if b := m.blocks[j]; b != nil {
		return b, nil
	}
	virtual, err := m.virtual.UnlimitedBlock(j)
	if err != nil {
		return nil, err
	}
	b := &binding{
		file:    m.fileTmpl.Build(j),
		dataset: m.dsetTmpl.Build(j),
		virtual: virtual,
	}
	m.blocks[j] = b
	return b, nil
}

// bindings returns every binding created so far.
func (m *Mapping) bindings() []*binding {
	if m.single != nil {
		return []*binding{m.single}
	}
	out := make([]*binding, 0, len(m.blocks))
	for _, b := range m.blocks {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

// patchSource copies the extent of a newly opened source dataset onto a
// source selection that had none, then runs the checks that needed it.
func (m *Mapping) patchSource(dims []uint64) error {
	if m.source.ExtentKnown() {
		return nil
	}
	src, err := m.source.WithExtent(dims)
	if err != nil {
		return &ValidationError{Op: "validate mapping", Reason: "source extent", Err: err}
	}
	m.source = src
	if m.Templated() {
		return m.checkBlockSize()
	}
	if !m.virtual.IsUnlimited() && countable(m.virtual) {
		if v, s := m.virtual.NumElements(), src.NumElements(); v != s {
			return validationErr("validate mapping", "virtual selects %d elements, source selects %d", v, s)
		}
	}
	return nil
}

// minDims raises dims to hold the mapping's virtual selection in every
// limited dimension.
func (m *Mapping) minDims(dims []uint64) {
	switch m.virtual.Kind() {
	case selection.KindAll, selection.KindNone:
		return
	}
	_, end, err := m.virtual.Bounds()
	if err != nil {
		return
	}
	for i := range end {
		if i != m.unlimVirtual && end[i]+1 > dims[i] {
			dims[i] = end[i] + 1
		}
	}
}
