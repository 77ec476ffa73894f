package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-vds/selection"
	"github.com/robert-malhotra/go-vds/source"
	"github.com/robert-malhotra/go-vds/vds"
)

// manifest is the YAML description of a virtual dataset read by create.
type manifest struct {
	Dims          []dimValue        `yaml:"dims" validate:"required,min=1"`
	MaxDims       []dimValue        `yaml:"max-dims"`
	ElementSize   int               `yaml:"element-size" validate:"min=1"`
	Fill          []byte            `yaml:"fill" validate:"excluded_with=UndefinedFill"`
	UndefinedFill bool              `yaml:"undefined-fill"`
	Mappings      []mappingManifest `yaml:"mappings" validate:"dive"`
}

type mappingManifest struct {
	File    string  `yaml:"file" validate:"required"`
	Dataset string  `yaml:"dataset" validate:"required"`
	Virtual selSpec `yaml:"virtual"`
	Source  selSpec `yaml:"source"`
}

// dimValue is a size that may be written as "unlimited".
type dimValue uint64

func (d *dimValue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode && n.Value == "unlimited" {
		*d = dimValue(selection.Unlimited)
		return nil
	}
	v, err := strconv.ParseUint(n.Value, 0, 64)
	if n.Kind != yaml.ScalarNode || err != nil {
		return fmt.Errorf("line %d: %q is not a size", n.Line, n.Value)
	}
	*d = dimValue(v)
	return nil
}

func toDims(v []dimValue) []uint64 {
	if v == nil {
		return nil
	}
	out := make([]uint64, len(v))
	for i, x := range v {
		out[i] = uint64(x)
	}
	return out
}

// dimSpec is one hyperslab dimension. Count and block default to 1 and
// stride defaults to the block.
type dimSpec struct {
	Start  dimValue `yaml:"start"`
	Stride dimValue `yaml:"stride"`
	Count  dimValue `yaml:"count"`
	Block  dimValue `yaml:"block"`
}

func (d *dimSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain dimSpec
	p := plain{Count: 1, Block: 1}
	if err := n.Decode(&p); err != nil {
		return err
	}
	if p.Stride == 0 {
		p.Stride = p.Block
	}
	*d = dimSpec(p)
	return nil
}

// selSpec is either the scalar "all" or a list of hyperslab dimensions.
type selSpec struct {
	all  bool
	dims []dimSpec
}

func (s *selSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		if n.Value != "all" {
			return fmt.Errorf("line %d: selection %q: want all or a list of dimensions", n.Line, n.Value)
		}
		s.all = true
		return nil
	}
	return n.Decode(&s.dims)
}

func (s selSpec) selection() (*selection.Selection, error) {
	if s.all {
		return selection.All(nil), nil
	}
	if len(s.dims) == 0 {
		return nil, errors.New("missing selection")
	}
	dims := make([]selection.Dim, len(s.dims))
	for i, d := range s.dims {
		dims[i] = selection.Dim{Start: uint64(d.Start), Stride: uint64(d.Stride), Count: uint64(d.Count), Block: uint64(d.Block)}
	}
	return selection.Hyperslab(nil, dims)
}

func parseManifest(r io.Reader) (*manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := validator.New().Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// layout builds the virtual dataset described by the manifest.
func (m *manifest) layout(backend source.Backend, opts ...vds.Option) (*vds.Layout, error) {
	mappings := make([]*vds.Mapping, len(m.Mappings))
	for i, mm := range m.Mappings {
		virtual, err := mm.Virtual.selection()
		if err != nil {
			return nil, fmt.Errorf("mapping %d: virtual: %w", i, err)
		}
		src, err := mm.Source.selection()
		if err != nil {
			return nil, fmt.Errorf("mapping %d: source: %w", i, err)
		}
		mappings[i], err = vds.NewMapping(virtual, src, mm.File, mm.Dataset)
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
	}

	switch {
	case m.UndefinedFill:
		opts = append(opts, vds.WithUndefinedFill())
	case m.Fill != nil:
		opts = append(opts, vds.WithFillValue(m.Fill))
	}
	shape := vds.Shape{Dims: toDims(m.Dims), MaxDims: toDims(m.MaxDims), ElementSize: m.ElementSize}
	return vds.NewLayout(backend, shape, mappings, opts...)
}
