// Package source defines how the mapping layer reaches source datasets.
//
// A [Backend] opens datasets by source file name and dataset name. A
// missing file or dataset is reported with an error wrapping [ErrAbsent],
// which callers treat as "no data here" rather than a failure. Every other
// error is a real I/O failure.
//
// Open datasets keep their [File] open. A File stays open while any dataset
// of it is open or while it is held (see [File.Hold]).
package source

import (
	"context"
	"errors"
	"path"

	"github.com/robert-malhotra/go-vds/selection"
)

// Errors
var (
	ErrAbsent   = errors.New("source not found")
	ErrReadOnly = errors.New("source opened read-only")
	ErrClosed   = errors.New("source closed")
)

// SelfFile is the source file name that refers to the file holding the
// virtual dataset itself.
const SelfFile = "."

// AccessOptions controls how source files are located and opened.
type AccessOptions struct {
	// Prefix is tried first for relative source file names.
	Prefix string `mapstructure:"prefix" toml:"prefix"`

	// SelfFile is the name of the file holding the virtual dataset. Source
	// file name "." resolves to it.
	SelfFile string `mapstructure:"self-file" toml:"self-file"`

	// Parallel requests collective access; the mapping layer rejects it.
	Parallel bool `mapstructure:"parallel" toml:"parallel"`

	// ReadOnly opens source datasets without write access.
	ReadOnly bool `mapstructure:"read-only" toml:"read-only"`
}

// Candidates returns the file names to try, in order, for a source file
// name as stored in a mapping.
func (o AccessOptions) Candidates(name string) []string {
	if name == SelfFile {
		if o.SelfFile == "" {
			return []string{name}
		}
		return []string{o.SelfFile}
	}
	if o.Prefix == "" || path.IsAbs(name) {
		return []string{name}
	}
	return []string{path.Join(o.Prefix, name), name}
}

// File is an open source file.
type File interface {
	// Name returns the name the file was opened under.
	Name() string

	// Hold pins the file open until the matching Release.
	Hold()

	// Release undoes one Hold.
	Release() error
}

// Dataset is an open source dataset.
type Dataset interface {
	// Name returns the dataset name within its file.
	Name() string

	// File returns the file holding the dataset.
	File() File

	// Dims returns the current dimensions.
	Dims() []uint64

	// MaxDims returns the maximum dimensions; selection.Unlimited marks an
	// extendible dimension.
	MaxDims() []uint64

	// ElementSize returns the element size in bytes.
	ElementSize() int

	// ReadSelection reads the elements of file into the elements of mem
	// within buf. Both selections pair up in row-major order.
	ReadSelection(mem, file *selection.Selection, buf []byte) error

	// WriteSelection writes the elements of mem within buf to file.
	WriteSelection(mem, file *selection.Selection, buf []byte) error

	// Refresh reloads the dataset's metadata, picking up extent changes
	// made by other writers.
	Refresh(ctx context.Context) error

	// Close releases the dataset and its reference on the file.
	Close() error
}

// Backend opens source datasets.
type Backend interface {
	// OpenDataset opens dataset in file. A missing file or dataset
	// returns an error wrapping ErrAbsent.
	OpenDataset(ctx context.Context, file, dataset string, opts AccessOptions) (Dataset, error)
}

// Open tries each candidate name of file in turn and returns the first
// dataset found. It returns ErrAbsent only if every candidate is absent.
func Open(ctx context.Context, b Backend, file, dataset string, opts AccessOptions) (Dataset, error) {
	var last error
	for _, name := range opts.Candidates(file) {
		ds, err := b.OpenDataset(ctx, name, dataset, opts)
		if err == nil {
			return ds, nil
		}
		if !errors.Is(err, ErrAbsent) {
			return nil, err
		}
		last = err
	}
	return nil, last
}
