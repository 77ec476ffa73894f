package vds

import (
	"context"
	"errors"

	"github.com/robert-malhotra/go-vds/source"
)

// HeldFileSet pins a set of source files open. Release it when done.
type HeldFileSet struct {
	files    []source.File
	released bool
}

// Files returns the names of the held files.
func (h *HeldFileSet) Files() []string {
	names := make([]string, len(h.files))
	for i, f := range h.files {
		names[i] = f.Name()
	}
	return names
}

// Len returns the number of held files.
func (h *HeldFileSet) Len() int { return len(h.files) }

// Release undoes the holds. It is safe to call more than once.
func (h *HeldFileSet) Release() error {
	if h.released {
		return nil
	}
	h.released = true
	var errs []error
	for _, f := range h.files {
		if err := f.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Hold pins every source file with an open dataset, so the files stay open
// while their datasets are closed and reopened.
func (l *Layout) Hold() (*HeldFileSet, error) {
	release, err := l.claim()
	if err != nil {
		return nil, err
	}
	defer release()
	return l.hold(), nil
}

func (l *Layout) hold() *HeldFileSet {
	h := &HeldFileSet{}
	seen := make(map[source.File]struct{})
	for _, m := range l.mappings {
		for _, b := range m.bindings() {
			if b.state != Open {
				continue
			}
			f := b.ds.File()
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			f.Hold()
			h.files = append(h.files, f)
		}
	}
	return h
}

// Refresh reloads every open source dataset and resolves the extent again,
// picking up datasets that appeared or grew since the last resolution.
func (l *Layout) Refresh(ctx context.Context) (err error) {
	release, err := l.claim()
	if err != nil {
		return err
	}
	defer release()

	held := l.hold()
	defer func() {
		err = errors.Join(err, held.Release())
	}()
	l.logger.Debug().Int("files", held.Len()).Msg("Refreshing source datasets")

	for _, m := range l.mappings {
		for _, b := range m.bindings() {
			if b.state != Open {
				continue
			}
			if err := b.ds.Refresh(ctx); err != nil {
				return &IoError{Op: "refresh", File: b.file, Dataset: b.dataset, Err: err}
			}
		}
	}
	return l.resolve(ctx)
}
