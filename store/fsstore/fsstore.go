// Package fsstore keeps source datasets on an afero filesystem.
//
// A source file is a directory and each of its datasets is one container
// file inside it, named after the dataset path with a ".ds" suffix. The
// filesystem can be the OS filesystem, an in-memory one for tests, or any
// other afero.Fs.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/robert-malhotra/go-vds/source"
	"github.com/robert-malhotra/go-vds/store"
)

const datasetExt = ".ds"

// Store is a source.Backend over an afero.Fs.
type Store struct {
	fs     afero.Fs
	root   string
	logger zerolog.Logger
	files  store.Files
}

var _ source.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRoot places every source file under root.
func WithRoot(root string) Option {
	return func(s *Store) { s.root = root }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a store on fs.
func New(fs afero.Fs, opts ...Option) *Store {
	s := &Store{fs: fs, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("module", "fsstore").Logger()
	return s
}

// Files returns the table of open source files.
func (s *Store) Files() *store.Files { return &s.files }

func (s *Store) filePath(file string) string {
	return filepath.Join(s.root, filepath.FromSlash(file))
}

func (s *Store) datasetPath(file, dataset string) (string, error) {
	name := strings.Trim(dataset, "/")
	if name == "" {
		return "", fmt.Errorf("%w: empty dataset name", store.ErrInvalidSpec)
	}
	return filepath.Join(s.filePath(file), filepath.FromSlash(name)) + datasetExt, nil
}

func absent(file, dataset string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s in %s", source.ErrAbsent, dataset, file)
	}
	return err
}

// CreateFile creates an empty source file.
func (s *Store) CreateFile(file string) error {
	return s.fs.MkdirAll(s.filePath(file), 0o755)
}

// RemoveFile deletes a source file and every dataset in it.
func (s *Store) RemoveFile(file string) error {
	return s.fs.RemoveAll(s.filePath(file))
}

// Create writes a new dataset, replacing any existing one. data holds the
// raw elements; nil fills the dataset with spec.Fill.
func (s *Store) Create(ctx context.Context, file, dataset string, spec store.Spec, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.datasetPath(file, dataset)
	if err != nil {
		return err
	}
	container, err := store.Encode(spec, data)
	if err != nil {
		return fmt.Errorf("create %s in %s: %w", dataset, file, err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, p, container, 0o644); err != nil {
		return err
	}
	s.logger.Debug().Str("file", file).Str("dataset", dataset).Uints64("dims", spec.Dims).Msg("Created dataset")
	return nil
}

// Resize changes the dimensions of a dataset within its maximum dimensions.
func (s *Store) Resize(ctx context.Context, file, dataset string, dims []uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.datasetPath(file, dataset)
	if err != nil {
		return err
	}
	container, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return absent(file, dataset, err)
	}
	resized, err := store.Resize(container, dims)
	if err != nil {
		return fmt.Errorf("resize %s in %s: %w", dataset, file, err)
	}
	if err := afero.WriteFile(s.fs, p, resized, 0o644); err != nil {
		return err
	}
	s.logger.Debug().Str("file", file).Str("dataset", dataset).Uints64("dims", dims).Msg("Resized dataset")
	return nil
}

// Remove deletes a dataset.
func (s *Store) Remove(ctx context.Context, file, dataset string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.datasetPath(file, dataset)
	if err != nil {
		return err
	}
	return absent(file, dataset, s.fs.Remove(p))
}

// Datasets lists the datasets of a source file, sorted.
func (s *Store) Datasets(file string) ([]string, error) {
	dir := s.filePath(file)
	if ok, err := afero.DirExists(s.fs, dir); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: file %s", source.ErrAbsent, file)
	}
	var names []string
	err := afero.Walk(s.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(p, datasetExt) {
			return nil
		}
		rel, err := filepath.Rel(dir, strings.TrimSuffix(p, datasetExt))
		if err != nil {
			return err
		}
		names = append(names, "/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// OpenDataset implements source.Backend.
func (s *Store) OpenDataset(ctx context.Context, file, dataset string, opts source.AccessOptions) (source.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.datasetPath(file, dataset)
	if err != nil {
		return nil, err
	}
	flag := os.O_RDWR
	if opts.ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := s.fs.OpenFile(p, flag, 0)
	if err != nil {
		return nil, absent(file, dataset, err)
	}

	fh := s.files.Acquire(file)
	ds, err := store.OpenDataset(dataset, fh, fileStorage{f}, opts.ReadOnly)
	if err != nil {
		_ = f.Close()
		_ = fh.Release()
		return nil, err
	}
	s.logger.Debug().Str("file", file).Str("dataset", dataset).Bool("read-only", opts.ReadOnly).Msg("Opened dataset")
	return ds, nil
}

// fileStorage serves a container straight from its file. Writes go to the
// file directly, so every handle sees them without reloading.
type fileStorage struct {
	afero.File
}

func (f fileStorage) Flush() error  { return f.Sync() }
func (f fileStorage) Reload() error { return nil }
