// Package kvstore keeps source datasets in a Badger key-value database.
//
// Each dataset is stored as one container under the key
// "d\x00<file>\x00<dataset>"; a source file exists once it has a marker
// key "f\x00<file>". Open datasets work on an in-memory copy of their
// container: writes are flushed back on every WriteSelection and Refresh
// reloads the copy from the database.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/source"
	"github.com/robert-malhotra/go-vds/store"
)

// ErrNotOpen is returned after the database is closed.
var ErrNotOpen = errors.New("database is not open")

// Store is a source.Backend over Badger.
type Store struct {
	mu     sync.RWMutex
	db     *badger.DB
	logger zerolog.Logger
	files  store.Files
}

var _ source.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*config)

type config struct {
	logger zerolog.Logger
}

// WithLogger sets the logger, which also receives Badger's own messages.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Open opens the database in dir. An empty dir opens an in-memory database.
func Open(dir string, opts ...Option) (*Store, error) {
	cfg := config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With().Str("module", "kvstore").Logger()

	bopts := badger.DefaultOptions(dir)
	if dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts = bopts.WithLogger(badgerLogger{logger})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database. Datasets that are still open fail afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotOpen
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Files returns the table of open source files.
func (s *Store) Files() *store.Files { return &s.files }

func fileKey(file string) []byte {
	return []byte("f\x00" + file)
}

func datasetPrefix(file string) []byte {
	return []byte("d\x00" + file + "\x00")
}

func datasetKey(file, dataset string) ([]byte, error) {
	name := strings.Trim(dataset, "/")
	if name == "" {
		return nil, fmt.Errorf("%w: empty dataset name", store.ErrInvalidSpec)
	}
	return append(datasetPrefix(file), "/"+name...), nil
}

func (s *Store) view(fn func(*badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrNotOpen
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrNotOpen
	}
	return s.db.Update(fn)
}

func (s *Store) get(file, dataset string) ([]byte, error) {
	key, err := datasetKey(file, dataset)
	if err != nil {
		return nil, err
	}
	var value []byte
	err = s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s in %s", source.ErrAbsent, dataset, file)
	}
	return value, err
}

func (s *Store) put(file, dataset string, container []byte) error {
	key, err := datasetKey(file, dataset)
	if err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		if err := txn.Set(fileKey(file), nil); err != nil {
			return err
		}
		return txn.Set(key, container)
	})
}

// CreateFile creates an empty source file.
func (s *Store) CreateFile(file string) error {
	return s.update(func(txn *badger.Txn) error {
		return txn.Set(fileKey(file), nil)
	})
}

// RemoveFile deletes a source file and every dataset in it.
func (s *Store) RemoveFile(file string) error {
	names, err := s.Datasets(file)
	if err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		for _, name := range names {
			key, _ := datasetKey(file, name)
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return txn.Delete(fileKey(file))
	})
}

// Create writes a new dataset, replacing any existing one. data holds the
// raw elements; nil fills the dataset with spec.Fill.
func (s *Store) Create(ctx context.Context, file, dataset string, spec store.Spec, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	container, err := store.Encode(spec, data)
	if err != nil {
		return fmt.Errorf("create %s in %s: %w", dataset, file, err)
	}
	if err := s.put(file, dataset, container); err != nil {
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
	container, err := s.get(file, dataset)
	if err != nil {
		return err
	}
	resized, err := store.Resize(container, dims)
	if err != nil {
		return fmt.Errorf("resize %s in %s: %w", dataset, file, err)
	}
	if err := s.put(file, dataset, resized); err != nil {
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
	if _, err := s.get(file, dataset); err != nil {
		return err
	}
	key, err := datasetKey(file, dataset)
	if err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Datasets lists the datasets of a source file, sorted.
func (s *Store) Datasets(file string) ([]string, error) {
	var names []string
	err := s.view(func(txn *badger.Txn) error {
		if _, err := txn.Get(fileKey(file)); err != nil {
			return err
		}
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = datasetPrefix(file)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(opts.Prefix):]))
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: file %s", source.ErrAbsent, file)
	}
	return names, err
}

// OpenDataset implements source.Backend.
func (s *Store) OpenDataset(ctx context.Context, file, dataset string, opts source.AccessOptions) (source.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	container, err := s.get(file, dataset)
	if err != nil {
		return nil, err
	}

	st := &kvStorage{store: s, file: file, dataset: dataset, buf: binary.NewBuffer(container)}
	fh := s.files.Acquire(file)
	ds, err := store.OpenDataset(dataset, fh, st, opts.ReadOnly)
	if err != nil {
		_ = fh.Release()
		return nil, err
	}
	s.logger.Debug().Str("file", file).Str("dataset", dataset).Bool("read-only", opts.ReadOnly).Msg("Opened dataset")
	return ds, nil
}

// kvStorage is an in-memory copy of one container.
type kvStorage struct {
	store   *Store
	file    string
	dataset string
	buf     *binary.Buffer
}

func (k *kvStorage) ReadAt(p []byte, off int64) (int, error)  { return k.buf.ReadAt(p, off) }
func (k *kvStorage) WriteAt(p []byte, off int64) (int, error) { return k.buf.WriteAt(p, off) }

func (k *kvStorage) Flush() error {
	return k.store.put(k.file, k.dataset, k.buf.Bytes())
}

func (k *kvStorage) Reload() error {
	container, err := k.store.get(k.file, k.dataset)
	if err != nil {
		return err
	}
	k.buf = binary.NewBuffer(container)
	return nil
}

func (k *kvStorage) Close() error {
	k.buf = binary.NewBuffer(nil)
	return nil
}
