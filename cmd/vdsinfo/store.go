package main

import (
	"bytes"
	"fmt"
	"io"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/robert-malhotra/go-vds/internal/config"
	"github.com/robert-malhotra/go-vds/source"
	"github.com/robert-malhotra/go-vds/store/fsstore"
	"github.com/robert-malhotra/go-vds/store/kvstore"
	"github.com/robert-malhotra/go-vds/vds"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore opens the configured source store.
func openStore() (source.Backend, io.Closer, error) {
	switch cfg.Store.Kind {
	case config.FileStore:
		s := fsstore.New(osFs, fsstore.WithRoot(cfg.Store.Dir), fsstore.WithLogger(logger))
		return s, nopCloser{}, nil
	case config.KVStore:
		s, err := kvstore.Open(cfg.Store.Dir, kvstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

// loadLayout reads a descriptor and opens it over the configured store.
// The returned function closes the layout and the store.
func loadLayout(file string) (*vds.Layout, *prometheus.Registry, func(), error) {
	data, err := readFile(file)
	if err != nil {
		return nil, nil, nil, err
	}
	backend, closer, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}

	opts, err := cfg.LayoutOptions()
	if err != nil {
		_ = closer.Close()
		return nil, nil, nil, err
	}
	access := cfg.AccessOptions()
	access.SelfFile = path.Base(file)
	opts = append(opts, vds.WithAccessOptions(access), vds.WithLogger(logger))

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		opts = append(opts, vds.WithRegisterer(reg))
	}

	l, err := vds.Load(data, backend, opts...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, nil, fmt.Errorf("load %s: %w", file, err)
	}
	done := func() {
		if err := l.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close layout")
		}
		if err := closer.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}
	return l, reg, done, nil
}

func readFile(file string) (io.ReaderAt, error) {
	data, err := afero.ReadFile(osFs, file)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// printMetrics writes the counters and histogram counts gathered by reg.
func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	if reg == nil {
		return nil
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%-48s %s\n", name, humanize.Commaf(m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%-48s count=%d sum=%s\n", name, h.GetSampleCount(), humanize.Commaf(h.GetSampleSum()))
			}
		}
	}
	return nil
}
