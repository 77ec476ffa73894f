package vds

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/robert-malhotra/go-vds/source"
)

// View selects how the extent of an unlimited dimension is derived from
// the mappings that feed it.
type View uint8

const (
	// FirstMissing stops the extent where the first mapping runs out of
	// data.
	FirstMissing View = iota
	// LastAvailable extends the extent to the last element any mapping
	// has data for.
	LastAvailable
)

func (v View) String() string {
	switch v {
	case FirstMissing:
		return "first-missing"
	case LastAvailable:
		return "last-available"
	default:
		return fmt.Sprintf("view(%d)", uint8(v))
	}
}

// ParseView parses the names returned by View.String.
func ParseView(s string) (View, error) {
	switch s {
	case "first-missing":
		return FirstMissing, nil
	case "last-available":
		return LastAvailable, nil
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

// Option configures a Layout.
type Option func(*options)

type options struct {
	view       View
	gap        uint64
	access     source.AccessOptions
	fill       []byte
	undefFill  bool
	logger     zerolog.Logger
	registerer prometheus.Registerer
}

func defaultOptions() *options {
	return &options{
		view:   FirstMissing,
		logger: zerolog.Nop(),
	}
}

// WithView sets the view policy. The default is FirstMissing.
func WithView(v View) Option {
	return func(o *options) {
		o.view = v
	}
}

// WithGap sets how many consecutive missing blocks a templated mapping
// tolerates before discovery stops. The default is 0. Under FirstMissing
// the extent still ends at the first missing block; blocks found past a
// hole within the gap only extend a LastAvailable extent.
func WithGap(gap uint64) Option {
	return func(o *options) {
		o.gap = gap
	}
}

// WithAccessOptions sets the options forwarded to source dataset opens.
func WithAccessOptions(access source.AccessOptions) Option {
	return func(o *options) {
		o.access = access
	}
}

// WithFillValue sets the value read back for unmapped elements. It must be
// one element long.
func WithFillValue(value []byte) Option {
	return func(o *options) {
		o.fill = append([]byte(nil), value...)
		o.undefFill = false
	}
}

// WithUndefinedFill leaves unmapped elements of a read buffer untouched.
func WithUndefinedFill() Option {
	return func(o *options) {
		o.fill = nil
		o.undefFill = true
	}
}

// WithLogger sets the logger. Resolution and I/O log at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the layout's metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}
