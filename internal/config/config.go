// Package config loads the vdsinfo configuration from a TOML file and VDS_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/robert-malhotra/go-vds/source"
	"github.com/robert-malhotra/go-vds/vds"
)

// ErrInvalid is returned for a configuration that fails validation.
var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "VDS"

type StoreKind string

const (
	FileStore StoreKind = "fs"
	KVStore   StoreKind = "kv"
)

type Config struct {
	View    string  `toml:"view" mapstructure:"view" validate:"oneof=first-missing last-available"`
	Gap     uint64  `toml:"gap" mapstructure:"gap"`
	Store   Store   `toml:"store" mapstructure:"store"`
	Log     Log     `toml:"log" mapstructure:"log"`
	Metrics Metrics `toml:"metrics" mapstructure:"metrics"`
}

type Store struct {
	Kind StoreKind `toml:"kind" mapstructure:"kind" validate:"oneof=fs kv"`

	// Dir is the root directory of a file store or the database directory
	// of a key-value store. An empty kv dir keeps the database in memory.
	Dir string `toml:"dir" mapstructure:"dir"`

	// Prefix is tried first for relative source file names.
	Prefix string `toml:"prefix" mapstructure:"prefix"`
}

type Log struct {
	Level  string `toml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `toml:"format" mapstructure:"format" validate:"oneof=text json"`
}

type Metrics struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		View: vds.FirstMissing.String(),
		Store: Store{
			Kind: FileStore,
			Dir:  ".",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("view", d.View)
	v.SetDefault("gap", d.Gap)
	v.SetDefault("store.kind", string(d.Store.Kind))
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.prefix", d.Store.Prefix)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"view":         "view",
	"gap":          "gap",
	"store-kind":   "store.kind",
	"store-dir":    "store.dir",
	"store-prefix": "store.prefix",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"metrics":      "metrics.enabled",
}

// LoadOption configures Load.
type LoadOption func(*viper.Viper) error

// WithFlags binds the flags of fs named after configuration keys
// (--store-dir for store.dir). A flag the user set overrides the file and
// the environment.
func WithFlags(fs *pflag.FlagSet) LoadOption {
	return func(v *viper.Viper) error {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind --%s: %w", name, err)
			}
		}
		return nil
	}
}

// Load reads file from fs over the defaults and applies VDS_ environment
// variables (VDS_STORE_KIND for store.kind). An empty file name skips the
// file.
func Load(fs afero.Fs, file string, opts ...LoadOption) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	defaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
	}

	c := new(Config)
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			msgs[i] = fmt.Sprintf("%s: %q is not %s %s", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return err
}

// Write encodes c as TOML.
func Write(w io.Writer, c *Config) error {
	return toml.NewEncoder(w).Encode(c)
}

// ViewPolicy returns the configured view.
func (c *Config) ViewPolicy() (vds.View, error) {
	return vds.ParseView(c.View)
}

// AccessOptions returns the source access options the configuration implies.
func (c *Config) AccessOptions() source.AccessOptions {
	return source.AccessOptions{Prefix: c.Store.Prefix}
}

// Level returns the configured log level.
func (c *Config) Level() (zerolog.Level, error) {
	return zerolog.ParseLevel(c.Log.Level)
}

// LayoutOptions returns the layout options the configuration implies.
func (c *Config) LayoutOptions() ([]vds.Option, error) {
	view, err := c.ViewPolicy()
	if err != nil {
		return nil, err
	}
	return []vds.Option{
		vds.WithView(view),
		vds.WithGap(c.Gap),
		vds.WithAccessOptions(c.AccessOptions()),
	}, nil
}
