package config

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-vds/vds"
)

func TestDefault(t *testing.T) {
	c, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	view, err := c.ViewPolicy()
	require.NoError(t, err)
	assert.Equal(t, vds.FirstMissing, view)
	level, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/vds.toml", []byte(`
view = "last-available"
gap = 4

[store]
kind = "kv"
dir = "/var/lib/vds"
prefix = "/data"

[log]
level = "debug"
format = "json"

[metrics]
enabled = true
`), 0o644))

	c, err := Load(fs, "/etc/vds.toml")
	require.NoError(t, err)
	assert.Equal(t, &Config{
		View:    "last-available",
		Gap:     4,
		Store:   Store{Kind: KVStore, Dir: "/var/lib/vds", Prefix: "/data"},
		Log:     Log{Level: "debug", Format: "json"},
		Metrics: Metrics{Enabled: true},
	}, c)
	assert.Equal(t, "/data", c.AccessOptions().Prefix)

	opts, err := c.LayoutOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 3)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("VDS_STORE_KIND", "kv")
	t.Setenv("VDS_GAP", "2")
	t.Setenv("VDS_LOG_LEVEL", "warn")

	c, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, KVStore, c.Store.Kind)
	assert.EqualValues(t, 2, c.Gap)
	assert.Equal(t, "warn", c.Log.Level)
}

func TestLoadFlags(t *testing.T) {
	t.Setenv("VDS_STORE_DIR", "/env")
	t.Setenv("VDS_LOG_FORMAT", "json")

	flags := pflag.NewFlagSet("vdsinfo", pflag.ContinueOnError)
	flags.String("store-dir", "", "")
	flags.String("log-format", "", "")
	flags.Bool("debug", false, "")
	require.NoError(t, flags.Parse([]string{"--store-dir", "/src"}))

	for i := 0; i < 2; i++ {
		c, err := Load(afero.NewMemMapFs(), "", WithFlags(flags))
		require.NoError(t, err)
		assert.Equal(t, "/src", c.Store.Dir)
		assert.Equal(t, "json", c.Log.Format)
		assert.Equal(t, FileStore, c.Store.Kind)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"view", `view = "newest"`},
		{"store kind", "[store]\nkind = \"s3\""},
		{"log format", "[log]\nformat = \"xml\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "vds.toml", []byte(tt.file), 0o644))
			_, err := Load(fs, "vds.toml")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := Load(afero.NewMemMapFs(), "missing.toml")
	assert.Error(t, err)
}

func TestWriteLoad(t *testing.T) {
	c := Default()
	c.Gap = 7
	c.Store.Prefix = "runs"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c))
	assert.Contains(t, buf.String(), "[store]")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "vds.toml", buf.Bytes(), 0o644))
	got, err := Load(fs, "vds.toml")
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
