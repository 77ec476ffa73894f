// Command vdsinfo inspects, reads and creates virtual dataset descriptors.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-vds/internal/config"
)

var cmdMain = &cobra.Command{
	Use:               "vdsinfo",
	Short:             "Inspect and read virtual datasets",
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

var flagMain struct {
	Config    string
	StoreDir  string
	StoreKind string
	LogFormat string
	Debug     bool
}

var (
	cfg    *config.Config
	logger zerolog.Logger
	osFs   = afero.NewOsFs()
)

func init() {
	flags := cmdMain.PersistentFlags()
	flags.StringVarP(&flagMain.Config, "config", "c", "", "Configuration file (TOML)")
	flags.StringVar(&flagMain.StoreDir, "store-dir", "", "Source store directory (overrides store.dir)")
	flags.StringVar(&flagMain.StoreKind, "store-kind", "", "Source store kind, fs or kv (overrides store.kind)")
	flags.StringVar(&flagMain.LogFormat, "log-format", "", "Log format, text or json (overrides log.format)")
	flags.BoolVarP(&flagMain.Debug, "debug", "d", false, "Log at debug level and dump internal state")
}

func main() {
	if err := cmdMain.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(osFs, flagMain.Config, config.WithFlags(cmd.Flags()))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagMain.Debug {
		cfg.Log.Level = zerolog.LevelDebugValue
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	out := cmd.ErrOrStderr()
	if cfg.Log.Format == "text" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}
