package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-vds/internal/config"
)

var cmdConfig = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var cmdConfigInit = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  configInit,
}

var flagConfigInit struct {
	Force bool
}

func init() {
	cmdConfigInit.Flags().BoolVar(&flagConfigInit.Force, "force", false, "Overwrite an existing file")
	cmdConfig.AddCommand(cmdConfigInit)
	cmdMain.AddCommand(cmdConfig)
}

func configInit(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return config.Write(cmd.OutOrStdout(), config.Default())
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if flagConfigInit.Force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := osFs.OpenFile(args[0], flag, 0o644)
	if err != nil {
		return err
	}
	if err := config.Write(f, config.Default()); err != nil {
		_ = f.Close()
		return err
	}
	logger.Info().Str("file", args[0]).Msg("Wrote configuration")
	return f.Close()
}
