package main

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-vds/vds"
)

var cmdCreate = &cobra.Command{
	Use:   "create <descriptor>",
	Short: "Write a virtual dataset descriptor from a YAML manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  create,
}

var flagCreate struct {
	Manifest string
}

func init() {
	cmdCreate.Flags().StringVarP(&flagCreate.Manifest, "manifest", "f", "", "Manifest file (YAML)")
	_ = cmdCreate.MarkFlagRequired("manifest")
	cmdMain.AddCommand(cmdCreate)
}

func create(cmd *cobra.Command, args []string) error {
	f, err := osFs.Open(flagCreate.Manifest)
	if err != nil {
		return err
	}
	m, err := parseManifest(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	backend, closer, err := openStore()
	if err != nil {
		return err
	}
	defer closer.Close()

	l, err := m.layout(backend, vds.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("build layout: %w", err)
	}
	defer l.Close()

	var buf bytes.Buffer
	if err := vds.Save(&buf, l); err != nil {
		return fmt.Errorf("save %s: %w", args[0], err)
	}
	if err := afero.WriteFile(osFs, args[0], buf.Bytes(), 0o644); err != nil {
		return err
	}
	logger.Info().Str("file", args[0]).Int("mappings", len(l.Mappings())).Str("size", humanize.Bytes(uint64(buf.Len()))).Msg("Wrote descriptor")
	return nil
}
