package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cmdRead = &cobra.Command{
	Use:   "read <descriptor>",
	Short: "Resolve a virtual dataset and dump its elements",
	Args:  cobra.ExactArgs(1),
	RunE:  read,
}

var flagRead struct {
	Start []uint
	Count []uint
	Raw   bool
}

func init() {
	cmdRead.Flags().UintSliceVar(&flagRead.Start, "start", nil, "First element of the block to read")
	cmdRead.Flags().UintSliceVar(&flagRead.Count, "count", nil, "Extent of the block to read")
	cmdRead.Flags().BoolVar(&flagRead.Raw, "raw", false, "Write raw bytes instead of a hex dump")
	cmdRead.MarkFlagsRequiredTogether("start", "count")
	cmdMain.AddCommand(cmdRead)
}

func toUint64s(v []uint) []uint64 {
	out := make([]uint64, len(v))
	for i, x := range v {
		out[i] = uint64(x)
	}
	return out
}

func read(cmd *cobra.Command, args []string) error {
	l, reg, done, err := loadLayout(args[0])
	if err != nil {
		return err
	}
	defer done()

	var data []byte
	if flagRead.Start == nil {
		var dims []uint64
		dims, data, err = l.ReadAll(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info().Str("dims", formatDims(dims)).Str("size", humanize.Bytes(uint64(len(data)))).Msg("Read virtual dataset")
	} else {
		if len(flagRead.Start) != len(flagRead.Count) {
			return errors.New("--start and --count must have the same rank")
		}
		data, err = l.ReadSlice(cmd.Context(), toUint64s(flagRead.Start), toUint64s(flagRead.Count))
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if flagRead.Raw {
		if _, err := w.Write(data); err != nil {
			return err
		}
	} else {
		fmt.Fprint(w, hex.Dump(data))
	}
	return printMetrics(cmd.ErrOrStderr(), reg)
}
