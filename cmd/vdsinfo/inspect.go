package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-vds/selection"
	"github.com/robert-malhotra/go-vds/vds"
)

var cmdInspect = &cobra.Command{
	Use:   "inspect <descriptor>",
	Short: "Print the shape and mappings of a virtual dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  inspect,
}

var flagInspect struct {
	Resolve bool
}

func init() {
	cmdInspect.Flags().BoolVarP(&flagInspect.Resolve, "resolve", "r", false, "Resolve the extent against the source store first")
	cmdMain.AddCommand(cmdInspect)
}

var stateColor = map[vds.BindingState]*color.Color{
	vds.Open:         color.New(color.FgGreen),
	vds.KnownAbsent:  color.New(color.FgRed),
	vds.NotAttempted: color.New(color.FgHiBlack),
}

func inspect(cmd *cobra.Command, args []string) error {
	l, reg, done, err := loadLayout(args[0])
	if err != nil {
		return err
	}
	defer done()

	if flagInspect.Resolve {
		if _, err := l.Resolve(cmd.Context()); err != nil {
			return err
		}
	}
	w := cmd.OutOrStdout()
	printShape(w, l)
	for i, m := range l.Mappings() {
		printMapping(w, i, m)
	}
	if flagMain.Debug {
		fmt.Fprintln(w, spew.Sdump(l.Mappings()))
	}
	return printMetrics(cmd.ErrOrStderr(), reg)
}

func formatDims(dims []uint64) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		if d == selection.Unlimited {
			parts[i] = "unlimited"
		} else {
			parts[i] = humanize.Comma(int64(d))
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func printShape(w io.Writer, l *vds.Layout) {
	n := uint64(1)
	for _, d := range l.Dims() {
		n *= d
	}
	fmt.Fprintf(w, "Dimensions:   %s\n", formatDims(l.Dims()))
	fmt.Fprintf(w, "Maximum:      %s\n", formatDims(l.MaxDims()))
	fmt.Fprintf(w, "Element size: %s\n", humanize.Bytes(uint64(l.ElementSize())))
	fmt.Fprintf(w, "Size:         %s (%s elements)\n", humanize.Bytes(n*uint64(l.ElementSize())), humanize.Comma(int64(n)))
	fmt.Fprintf(w, "View:         %v, gap %d\n", l.View(), l.Gap())
	if fill, ok := l.FillValue(); !ok {
		fmt.Fprintf(w, "Fill value:   undefined\n")
	} else if fill == nil {
		fmt.Fprintf(w, "Fill value:   zero\n")
	} else {
		fmt.Fprintf(w, "Fill value:   % x\n", fill)
	}
	fmt.Fprintf(w, "State:        %v, dirty %t\n", l.State(), l.Dirty())
}

func printMapping(w io.Writer, i int, m *vds.Mapping) {
	fmt.Fprintf(w, "\nMapping %d: %s %s\n", i, m.SourceFile(), m.SourceDataset())
	fmt.Fprintf(w, "  virtual: %v\n", m.Virtual())
	fmt.Fprintf(w, "  source:  %v\n", m.Source())
	if m.Templated() {
		fmt.Fprintf(w, "  blocks in use: %d\n", m.UsedBlocks())
	}
	for _, b := range m.Blocks() {
		c := stateColor[b.State]
		fmt.Fprintf(w, "  [%d] %s %s %s\n", b.Index, b.File, b.Dataset, c.Sprint(b.State))
	}
}
