package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/candersoncsiro/process-polcal/pkg/safeconv"
	"github.com/candersoncsiro/process-polcal/pkg/table"
)

const (
	inspectUse   = "inspect <table>"
	inspectShort = "Describe the columns of a table"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   inspectUse,
		Short: inspectShort,
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	tbl, err := table.Open(args[0])
	if err != nil {
		return err
	}
	defer tbl.Close()

	desc := tbl.Descriptor()

	out := prettytable.NewWriter()
	out.SetStyle(prettytable.StyleLight)
	out.SetTitle(fmt.Sprintf("%s (format %d)", tbl.Path(), desc.Format))
	out.AppendHeader(prettytable.Row{"Column", "Type", "Shape", "Size"})

	for _, c := range desc.Columns {
		size := "-"

		n, sizeErr := tbl.Size(c.Name)
		if sizeErr == nil {
			size = humanize.Bytes(safeconv.ClampUint64(n))
		}

		out.AppendRow(prettytable.Row{c.Name, string(c.DType), fmt.Sprint(c.Shape), size})
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Render())

	return err
}
