// Package report renders correction and flagging results for the console and
// as an HTML phase plot.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/candersoncsiro/process-polcal/internal/bandpass"
	"github.com/candersoncsiro/process-polcal/internal/flagging"
)

const (
	// stdWarnDeg marks a beam whose channel phases scatter more than this.
	stdWarnDeg = 5.0

	msgNoBeams = "No beams processed"
)

// SetColor enables or disables colored output globally.
func SetColor(enabled bool) {
	color.NoColor = !enabled //nolint:reassign // library global
}

// BeamSummary writes one row per corrected beam: mean and spread of the XY
// phase and how each channel's correction was obtained.
func BeamSummary(w io.Writer, beams []bandpass.BeamStats) error {
	if len(beams) == 0 {
		_, err := fmt.Fprintln(w, msgNoBeams)

		return err
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Beam", "Mean XY phase (deg)", "Std (deg)", "Derived", "Held", "Zero-correction", "Suspect"})

	var suspects []string

	for _, b := range beams {
		derived, held, sentinel := b.Counts()

		suspect := 0

		for _, c := range b.Channels {
			if c.Suspect {
				suspect++

				suspects = append(suspects, fmt.Sprintf("b%02d/c%d", b.Beam, c.Channel))
			}
		}

		tbl.AppendRow(table.Row{
			fmt.Sprintf("b%02d", b.Beam),
			fmt.Sprintf("%.3f", b.MeanDeg),
			fmt.Sprintf("%.3f", b.StdDeg),
			derived, held, sentinel, suspect,
		})
	}

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return err
	}

	for _, b := range beams {
		if b.StdDeg > stdWarnDeg {
			Warn(w, "beam b%02d: XY phase scatter %.2f deg exceeds %.1f deg", b.Beam, b.StdDeg, stdWarnDeg)
		}
	}

	if len(suspects) > 0 {
		Warn(w, "non-unit corrections applied to %s", strings.Join(suspects, ", "))
	}

	return nil
}

// FlagSummary writes one row per flagged beam with its bad channels.
func FlagSummary(w io.Writer, results []flagging.BeamResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, msgNoBeams)

		return err
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Beam", "Channels", "Flagged", "Bad channels", "Written"})

	for _, r := range results {
		tbl.AppendRow(table.Row{
			fmt.Sprintf("b%02d", r.Beam),
			r.Channels,
			len(r.Bad),
			joinInts(r.Bad),
			r.Written,
		})
	}

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return err
	}

	for _, r := range results {
		if !r.Written {
			Warn(w, "beam b%02d: flags were not written to %s", r.Beam, r.Table)
		}
	}

	return nil
}

// Warn writes a yellow warning line.
func Warn(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, "warning: "+format+"\n", args...)
}

// Success writes a green status line.
func Success(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return "-"
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}

	return strings.Join(parts, " ")
}
