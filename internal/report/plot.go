package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/candersoncsiro/process-polcal/internal/bandpass"
)

const (
	plotTitle  = "XY phase correction per 1 MHz channel"
	plotHeight = "600px"
	lineWidth  = 1
)

// PhasePlot renders the per-channel XY phase of every beam as an interactive
// HTML line chart, one series per beam.
func PhasePlot(w io.Writer, title string, beams []bandpass.BeamStats) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: plotTitle,
			Width:     "100%",
			Height:    plotHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: plotTitle, Subtitle: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Channel"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "XY phase (deg)"}),
	)

	line.SetXAxis(channelLabels(beams))

	for _, b := range beams {
		data := make([]opts.LineData, len(b.Channels))
		for i, c := range b.Channels {
			data[i] = opts.LineData{Value: c.PhaseDeg}
		}

		line.AddSeries(fmt.Sprintf("b%02d", b.Beam), data,
			charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
		)
	}

	renderErr := line.Render(w)
	if renderErr != nil {
		return fmt.Errorf("render phase plot: %w", renderErr)
	}

	return nil
}

func channelLabels(beams []bandpass.BeamStats) []string {
	n := 0
	for _, b := range beams {
		n = max(n, len(b.Channels))
	}

	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}

	return labels
}
