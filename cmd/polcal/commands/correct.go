package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/candersoncsiro/process-polcal/internal/bandpass"
	"github.com/candersoncsiro/process-polcal/internal/report"
	"github.com/candersoncsiro/process-polcal/pkg/safeconv"
)

const (
	correctUse   = "correct <basedir> <bptab>"
	correctShort = "Apply leakage-derived XY-phase corrections to a bandpass table"
	correctLong  = `Copy <basedir>/<bptab> to <bptab><extension> and multiply one interleaved
polarization of every 1 MHz channel of every beam by the unit-amplitude
conjugate of the rotated antenna's d12 leakage. Leakage parsets are read from
<basedir>/script_io unless leakage_dir is configured.`

	flagAntenna   = "antenna"
	flagSense     = "sense"
	flagBeams     = "nbeams"
	flagBandwidth = "bandwidth"
	flagExtension = "extension"
	flagPlot      = "plot"

	correctArgs = 2
	plotPerm    = 0o644
)

type correctCommand struct {
	globals *Globals

	antenna   int
	sense     int
	beams     int
	bandwidth int
	extension string
	plot      string
}

// NewCorrectCommand creates the correct command.
func NewCorrectCommand(g *Globals) *cobra.Command {
	cc := &correctCommand{globals: g}

	cmd := &cobra.Command{
		Use:   correctUse,
		Short: correctShort,
		Long:  correctLong,
		Args:  cobra.ExactArgs(correctArgs),
		RunE:  cc.run,
	}

	cmd.Flags().IntVarP(&cc.antenna, flagAntenna, "a", 0, "Rotated antenna index")
	cmd.Flags().IntVarP(&cc.sense, flagSense, "s", -1, "Rotation sense: 1 clockwise, -1 counter-clockwise")
	cmd.Flags().IntVarP(&cc.beams, flagBeams, "n", 0, "Number of beams (default from config, 36)")
	cmd.Flags().IntVarP(&cc.bandwidth, flagBandwidth, "b", 0, "Bandwidth in MHz (default from config, 192)")
	cmd.Flags().StringVarP(&cc.extension, flagExtension, "x", "", "Output table extension (default from config, .xy)")
	cmd.Flags().StringVar(&cc.plot, flagPlot, "", "Write an HTML plot of the per-channel XY phase to this file")

	return cmd
}

func (cc *correctCommand) run(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()

	sess, err := cc.globals.open(cmd)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := sess.close(ctx)
		if err == nil {
			err = closeErr
		}
	}()

	cfg := sess.cfg.Correct
	flags := cmd.Flags()

	if flags.Changed(flagAntenna) {
		cfg.Antenna = cc.antenna
	}

	if flags.Changed(flagSense) {
		cfg.Sense = cc.sense
	}

	if flags.Changed(flagBeams) {
		cfg.Beams = cc.beams
	}

	if flags.Changed(flagBandwidth) {
		cfg.Bandwidth = cc.bandwidth
	}

	if flags.Changed(flagExtension) {
		cfg.Extension = cc.extension
	}

	sess.logger.InfoContext(ctx, "correcting bandpass",
		"basedir", args[0], "table", args[1],
		"antenna", cfg.Antenna, "sense", cfg.Sense,
		"beams", cfg.Beams, "bandwidth_mhz", cfg.Bandwidth)

	res, err := bandpass.Run(ctx, bandpass.RunConfig{
		BaseDir:    args[0],
		Table:      args[1],
		Extension:  cfg.Extension,
		LeakageDir: cfg.LeakageDir,
		Options: bandpass.Options{
			Beams:        cfg.Beams,
			Channels:     cfg.Bandwidth,
			ChannelWidth: cfg.ChannelWidth,
			Antenna:      cfg.Antenna,
			Sense:        bandpass.Sense(cfg.Sense),
			Logger:       sess.logger,
		},
		Metrics: sess.metrics,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !sess.quiet {
		summaryErr := report.BeamSummary(out, res.Result.Beams)
		if summaryErr != nil {
			return summaryErr
		}
	}

	if cc.plot != "" {
		plotErr := writePlot(cc.plot, args[1], res.Result.Beams)
		if plotErr != nil {
			return plotErr
		}
	}

	if res.Written && !sess.quiet {
		report.Success(out, "wrote %s (%s)", res.Output, humanize.Bytes(safeconv.ClampUint64(res.Bytes)))
	}

	return nil
}

func writePlot(path, title string, beams []bandpass.BeamStats) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, plotPerm)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}

	renderErr := report.PhasePlot(f, title, beams)
	closeErr := f.Close()

	if renderErr != nil {
		return renderErr
	}

	if closeErr != nil {
		return fmt.Errorf("close plot: %w", closeErr)
	}

	return nil
}
