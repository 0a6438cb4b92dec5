package commands

import (
	"github.com/spf13/cobra"

	"github.com/candersoncsiro/process-polcal/internal/flagging"
	"github.com/candersoncsiro/process-polcal/internal/report"
)

const (
	flagUse   = "flag <basedir> <target> <beams>"
	flagShort = "Flag 1 MHz channels with anomalous leakage amplitudes"
	flagLong  = `For each beam in <beams> ("N" or "N-M"), find the 1 MHz channels whose
leakage amplitude lies outside [thresh-lower, thresh-upper] and flag every fine
channel they cover, for all rows and polarizations, in the FLAG column of
<basedir>/BPCAL/1934_SB<target>_beam<NN>_apply.ms.`

	flagThreshUpper = "thresh-upper"
	flagThreshLower = "thresh-lower"
	flagRotAnt      = "rotant"
	flagAnyAnt      = "any-ant"

	flagArgs = 3
)

type flagCommand struct {
	globals *Globals

	threshUpper float64
	threshLower float64
	rotAnt      int
	anyAnt      bool
}

// NewFlagCommand creates the flag command.
func NewFlagCommand(g *Globals) *cobra.Command {
	fc := &flagCommand{globals: g}

	cmd := &cobra.Command{
		Use:   flagUse,
		Short: flagShort,
		Long:  flagLong,
		Args:  cobra.ExactArgs(flagArgs),
		RunE:  fc.run,
	}

	cmd.Flags().Float64Var(&fc.threshUpper, flagThreshUpper, 0, "Upper leakage amplitude threshold (default from config, 0.12)")
	cmd.Flags().Float64Var(&fc.threshLower, flagThreshLower, 0, "Lower leakage amplitude threshold (default from config, 0.0)")
	cmd.Flags().IntVarP(&fc.rotAnt, flagRotAnt, "r", 0, "Rotated antenna index")
	cmd.Flags().BoolVar(&fc.anyAnt, flagAnyAnt, false, "Flag a channel if any antenna's leakage is out of bounds")

	return cmd
}

func (fc *flagCommand) run(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()

	beams, err := flagging.ParseBeams(args[2])
	if err != nil {
		return err
	}

	sess, err := fc.globals.open(cmd)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := sess.close(ctx)
		if err == nil {
			err = closeErr
		}
	}()

	cfg := sess.cfg.Flag
	flags := cmd.Flags()

	if flags.Changed(flagThreshUpper) {
		cfg.ThreshUpper = fc.threshUpper
	}

	if flags.Changed(flagThreshLower) {
		cfg.ThreshLower = fc.threshLower
	}

	if flags.Changed(flagRotAnt) {
		cfg.RotAnt = fc.rotAnt
	}

	if flags.Changed(flagAnyAnt) {
		cfg.AnyAnt = fc.anyAnt
	}

	sess.logger.InfoContext(ctx, "flagging leakage outliers",
		"basedir", args[0], "target", args[1], "beams", args[2],
		"thresh_lower", cfg.ThreshLower, "thresh_upper", cfg.ThreshUpper,
		"rot_ant", cfg.RotAnt, "any_ant", cfg.AnyAnt)

	results, err := flagging.Run(ctx, flagging.RunConfig{
		BaseDir:        args[0],
		Target:         args[1],
		Beams:          beams,
		MSDir:          cfg.MSDir,
		MSPattern:      cfg.MSPattern,
		LeakageDir:     cfg.LeakageDir,
		Thresholds:     flagging.Thresholds{Lower: cfg.ThreshLower, Upper: cfg.ThreshUpper},
		RotatedAntenna: cfg.RotAnt,
		AnyAntenna:     cfg.AnyAnt,
		ChannelWidth:   sess.cfg.Correct.ChannelWidth,
		Logger:         sess.logger,
		Metrics:        sess.metrics,
	})

	if !sess.quiet && len(results) > 0 {
		summaryErr := report.FlagSummary(cmd.OutOrStdout(), results)
		if err == nil {
			err = summaryErr
		}
	}

	return err
}
