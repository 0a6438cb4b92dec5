// Package main provides the entry point for the polcal CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/candersoncsiro/process-polcal/cmd/polcal/commands"
	"github.com/candersoncsiro/process-polcal/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	globals := &commands.Globals{}

	rootCmd := &cobra.Command{
		Use:   "polcal",
		Short: "Leakage-driven XY-phase correction and channel flagging",
		Long: `polcal post-processes PAF calibration products using the on-axis
polarization leakage solutions.

Commands:
  correct   Apply leakage-derived XY-phase corrections to a bandpass table
  flag      Flag 1 MHz channels with anomalous leakage amplitudes
  inspect   Describe the columns of a table`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	globals.Bind(rootCmd.PersistentFlags())

	rootCmd.AddCommand(commands.NewCorrectCommand(globals))
	rootCmd.AddCommand(commands.NewFlagCommand(globals))
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
