package commands

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candersoncsiro/process-polcal/internal/bandpass"
	"github.com/candersoncsiro/process-polcal/internal/channel"
	"github.com/candersoncsiro/process-polcal/internal/config"
	"github.com/candersoncsiro/process-polcal/internal/flagging"
	"github.com/candersoncsiro/process-polcal/internal/leakage"
	"github.com/candersoncsiro/process-polcal/pkg/observability"
	"github.com/candersoncsiro/process-polcal/pkg/table"
)

// execute runs the polcal command tree with an empty config file.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "polcal.yaml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o600))

	globals := &Globals{}
	root := &cobra.Command{Use: "polcal", SilenceUsage: true, SilenceErrors: true}
	globals.Bind(root.PersistentFlags())
	root.AddCommand(NewCorrectCommand(globals), NewFlagCommand(globals), NewInspectCommand())

	var outBuf, errBuf bytes.Buffer

	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))

	err = root.ExecuteContext(context.Background())

	return outBuf.String(), errBuf.String(), err
}

func writeLeakage(t *testing.T, dir string, beam, ch int, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, leakage.FileName(beam, ch)), []byte(content), 0o600))
}

func TestCorrectCommand(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	const beams, channels = 2, 3

	bp := table.NewArray[complex64](1, beams, 1, channel.BandpassLength(channels, channel.Width))
	for i := range bp.Data {
		bp.Data[i] = 1
	}

	tbl, err := table.Create(filepath.Join(base, "bp.tab"), map[string]table.Column{bandpass.Column: bp})
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	for b := range beams {
		for ch := range channels {
			writeLeakage(t, filepath.Join(base, bandpass.LeakageSubdir), b, ch, "leakage.d12.0.0 = [0.0, 0.5]\n")
		}
	}

	plot := filepath.Join(base, "phase.html")
	metrics := filepath.Join(base, "polcal.prom")

	stdout, _, err := execute(t, "correct", base, "bp.tab",
		"-s", "1", "-n", "2", "-b", "3", "--plot", plot, "--metrics-file", metrics)
	require.NoError(t, err)

	assert.Contains(t, stdout, "b01")
	assert.Contains(t, stdout, "wrote "+filepath.Join(base, "bp.tab.xy"))

	_, statErr := os.Stat(plot)
	require.NoError(t, statErr)

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "polcal_beams_total")

	out, err := table.Open(filepath.Join(base, "bp.tab.xy"))
	require.NoError(t, err)

	got, err := out.GetComplex(bandpass.Column)
	require.NoError(t, err)
	assert.Equal(t, complex64(1), got.At(0, 1, 0, 0))
	assert.Equal(t, complex64(complex(0, -1)), got.At(0, 1, 0, 1))
}

func TestCorrectCommand_DefaultSenseUnsupported(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "correct", t.TempDir(), "bp.tab")
	require.ErrorIs(t, err, bandpass.ErrUnsupportedSense)
}

func TestCorrectCommand_ArgCount(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "correct", t.TempDir())
	require.Error(t, err)
}

func TestFlagCommand(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	const channels = 2

	for beam := range 2 {
		path := flagging.MSPath(base, "", "", "4242", beam)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))

		tbl, err := table.Create(path, map[string]table.Column{
			flagging.ColumnFlag: table.NewArray[bool](1, channels*channel.Width, 4),
		})
		require.NoError(t, err)
		require.NoError(t, tbl.Close())

		for ch := range channels {
			amp := 0.05
			if ch == beam {
				amp = 0.2
			}

			writeLeakage(t, filepath.Join(base, flagging.LeakageSubdir), beam, ch,
				fmt.Sprintf("leakage.d12.0.0 = [%g, 0.0]\nleakage.d21.0.0 = [0.01, 0.0]\n", amp))
		}
	}

	stdout, _, err := execute(t, "flag", base, "4242", "0-1", "--thresh-upper", "0.15")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Bad channels")

	for beam := range 2 {
		tbl, openErr := table.Open(flagging.MSPath(base, "", "", "4242", beam))
		require.NoError(t, openErr)

		flags, getErr := tbl.GetBool(flagging.ColumnFlag)
		require.NoError(t, getErr)

		for ch := range channels {
			assert.Equal(t, ch == beam, flags.At(0, ch*channel.Width, 0), "beam %d channel %d", beam, ch)
		}
	}
}

func TestFlagCommand_BadBeams(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "flag", t.TempDir(), "4242", "5-1")
	require.ErrorIs(t, err, flagging.ErrInvalidBeams)
}

func TestInspectCommand(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vis.ms")

	tbl, err := table.Create(path, map[string]table.Column{
		"FLAG":     table.NewArray[bool](2, 108, 4),
		"ANTENNA1": table.NewArray[int32](2),
	})
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	stdout, _, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "FLAG")
	assert.Contains(t, stdout, "ANTENNA1")
	assert.Contains(t, stdout, "[2 108 4]")
	assert.Contains(t, stdout, "int32")
}

func TestObservabilityConfig_FromTelemetry(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Logging: config.LoggingConfig{JSON: true},
		Telemetry: config.TelemetryConfig{
			OTLPEndpoint: "collector:4317",
			OTLPHeaders:  "authorization=Bearer abc,x-tenant=askap",
			Environment:  "askap-ops",
			Mode:         config.TelemetryModeBatch,
			SampleRatio:  0.25,
			MetricsFile:  "polcal.prom",
		},
	}

	got := observabilityConfig(cfg, slog.LevelDebug)

	assert.Equal(t, "collector:4317", got.OTLPEndpoint)
	assert.Equal(t, map[string]string{"authorization": "Bearer abc", "x-tenant": "askap"}, got.OTLPHeaders)
	assert.Equal(t, "askap-ops", got.Environment)
	assert.Equal(t, observability.ModeBatch, got.Mode)
	assert.InDelta(t, 0.25, got.SampleRatio, 1e-12)
	assert.Equal(t, "polcal.prom", got.MetricsFile)
	assert.Equal(t, slog.LevelDebug, got.LogLevel)
	assert.True(t, got.LogJSON)

	cfg.Telemetry.Mode = config.TelemetryModeCLI
	assert.Equal(t, observability.ModeCLI, observabilityConfig(cfg, slog.LevelInfo).Mode)
}

// Not parallel: the color switch is process-wide.
func TestNoColorFlag(t *testing.T) {
	saved := color.NoColor

	t.Cleanup(func() { color.NoColor = saved })

	color.NoColor = false

	_, _, err := execute(t, "--no-color", "correct", t.TempDir(), "bp.tab")
	require.Error(t, err)
	assert.True(t, color.NoColor)
}
