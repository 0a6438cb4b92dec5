// Package commands implements the polcal subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/candersoncsiro/process-polcal/internal/config"
	"github.com/candersoncsiro/process-polcal/internal/report"
	"github.com/candersoncsiro/process-polcal/pkg/observability"
	"github.com/candersoncsiro/process-polcal/pkg/version"
)

// Persistent flag names.
const (
	flagConfig       = "config"
	flagVerbose      = "verbose"
	flagQuiet        = "quiet"
	flagLogJSON      = "log-json"
	flagOTLPEndpoint = "otlp-endpoint"
	flagMetricsFile  = "metrics-file"
	flagNoColor      = "no-color"
)

// Globals holds the persistent flags shared by all subcommands.
type Globals struct {
	ConfigPath   string
	Verbose      bool
	Quiet        bool
	LogJSON      bool
	OTLPEndpoint string
	MetricsFile  string
	NoColor      bool
}

// Bind registers the persistent flags on fs.
func (g *Globals) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&g.ConfigPath, flagConfig, "", "Config file (default: .polcal.yaml in CWD or $HOME)")
	fs.BoolVarP(&g.Verbose, flagVerbose, "v", false, "Verbose output (debug logging)")
	fs.BoolVarP(&g.Quiet, flagQuiet, "q", false, "Only log warnings and errors, no summary tables")
	fs.BoolVar(&g.LogJSON, flagLogJSON, false, "Log as JSON")
	fs.StringVar(&g.OTLPEndpoint, flagOTLPEndpoint, "", "OTLP gRPC collector address for traces and metrics")
	fs.StringVar(&g.MetricsFile, flagMetricsFile, "", "Write run metrics in Prometheus text format to this file")
	fs.BoolVar(&g.NoColor, flagNoColor, false, "Disable colored summaries")
}

// session is the per-invocation state built from config and flags.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.RunMetrics
	providers observability.Providers
	quiet     bool
}

func (g *Globals) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed(flagLogJSON) {
		cfg.Logging.JSON = g.LogJSON
	}

	if flags.Changed(flagOTLPEndpoint) {
		cfg.Telemetry.OTLPEndpoint = g.OTLPEndpoint
	}

	if flags.Changed(flagMetricsFile) {
		cfg.Telemetry.MetricsFile = g.MetricsFile
	}

	if flags.Changed(flagNoColor) {
		report.SetColor(!g.NoColor)
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	switch {
	case g.Verbose:
		level = slog.LevelDebug
	case g.Quiet:
		level = slog.LevelWarn
	}

	obsCfg := observabilityConfig(cfg, level)
	obsCfg.LogWriter = cmd.ErrOrStderr()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		shutdownErr := providers.Shutdown(context.Background())

		return nil, fmt.Errorf("create run metrics: %w", errors.Join(err, shutdownErr))
	}

	return &session{
		cfg:       cfg,
		logger:    providers.Logger,
		metrics:   metrics,
		providers: providers,
		quiet:     g.Quiet,
	}, nil
}

func observabilityConfig(cfg *config.Config, level slog.Level) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.MetricsFile = cfg.Telemetry.MetricsFile
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON

	if cfg.Telemetry.Mode == config.TelemetryModeBatch {
		obsCfg.Mode = observability.ModeBatch
	}

	return obsCfg
}

func (s *session) close(ctx context.Context) error {
	err := s.providers.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("shutdown observability: %w", err)
	}

	return nil
}
