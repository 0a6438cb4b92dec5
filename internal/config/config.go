package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sentinel validation errors.
var (
	ErrInvalidAntenna      = errors.New("antenna index must be non-negative")
	ErrInvalidSense        = errors.New("sense must be 1 or -1")
	ErrInvalidBeams        = errors.New("number of beams must be positive")
	ErrInvalidBandwidth    = errors.New("bandwidth must be a positive number of 1 MHz channels")
	ErrInvalidChannelWidth = errors.New("channel width must be positive")
	ErrEmptyExtension      = errors.New("output extension must not be empty")
	ErrInvalidThresholds   = errors.New("lower threshold must not exceed upper threshold")
	ErrInvalidLogLevel     = errors.New("log level must be debug, info, warn or error")
	ErrInvalidSampleRatio  = errors.New("trace sample ratio must be within [0, 1]")
	ErrInvalidMode         = errors.New("telemetry mode must be cli or batch")
)

// Config is the full polcal configuration.
type Config struct {
	Correct   CorrectConfig   `mapstructure:"correct"`
	Flag      FlagConfig      `mapstructure:"flag"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// CorrectConfig configures the bandpass correction.
type CorrectConfig struct {
	Antenna int `mapstructure:"antenna"`
	Sense   int `mapstructure:"sense"`
	Beams   int `mapstructure:"beams"`
	// Bandwidth is in MHz, one leakage channel per MHz.
	Bandwidth    int    `mapstructure:"bandwidth"`
	ChannelWidth int    `mapstructure:"channel_width"`
	Extension    string `mapstructure:"extension"`
	// LeakageDir overrides <basedir>/script_io.
	LeakageDir string `mapstructure:"leakage_dir"`
}

// FlagConfig configures leakage-based flagging.
type FlagConfig struct {
	ThreshUpper float64 `mapstructure:"thresh_upper"`
	ThreshLower float64 `mapstructure:"thresh_lower"`
	RotAnt      int     `mapstructure:"rot_ant"`
	AnyAnt      bool    `mapstructure:"any_ant"`
	MSDir       string  `mapstructure:"ms_dir"`
	MSPattern   string  `mapstructure:"ms_pattern"`
	LeakageDir  string  `mapstructure:"leakage_dir"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig configures trace and metric export.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	// OTLPHeaders is "key=value,key=value", e.g. an auth token for the collector.
	OTLPHeaders string  `mapstructure:"otlp_headers"`
	Environment string  `mapstructure:"environment"`
	Mode        string  `mapstructure:"mode"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	MetricsFile string  `mapstructure:"metrics_file"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch {
	case c.Correct.Antenna < 0:
		return fmt.Errorf("correct.antenna: %w", ErrInvalidAntenna)
	case c.Correct.Sense != 1 && c.Correct.Sense != -1:
		return fmt.Errorf("correct.sense %d: %w", c.Correct.Sense, ErrInvalidSense)
	case c.Correct.Beams <= 0:
		return fmt.Errorf("correct.beams: %w", ErrInvalidBeams)
	case c.Correct.Bandwidth <= 0:
		return fmt.Errorf("correct.bandwidth: %w", ErrInvalidBandwidth)
	case c.Correct.ChannelWidth <= 0:
		return fmt.Errorf("correct.channel_width: %w", ErrInvalidChannelWidth)
	case c.Correct.Extension == "":
		return fmt.Errorf("correct.extension: %w", ErrEmptyExtension)
	case c.Flag.RotAnt < 0:
		return fmt.Errorf("flag.rot_ant: %w", ErrInvalidAntenna)
	case c.Flag.ThreshLower > c.Flag.ThreshUpper:
		return fmt.Errorf("flag thresholds %g > %g: %w", c.Flag.ThreshLower, c.Flag.ThreshUpper, ErrInvalidThresholds)
	case c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1:
		return fmt.Errorf("telemetry.sample_ratio %g: %w", c.Telemetry.SampleRatio, ErrInvalidSampleRatio)
	case c.Telemetry.Mode != TelemetryModeCLI && c.Telemetry.Mode != TelemetryModeBatch:
		return fmt.Errorf("telemetry.mode %q: %w", c.Telemetry.Mode, ErrInvalidMode)
	}

	_, levelErr := ParseLevel(c.Logging.Level)

	return levelErr
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level %q: %w", name, ErrInvalidLogLevel)
	}
}
