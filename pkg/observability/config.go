// Package observability wires OpenTelemetry tracing and metrics and the
// structured logger used by the polcal commands.
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot command run.
	ModeCLI AppMode = "cli"
	// ModeBatch is a run driven by a pipeline script with no terminal attached.
	ModeBatch AppMode = "batch"
)

const (
	defaultServiceName        = "polcal"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Environment is the deployment environment, e.g. "askap-ops".
	Environment string
	Mode        AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export and the providers become no-op.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio. Zero samples everything.
	SampleRatio float64

	// MetricsFile, when set, receives the run metrics in Prometheus text
	// format on shutdown.
	MetricsFile string

	LogLevel slog.Level
	LogJSON  bool
	// LogWriter defaults to stderr.
	LogWriter io.Writer

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
