// Package config loads polcal settings from .polcal.yaml, POLCAL_* environment
// variables and defaults.
package config

// Correction defaults.
const (
	DefaultCorrectAntenna      = 0
	DefaultCorrectSense        = -1
	DefaultCorrectBeams        = 36
	DefaultCorrectBandwidth    = 192
	DefaultCorrectChannelWidth = 54
	DefaultCorrectExtension    = ".xy"
	DefaultCorrectLeakageDir   = ""
)

// Flagging defaults.
const (
	DefaultFlagThreshUpper = 0.12
	DefaultFlagThreshLower = 0.0
	DefaultFlagRotAnt      = 0
	DefaultFlagAnyAnt      = false
	DefaultFlagMSDir       = "BPCAL"
	DefaultFlagMSPattern   = "1934_SB{target}_beam{beam}_apply.ms"
	DefaultFlagLeakageDir  = ""
)

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)

// Telemetry modes.
const (
	TelemetryModeCLI   = "cli"
	TelemetryModeBatch = "batch"
)

// Telemetry defaults.
const (
	DefaultTelemetryOTLPEndpoint = ""
	DefaultTelemetryOTLPInsecure = false
	DefaultTelemetryOTLPHeaders  = ""
	DefaultTelemetryEnvironment  = ""
	DefaultTelemetryMode         = TelemetryModeCLI
	DefaultTelemetrySampleRatio  = 0.0
	DefaultTelemetryMetricsFile  = ""
)
