package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".polcal"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix, e.g. POLCAL_FLAG_THRESH_UPPER.
const envPrefix = "POLCAL"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars and defaults.
// A non-empty configPath must exist; otherwise .polcal.yaml is searched in
// CWD and $HOME and a missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("correct.antenna", DefaultCorrectAntenna)
	viperCfg.SetDefault("correct.sense", DefaultCorrectSense)
	viperCfg.SetDefault("correct.beams", DefaultCorrectBeams)
	viperCfg.SetDefault("correct.bandwidth", DefaultCorrectBandwidth)
	viperCfg.SetDefault("correct.channel_width", DefaultCorrectChannelWidth)
	viperCfg.SetDefault("correct.extension", DefaultCorrectExtension)
	viperCfg.SetDefault("correct.leakage_dir", DefaultCorrectLeakageDir)

	viperCfg.SetDefault("flag.thresh_upper", DefaultFlagThreshUpper)
	viperCfg.SetDefault("flag.thresh_lower", DefaultFlagThreshLower)
	viperCfg.SetDefault("flag.rot_ant", DefaultFlagRotAnt)
	viperCfg.SetDefault("flag.any_ant", DefaultFlagAnyAnt)
	viperCfg.SetDefault("flag.ms_dir", DefaultFlagMSDir)
	viperCfg.SetDefault("flag.ms_pattern", DefaultFlagMSPattern)
	viperCfg.SetDefault("flag.leakage_dir", DefaultFlagLeakageDir)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultTelemetryOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultTelemetryOTLPInsecure)
	viperCfg.SetDefault("telemetry.otlp_headers", DefaultTelemetryOTLPHeaders)
	viperCfg.SetDefault("telemetry.environment", DefaultTelemetryEnvironment)
	viperCfg.SetDefault("telemetry.mode", DefaultTelemetryMode)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
	viperCfg.SetDefault("telemetry.metrics_file", DefaultTelemetryMetricsFile)
}
