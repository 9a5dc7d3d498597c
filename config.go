package goSession

import (
	"errors"
	"os"
	"strings"
)

// EnvVar names the environment variable read for the default Config.Environment.
const EnvVar = "GOSESSION_ENV"

const (
	// EnvDevelopment is the default execution mode.
	EnvDevelopment = "development"
	// EnvTest marks test runs.
	EnvTest = "test"
	// EnvProduction enables the memory-store warning.
	EnvProduction = "production"
)

// DefaultTokenKey is the request field the default extractor reads.
const DefaultTokenKey = "token"

// Config controls a Manager. Build it with DefaultConfig and adjust fields before
// passing it to Builder.WithConfig.
type Config struct {
	// TokenKey is the query/form/JSON field holding the session token.
	TokenKey string
	// Environment is one of development, test or production.
	Environment string
	// Metrics controls the built-in counters.
	Metrics MetricsConfig
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables the in-process counters exposed through MetricsSnapshot.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used when none is supplied. Environment is
// taken from $GOSESSION_ENV and falls back to development.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(EnvVar)))
	if env == "" {
		env = EnvDevelopment
	}

	return Config{
		TokenKey:    DefaultTokenKey,
		Environment: env,
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	key := strings.TrimSpace(c.TokenKey)
	if key == "" {
		return errors.New("token key must not be empty")
	}
	if key != c.TokenKey || strings.ContainsAny(key, " \t\r\n&=") {
		return errors.New("token key must not contain whitespace, '&' or '='")
	}

	switch c.Environment {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return errors.New("environment must be development, test or production")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("latency histograms require metrics to be enabled")
	}

	return nil
}
