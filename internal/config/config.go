package config

import (
	"time"

	"adpulse/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable, e.g. ADPULSE_DATABASE_DSN.
const EnvPrefix = "ADPULSE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Database  DatabaseConfig  `envconfig:"DATABASE"`
	Logging   LoggingConfig   `envconfig:"LOGGING"`
	Analysis  AnalysisConfig  `envconfig:"ANALYSIS"`
	Profiling ProfilingConfig `envconfig:"PROFILING"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig selects the metric store
type DatabaseConfig struct {
	Driver string `envconfig:"DRIVER" default:"sqlite" validate:"oneof=postgres sqlite"`
	DSN    string `envconfig:"DSN" default:"file:adpulse.db?_pragma=busy_timeout(5000)" validate:"required"`
}

// LoggingConfig controls log level, encoding and destination
type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"FORMAT" default:"json" validate:"oneof=json console"`
	Output string `envconfig:"OUTPUT" default:"stdout"`
}

// AnalysisConfig holds window sizes and cache settings for reports
type AnalysisConfig struct {
	HistoryDays     int `envconfig:"HISTORY_DAYS" default:"30" validate:"min=1"`
	TrainingDays    int `envconfig:"TRAINING_DAYS" default:"90" validate:"min=1"`
	FeatureWindow   int `envconfig:"FEATURE_WINDOW" default:"7" validate:"min=1"`
	SmoothingWindow int `envconfig:"SMOOTHING_WINDOW" default:"5" validate:"min=1"`
	SequenceLength  int `envconfig:"SEQUENCE_LENGTH" default:"30" validate:"min=1"`
	ForecastHorizon int `envconfig:"FORECAST_HORIZON" default:"7" validate:"min=1"`
	CacheSize       int `envconfig:"CACHE_SIZE" default:"128" validate:"min=1"`
}

// WithDefaults fills unset or invalid fields with the documented defaults
func (c AnalysisConfig) WithDefaults() AnalysisConfig {
	fill := func(v *int, def int) {
		if *v < 1 {
			*v = def
		}
	}
	fill(&c.HistoryDays, 30)
	fill(&c.TrainingDays, 90)
	fill(&c.FeatureWindow, 7)
	fill(&c.SmoothingWindow, 5)
	fill(&c.SequenceLength, 30)
	fill(&c.ForecastHorizon, 7)
	fill(&c.CacheSize, 128)
	return c
}

// ProfilingConfig holds pprof settings
type ProfilingConfig struct {
	Addr    string `envconfig:"ADDR" default:"localhost:6060"`
	Enabled bool   `envconfig:"ENABLED" default:"false"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to read environment"))
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct constraints
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "configuration validation failed"))
	}
	return nil
}
