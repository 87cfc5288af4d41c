// Package observability wires OpenTelemetry tracing and metrics together with
// a zerolog logger that stamps trace and span ids on every event.
package observability

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Sampler names accepted in OTEL_TRACES_SAMPLER.
const (
	SamplerAlwaysOn                = "always_on"
	SamplerAlwaysOff               = "always_off"
	SamplerTraceIDRatio            = "traceidratio"
	SamplerParentBasedAlwaysOn     = "parentbased_always_on"
	SamplerParentBasedAlwaysOff    = "parentbased_always_off"
	SamplerParentBasedTraceIDRatio = "parentbased_traceidratio"
)

// Config holds configuration for OpenTelemetry instrumentation and logging
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	TracesEndpoint   string
	TracesEnabled    bool
	TracesSampler    string
	TracesSamplerArg string

	MetricsEndpoint string
	MetricsEnabled  bool

	LogLevel  string
	LogFormat string // json or console
}

// LoadConfig loads observability configuration from environment variables
func LoadConfig() Config {
	return Config{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "image-library"),
		ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.4.0"),
		Environment:    getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", getEnv("GO_ENV", "development")),

		TracesEndpoint:   getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://localhost:4318/v1/traces"),
		TracesEnabled:    getEnvBool("OTEL_TRACES_ENABLED", false),
		TracesSampler:    getEnv("OTEL_TRACES_SAMPLER", SamplerAlwaysOn),
		TracesSamplerArg: getEnv("OTEL_TRACES_SAMPLER_ARG", "1.0"),

		MetricsEndpoint: getEnv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "http://localhost:4318/v1/metrics"),
		MetricsEnabled:  getEnvBool("OTEL_METRICS_ENABLED", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}

	if c.TracesEnabled {
		if c.TracesEndpoint == "" {
			return errors.New("traces endpoint is required when traces are enabled")
		}
		if err := validateSampler(c.TracesSampler, c.TracesSamplerArg); err != nil {
			return err
		}
	}

	if c.MetricsEnabled && c.MetricsEndpoint == "" {
		return errors.New("metrics endpoint is required when metrics are enabled")
	}

	return nil
}

// validateSampler checks the sampler name and, for ratio samplers, that the
// argument is a probability.
func validateSampler(samplerType, samplerArg string) error {
	switch samplerType {
	case SamplerAlwaysOn, SamplerAlwaysOff, SamplerParentBasedAlwaysOn, SamplerParentBasedAlwaysOff:
		return nil
	case SamplerTraceIDRatio, SamplerParentBasedTraceIDRatio:
		_, err := parseRatio(samplerArg)
		return err
	default:
		return fmt.Errorf("unknown sampler type: %q", samplerType)
	}
}

func parseRatio(arg string) (float64, error) {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sampler arg %q: %w", arg, err)
	}
	if ratio < 0 || ratio > 1 {
		return 0, fmt.Errorf("sampler ratio must be between 0 and 1, got %v", ratio)
	}
	return ratio, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return value == "yes"
	}
	return b
}
