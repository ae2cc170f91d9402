package instrumentation

import (
	"fmt"
	"strings"
)

// Config selects exporters and labels for metrics and traces. It is decoded
// from the telemetry section of the mailchat configuration.
type Config struct {
	ServiceName string `mapstructure:"service_name"`

	// ServiceVersion is filled in from the build, not from configuration.
	ServiceVersion string `mapstructure:"-"`

	// InstanceID defaults to the hostname.
	InstanceID string `mapstructure:"instance_id"`

	// Enabled turns metrics and tracing on. A disabled provider hands out
	// a Metrics value whose recorders are no-ops.
	Enabled bool `mapstructure:"enabled"`

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string `mapstructure:"metrics_exporter"`

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string `mapstructure:"tracing_exporter"`

	// OTLPEndpoint is host:port without a scheme.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// OTLPInsecure sends OTLP over plain HTTP. Spans carry thread ids, so
	// keep this off outside local setups.
	OTLPInsecure bool `mapstructure:"otlp_insecure"`

	TraceSamplingRate float64 `mapstructure:"trace_sampling_rate"`

	// DetailedLabels adds the owner's mail domain to tool metrics.
	DetailedLabels bool `mapstructure:"detailed_labels"`

	AuditLogging AuditLoggingConfig `mapstructure:"audit"`
}

// AuditLoggingConfig controls the tool audit log.
type AuditLoggingConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// IncludePII logs the full mailbox address instead of its domain.
	IncludePII bool `mapstructure:"include_pii"`
}

// Exporter names.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Label values shared by recorders and callers.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	SourceModel     = "model"
	SourceHeuristic = "heuristic"
)

// DefaultConfig returns the defaults registered for the telemetry section.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "mailchat",
		ServiceVersion:    "dev",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		AuditLogging: AuditLoggingConfig{
			Enabled: true,
		},
	}
}

// Normalize lowercases exporter names and fills empty ones with defaults.
func (c *Config) Normalize() {
	c.MetricsExporter = strings.ToLower(strings.TrimSpace(c.MetricsExporter))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
	if c.MetricsExporter == "" {
		c.MetricsExporter = ExporterPrometheus
	}
	if c.TracingExporter == "" {
		c.TracingExporter = ExporterNone
	}
	if c.ServiceName == "" {
		c.ServiceName = "mailchat"
	}
}

// Validate checks exporter names, the sampling rate and the OTLP endpoint.
// A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("telemetry.trace_sampling_rate must be between 0 and 1, got %g", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required for the otlp metrics exporter")
		}
	default:
		return fmt.Errorf("unsupported telemetry.metrics_exporter %q", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required for the otlp tracing exporter")
		}
	default:
		return fmt.Errorf("unsupported telemetry.tracing_exporter %q", c.TracingExporter)
	}
	return nil
}
