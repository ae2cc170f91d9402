package instrumentation

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if !c.Enabled {
		t.Error("expected telemetry enabled by default")
	}
	if c.MetricsExporter != ExporterPrometheus {
		t.Errorf("MetricsExporter = %q, want %q", c.MetricsExporter, ExporterPrometheus)
	}
	if c.TracingExporter != ExporterNone {
		t.Errorf("TracingExporter = %q, want %q", c.TracingExporter, ExporterNone)
	}
	if !c.AuditLogging.Enabled || c.AuditLogging.IncludePII {
		t.Errorf("unexpected audit defaults: %+v", c.AuditLogging)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfig_Normalize(t *testing.T) {
	c := Config{MetricsExporter: " OTLP ", TracingExporter: ""}
	c.Normalize()
	if c.MetricsExporter != ExporterOTLP {
		t.Errorf("MetricsExporter = %q", c.MetricsExporter)
	}
	if c.TracingExporter != ExporterNone {
		t.Errorf("TracingExporter = %q", c.TracingExporter)
	}
	if c.ServiceName != "mailchat" {
		t.Errorf("ServiceName = %q", c.ServiceName)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config {
		c := DefaultConfig()
		c.Normalize()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "disabled ignores everything", mutate: func(c *Config) {
			c.Enabled = false
			c.MetricsExporter = "statsd"
			c.TraceSamplingRate = 7
		}},
		{name: "sampling below zero", mutate: func(c *Config) { c.TraceSamplingRate = -0.1 }, wantErr: "trace_sampling_rate"},
		{name: "sampling above one", mutate: func(c *Config) { c.TraceSamplingRate = 1.5 }, wantErr: "trace_sampling_rate"},
		{name: "sampling bounds inclusive", mutate: func(c *Config) { c.TraceSamplingRate = 1 }},
		{name: "unknown metrics exporter", mutate: func(c *Config) { c.MetricsExporter = "statsd" }, wantErr: "metrics_exporter"},
		{name: "unknown tracing exporter", mutate: func(c *Config) { c.TracingExporter = "jaeger" }, wantErr: "tracing_exporter"},
		{name: "otlp metrics without endpoint", mutate: func(c *Config) { c.MetricsExporter = ExporterOTLP }, wantErr: "otlp_endpoint"},
		{name: "otlp traces without endpoint", mutate: func(c *Config) { c.TracingExporter = ExporterOTLP }, wantErr: "otlp_endpoint"},
		{name: "otlp with endpoint", mutate: func(c *Config) {
			c.MetricsExporter = ExporterOTLP
			c.TracingExporter = ExporterOTLP
			c.OTLPEndpoint = "collector:4318"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
