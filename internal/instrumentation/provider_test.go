package instrumentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func startProvider(t *testing.T, c Config) *Provider {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := NewProvider(ctx, c)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func TestNewProvider_Disabled(t *testing.T) {
	p := startProvider(t, Config{ServiceName: "mailchat-test", Enabled: false})

	if p.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if p.Metrics() == nil {
		t.Fatal("Metrics() must not be nil when disabled")
	}
	if p.PrometheusHandler() != nil {
		t.Error("disabled provider must not expose a registry")
	}
	if p.Tracer("x") == nil {
		t.Error("expected a no-op tracer")
	}

	// Recording on a disabled provider is a no-op.
	p.Metrics().RecordQueueJob(context.Background(), JobCompleted)
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name        string
		metrics     string
		tracing     string
		endpoint    string
		wantErr     bool
		wantHandler bool
	}{
		{name: "prometheus and no tracing", metrics: ExporterPrometheus, tracing: ExporterNone, wantHandler: true},
		{name: "empty names fall back to defaults", wantHandler: true},
		{name: "stdout", metrics: ExporterStdout, tracing: ExporterStdout},
		{name: "unknown metrics exporter", metrics: "statsd", tracing: ExporterNone, wantErr: true},
		{name: "unknown tracing exporter", metrics: ExporterPrometheus, tracing: "jaeger", wantErr: true},
		{name: "otlp tracing without endpoint", metrics: ExporterPrometheus, tracing: ExporterOTLP, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{
				ServiceName:     "mailchat-test",
				ServiceVersion:  "1.0.0",
				Enabled:         true,
				MetricsExporter: tt.metrics,
				TracingExporter: tt.tracing,
				OTLPEndpoint:    tt.endpoint,
			}

			p, err := NewProvider(context.Background(), c)
			if tt.wantErr {
				if err == nil {
					_ = p.Shutdown(context.Background())
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			defer func() { _ = p.Shutdown(context.Background()) }()

			if !p.Enabled() {
				t.Error("expected provider to be enabled")
			}
			if got := p.PrometheusHandler() != nil; got != tt.wantHandler {
				t.Errorf("PrometheusHandler() present = %v, want %v", got, tt.wantHandler)
			}
		})
	}
}

func TestProvider_PrometheusScrape(t *testing.T) {
	p := startProvider(t, Config{
		ServiceName:     "mailchat-test",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})

	ctx := context.Background()
	p.Metrics().RecordPipelineRun(ctx, SourceHeuristic, 3*time.Millisecond)
	p.Metrics().RecordQueueJob(ctx, JobDead)

	rec := httptest.NewRecorder()
	p.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"pipeline_runs",
		`source="heuristic"`,
		"queue_jobs",
		`result="dead"`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestProvider_SeparateRegistries(t *testing.T) {
	cfg := Config{ServiceName: "mailchat-test", Enabled: true}
	a := startProvider(t, cfg)
	b := startProvider(t, cfg)

	a.Metrics().RecordQueueJob(context.Background(), JobRetried)

	rec := httptest.NewRecorder()
	b.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(rec.Body.String(), `result="retried"`) {
		t.Error("a job recorded on one provider leaked into another provider's registry")
	}
}

func TestProvider_ShutdownTwice(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{ServiceName: "mailchat-test", Enabled: true})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("first Shutdown() error = %v", err)
	}
	// The SDK reports repeated shutdowns; callers only shut down once.
	_ = p.Shutdown(context.Background())
}
