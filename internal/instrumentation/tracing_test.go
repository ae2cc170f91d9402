package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans installs a recording tracer provider for the duration of t.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.AsInterface()
	}
	return m
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithProvider("gmail").
		WithOperation(OperationSync).
		WithThread("thread-lucy").
		WithMessage("msg-1").
		WithCategory("WORK").
		WithTool("mailchat_list_threads").
		WithJob("job-9", 2).
		Build()

	got := attrMap(attrs)
	want := map[string]any{
		SpanAttrProvider:  "gmail",
		SpanAttrOperation: OperationSync,
		SpanAttrThread:    "thread-lucy",
		SpanAttrMessage:   "msg-1",
		SpanAttrCategory:  "WORK",
		SpanAttrTool:      "mailchat_list_threads",
		SpanAttrJob:       "job-9",
		SpanAttrAttempt:   int64(2),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d attributes, got %d: %v", len(want), len(got), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestSpanAttributeBuilder_SkipsEmpty(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithThread("").
		WithMessage("").
		WithJob("", 0).
		WithCategory("NOTIFICATION").
		Build()

	if len(attrs) != 1 || string(attrs[0].Key) != SpanAttrCategory {
		t.Errorf("expected only the category attribute, got %v", attrs)
	}
}

func TestStartProviderSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartProviderSpan(context.Background(), "graph", OperationSend, attribute.Int("recipients", 2))
	EndSpan(span, nil)

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	s := ended[0]
	if s.Name() != "provider.graph.send" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", s.SpanKind())
	}
	got := attrMap(s.Attributes())
	if got[SpanAttrProvider] != "graph" || got[SpanAttrOperation] != OperationSend || got["recipients"] != int64(2) {
		t.Errorf("unexpected attributes %v", got)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want ok", s.Status().Code)
	}
}

func TestStartJobSpan(t *testing.T) {
	sr := recordSpans(t)

	ctx, span := StartJobSpan(context.Background(), "job-1", 3)
	if TraceID(ctx) == "" {
		t.Error("expected a trace id inside the job span")
	}
	EndSpan(span, errors.New("store unavailable"))

	s := sr.Ended()[0]
	if s.Name() != "queue.job" || s.SpanKind() != trace.SpanKindConsumer {
		t.Errorf("got span %q kind %v", s.Name(), s.SpanKind())
	}
	if s.Status().Code != codes.Error || s.Status().Description != "store unavailable" {
		t.Errorf("status = %+v", s.Status())
	}
	if len(s.Events()) != 1 || s.Events()[0].Name != "exception" {
		t.Errorf("expected the error recorded as an exception event, got %v", s.Events())
	}
}

func TestSetSpanError_NilLeavesStatusUnset(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartSpan(context.Background(), "pipeline.process")
	SetSpanError(span, nil)
	AddSpanEvent(span, "model_fallback", attribute.String("reason", "timeout"))
	span.End()

	s := sr.Ended()[0]
	if s.Status().Code != codes.Unset {
		t.Errorf("status = %v, want unset", s.Status().Code)
	}
	if len(s.Events()) != 1 || s.Events()[0].Name != "model_fallback" {
		t.Errorf("unexpected events %v", s.Events())
	}
}

func TestTraceID_NoSpan(t *testing.T) {
	if id := TraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
}
