package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every mailchat span.
const TracerName = "github.com/teemow/mailchat"

// Span attribute keys.
const (
	SpanAttrProvider  = "mail.provider"
	SpanAttrOperation = "mail.operation"
	SpanAttrThread    = "mail.thread_id"
	SpanAttrMessage   = "mail.message_id"
	SpanAttrCategory  = "mail.category"
	SpanAttrSource    = "mail.pipeline_source"
	SpanAttrJob       = "queue.job_id"
	SpanAttrAttempt   = "queue.attempt"
	SpanAttrTool      = "mcp.tool"
)

// SpanAttributeBuilder collects span attributes, skipping empty values.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder returns an empty builder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 6)}
}

func (b *SpanAttributeBuilder) str(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

func (b *SpanAttributeBuilder) WithProvider(provider string) *SpanAttributeBuilder {
	return b.str(SpanAttrProvider, provider)
}

func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	return b.str(SpanAttrOperation, operation)
}

func (b *SpanAttributeBuilder) WithThread(threadID string) *SpanAttributeBuilder {
	return b.str(SpanAttrThread, threadID)
}

func (b *SpanAttributeBuilder) WithMessage(messageID string) *SpanAttributeBuilder {
	return b.str(SpanAttrMessage, messageID)
}

func (b *SpanAttributeBuilder) WithCategory(category string) *SpanAttributeBuilder {
	return b.str(SpanAttrCategory, category)
}

func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	return b.str(SpanAttrTool, tool)
}

// WithJob adds the queue job id and the attempt number, which starts at 1.
func (b *SpanAttributeBuilder) WithJob(jobID string, attempt int) *SpanAttributeBuilder {
	b.str(SpanAttrJob, jobID)
	if attempt > 0 {
		b.attrs = append(b.attrs, attribute.Int(SpanAttrAttempt, attempt))
	}
	return b
}

// Build returns the collected attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartProviderSpan starts a client span named provider.<name>.<operation>.
func StartProviderSpan(ctx context.Context, provider, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := NewSpanAttributeBuilder().WithProvider(provider).WithOperation(operation).Build()
	return tracer().Start(ctx, "provider."+provider+"."+operation,
		trace.WithAttributes(append(base, attrs...)...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartJobSpan starts a consumer span for one attempt at a queued job.
func StartJobSpan(ctx context.Context, jobID string, attempt int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "queue.job",
		trace.WithAttributes(NewSpanAttributeBuilder().WithJob(jobID, attempt).Build()...),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}

// SetSpanError records err on span. A nil err leaves the span untouched.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// EndSpan sets the status from err and ends span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
}

// AddSpanEvent adds a named event to span.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// TraceID returns the trace id of the span in ctx, or "" without one.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
