package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one MCP tool call for audit logging.
//
// # Privacy Considerations
//
// The Account field holds a mailbox address. When logging, consider:
//   - Using AccountDomain() for metrics and general logs
//   - Only logging the full address in audit-specific log streams
type ToolInvocation struct {
	Tool string

	// Target information
	Account   string // Mailbox address the tool acted on
	Provider  string // Mail provider (gmail, graph, imap_smtp)
	Operation string // Operation type (list, send, ingest, read)
	ThreadID  string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// AccountDomain returns the domain portion of the account for lower-cardinality logging.
func (ti *ToolInvocation) AccountDomain() string {
	return ExtractUserDomain(ti.Account)
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the attributes for general logs. The account is
// reduced to its domain.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	return ti.attrs(false)
}

// LogAuditAttrs returns the attributes for the audit stream, with the full
// account address and the span id.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	return ti.attrs(true)
}

var (
	auditOnly   = true
	generalOnly = false
)

func (ti *ToolInvocation) attrs(full bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	// Fields with only set are written to that stream alone.
	optional := []struct {
		key, value string
		only       *bool
	}{
		{"account", ti.Account, &auditOnly},
		{"account_domain", ti.accountDomain(), &generalOnly},
		{"provider", ti.Provider, nil},
		{"operation", ti.Operation, nil},
		{"thread_id", ti.ThreadID, nil},
		{"trace_id", ti.TraceID, nil},
		{"span_id", ti.SpanID, &auditOnly},
		{"error", ti.Error, nil},
	}
	for _, o := range optional {
		if o.value == "" || (o.only != nil && *o.only != full) {
			continue
		}
		attrs = append(attrs, slog.String(o.key, o.value))
	}
	return attrs
}

func (ti *ToolInvocation) accountDomain() string {
	if ti.Account == "" {
		return ""
	}
	return ti.AccountDomain()
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithAccount sets the mailbox address.
func (ti *ToolInvocation) WithAccount(account string) *ToolInvocation {
	ti.Account = account
	return ti
}

// WithProvider sets the mail provider and operation.
func (ti *ToolInvocation) WithProvider(provider, operation string) *ToolInvocation {
	ti.Provider = provider
	ti.Operation = operation
	return ti
}

// WithThread sets the thread the tool acted on.
func (ti *ToolInvocation) WithThread(threadID string) *ToolInvocation {
	ti.ThreadID = threadID
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger that does not log full addresses.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a tool invocation. Full addresses are only
// included when the logger was configured with IncludePII.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
