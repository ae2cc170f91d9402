package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testAccount  = "jane@example.com"
	testDomain   = "example.com"
	testToolList = "mailchat_list_threads"
	testToolSend = "mailchat_send_message"
)

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testToolList)

	if ti.Tool != testToolList {
		t.Errorf("Tool = %q, want %q", ti.Tool, testToolList)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("Success should be true")
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ti.Status() != StatusSuccess {
		t.Errorf("Status = %q, want %q", ti.Status(), StatusSuccess)
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testToolSend)
	ti.CompleteWithError(errors.New("thread not found"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "thread not found" {
		t.Errorf("Error = %q, want %q", ti.Error, "thread not found")
	}
	if ti.Status() != StatusError {
		t.Errorf("Status = %q, want %q", ti.Status(), StatusError)
	}
}

func TestToolInvocation_Builders(t *testing.T) {
	ti := NewToolInvocation(testToolSend).
		WithAccount(testAccount).
		WithProvider("gmail", OperationSend).
		WithThread("thread-lucy").
		WithSpanContext(context.Background())

	if ti.Account != testAccount {
		t.Errorf("Account = %q, want %q", ti.Account, testAccount)
	}
	if ti.Provider != "gmail" || ti.Operation != OperationSend {
		t.Errorf("Provider/Operation = %q/%q", ti.Provider, ti.Operation)
	}
	if ti.ThreadID != "thread-lucy" {
		t.Errorf("ThreadID = %q", ti.ThreadID)
	}
	if ti.TraceID != "" || ti.SpanID != "" {
		t.Error("expected empty trace context without a span")
	}
	if ti.AccountDomain() != testDomain {
		t.Errorf("AccountDomain = %q, want %q", ti.AccountDomain(), testDomain)
	}
}

func attrKeys(attrs []slog.Attr) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Value.String()
	}
	return out
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolSend).WithAccount(testAccount).WithThread("thread-ops")
	ti.TraceID = "abc"
	ti.SpanID = "def"
	ti.CompleteSuccess()

	tests := []struct {
		name        string
		attrs       []slog.Attr
		wantKey     string
		wantValue   string
		missingKeys []string
	}{
		{
			name:        "anonymized",
			attrs:       ti.LogAttrs(),
			wantKey:     "account_domain",
			wantValue:   testDomain,
			missingKeys: []string{"account", "span_id"},
		},
		{
			name:        "audit",
			attrs:       ti.LogAuditAttrs(),
			wantKey:     "account",
			wantValue:   testAccount,
			missingKeys: []string{"account_domain"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := attrKeys(tt.attrs)
			if keys[tt.wantKey] != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantKey, keys[tt.wantKey], tt.wantValue)
			}
			if keys["thread_id"] != "thread-ops" {
				t.Errorf("thread_id = %q", keys["thread_id"])
			}
			for _, k := range tt.missingKeys {
				if _, ok := keys[k]; ok {
					t.Errorf("unexpected key %q", k)
				}
			}
		})
	}
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	tests := []struct {
		name      string
		config    AuditLoggingConfig
		success   bool
		wantEmpty bool
		contains  []string
		excludes  []string
	}{
		{
			name:     "success without PII",
			config:   AuditLoggingConfig{Enabled: true},
			success:  true,
			contains: []string{"tool_executed", testDomain},
			excludes: []string{testAccount},
		},
		{
			name:     "failure with PII",
			config:   AuditLoggingConfig{Enabled: true, IncludePII: true},
			success:  false,
			contains: []string{"tool_failed", testAccount},
		},
		{
			name:      "disabled",
			config:    AuditLoggingConfig{Enabled: false},
			success:   true,
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			al := NewAuditLoggerWithConfig(logger, tt.config)

			ti := NewToolInvocation(testToolList).WithAccount(testAccount)
			if tt.success {
				ti.CompleteSuccess()
			} else {
				ti.CompleteWithError(errors.New("boom"))
			}
			al.LogToolInvocation(ti)

			out := buf.String()
			if tt.wantEmpty {
				if out != "" {
					t.Errorf("expected no output, got %q", out)
				}
				return
			}
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("expected output to contain %q, got %q", s, out)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(out, s) {
					t.Errorf("expected output not to contain %q, got %q", s, out)
				}
			}
		})
	}
}

func TestAuditLogger_Nil(t *testing.T) {
	var al *AuditLogger
	// Should not panic
	al.LogToolInvocation(NewToolInvocation(testToolList).CompleteSuccess())

	if NewAuditLogger(nil) == nil {
		t.Fatal("expected default audit logger")
	}
}
