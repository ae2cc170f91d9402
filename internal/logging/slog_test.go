package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	return rec
}

func TestNew(t *testing.T) {
	t.Run("info level json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, false)
		logger.Debug("hidden")
		if buf.Len() != 0 {
			t.Fatalf("debug record written at info level: %s", buf.String())
		}
		logger.Info("thread opened", Thread("thread-lucy"))
		rec := decodeLine(t, &buf)
		if rec[KeyThread] != "thread-lucy" {
			t.Errorf("thread_id = %v", rec[KeyThread])
		}
	})

	t.Run("debug level text", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, true).Debug("job picked", Job("j-1"))
		out := buf.String()
		if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "job_id=j-1") {
			t.Errorf("unexpected text output %q", out)
		}
	})
}

func TestNew_RedactsSecrets(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"api_key", "sk-live-123"},
		{"password", "hunter2"},
		{"refresh_token", "1//0g"},
		{"Authorization", "Bearer abc"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			var buf bytes.Buffer
			New(&buf, false).Info("provider configured", slog.String(tt.key, tt.value), Provider("GOOGLE"))
			if strings.Contains(buf.String(), tt.value) {
				t.Fatalf("secret leaked into log: %s", buf.String())
			}
			rec := decodeLine(t, &buf)
			if rec[tt.key] != redacted {
				t.Errorf("%s = %v, want %q", tt.key, rec[tt.key], redacted)
			}
			if rec[KeyProvider] != "GOOGLE" {
				t.Errorf("non-secret attribute changed: %v", rec[KeyProvider])
			}
		})
	}
}

func TestLoggerTags(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	WithProvider(WithService(base, "sync"), "MICROSOFT").Info("page fetched")
	rec := decodeLine(t, &buf)
	if rec[KeyService] != "sync" || rec[KeyProvider] != "MICROSOFT" {
		t.Errorf("unexpected tags %v", rec)
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want string
	}{
		{"operation", Operation("inbox.send"), KeyOperation, "inbox.send"},
		{"provider", Provider("IMAP_SMTP"), KeyProvider, "IMAP_SMTP"},
		{"thread", Thread("thread-lucy"), KeyThread, "thread-lucy"},
		{"message", Message("msg-1"), KeyMessage, "msg-1"},
		{"category", Category("WORK"), KeyCategory, "WORK"},
		{"job", Job("j-2"), KeyJob, "j-2"},
		{"status", Status("SENT"), KeyStatus, "SENT"},
		{"domain", Domain("Lucy@Northwind.io"), KeyDomain, "northwind.io"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.key)
			}
			if got := tt.attr.Value.String(); got != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("smtp: 421 try later"))
	if attr.Key != KeyError || attr.Value.String() != "smtp: 421 try later" {
		t.Errorf("unexpected attr %v", attr)
	}

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("ok", Err(nil))
	if strings.Contains(buf.String(), KeyError) {
		t.Errorf("nil error must not produce an attribute: %s", buf.String())
	}
}

func TestAnonymizeAddress(t *testing.T) {
	a := AnonymizeAddress("lucy@northwind.io")
	if !strings.HasPrefix(a, "user:") || len(a) != len("user:")+16 {
		t.Errorf("unexpected hash format %q", a)
	}
	if strings.Contains(a, "lucy") {
		t.Error("hash must not contain the address")
	}
	if b := AnonymizeAddress("  LUCY@northwind.io "); b != a {
		t.Errorf("case and space must not change the hash: %q vs %q", a, b)
	}
	if AnonymizeAddress("alerts@northwind.io") == a {
		t.Error("different addresses must hash differently")
	}
	if AnonymizeAddress("") != "" {
		t.Error("empty address must stay empty")
	}
	if UserHash("lucy@northwind.io").Value.String() != a {
		t.Error("UserHash must use AnonymizeAddress")
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"lucy@northwind.io", "northwind.io"},
		{"you@MailChat.dev", "mailchat.dev"},
		{"lucy", ""},
		{"", ""},
		{"@northwind.io", ""},
		{"lucy@", ""},
		{"a@b@c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			if got := ExtractDomain(tt.address); got != tt.want {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.address, got, tt.want)
			}
		})
	}
}
