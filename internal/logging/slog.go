package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
)

// Attribute keys shared across packages.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyProvider  = "provider"
	KeyThread    = "thread_id"
	KeyMessage   = "message_id"
	KeyCategory  = "category"
	KeyJob       = "job_id"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyUserHash  = "user_hash"
	KeyDomain    = "user_domain"
)

// secretKeys are attribute keys whose values are never written.
var secretKeys = map[string]bool{
	"api_key":       true,
	"password":      true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"authorization": true,
}

const redacted = "[redacted]"

// New returns a JSON logger at info level, or a text logger at debug level
// when debug is set. Attributes named like credentials are redacted.
func New(w io.Writer, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo, ReplaceAttr: redactSecrets}
	if debug {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] && a.Value.Kind() != slog.KindGroup {
		return slog.String(a.Key, redacted)
	}
	return a
}

// WithService tags logger with a component name.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// WithProvider tags logger with a mail provider.
func WithProvider(logger *slog.Logger, provider string) *slog.Logger {
	return logger.With(slog.String(KeyProvider, provider))
}

// Attribute constructors for the shared keys.

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }
func Provider(provider string) slog.Attr { return slog.String(KeyProvider, provider) }
func Thread(threadID string) slog.Attr { return slog.String(KeyThread, threadID) }
func Message(messageID string) slog.Attr { return slog.String(KeyMessage, messageID) }
func Category(category string) slog.Attr { return slog.String(KeyCategory, category) }
func Job(jobID string) slog.Attr { return slog.String(KeyJob, jobID) }
func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }
func Domain(address string) slog.Attr { return slog.String(KeyDomain, ExtractDomain(address)) }
func UserHash(address string) slog.Attr { return slog.String(KeyUserHash, AnonymizeAddress(address)) }

// Err returns the error attribute. A nil err yields an empty group, which
// slog drops.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeAddress hashes a mail address so log lines can be correlated
// without recording it. Case and surrounding space do not change the hash.
func AnonymizeAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(address))
	return "user:" + hex.EncodeToString(sum[:8])
}

// ExtractDomain returns the lowercased domain of address, or "" when the
// address has no single @.
func ExtractDomain(address string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(address), "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return ""
	}
	return strings.ToLower(domain)
}
