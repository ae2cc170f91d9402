package connector

import (
	"errors"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/teemow/mailchat/internal/domain"
)

// ErrMalformedRecord marks a provider record that cannot become an Envelope.
var ErrMalformedRecord = errors.New("malformed provider record")

// ParseAddressList extracts the bare addresses from a header value such as
// `"Ann" <ann@x.com>, bob@y.com`. Unparseable entries are kept verbatim when
// they look like an address and skipped otherwise.
func ParseAddressList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if list, err := mail.ParseAddressList(value); err == nil {
		out := make([]string, 0, len(list))
		for _, a := range list {
			if a.Address != "" {
				out = append(out, a.Address)
			}
		}
		return out
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "@") {
			out = append(out, strings.Trim(part, "<>\" "))
		}
	}
	return out
}

// ParseAddress returns the bare address of a single header value, or "".
func ParseAddress(value string) string {
	list := ParseAddressList(value)
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// ResolveSentAt parses an RFC 5322 or RFC 3339 timestamp. A missing or
// unparseable value resolves to now.
func ResolveSentAt(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now
	}
	if t, err := netmail.ParseDate(value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return now
}

// ParseReferences splits a References header into its message ids in order.
// An empty header yields nil so the field stays absent.
func ParseReferences(value string) []string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Validate enforces the envelope invariants a mapped record must satisfy.
func Validate(env *Envelope) error {
	if env.ID == "" {
		return errors.Join(ErrMalformedRecord, errors.New("missing provider id"))
	}
	if len(env.To) == 0 {
		return errors.Join(ErrMalformedRecord, errors.New("no recipients"))
	}
	if env.SentAt.IsZero() {
		return errors.Join(ErrMalformedRecord, errors.New("unresolved timestamp"))
	}
	return nil
}

// ValidatePayload rejects a send without recipients before any provider
// call is made.
func ValidatePayload(payload SendPayload) error {
	if len(payload.To) == 0 {
		return domain.NewValidationError("to", "needs at least one recipient")
	}
	return nil
}
