package gmail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailchat/internal/connector"
)

// HeaderValue returns the first header with the given name, compared
// case-insensitively, or "".
func HeaderValue(m *gmailapi.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// MapMessage converts a full-format Gmail message into an envelope.
func MapMessage(m *gmailapi.Message, now time.Time) (*connector.Envelope, error) {
	if m == nil {
		return nil, connector.ErrMalformedRecord
	}

	env := &connector.Envelope{
		ID:         m.Id,
		From:       connector.ParseAddress(HeaderValue(m, "From")),
		To:         connector.ParseAddressList(HeaderValue(m, "To")),
		Subject:    HeaderValue(m, "Subject"),
		MessageID:  strings.TrimSpace(HeaderValue(m, "Message-ID")),
		InReplyTo:  strings.TrimSpace(HeaderValue(m, "In-Reply-To")),
		References: connector.ParseReferences(HeaderValue(m, "References")),
	}

	fallback := now
	if m.InternalDate > 0 {
		fallback = time.UnixMilli(m.InternalDate).UTC()
	}
	env.SentAt = connector.ResolveSentAt(HeaderValue(m, "Date"), fallback)

	text, err := findBody(m.Payload, "text/plain")
	if err != nil {
		return nil, err
	}
	html, err := findBody(m.Payload, "text/html")
	if err != nil {
		return nil, err
	}
	if text == "" && html == "" {
		text = m.Snippet
	}
	env.Text = text
	env.HTML = html

	return env, nil
}

// findBody returns the decoded data of the first part with mimeType.
func findBody(payload *gmailapi.MessagePart, mimeType string) (string, error) {
	var data string
	walkParts(payload, func(part *gmailapi.MessagePart) {
		if data == "" && part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
			data = part.Body.Data
		}
	})
	if data == "" {
		return "", nil
	}
	return decodeBody(data)
}

// decodeBody decodes base64url body data, falling back to standard base64.
func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
	}
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode message body: %w", err)
		}
	}
	return string(decoded), nil
}

// walkParts recursively walks through message parts
func walkParts(part *gmailapi.MessagePart, fn func(*gmailapi.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// encodeRFC2047 encodes a string for use in email headers according to RFC 2047
// This is necessary for non-ASCII characters (like German umlauts) in subjects
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// BuildRawMessage renders payload in RFC 2822 format.
func BuildRawMessage(payload connector.SendPayload) string {
	var b strings.Builder

	writeHeader := func(name, value string) {
		if value == "" {
			return
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	writeHeader("From", payload.From)
	writeHeader("To", strings.Join(payload.To, ", "))
	writeHeader("Subject", encodeRFC2047(payload.Subject))
	writeHeader("Message-ID", payload.MessageID)
	writeHeader("In-Reply-To", payload.InReplyTo)
	writeHeader("References", strings.Join(payload.References, " "))

	body := payload.Text
	if payload.HTML != "" {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
		body = payload.HTML
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return b.String()
}
