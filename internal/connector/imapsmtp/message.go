package imapsmtp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message/mail"

	"github.com/teemow/mailchat/internal/connector"
)

// MapMessage converts a fetched IMAP message into an envelope. raw is the
// peeked RFC 5322 message and may be nil.
func MapMessage(env *imap.Envelope, uid imap.UID, raw []byte, now time.Time) (*connector.Envelope, error) {
	if env == nil {
		return nil, errors.Join(connector.ErrMalformedRecord, errors.New("missing envelope"))
	}

	out := &connector.Envelope{
		ID:        strconv.FormatUint(uint64(uid), 10),
		Subject:   env.Subject,
		MessageID: bracket(env.MessageID),
		SentAt:    now,
	}
	if !env.Date.IsZero() {
		out.SentAt = env.Date
	}
	if len(env.From) > 0 {
		out.From = env.From[0].Addr()
	}
	for _, addr := range env.To {
		if a := addr.Addr(); a != "" {
			out.To = append(out.To, a)
		}
	}
	if len(env.InReplyTo) > 0 {
		out.InReplyTo = bracket(env.InReplyTo[0])
	}

	if len(raw) > 0 {
		text, html, refs := parseBody(raw)
		out.Text = text
		out.HTML = html
		out.References = refs
	}
	return out, nil
}

func bracket(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "<") {
		return id
	}
	return "<" + id + ">"
}

// parseBody extracts the text and html parts and the References header.
func parseBody(raw []byte) (text, html string, refs []string) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw), "", nil
	}
	defer mr.Close()

	refs = connector.ParseReferences(mr.Header.Get("References"))

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(contentType, "text/plain") && text == "":
			text = string(body)
		case strings.HasPrefix(contentType, "text/html") && html == "":
			html = string(body)
		}
	}
	return text, html, refs
}

// BuildMessage renders payload as an RFC 5322 message. payload.MessageID
// must already be set.
func BuildMessage(payload connector.SendPayload, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetSubject(payload.Subject)
	h.SetMessageID(strings.Trim(payload.MessageID, "<>"))

	if payload.From != "" {
		h.SetAddressList("From", []*mail.Address{{Address: payload.From}})
	}
	to := make([]*mail.Address, 0, len(payload.To))
	for _, addr := range payload.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)
	if payload.InReplyTo != "" {
		h.Set("In-Reply-To", payload.InReplyTo)
	}
	if len(payload.References) > 0 {
		h.Set("References", strings.Join(payload.References, " "))
	}

	body := payload.Text
	if payload.HTML != "" {
		h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
		body = payload.HTML
	} else {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}
	return buf.Bytes(), nil
}
