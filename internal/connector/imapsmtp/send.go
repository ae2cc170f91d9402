package imapsmtp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/threading"
)

// Send submits payload over SMTP with PLAIN auth. The remote id is the
// Message-ID header, generated when the payload carries none.
func (c *Client) Send(ctx context.Context, payload connector.SendPayload) (*connector.SendResult, error) {
	if err := connector.ValidatePayload(payload); err != nil {
		return nil, err
	}
	if payload.From == "" {
		payload.From = c.creds.User
	}
	payload.MessageID = threading.MessageHeaderID(payload.MessageID)

	raw, err := BuildMessage(payload, c.now())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var client *smtp.Client
	if c.creds.Secure {
		client, err = smtp.DialTLS(c.creds.smtpAddr(), nil)
	} else {
		client, err = smtp.DialStartTLS(c.creds.smtpAddr(), nil)
	}
	if err != nil {
		return nil, connector.Unavailable(connector.ProviderIMAPSMTP, "send", fmt.Errorf("connecting to SMTP %s: %w", c.creds.smtpAddr(), err))
	}
	defer client.Close()

	if err := client.Auth(sasl.NewPlainClient("", c.creds.User, c.creds.Pass)); err != nil {
		return nil, connector.AuthExpired(connector.ProviderIMAPSMTP, "send", err)
	}
	if err := client.SendMail(payload.From, payload.To, bytes.NewReader(raw)); err != nil {
		return nil, connector.Unavailable(connector.ProviderIMAPSMTP, "send", fmt.Errorf("failed to send email: %w", err))
	}
	if err := client.Quit(); err != nil {
		return nil, connector.Unavailable(connector.ProviderIMAPSMTP, "send", err)
	}

	return &connector.SendResult{RemoteMessageID: payload.MessageID}, nil
}
