package connector

import (
	"context"
	"time"
)

// Provider identifies a connector variant.
type Provider string

const (
	ProviderGoogle    Provider = "GOOGLE"
	ProviderMicrosoft Provider = "MICROSOFT"
	ProviderIMAPSMTP  Provider = "IMAP_SMTP"
)

// DefaultMaxResults is the page size used when SyncOptions.MaxResults is zero.
const DefaultMaxResults = 25

// Envelope is the normalized, provider-agnostic representation of one email.
// InReplyTo and References are empty when the provider does not supply them.
type Envelope struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	Text       string    `json:"text"`
	HTML       string    `json:"html,omitempty"`
	SentAt     time.Time `json:"sentAt"`
	MessageID  string    `json:"messageId,omitempty"`
	InReplyTo  string    `json:"inReplyTo,omitempty"`
	References []string  `json:"references,omitempty"`
}

// SyncOptions controls one sync page.
type SyncOptions struct {
	Cursor     string
	MaxResults int
}

// PageSize returns MaxResults or DefaultMaxResults when unset.
func (o SyncOptions) PageSize() int {
	if o.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return o.MaxResults
}

// SyncResult is one page of envelopes. NextCursor is empty when there is no
// further page.
type SyncResult struct {
	Envelopes  []Envelope
	NextCursor string
	// Dropped counts provider records that could not be mapped.
	Dropped int
}

// SendPayload is an outgoing message.
type SendPayload struct {
	From       string
	To         []string
	Subject    string
	Text       string
	HTML       string
	MessageID  string
	InReplyTo  string
	References []string
}

// SendResult carries the provider's identifier for a sent message.
type SendResult struct {
	RemoteMessageID string
}

// Connector is the capability contract every provider variant implements.
type Connector interface {
	Provider() Provider
	Connect(ctx context.Context) error
	Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error)
	Send(ctx context.Context, payload SendPayload) (*SendResult, error)
	Disconnect(ctx context.Context) error
}
