package inbox

import (
	"context"
	"net/mail"
	"strings"

	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/domain"
)

// IngestRequest is an inbound message addressed to an existing thread.
type IngestRequest struct {
	ThreadID    string   `json:"threadId"`
	FromAddress string   `json:"fromAddress"`
	ToAddresses []string `json:"toAddresses"`
	Subject     string   `json:"subject"`
	BodyText    string   `json:"bodyText"`
}

// Validate checks the request fields. It returns a *domain.ValidationError
// naming the first offending field.
func (r IngestRequest) Validate() error {
	if strings.TrimSpace(r.ThreadID) == "" {
		return domain.NewValidationError("threadId", "required")
	}
	if !isEmail(r.FromAddress) {
		return domain.NewValidationError("fromAddress", "must be an email address")
	}
	if len(r.ToAddresses) == 0 {
		return domain.NewValidationError("toAddresses", "at least one recipient required")
	}
	for _, to := range r.ToAddresses {
		if !isEmail(to) {
			return domain.NewValidationError("toAddresses", "must contain email addresses")
		}
	}
	if strings.TrimSpace(r.Subject) == "" {
		return domain.NewValidationError("subject", "required")
	}
	if strings.TrimSpace(r.BodyText) == "" {
		return domain.NewValidationError("bodyText", "required")
	}
	return nil
}

// SendResult is the outcome of SendThreadMessage. DeliveryError is set when
// the message was stored but the provider refused it.
type SendResult struct {
	Message         domain.Message `json:"message"`
	RemoteMessageID string         `json:"remoteMessageId,omitempty"`
	DeliveryError   string         `json:"deliveryError,omitempty"`
}

// SyncReport summarizes one SyncProvider call.
type SyncReport struct {
	Provider   connector.Provider `json:"provider"`
	Fetched    int                `json:"fetched"`
	Dropped    int                `json:"dropped"`
	Ingested   int                `json:"ingested"`
	Duplicates int                `json:"duplicates"`
	Enqueued   int                `json:"enqueued"`
	Failed     int                `json:"failed"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// Enqueuer defers envelope ingestion to a worker.
type Enqueuer interface {
	EnqueueEnvelope(ctx context.Context, env connector.Envelope) error
}

// MaxBodyLength is the longest outgoing body accepted by SendThreadMessage.
const MaxBodyLength = 10000

func isEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
