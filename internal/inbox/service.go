package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/domain"
	"github.com/teemow/mailchat/internal/instrumentation"
	"github.com/teemow/mailchat/internal/logging"
	"github.com/teemow/mailchat/internal/pipeline"
	"github.com/teemow/mailchat/internal/store"
	"github.com/teemow/mailchat/internal/threading"
	"github.com/teemow/mailchat/internal/tone"
)

// Service is the mailbox facade used by the HTTP API, the MCP tools and the
// queue worker.
type Service struct {
	store     store.Store
	pipeline  *pipeline.Pipeline
	connector connector.Connector
	enqueuer  Enqueuer
	owner     string
	idDomain  string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConnector sends outgoing messages through c.
func WithConnector(c connector.Connector) Option {
	return func(s *Service) { s.connector = c }
}

// WithEnqueuer makes SyncProvider defer ingestion to a queue.
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Service) { s.enqueuer = e }
}

// WithOwner sets the mailbox owner address used as sender of outgoing mail.
func WithOwner(address string) Option {
	return func(s *Service) {
		if address != "" {
			s.owner = address
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. A nil pipeline gets the heuristic-only
// default.
func NewService(st store.Store, p *pipeline.Pipeline, opts ...Option) *Service {
	if p == nil {
		p = pipeline.New()
	}
	s := &Service{
		store:    st,
		pipeline: p,
		owner:    store.OwnerAddress,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if d := logging.ExtractDomain(s.owner); d != "" {
		s.idDomain = d
	}
	return s
}

// Owner returns the mailbox owner address.
func (s *Service) Owner() string { return s.owner }

// Pipeline returns the pipeline used for every message.
func (s *Service) Pipeline() *pipeline.Pipeline { return s.pipeline }

// ListThreads returns all threads, most recent first.
func (s *Service) ListThreads(ctx context.Context) ([]domain.Thread, error) {
	return s.store.ListThreads(ctx)
}

// ListThreadMessages marks the thread read and returns its messages in
// send order.
func (s *Service) ListThreadMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	if err := s.MarkThreadRead(ctx, threadID); err != nil {
		return nil, err
	}
	return s.store.GetMessages(ctx, threadID)
}

// MarkThreadRead zeroes the unread count and flags every message read.
func (s *Service) MarkThreadRead(ctx context.Context, threadID string) error {
	return s.store.WithThreadLock(ctx, threadID, func(ctx context.Context) error {
		return s.store.MarkRead(ctx, threadID)
	})
}

// SendThreadMessage stores an outgoing reply on threadID after rewriting it
// with t. When a connector is configured the reply is also handed to the
// provider; a provider failure marks the message FAILED but is not an
// error of the call.
func (s *Service) SendThreadMessage(ctx context.Context, threadID, body string, t tone.Tone) (*SendResult, error) {
	ctx, span := instrumentation.StartSpan(ctx, "inbox.send",
		instrumentation.NewSpanAttributeBuilder().WithThread(threadID).Build()...)
	defer span.End()

	if strings.TrimSpace(body) == "" {
		return nil, domain.NewValidationError("body", "required")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return nil, domain.NewValidationError("body", fmt.Sprintf("must be at most %d characters", MaxBodyLength))
	}

	optimized := tone.Optimize(body, t)

	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	processed := s.pipeline.Process(ctx, optimized)
	now := s.now().UTC()

	msg := &domain.Message{
		ID:              uuid.NewString(),
		ThreadID:        threadID,
		MessageIDHeader: threading.MessageHeaderIDWithDomain("", s.idDomain),
		FromAddress:     s.owner,
		ToAddresses:     []string{thread.ContactEmail},
		Subject:         thread.Subject,
		BodyText:        optimized,
		Direction:       domain.DirectionOutbound,
		DeliveryStatus:  domain.DeliverySent,
		IsRead:          true,
		SentAt:          now,
		ReceivedAt:      now,
		Summary:         processed.Summary,
		Classification:  processed.Classification,
	}

	var history []domain.Message
	err = s.store.WithThreadLock(ctx, threadID, func(ctx context.Context) error {
		var err error
		if s.connector != nil {
			if history, err = s.store.GetMessages(ctx, threadID); err != nil {
				return err
			}
		}
		if err := s.store.AppendMessage(ctx, msg); err != nil {
			return err
		}
		return s.store.UpdateThreadPreview(ctx, threadID, domain.PreviewFrom(msg), 0)
	})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to store outgoing message: %w", err)
	}

	result := &SendResult{Message: *msg}
	if s.connector != nil {
		s.deliver(ctx, result, history)
	}

	s.logger.Info("message sent",
		logging.Operation("inbox.send"),
		logging.Thread(threadID),
		logging.Category(string(msg.Classification.Category)),
		slog.String("source", string(processed.Source)),
		logging.Status(string(result.Message.DeliveryStatus)))
	instrumentation.SetSpanSuccess(span)
	return result, nil
}

func (s *Service) deliver(ctx context.Context, result *SendResult, history []domain.Message) {
	msg := &result.Message
	payload := connector.SendPayload{
		From:      msg.FromAddress,
		To:        msg.ToAddresses,
		Subject:   msg.Subject,
		Text:      msg.BodyText,
		MessageID: msg.MessageIDHeader,
	}
	for _, h := range history {
		if h.MessageIDHeader != "" {
			payload.References = append(payload.References, h.MessageIDHeader)
		}
	}
	if n := len(payload.References); n > 0 {
		payload.InReplyTo = payload.References[n-1]
	}

	sent, err := s.connector.Send(ctx, payload)
	if err == nil {
		result.RemoteMessageID = sent.RemoteMessageID
		return
	}

	s.logger.Warn("provider rejected outgoing message",
		logging.Operation("inbox.send"),
		logging.Provider(string(s.connector.Provider())),
		logging.Thread(msg.ThreadID),
		logging.Err(err))

	result.DeliveryError = err.Error()
	msg.DeliveryStatus = domain.DeliveryFailed
	if err := s.store.SetDeliveryStatus(ctx, msg.ID, domain.DeliveryFailed); err != nil {
		s.logger.Error("failed to record delivery failure",
			logging.Thread(msg.ThreadID),
			logging.Err(err))
	}
}

// IngestInboundMessage classifies an inbound message and appends it to an
// existing thread as unread.
func (s *Service) IngestInboundMessage(ctx context.Context, req IngestRequest) (*domain.Message, error) {
	ctx, span := instrumentation.StartSpan(ctx, "inbox.ingest",
		instrumentation.NewSpanAttributeBuilder().WithThread(req.ThreadID).Build()...)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	processed := s.pipeline.Process(ctx, req.BodyText)
	now := s.now().UTC()

	msg := &domain.Message{
		ID:              uuid.NewString(),
		ThreadID:        req.ThreadID,
		MessageIDHeader: threading.MessageHeaderIDWithDomain("", s.idDomain),
		FromAddress:     strings.TrimSpace(req.FromAddress),
		ToAddresses:     trimAll(req.ToAddresses),
		Subject:         req.Subject,
		BodyText:        processed.CleanedBody,
		Direction:       domain.DirectionInbound,
		DeliveryStatus:  domain.DeliveryDelivered,
		SentAt:          now,
		ReceivedAt:      now,
		Summary:         processed.Summary,
		Classification:  processed.Classification,
	}

	stored, _, err := s.appendInbound(ctx, msg)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	s.logger.Info("message ingested",
		logging.Operation("inbox.ingest"),
		logging.Thread(req.ThreadID),
		logging.Category(string(msg.Classification.Category)),
		slog.String("source", string(processed.Source)),
		logging.Domain(msg.FromAddress))
	instrumentation.SetSpanSuccess(span)
	return stored, nil
}

// appendInbound stores msg as the newest unread message of its thread. A
// message whose id header is already stored is returned as is and
// created is false.
func (s *Service) appendInbound(ctx context.Context, msg *domain.Message) (stored *domain.Message, created bool, err error) {
	err = s.store.WithThreadLock(ctx, msg.ThreadID, func(ctx context.Context) error {
		if existing, err := s.store.MessageByHeaderID(ctx, msg.MessageIDHeader); err == nil {
			stored = existing
			return nil
		}
		if err := s.store.AppendMessage(ctx, msg); err != nil {
			return err
		}
		if err := s.store.UpdateThreadPreview(ctx, msg.ThreadID, domain.PreviewFrom(msg), 1); err != nil {
			return err
		}
		stored, created = msg, true
		return nil
	})
	return stored, created, err
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
