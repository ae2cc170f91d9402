package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/domain"
	"github.com/teemow/mailchat/internal/instrumentation"
	"github.com/teemow/mailchat/internal/logging"
	"github.com/teemow/mailchat/internal/pipeline"
	"github.com/teemow/mailchat/internal/store"
	"github.com/teemow/mailchat/internal/threading"
)

// IngestEnvelope stores a provider envelope, creating its thread when the
// thread key is new. Re-ingesting an envelope whose Message-ID is already
// stored returns the stored message and created is false.
func (s *Service) IngestEnvelope(ctx context.Context, env connector.Envelope) (msg *domain.Message, created bool, err error) {
	ctx, span := instrumentation.StartSpan(ctx, "inbox.ingest_envelope")
	defer span.End()
	defer func() { instrumentation.SetSpanError(span, err) }()

	if err := connector.Validate(&env); err != nil {
		return nil, false, domain.NewValidationError("envelope", err.Error())
	}

	header := threading.MessageHeaderIDWithDomain(env.MessageID, s.idDomain)
	if existing, err := s.store.MessageByHeaderID(ctx, header); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, store.ErrMessageNotFound) {
		return nil, false, err
	}

	processed := s.pipeline.Process(ctx, pipeline.BodyText(env.Text, env.HTML))

	key := threading.ResolveThreadKey(env)
	thread, err := s.findOrCreateThread(ctx, key, env, processed)
	if err != nil {
		return nil, false, err
	}

	m := &domain.Message{
		ID:              uuid.NewString(),
		ThreadID:        thread.ID,
		MessageIDHeader: header,
		FromAddress:     strings.TrimSpace(env.From),
		ToAddresses:     trimAll(env.To),
		Subject:         env.Subject,
		BodyText:        processed.CleanedBody,
		BodyHTML:        env.HTML,
		Direction:       domain.DirectionInbound,
		DeliveryStatus:  domain.DeliveryDelivered,
		SentAt:          env.SentAt.UTC(),
		ReceivedAt:      s.now().UTC(),
		Summary:         processed.Summary,
		Classification:  processed.Classification,
	}

	msg, created, err = s.appendInbound(ctx, m)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Debug("envelope ingested",
			logging.Operation("inbox.ingest_envelope"),
			logging.Thread(thread.ID),
			logging.Category(string(m.Classification.Category)),
			logging.Domain(m.FromAddress))
	}
	return msg, created, nil
}

func (s *Service) findOrCreateThread(ctx context.Context, key string, env connector.Envelope, processed pipeline.Result) (*domain.Thread, error) {
	var thread *domain.Thread
	err := s.store.WithThreadLock(ctx, key, func(ctx context.Context) error {
		t, err := s.store.ThreadByKey(ctx, key)
		if err == nil {
			thread = t
			return nil
		}
		if !errors.Is(err, store.ErrThreadKeyNotFound) {
			return err
		}

		from := strings.TrimSpace(env.From)
		t = &domain.Thread{
			ID:            uuid.NewString(),
			ThreadKey:     key,
			ContactName:   contactName(from),
			ContactEmail:  from,
			Subject:       env.Subject,
			Category:      processed.Classification.Category,
			PriorityScore: processed.Classification.PriorityScore,
		}
		if err := s.store.CreateThread(ctx, t); err != nil {
			return fmt.Errorf("failed to create thread: %w", err)
		}
		thread = t
		return nil
	})
	return thread, err
}

// contactName derives a display name from the local part of an address.
func contactName(addr string) string {
	local, _, ok := strings.Cut(addr, "@")
	if !ok || local == "" {
		return addr
	}
	return local
}

// SyncProvider pulls one page from c and ingests every envelope, inline or
// through the configured queue. Failures of single envelopes are counted
// and logged; only the sync call itself can fail.
func (s *Service) SyncProvider(ctx context.Context, c connector.Connector, opts connector.SyncOptions) (*SyncReport, error) {
	log := logging.WithProvider(s.logger, string(c.Provider()))

	res, err := c.Sync(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to sync %s: %w", c.Provider(), err)
	}

	report := &SyncReport{
		Provider:   c.Provider(),
		Fetched:    len(res.Envelopes),
		Dropped:    res.Dropped,
		NextCursor: res.NextCursor,
	}

	for _, env := range res.Envelopes {
		if s.enqueuer != nil {
			if err := s.enqueuer.EnqueueEnvelope(ctx, env); err != nil {
				report.Failed++
				log.Warn("failed to enqueue envelope", slog.String("envelope_id", env.ID), logging.Err(err))
				continue
			}
			report.Enqueued++
			continue
		}

		_, created, err := s.IngestEnvelope(ctx, env)
		switch {
		case err != nil:
			report.Failed++
			log.Warn("failed to ingest envelope", slog.String("envelope_id", env.ID), logging.Err(err))
		case created:
			report.Ingested++
		default:
			report.Duplicates++
		}
	}

	log.Info("provider sync finished",
		logging.Operation("inbox.sync"),
		slog.Int("fetched", report.Fetched),
		slog.Int("ingested", report.Ingested),
		slog.Int("enqueued", report.Enqueued),
		slog.Int("failed", report.Failed))
	return report, nil
}
