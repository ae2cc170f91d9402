package queue

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/domain"
	"github.com/teemow/mailchat/internal/instrumentation"
	"github.com/teemow/mailchat/internal/logging"
)

// Worker defaults.
const (
	DefaultConcurrency = 8
	DefaultMaxAttempts = 4
	DefaultBaseBackoff = 500 * time.Millisecond
	DefaultPollWait    = time.Second
)

// Handler ingests one envelope.
type Handler func(ctx context.Context, env connector.Envelope) error

// WorkerConfig tunes a Worker. Zero values take the defaults.
type WorkerConfig struct {
	Concurrency int
	MaxAttempts int
	BaseBackoff time.Duration
	PollWait    time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.PollWait <= 0 {
		c.PollWait = DefaultPollWait
	}
	return c
}

// Backoff returns the delay before retry number attempt (1-based):
// base, 2*base, 4*base, ...
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// Worker drains a Queue with a fixed pool of goroutines.
type Worker struct {
	queue   Queue
	handler Handler
	cfg     WorkerConfig
	logger  logging.Logger
	metrics *instrumentation.Metrics
}

// NewWorker creates a Worker. logger and metrics may be nil.
func NewWorker(q Queue, h Handler, cfg WorkerConfig, logger logging.Logger, metrics *instrumentation.Metrics) *Worker {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Worker{
		queue:   q,
		handler: h,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		metrics: metrics,
	}
}

// Run processes jobs until ctx is cancelled. It returns nil on
// cancellation and the first transport error otherwise.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("queue worker started", "concurrency", w.cfg.Concurrency, "max_attempts", w.cfg.MaxAttempts)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		log := w.logger.With("worker", i)
		g.Go(func() error {
			for {
				if _, err := w.ProcessNext(ctx); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					log.Error("queue transport failed", logging.KeyError, err.Error())
					return err
				}
			}
		})
	}

	err := g.Wait()
	w.logger.Info("queue worker stopped")
	return err
}

// ProcessNext handles at most one job. It reports whether a job was
// handled; an empty queue is not an error.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.queue.Dequeue(ctx, w.cfg.PollWait)
	if errors.Is(err, ErrEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, w.handle(ctx, job)
}

func (w *Worker) handle(ctx context.Context, job *Job) error {
	spanCtx, span := instrumentation.StartJobSpan(ctx, job.ID, job.Attempts+1)
	herr := w.handler(spanCtx, job.Envelope)
	instrumentation.EndSpan(span, herr)
	if herr == nil {
		w.metrics.RecordQueueJob(ctx, instrumentation.JobCompleted)
		w.logger.Debug("job completed", logging.KeyJob, job.ID)
		return w.queue.Complete(ctx, job)
	}

	job.Attempts++
	job.LastError = herr.Error()

	// Malformed envelopes never succeed.
	if job.Attempts >= w.cfg.MaxAttempts || domain.IsValidationError(herr) {
		w.metrics.RecordQueueJob(ctx, instrumentation.JobDead)
		w.logger.Error("job moved to dead list",
			logging.KeyJob, job.ID,
			"attempts", job.Attempts,
			logging.KeyError, herr.Error())
		return w.queue.Bury(ctx, job)
	}

	delay := Backoff(w.cfg.BaseBackoff, job.Attempts)
	w.metrics.RecordQueueJob(ctx, instrumentation.JobRetried)
	w.logger.Warn("job failed, retrying",
		logging.KeyJob, job.ID,
		"attempt", job.Attempts,
		"retry_in", delay.String(),
		logging.KeyError, herr.Error())
	return w.queue.Retry(ctx, job, delay)
}
