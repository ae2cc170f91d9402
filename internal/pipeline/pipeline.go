package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teemow/mailchat/internal/domain"
	"github.com/teemow/mailchat/internal/instrumentation"
	"github.com/teemow/mailchat/internal/logging"
)

// Source records which tier produced a result.
type Source string

const (
	SourceModel     Source = "model"
	SourceHeuristic Source = "heuristic"
)

// Result is the outcome of Process.
type Result struct {
	CleanedBody    string                `json:"cleanedBody"`
	Summary        domain.Summary        `json:"summary"`
	Classification domain.Classification `json:"classification"`
	Source         Source                `json:"source"`
}

// Pipeline runs the clean step and the two classification tiers.
type Pipeline struct {
	classifier Classifier
	timeout    time.Duration
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClassifier enables the model tier. A nil classifier leaves it off.
func WithClassifier(c Classifier) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMetrics records pipeline runs.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline. Without WithClassifier only heuristics run.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ModelEnabled reports whether the model tier is configured.
func (p *Pipeline) ModelEnabled() bool {
	return p.classifier != nil
}

// Process cleans rawBody and summarizes and classifies it. It never fails.
func (p *Pipeline) Process(ctx context.Context, rawBody string) Result {
	ctx, span := instrumentation.StartSpan(ctx, "pipeline.process")
	defer span.End()
	start := time.Now()

	res := Result{CleanedBody: Clean(rawBody)}

	if out, err := p.model(ctx, res.CleanedBody); err == nil {
		res.Summary = out.Summary
		res.Classification = out.Classification
		res.Source = SourceModel
	} else {
		if p.classifier != nil {
			p.logger.Debug("model tier failed, using heuristics",
				logging.Operation("pipeline.process"),
				logging.Err(err))
			instrumentation.AddSpanEvent(span, "model_fallback")
		}
		res.Summary = HeuristicSummary(res.CleanedBody)
		res.Classification = HeuristicClassification(res.CleanedBody)
		res.Source = SourceHeuristic
	}

	instrumentation.SetSpanSuccess(span)
	if p.metrics != nil {
		p.metrics.RecordPipelineRun(ctx, string(res.Source), time.Since(start))
	}
	return res
}

func (p *Pipeline) model(ctx context.Context, cleaned string) (out *Output, err error) {
	if p.classifier == nil {
		return nil, errModelDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &BackendError{Op: "panic", Err: panicError{r}}
		}
	}()

	out, err = p.classifier.Classify(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	if out == nil || !out.Classification.Category.Valid() {
		return nil, &BackendError{Op: "validate", Err: ErrMissingField}
	}
	return out, nil
}

var errModelDisabled = errors.New("model tier disabled")

type panicError struct{ v any }

func (e panicError) Error() string { return "classifier panicked" }
