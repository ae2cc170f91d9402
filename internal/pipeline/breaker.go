package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerClassifier short-circuits a Classifier after repeated failures.
type BreakerClassifier struct {
	next Classifier
	cb   *gobreaker.CircuitBreaker
}

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout time.Duration
}

// WithBreaker wraps next in a circuit breaker.
func WithBreaker(next Classifier, st BreakerSettings) *BreakerClassifier {
	if st.ConsecutiveFailures == 0 {
		st.ConsecutiveFailures = 5
	}
	if st.OpenTimeout == 0 {
		st.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-backend",
		MaxRequests: 1,
		Timeout:     st.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= st.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return &BreakerClassifier{next: next, cb: cb}
}

// Classify implements Classifier. While the circuit is open it fails
// immediately with gobreaker.ErrOpenState.
func (b *BreakerClassifier) Classify(ctx context.Context, body string) (*Output, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Classify(ctx, body)
	})
	if err != nil {
		return nil, &BackendError{Op: "breaker", Err: err}
	}
	return res.(*Output), nil
}

// State returns the breaker state name.
func (b *BreakerClassifier) State() string {
	return b.cb.State().String()
}
