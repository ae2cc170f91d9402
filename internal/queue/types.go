package queue

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/teemow/mailchat/internal/connector"
)

// ErrEmpty is returned by Dequeue when no job became ready in time.
var ErrEmpty = errors.New("queue empty")

// Job is one deferred envelope ingestion.
type Job struct {
	ID         string             `json:"id"`
	Envelope   connector.Envelope `json:"envelope"`
	Checksum   string             `json:"checksum"`
	Attempts   int                `json:"attempts"`
	LastError  string             `json:"lastError,omitempty"`
	EnqueuedAt time.Time          `json:"enqueuedAt"`
}

// Stats reports queue depths.
type Stats struct {
	Ready   int64 `json:"ready"`
	Delayed int64 `json:"delayed"`
	Dead    int64 `json:"dead"`
}

// Queue is the transport contract shared by RedisQueue and MemoryQueue.
type Queue interface {
	// Enqueue adds job. Enqueuing an id with an unchanged checksum is a
	// no-op; a changed checksum replaces the payload and re-queues it.
	Enqueue(ctx context.Context, job Job) error
	// Dequeue waits up to wait for a ready job.
	Dequeue(ctx context.Context, wait time.Duration) (*Job, error)
	// Complete deletes a finished job.
	Complete(ctx context.Context, job *Job) error
	// Retry schedules job again after delay.
	Retry(ctx context.Context, job *Job, delay time.Duration) error
	// Bury moves job to the dead list.
	Bury(ctx context.Context, job *Job) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// NewJob builds the job for env, keyed by its Message-ID or, when the
// provider supplied none, by its provider id.
func NewJob(env connector.Envelope) (Job, error) {
	sum, err := Checksum(env)
	if err != nil {
		return Job{}, err
	}
	return Job{
		ID:         JobID(env),
		Envelope:   env,
		Checksum:   sum,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// JobID returns the idempotency key of env.
func JobID(env connector.Envelope) string {
	if id := strings.TrimSpace(env.MessageID); id != "" {
		return id
	}
	return "provider:" + env.ID
}

// Checksum returns the hex blake2b-256 digest of the JSON encoded envelope.
func Checksum(env connector.Envelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Enqueuer adapts a Queue to the envelope-level interface used by the
// inbox service.
type Enqueuer struct {
	Queue Queue
}

// EnqueueEnvelope queues env for ingestion.
func (e Enqueuer) EnqueueEnvelope(ctx context.Context, env connector.Envelope) error {
	job, err := NewJob(env)
	if err != nil {
		return err
	}
	return e.Queue.Enqueue(ctx, job)
}
