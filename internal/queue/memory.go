package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue. Jobs do not survive a restart.
type MemoryQueue struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	ready   []string
	delayed map[string]time.Time
	dead    []string
	notify  chan struct{}
	now     func() time.Time
}

// NewMemoryQueue creates an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs:    make(map[string]*Job),
		delayed: make(map[string]time.Time),
		notify:  make(chan struct{}, 1),
		now:     time.Now,
	}
}

var _ Queue = (*MemoryQueue)(nil)

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cur, ok := q.jobs[job.ID]; ok && cur.Checksum == job.Checksum {
		return nil
	}

	job.Attempts = 0
	q.jobs[job.ID] = &job
	q.ready = remove(q.ready, job.ID)
	q.dead = remove(q.dead, job.ID)
	delete(q.delayed, job.ID)
	q.ready = append(q.ready, job.ID)
	q.signal()
	return nil
}

// Dequeue implements Queue.
func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		job, next := q.tryPop()
		if job != nil {
			return job, nil
		}

		var (
			tick  <-chan time.Time
			timer *time.Timer
		)
		if next > 0 {
			timer = time.NewTimer(next)
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrEmpty
		case <-q.notify:
		case <-tick:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// tryPop promotes due delayed jobs and pops the head of the ready list.
// When nothing is ready it returns the time until the next delayed job.
func (q *MemoryQueue) tryPop() (*Job, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var next time.Duration
	for id, at := range q.delayed {
		if !at.After(now) {
			delete(q.delayed, id)
			q.ready = append(q.ready, id)
			continue
		}
		if d := at.Sub(now); next == 0 || d < next {
			next = d
		}
	}

	for len(q.ready) > 0 {
		id := q.ready[0]
		q.ready = q.ready[1:]
		if job, ok := q.jobs[id]; ok {
			cp := *job
			return &cp, 0
		}
	}
	return nil, next
}

// superseded reports whether job was replaced by an Enqueue with a
// different checksum while it was being processed. Must hold q.mu.
func (q *MemoryQueue) superseded(job *Job) bool {
	cur, ok := q.jobs[job.ID]
	return ok && cur.Checksum != job.Checksum
}

// Complete implements Queue. A job replaced while it ran is left queued.
func (q *MemoryQueue) Complete(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.superseded(job) {
		delete(q.jobs, job.ID)
	}
	return nil
}

// Retry implements Queue.
func (q *MemoryQueue) Retry(_ context.Context, job *Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.superseded(job) {
		return nil
	}

	cp := *job
	q.jobs[job.ID] = &cp
	q.delayed[job.ID] = q.now().Add(delay)
	q.signal()
	return nil
}

// Bury implements Queue.
func (q *MemoryQueue) Bury(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.superseded(job) {
		return nil
	}

	cp := *job
	q.jobs[job.ID] = &cp
	q.dead = append(q.dead, job.ID)
	return nil
}

// Stats implements Queue.
func (q *MemoryQueue) Stats(_ context.Context) (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Ready:   int64(len(q.ready)),
		Delayed: int64(len(q.delayed)),
		Dead:    int64(len(q.dead)),
	}, nil
}

// DeadJobs returns copies of the buried jobs.
func (q *MemoryQueue) DeadJobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, 0, len(q.dead))
	for _, id := range q.dead {
		if job, ok := q.jobs[id]; ok {
			out = append(out, *job)
		}
	}
	return out
}

// Close implements Queue.
func (q *MemoryQueue) Close() error { return nil }

func (q *MemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
