package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout. Job payloads live in one hash per job; the lists and
// the sorted set only hold job ids.
const (
	KeyPrefix     = "mailchat:ingest:"
	readyKey      = KeyPrefix + "ready"
	delayedKey    = KeyPrefix + "delayed"
	deadKey       = KeyPrefix + "dead"
	jobKeyPrefix  = KeyPrefix + "job:"
	fieldData     = "data"
	fieldChecksum = "checksum"
)

func jobKey(id string) string { return jobKeyPrefix + id }

// Each script is a no-op when the stored checksum no longer matches the
// job a worker holds, i.e. Enqueue replaced it while it ran.
var (
	completeScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "checksum") ~= ARGV[1] then return 0 end
return redis.call("DEL", KEYS[1])`)

	retryScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "checksum") ~= ARGV[1] then return 0 end
redis.call("HSET", KEYS[1], "data", ARGV[2])
redis.call("ZADD", KEYS[2], ARGV[3], ARGV[4])
return 1`)

	buryScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "checksum") ~= ARGV[1] then return 0 end
redis.call("HSET", KEYS[1], "data", ARGV[2])
redis.call("RPUSH", KEYS[2], ARGV[3])
return 1`)
)

// RedisQueue is a Queue backed by Redis lists, a sorted set for delayed
// retries and one hash per job.
type RedisQueue struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisQueue connects to the Redis server at url (redis://host:port/db).
func NewRedisQueue(ctx context.Context, url string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 5 * time.Second
	opts.WriteTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisQueueWithClient(client), nil
}

// NewRedisQueueWithClient wraps an existing client.
func NewRedisQueueWithClient(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, now: time.Now}
}

// Enqueue implements Queue.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	current, err := q.client.HGet(ctx, jobKey(job.ID), fieldChecksum).Result()
	switch {
	case err == nil && current == job.Checksum:
		return nil
	case err != nil && !errors.Is(err, redis.Nil):
		return fmt.Errorf("failed to read job %s: %w", job.ID, err)
	}

	job.Attempts = 0
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobKey(job.ID), fieldData, data, fieldChecksum, job.Checksum)
		pipe.LRem(ctx, readyKey, 0, job.ID)
		pipe.ZRem(ctx, delayedKey, job.ID)
		pipe.LRem(ctx, deadKey, 0, job.ID)
		pipe.RPush(ctx, readyKey, job.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue implements Queue.
func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}

	res, err := q.client.BLPop(ctx, wait, readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}
	if len(res) < 2 {
		return nil, ErrEmpty
	}

	raw, err := q.client.HGet(ctx, jobKey(res[1]), fieldData).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// payload deleted after the id was pushed
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to load job %s: %w", res[1], err)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", res[1], err)
	}
	return &job, nil
}

// promoteDue moves delayed jobs whose time has come to the ready list.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	for _, id := range due {
		// ZRem decides which worker promotes the job.
		n, err := q.client.ZRem(ctx, delayedKey, id).Result()
		if err != nil {
			return fmt.Errorf("failed to promote job %s: %w", id, err)
		}
		if n == 0 {
			continue
		}
		if err := q.client.RPush(ctx, readyKey, id).Err(); err != nil {
			return fmt.Errorf("failed to promote job %s: %w", id, err)
		}
	}
	return nil
}

// Complete implements Queue.
func (q *RedisQueue) Complete(ctx context.Context, job *Job) error {
	err := completeScript.Run(ctx, q.client, []string{jobKey(job.ID)}, job.Checksum).Err()
	if err != nil {
		return fmt.Errorf("failed to delete job %s: %w", job.ID, err)
	}
	return nil
}

// Retry implements Queue.
func (q *RedisQueue) Retry(ctx context.Context, job *Job, delay time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	at := q.now().Add(delay).UnixMilli()

	err = retryScript.Run(ctx, q.client, []string{jobKey(job.ID), delayedKey},
		job.Checksum, data, at, job.ID).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule retry for %s: %w", job.ID, err)
	}
	return nil
}

// Bury implements Queue.
func (q *RedisQueue) Bury(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = buryScript.Run(ctx, q.client, []string{jobKey(job.ID), deadKey},
		job.Checksum, data, job.ID).Err()
	if err != nil {
		return fmt.Errorf("failed to bury job %s: %w", job.ID, err)
	}
	return nil
}

// Stats implements Queue.
func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	var ready, delayed, dead *redis.IntCmd
	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		ready = pipe.LLen(ctx, readyKey)
		delayed = pipe.ZCard(ctx, delayedKey)
		dead = pipe.LLen(ctx, deadKey)
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return Stats{Ready: ready.Val(), Delayed: delayed.Val(), Dead: dead.Val()}, nil
}

// Ping checks the connection. It backs the readiness probe.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close implements Queue.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
