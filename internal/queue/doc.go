// Package queue defers envelope ingestion to background workers.
//
// Jobs are keyed by the envelope's Message-ID, so syncing the same page
// twice does not queue the same message twice. A job whose payload changed
// since it was queued (the checksum differs) replaces the old payload.
//
// Two transports are provided: RedisQueue for multi-process deployments and
// MemoryQueue for a single process. Worker drains either one with a fixed
// number of goroutines and retries failed jobs with exponential backoff
// before moving them to the dead list.
package queue
