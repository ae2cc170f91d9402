// Package threading decides which conversation an envelope belongs to.
//
// The thread key is derived from the envelope alone, so the same envelope
// always lands in the same thread:
//
//   - the oldest References entry, when present;
//   - otherwise In-Reply-To;
//   - otherwise the canonical subject plus the sorted participant set.
//
// Mapping a key to a stored thread is the store's job.
package threading
