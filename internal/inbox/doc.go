// Package inbox implements the mailbox mutation contract on top of a Store.
//
// Every write to a thread (sending a reply, ingesting an inbound message,
// marking it read) runs inside the store's per-thread critical section, so
// unread counts and previews stay consistent when callers race. The
// pipeline runs before the lock is taken; only the store round trips are
// serialized.
//
// Envelopes coming from provider connectors go through IngestEnvelope,
// which resolves the thread key, creates the thread on first sight and
// ignores message ids it has already stored. SyncProvider pulls one page
// from a connector and either ingests it inline or hands it to a queue.
package inbox
