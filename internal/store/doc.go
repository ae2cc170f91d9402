// Package store persists threads and messages.
//
// Two implementations satisfy Store: MemoryStore for development and tests,
// and SQLStore backed by sqlx over SQLite or PostgreSQL. Both serialize
// writers per thread through WithThreadLock; SQLStore additionally runs each
// mutation in a transaction and, on PostgreSQL, locks the thread row.
package store
