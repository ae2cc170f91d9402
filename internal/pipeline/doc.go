// Package pipeline turns a raw email body into a cleaned body, a short
// summary and a classification.
//
// Process always returns a result. When a model backend is configured it is
// tried first; any failure of that backend (network, timeout, open circuit,
// malformed or out-of-schema output) falls through to the deterministic
// heuristics in heuristic.go, which need no I/O at all.
package pipeline
