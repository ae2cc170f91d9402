// Package server exposes the inbox over HTTP.
//
// # Key Components
//
// ServerContext carries the inbox service, the speech-to-text backend and
// the readiness checks of external dependencies (database, Redis). It is
// shared by the HTTP API and the MCP tools.
//
// NewRouter builds the gin router for the JSON API:
//   - GET  /api/threads
//   - GET  /api/threads/:threadId/messages (marks the thread read)
//   - POST /api/messages/send
//   - POST /api/ingest
//   - POST /api/voice/transcribe
//
// Request bodies are validated with binding tags before the service is
// called; a rejected payload answers 400 with {"error": "Invalid payload",
// "details": ...}. Unknown threads answer 404. The /api routes are rate
// limited per client IP.
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed for
// Kubernetes probes. MetricsServer serves Prometheus metrics on a separate
// port.
package server
