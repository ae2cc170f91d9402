// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the mailchat service.
//
// This package enables observability through:
//   - OpenTelemetry metrics for HTTP requests, provider calls, pipeline runs and queue jobs
//   - Distributed tracing for provider calls, pipeline runs and tools
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Provider Metrics:
//   - provider_operations_total: Counter of provider operations by provider, operation, status
//   - provider_operation_duration_seconds: Histogram of provider operation durations
//
// Pipeline and Queue Metrics:
//   - pipeline_runs_total: Counter of pipeline runs by source (model, heuristic)
//   - pipeline_duration_seconds: Histogram of pipeline durations
//   - queue_jobs_total: Counter of ingest job attempts by result
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - MCP tool invocations (tool.<name>)
//   - Provider calls (provider.<name>.<operation>)
//   - Pipeline runs (pipeline.process)
//   - Queue job attempts (queue.job)
//   - Inbox operations (inbox.send, inbox.ingest, inbox.ingest_envelope)
//
// # Configuration
//
// Config is decoded from the telemetry section of the mailchat config file
// and MAILCHAT_TELEMETRY_* variables. OTEL_SERVICE_NAME and
// OTEL_EXPORTER_OTLP_ENDPOINT are honoured as aliases. With the prometheus
// exporter the provider owns a private registry, served by
// PrometheusHandler, that also carries the Go runtime and process
// collectors.
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, cfg.Telemetry)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record an HTTP request
//	recorder.RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Since(start))
//
//	// Record a provider call
//	recorder.RecordProviderOperation(ctx, "gmail", "sync", "success", time.Since(start))
//
//	// Record an MCP tool invocation
//	recorder.RecordToolInvocation(ctx, "mailchat_list_threads", "success", time.Since(start))
package instrumentation
