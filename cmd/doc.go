// Package cmd implements the command-line interface for mailchat.
//
// This package provides the following commands:
//   - serve: Start the HTTP API, the metrics server and optionally the MCP server
//   - sync: Pull one page of messages from the configured mail provider
//   - worker: Consume the Redis ingest queue
//   - classify: Run the summarize/classify pipeline on a piece of text
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Configuration is read from mailchat.yaml, MAILCHAT_* environment
// variables and command-line flags, in increasing order of precedence.
package cmd
