// Package inbox_tools exposes the inbox to AI assistants as MCP tools.
//
// Read tools:
//   - mailchat_list_threads: threads ordered by last activity
//   - mailchat_list_messages: the messages of one thread (marks it read)
//   - mailchat_classify_text: preview of the summary and category the
//     pipeline would assign to a body, without storing anything
//
// Write tools, only registered when the server is not read-only:
//   - mailchat_send_message
//   - mailchat_ingest_message
//   - mailchat_mark_threads_read (accepts one id or a list)
//
// Every handler is wrapped with common.InstrumentedToolHandler.
package inbox_tools
