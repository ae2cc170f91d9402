// Package resources provides MCP resources describing the inbox.
// Resources are read-only data sources that MCP clients can fetch for
// context before calling tools:
//
//   - mailchat://inbox/overview: owner, thread and unread totals per category
//   - mailchat://categories: the closed category set
package resources
