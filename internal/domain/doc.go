// Package domain defines the core mailchat data model: threads, messages,
// their summaries and classifications, and the typed errors shared by the
// store, the inbox service and the HTTP layer.
//
// Threads own their messages. A message never changes thread after it is
// created, and a thread's category, priority and preview always mirror the
// most recently classified message appended to it.
package domain
