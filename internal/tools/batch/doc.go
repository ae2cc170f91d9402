// Package batch runs one tool operation over several ids and reports a
// result per id.
//
// Tools that accept either a single id or a list (for example
// mailchat_mark_threads_read) parse their argument with ParseStringOrArray,
// run the operation with Process and return FormatResults as the tool
// output. A failure for one id never aborts the others.
package batch
