package instrumentation

import "strings"

// Label values are kept to small, fixed sets. Addresses, thread ids and raw
// request paths never become label values.

// Provider operation names used in metrics and span names.
const (
	OperationConnect    = "connect"
	OperationSync       = "sync"
	OperationSend       = "send"
	OperationDisconnect = "disconnect"
)

// Queue job results.
const (
	JobCompleted = "completed"
	JobRetried   = "retried"
	JobDead      = "dead"
)

const (
	unknownLabel   = "unknown"
	unmatchedRoute = "unmatched"
)

// ExtractUserDomain returns the lowercased domain of an address, or
// "unknown" when there is none.
//
//	ExtractUserDomain("Lucy@Northwind.io") // "northwind.io"
//	ExtractUserDomain("lucy")              // "unknown"
func ExtractUserDomain(address string) string {
	_, domain, ok := strings.Cut(strings.TrimSpace(address), "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return unknownLabel
	}
	return strings.ToLower(domain)
}

// RouteLabel returns the route template for a request, or "unmatched" for
// requests no route handled. Callers pass the template, not the URL path.
func RouteLabel(template string) string {
	if template == "" {
		return unmatchedRoute
	}
	return template
}
