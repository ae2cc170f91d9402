package common

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mailchat/internal/domain"
)

// StringArg returns args[name] when it is a non-empty string.
func StringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// RequiredString returns args[name] or a tool error result naming the
// missing argument.
func RequiredString(args map[string]any, name string) (string, *mcp.CallToolResult) {
	v, ok := StringArg(args, name)
	if !ok {
		return "", mcp.NewToolResultError(fmt.Sprintf("%s is required", name))
	}
	return v, nil
}

// IntArg returns args[name] as an int, or def when absent. JSON numbers
// arrive as float64.
func IntArg(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// StringSliceArg returns args[name] as a slice of strings. A single string
// is treated as a one-element slice.
func StringSliceArg(args map[string]any, name string) []string {
	switch v := args[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ErrorResult converts a service error into a tool error result. Validation
// errors and unknown threads are reported to the caller as-is; anything
// else is prefixed with what.
func ErrorResult(what string, err error) *mcp.CallToolResult {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return mcp.NewToolResultError(fmt.Sprintf("invalid %s: %s", vErr.Field, vErr.Reason))
	case errors.Is(err, domain.ErrThreadNotFound):
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", what, err))
}
