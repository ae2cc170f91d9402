package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mailchat/internal/instrumentation"
	"github.com/teemow/mailchat/internal/server"
)

// ToolHandler is the signature of an MCP tool handler. It is an alias so
// wrapped handlers can be passed to AddTool directly.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. operation is a short verb such as "list" or "send".
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", "list", sc, handler))
func InstrumentedToolHandler(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		threadID, _ := StringArg(args, "threadId")

		ctx, span := instrumentation.StartSpan(ctx, "tool."+toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithTool(toolName).
				WithOperation(operation).
				WithThread(threadID).
				Build()...)
		defer span.End()

		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithProvider("inbox", operation).
			WithThread(threadID)
		var owner string
		if svc := sc.Service(); svc != nil {
			owner = svc.Owner()
			invocation.WithAccount(owner)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Complete(false, nil)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocationWithAccount(ctx, toolName, status, instrumentation.ExtractUserDomain(owner), duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}
