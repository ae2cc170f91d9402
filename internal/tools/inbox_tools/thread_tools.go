package inbox_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mailchat/internal/server"
	"github.com/teemow/mailchat/internal/tools/batch"
	"github.com/teemow/mailchat/internal/tools/common"
)

const defaultThreadLimit = 50

// RegisterThreadTools registers the thread listing and mark-read tools.
func RegisterThreadTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listThreadsTool := mcp.NewTool("mailchat_list_threads",
		mcp.WithDescription("List inbox threads, most recent activity first, with category, priority and unread count"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of threads to return (default: 50)"),
		),
		mcp.WithBoolean("unreadOnly",
			mcp.Description("Only return threads with unread messages"),
		),
	)
	s.AddTool(listThreadsTool, common.InstrumentedToolHandler("mailchat_list_threads", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListThreads(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	markReadTool := mcp.NewTool("mailchat_mark_threads_read",
		mcp.WithDescription("Mark one or more threads as read"),
		mcp.WithString("threadIds",
			mcp.Required(),
			mcp.Description("Thread ID (string) or array of thread IDs to mark read"),
		),
	)
	s.AddTool(markReadTool, common.InstrumentedToolHandler("mailchat_mark_threads_read", "read", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMarkThreadsRead(ctx, request, sc)
		}))

	return nil
}

func handleListThreads(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	limit := common.IntArg(args, "limit", defaultThreadLimit)
	unreadOnly, _ := args["unreadOnly"].(bool)

	threads, err := sc.Service().ListThreads(ctx)
	if err != nil {
		return common.ErrorResult("list threads", err), nil
	}

	out := threads[:0:0]
	for _, t := range threads {
		if unreadOnly && t.UnreadCount == 0 {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return jsonResult(map[string]any{"count": len(out), "threads": out})
}

func handleMarkThreadsRead(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	threadIDs, err := batch.ParseStringOrArray(request.GetArguments()["threadIds"], "threadIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results := batch.Process(ctx, threadIDs, func(ctx context.Context, threadID string) (string, error) {
		if err := sc.Service().MarkThreadRead(ctx, threadID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Thread %s marked read", threadID), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}
