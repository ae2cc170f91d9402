package inbox_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mailchat/internal/server"
	"github.com/teemow/mailchat/internal/tools/common"
)

// RegisterClassifyTools registers the pipeline preview tool.
func RegisterClassifyTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	classifyTool := mcp.NewTool("mailchat_classify_text",
		mcp.WithDescription("Clean, summarize and classify an email body without storing it"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Raw email body"),
		),
	)
	s.AddTool(classifyTool, common.InstrumentedToolHandler("mailchat_classify_text", "classify", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClassifyText(ctx, request, sc)
		}))
	return nil
}

func handleClassifyText(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	text, errResult := common.RequiredString(request.GetArguments(), "text")
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(sc.Service().Pipeline().Process(ctx, text))
}
