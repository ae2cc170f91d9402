package inbox_tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mailchat/internal/server"
)

// RegisterInboxTools registers all inbox tools with the MCP server.
func RegisterInboxTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc == nil || sc.Service() == nil {
		return fmt.Errorf("inbox tools need a server context with a service")
	}

	if err := RegisterThreadTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register thread tools: %w", err)
	}
	if err := RegisterMessageTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register message tools: %w", err)
	}
	if err := RegisterClassifyTools(s, sc); err != nil {
		return fmt.Errorf("failed to register classify tools: %w", err)
	}
	return nil
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
