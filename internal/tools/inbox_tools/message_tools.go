package inbox_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mailchat/internal/inbox"
	"github.com/teemow/mailchat/internal/server"
	"github.com/teemow/mailchat/internal/tone"
	"github.com/teemow/mailchat/internal/tools/common"
)

// RegisterMessageTools registers the message read, send and ingest tools.
func RegisterMessageTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listMessagesTool := mcp.NewTool("mailchat_list_messages",
		mcp.WithDescription("List the messages of a thread in chronological order. Marks the thread read."),
		mcp.WithString("threadId",
			mcp.Required(),
			mcp.Description("The ID of the thread"),
		),
	)
	s.AddTool(listMessagesTool, common.InstrumentedToolHandler("mailchat_list_messages", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMessages(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	sendTool := mcp.NewTool("mailchat_send_message",
		mcp.WithDescription("Reply in a thread. The body can be rewritten to a tone before it is stored and delivered."),
		mcp.WithString("threadId",
			mcp.Required(),
			mcp.Description("The ID of the thread to reply in"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Message body (1 to 10000 characters)"),
		),
		mcp.WithString("optimizeTone",
			mcp.Description("Optional tone rewrite"),
			mcp.Enum(string(tone.Neutral), string(tone.Friendly), string(tone.Direct), string(tone.Executive)),
		),
	)
	s.AddTool(sendTool, common.InstrumentedToolHandler("mailchat_send_message", "send", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendMessage(ctx, request, sc)
		}))

	ingestTool := mcp.NewTool("mailchat_ingest_message",
		mcp.WithDescription("Record an inbound message in an existing thread"),
		mcp.WithString("threadId",
			mcp.Required(),
			mcp.Description("The ID of the thread"),
		),
		mcp.WithString("fromAddress",
			mcp.Required(),
			mcp.Description("Sender email address"),
		),
		mcp.WithArray("toAddresses",
			mcp.Required(),
			mcp.Description("Recipient email addresses"),
			mcp.WithStringItems(),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Message subject"),
		),
		mcp.WithString("bodyText",
			mcp.Required(),
			mcp.Description("Plain text body"),
		),
	)
	s.AddTool(ingestTool, common.InstrumentedToolHandler("mailchat_ingest_message", "ingest", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleIngestMessage(ctx, request, sc)
		}))

	return nil
}

func handleListMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	threadID, errResult := common.RequiredString(request.GetArguments(), "threadId")
	if errResult != nil {
		return errResult, nil
	}

	messages, err := sc.Service().ListThreadMessages(ctx, threadID)
	if err != nil {
		return common.ErrorResult("list messages", err), nil
	}
	return jsonResult(map[string]any{"threadId": threadID, "messages": messages})
}

func handleSendMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.ReadOnly() {
		return mcp.NewToolResultError("sending is disabled in read-only mode"), nil
	}

	args := request.GetArguments()
	threadID, errResult := common.RequiredString(args, "threadId")
	if errResult != nil {
		return errResult, nil
	}
	body, errResult := common.RequiredString(args, "body")
	if errResult != nil {
		return errResult, nil
	}

	t := tone.Neutral
	if raw, ok := common.StringArg(args, "optimizeTone"); ok {
		if !tone.Valid(raw) {
			return mcp.NewToolResultError("optimizeTone must be one of: neutral, friendly, direct, executive"), nil
		}
		t = tone.Tone(raw)
	}

	res, err := sc.Service().SendThreadMessage(ctx, threadID, body, t)
	if err != nil {
		return common.ErrorResult("send message", err), nil
	}

	out := map[string]any{"message": res.Message}
	if res.DeliveryError != "" {
		out["deliveryError"] = res.DeliveryError
	}
	return jsonResult(out)
}

func handleIngestMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.ReadOnly() {
		return mcp.NewToolResultError("ingestion is disabled in read-only mode"), nil
	}

	args := request.GetArguments()
	req := inbox.IngestRequest{
		ToAddresses: common.StringSliceArg(args, "toAddresses"),
	}
	req.ThreadID, _ = common.StringArg(args, "threadId")
	req.FromAddress, _ = common.StringArg(args, "fromAddress")
	req.Subject, _ = common.StringArg(args, "subject")
	req.BodyText, _ = common.StringArg(args, "bodyText")

	msg, err := sc.Service().IngestInboundMessage(ctx, req)
	if err != nil {
		return common.ErrorResult("ingest message", err), nil
	}
	return jsonResult(map[string]any{"message": msg})
}
