package inbox_tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailchat/internal/domain"
	"github.com/teemow/mailchat/internal/inbox"
	"github.com/teemow/mailchat/internal/server"
	"github.com/teemow/mailchat/internal/store"
	"github.com/teemow/mailchat/internal/tools/batch"
)

func newTestContext(t *testing.T) (*server.ServerContext, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, store.Seed(context.Background(), st, time.Now()))

	sc := server.NewServerContext(context.Background(), inbox.NewService(st, nil), nil)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, st
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestRegisterInboxTools(t *testing.T) {
	tests := []struct {
		name     string
		readOnly bool
		want     []string
		absent   []string
	}{
		{
			name: "read-write",
			want: []string{
				"mailchat_list_threads", "mailchat_list_messages", "mailchat_classify_text",
				"mailchat_send_message", "mailchat_ingest_message", "mailchat_mark_threads_read",
			},
		},
		{
			name:     "read-only",
			readOnly: true,
			want:     []string{"mailchat_list_threads", "mailchat_list_messages", "mailchat_classify_text"},
			absent:   []string{"mailchat_send_message", "mailchat_ingest_message", "mailchat_mark_threads_read"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, _ := newTestContext(t)
			s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))

			require.NoError(t, RegisterInboxTools(s, sc, tt.readOnly))

			tools := s.ListTools()
			for _, name := range tt.want {
				assert.Contains(t, tools, name)
			}
			for _, name := range tt.absent {
				assert.NotContains(t, tools, name)
			}
		})
	}
}

func TestRegisterInboxTools_NoService(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0")
	assert.Error(t, RegisterInboxTools(s, nil, false))
}

func TestHandleListThreads(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]any
		wantCount int
		wantFirst string
	}{
		{name: "all", args: map[string]any{}, wantCount: 3, wantFirst: "thread-lucy"},
		{name: "limit", args: map[string]any{"limit": float64(1)}, wantCount: 1, wantFirst: "thread-lucy"},
		{name: "unread only", args: map[string]any{"unreadOnly": true}, wantCount: 2, wantFirst: "thread-lucy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, _ := newTestContext(t)

			res, err := handleListThreads(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)
			require.False(t, res.IsError)

			var out struct {
				Count   int             `json:"count"`
				Threads []domain.Thread `json:"threads"`
			}
			require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
			assert.Equal(t, tt.wantCount, out.Count)
			require.Len(t, out.Threads, tt.wantCount)
			assert.Equal(t, tt.wantFirst, out.Threads[0].ID)
		})
	}
}

func TestHandleListMessages(t *testing.T) {
	sc, st := newTestContext(t)
	ctx := context.Background()

	res, err := handleListMessages(ctx, callRequest(map[string]any{"threadId": "thread-lucy"}), sc)
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "msg-lucy-1")

	thread, err := st.GetThread(ctx, "thread-lucy")
	require.NoError(t, err)
	assert.Zero(t, thread.UnreadCount)

	res, err = handleListMessages(ctx, callRequest(map[string]any{"threadId": "nope"}), sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = handleListMessages(ctx, callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "threadId is required", resultText(t, res))
}

func TestHandleSendMessage(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		readOnly   bool
		wantError  bool
		wantPrefix string
	}{
		{
			name:       "executive",
			args:       map[string]any{"threadId": "thread-lucy", "body": "Approved. Ship Monday.", "optimizeTone": "executive"},
			wantPrefix: "Summary: ",
		},
		{
			name:       "friendly",
			args:       map[string]any{"threadId": "thread-lucy", "body": "Thanks for the update"},
			wantPrefix: "Thanks for the update",
		},
		{name: "unknown tone", args: map[string]any{"threadId": "thread-lucy", "body": "x", "optimizeTone": "angry"}, wantError: true},
		{name: "unknown thread", args: map[string]any{"threadId": "nope", "body": "x"}, wantError: true},
		{name: "blank body", args: map[string]any{"threadId": "thread-lucy", "body": "   "}, wantError: true},
		{name: "missing body", args: map[string]any{"threadId": "thread-lucy"}, wantError: true},
		{name: "read-only", args: map[string]any{"threadId": "thread-lucy", "body": "x"}, readOnly: true, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, st := newTestContext(t)
			sc.SetReadOnly(tt.readOnly)
			ctx := context.Background()

			before, err := st.GetMessages(ctx, "thread-lucy")
			require.NoError(t, err)

			res, err := handleSendMessage(ctx, callRequest(tt.args), sc)
			require.NoError(t, err)

			after, err := st.GetMessages(ctx, "thread-lucy")
			require.NoError(t, err)

			if tt.wantError {
				assert.True(t, res.IsError)
				assert.Len(t, after, len(before))
				return
			}

			require.False(t, res.IsError, resultText(t, res))
			var out struct {
				Message domain.Message `json:"message"`
			}
			require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
			assert.Equal(t, domain.DirectionOutbound, out.Message.Direction)
			assert.Contains(t, out.Message.BodyText, tt.wantPrefix)
			assert.Len(t, after, len(before)+1)
		})
	}
}

func TestHandleIngestMessage(t *testing.T) {
	sc, st := newTestContext(t)
	ctx := context.Background()

	res, err := handleIngestMessage(ctx, callRequest(map[string]any{
		"threadId":    "thread-ops",
		"fromAddress": "alerts@cloudops.io",
		"toAddresses": []any{"you@mailchat.dev"},
		"subject":     "Incident 4340",
		"bodyText":    "Incident 4340 opened. Please check the status page.",
	}), sc)
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	thread, err := st.GetThread(ctx, "thread-ops")
	require.NoError(t, err)
	assert.Equal(t, 1, thread.UnreadCount)

	res, err = handleIngestMessage(ctx, callRequest(map[string]any{
		"threadId":    "thread-ops",
		"fromAddress": "not-an-address",
		"toAddresses": []any{"you@mailchat.dev"},
		"subject":     "x",
		"bodyText":    "x",
	}), sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "fromAddress")
}

func TestHandleMarkThreadsRead(t *testing.T) {
	sc, st := newTestContext(t)
	ctx := context.Background()

	res, err := handleMarkThreadsRead(ctx, callRequest(map[string]any{
		"threadIds": []any{"thread-lucy", "thread-newsletter", "nope"},
	}), sc)
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out batch.BatchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Successful)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, "nope", out.Results[2].ID)

	threads, err := st.ListThreads(ctx)
	require.NoError(t, err)
	for _, th := range threads {
		assert.Zero(t, th.UnreadCount, th.ID)
	}

	res, err = handleMarkThreadsRead(ctx, callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleClassifyText(t *testing.T) {
	sc, st := newTestContext(t)
	ctx := context.Background()

	res, err := handleClassifyText(ctx, callRequest(map[string]any{
		"text": "Weekly digest of community templates. Unsubscribe anytime.",
	}), sc)
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out struct {
		Classification domain.Classification `json:"classification"`
		Source         string                `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, domain.CategoryNewsletter, out.Classification.Category)
	assert.Equal(t, "heuristic", out.Source)

	threads, err := st.ListThreads(ctx)
	require.NoError(t, err)
	assert.Len(t, threads, 3)
}
