package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailchat/internal/config"
	"github.com/teemow/mailchat/internal/pipeline"
)

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "mailchat_list_threads", want: "Thread Tools"},
		{name: "mailchat_mark_threads_read", want: "Thread Tools"},
		{name: "mailchat_list_messages", want: "Message Tools"},
		{name: "mailchat_send_message", want: "Message Tools"},
		{name: "mailchat_classify_text", want: "Pipeline Tools"},
		{name: "something_else", want: "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getCategoryFromToolName(tt.name))
		})
	}
}

func TestToolsMarkdown(t *testing.T) {
	md, err := toolsMarkdown()
	require.NoError(t, err)

	for _, name := range []string{
		"mailchat_list_threads", "mailchat_list_messages", "mailchat_send_message",
		"mailchat_ingest_message", "mailchat_mark_threads_read", "mailchat_classify_text",
	} {
		assert.Contains(t, md, "### "+name)
	}
	assert.Contains(t, md, "## Read-Only Mode")
	assert.Contains(t, md, "- `threadId` (string, required)")
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("mailchat_example",
		mcp.WithDescription("Example tool"),
		mcp.WithString("b", mcp.Description("second")),
		mcp.WithString("a", mcp.Required(), mcp.Description("first")),
	)

	md := generateToolMarkdown(tool)

	assert.True(t, strings.HasPrefix(md, "### mailchat_example\n\nExample tool\n\n"))
	assert.Less(t, strings.Index(md, "`a`"), strings.Index(md, "`b`"))
	assert.Contains(t, md, "- `a` (string, required): first")
	assert.Contains(t, md, "- `b` (string, optional): second")
}

func TestClassifyCommand(t *testing.T) {
	v := config.New()
	loaded, err := config.Load(v)
	require.NoError(t, err)
	cfg = loaded

	var out bytes.Buffer
	cmd := newClassifyCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("Your OTP verification code is 123456."))
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, pipeline.SourceHeuristic, res.Source)
	assert.Equal(t, "SYSTEM", string(res.Classification.Category))
}

func TestClassifyCommand_Empty(t *testing.T) {
	v := config.New()
	loaded, err := config.Load(v)
	require.NoError(t, err)
	cfg = loaded

	cmd := newClassifyCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("   "))
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "mailchat version 1.2.3\n", out.String())
}
