package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mailchat/internal/domain"
	"github.com/teemow/mailchat/internal/server"
)

// Resource URIs.
const (
	OverviewURI   = "mailchat://inbox/overview"
	CategoriesURI = "mailchat://categories"
)

// CategoryCount is the per-category part of the overview.
type CategoryCount struct {
	Threads int `json:"threads"`
	Unread  int `json:"unread"`
}

// Overview summarizes the inbox.
type Overview struct {
	Owner        string                            `json:"owner"`
	Threads      int                               `json:"threads"`
	Unread       int                               `json:"unread"`
	ModelEnabled bool                              `json:"modelEnabled"`
	Categories   map[domain.Category]CategoryCount `json:"categories"`
}

// RegisterInboxResources registers the inbox resources.
func RegisterInboxResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	overviewResource := mcp.NewResource(
		OverviewURI,
		"Inbox Overview",
		mcp.WithResourceDescription("Thread and unread counts per category for the mailbox owner"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(overviewResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleOverview(ctx, request, sc)
	})

	categoriesResource := mcp.NewResource(
		CategoriesURI,
		"Categories",
		mcp.WithResourceDescription("Categories a thread or message can be classified as"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(categoriesResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, map[string]any{"categories": domain.Categories})
	})

	return nil
}

// BuildOverview aggregates the current threads.
func BuildOverview(ctx context.Context, sc *server.ServerContext) (*Overview, error) {
	svc := sc.Service()
	threads, err := svc.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	o := &Overview{
		Owner:        svc.Owner(),
		Threads:      len(threads),
		ModelEnabled: svc.Pipeline().ModelEnabled(),
		Categories:   make(map[domain.Category]CategoryCount),
	}
	for _, t := range threads {
		cc := o.Categories[t.Category]
		cc.Threads++
		cc.Unread += t.UnreadCount
		o.Categories[t.Category] = cc
		o.Unread += t.UnreadCount
	}
	return o, nil
}

func handleOverview(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	o, err := BuildOverview(ctx, sc)
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, o)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
