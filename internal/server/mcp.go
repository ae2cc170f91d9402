package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// DefaultMCPAddr is the listen address of the streamable HTTP MCP server.
const DefaultMCPAddr = ":8081"

// MCPHTTPServer serves an MCP server over the streamable HTTP transport on
// /mcp, rate limited per client IP.
type MCPHTTPServer struct {
	httpServer *http.Server
}

// NewMCPHTTPServer wraps mcpSrv. limiter may be nil.
func NewMCPHTTPServer(mcpSrv *mcpserver.MCPServer, addr string, limiter *RateLimiter) *MCPHTTPServer {
	if addr == "" {
		addr = DefaultMCPAddr
	}

	var handler http.Handler = mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	)
	if limiter != nil {
		handler = limiter.HTTPMiddleware(handler)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)

	return &MCPHTTPServer{httpServer: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
}

// Handler returns the HTTP handler, for tests.
func (s *MCPHTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called.
func (s *MCPHTTPServer) Start() error {
	slog.Info("starting MCP server", "addr", s.httpServer.Addr, "endpoint", "/mcp")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *MCPHTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// HTTPMiddleware is Middleware for plain net/http handlers.
func (l *RateLimiter) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.Allow(ip) {
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
