package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/mailchat/internal/config"
	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/inbox"
	"github.com/teemow/mailchat/internal/instrumentation"
	"github.com/teemow/mailchat/internal/logging"
	"github.com/teemow/mailchat/internal/queue"
	"github.com/teemow/mailchat/internal/resources"
	"github.com/teemow/mailchat/internal/server"
	"github.com/teemow/mailchat/internal/tools/inbox_tools"
	"github.com/teemow/mailchat/internal/voice"
)

func newServeCmd() *cobra.Command {
	var embeddedWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the mailchat HTTP API together with the Prometheus metrics server.

The MCP server for AI assistants can run alongside the API:
  - none: no MCP server (default)
  - stdio: MCP over standard input/output; the HTTP API keeps running
  - streamable-http: MCP over HTTP on --mcp-addr at /mcp

Use --read-only to expose only the read tools over MCP.

Without a Redis URL, queued provider messages are consumed by a worker
running inside this process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg, embeddedWorker)
		},
	}

	f := cmd.Flags()
	f.String("addr", server.DefaultAPIAddr, "HTTP API listen address")
	f.Float64("rate-limit", server.DefaultRateLimit, "API requests per second allowed per client IP")
	f.Int("rate-burst", server.DefaultRateBurst, "API request burst per client IP")
	f.Bool("metrics", true, "Start the Prometheus metrics server")
	f.String("metrics-addr", server.DefaultMetricsAddr, "Metrics server listen address")
	f.String("store-dsn", "", "Database DSN (sqlite file or postgres:// URL); empty keeps data in memory")
	f.Bool("seed", true, "Load the demo threads when they are missing")
	f.String("redis-url", "", "Redis URL of the ingest queue; empty uses an in-memory queue")
	f.String("mcp-transport", config.MCPNone, "MCP transport: none, stdio or streamable-http")
	f.String("mcp-addr", server.DefaultMCPAddr, "Streamable HTTP MCP listen address")
	f.Bool("read-only", false, "Only register read tools on the MCP server")
	f.BoolVar(&embeddedWorker, "worker", false, "Also consume the Redis queue in this process")

	bindKey(f, "addr", "http.addr")
	bindKey(f, "rate-limit", "http.rate_limit")
	bindKey(f, "rate-burst", "http.rate_burst")
	bindKey(f, "metrics", "metrics.enabled")
	bindKey(f, "metrics-addr", "metrics.addr")
	bindKey(f, "store-dsn", "store.dsn")
	bindKey(f, "seed", "store.seed")
	bindKey(f, "redis-url", "redis.url")
	bindKey(f, "mcp-transport", "mcp.transport")
	bindKey(f, "mcp-addr", "mcp.addr")
	bindKey(f, "read-only", "mcp.read_only")

	return cmd
}

func runServe(parent context.Context, c *config.Config, embeddedWorker bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, instrConfig, err := newInstrumentation(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	st, storeCheck, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer st.Close()

	q, queueCheck, err := openQueue(ctx, c)
	if err != nil {
		return err
	}
	defer q.Close()

	conn, err := newConnector(ctx, c, metrics)
	if err != nil {
		return err
	}
	if conn != nil {
		defer func() {
			if err := conn.Disconnect(context.Background()); err != nil {
				logger.Warn("provider disconnect failed", logging.Err(err))
			}
		}()
	}

	opts := []inbox.Option{
		inbox.WithOwner(c.Owner),
		inbox.WithEnqueuer(queue.Enqueuer{Queue: q}),
		inbox.WithLogger(logger),
	}
	if conn != nil {
		opts = append(opts, inbox.WithConnector(conn))
	}
	svc := inbox.NewService(st, newPipeline(c, metrics), opts...)

	transcriber := voice.NewClient(voice.Config{URL: c.Voice.URL, APIKey: c.Voice.APIKey})
	sc := server.NewServerContext(ctx, svc, transcriber)
	defer sc.Shutdown()
	sc.SetReadOnly(c.MCP.ReadOnly)
	if provider.Enabled() {
		sc.SetInstrumentation(metrics, instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	}
	if storeCheck != nil {
		sc.AddCheck("store", storeCheck)
	}
	if queueCheck != nil {
		sc.AddCheck("redis", queueCheck)
	}

	health := server.NewHealthChecker(sc)
	router := server.NewRouter(sc, health, server.RouterConfig{
		RateLimit: c.HTTP.RateLimit,
		RateBurst: c.HTTP.RateBurst,
		Metrics:   metrics,
		Logger:    logger,
	})
	api := server.NewAPIServer(c.HTTP.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(api.Start)
	stopping := []func(context.Context) error{api.Shutdown}

	if c.Metrics.Enabled && provider.Enabled() && c.MCP.Transport != config.MCPStdio {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    c.Metrics.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		g.Go(metricsServer.Start)
		stopping = append(stopping, metricsServer.Shutdown)
	}

	if c.Redis.URL == "" || embeddedWorker {
		worker := queue.NewWorker(q, ingestHandler(svc), workerConfig(c), logging.ForComponent(logger, "queue"), metrics)
		g.Go(func() error { return worker.Run(gctx) })
	}

	switch c.MCP.Transport {
	case config.MCPStdio, config.MCPStreamableHTTP:
		mcpSrv := mcpserver.NewMCPServer("mailchat", version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, false),
		)
		if err := inbox_tools.RegisterInboxTools(mcpSrv, sc, c.MCP.ReadOnly); err != nil {
			return err
		}
		if err := resources.RegisterInboxResources(mcpSrv, sc); err != nil {
			return fmt.Errorf("failed to register resources: %w", err)
		}

		if c.MCP.Transport == config.MCPStdio {
			g.Go(func() error {
				// ServeStdio returns when stdin closes; that ends the process.
				err := mcpserver.ServeStdio(mcpSrv)
				cancel()
				return err
			})
		} else {
			mcpHTTP := server.NewMCPHTTPServer(mcpSrv, c.MCP.Addr, server.NewRateLimiter(c.HTTP.RateLimit, c.HTTP.RateBurst))
			g.Go(mcpHTTP.Start)
			stopping = append(stopping, mcpHTTP.Shutdown)
		}
	}

	logger.Info("mailchat started",
		slog.String("addr", c.HTTP.Addr),
		slog.String("store", c.Store.Driver),
		slog.Bool("redis", c.Redis.URL != ""),
		slog.String("mcp", c.MCP.Transport),
		slog.Bool("model", svc.Pipeline().ModelEnabled()))

	g.Go(func() error {
		<-gctx.Done()
		health.SetReady(false)

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), c.HTTP.ShutdownTimeout)
		defer cancelShutdown()

		var errs []error
		for _, stop := range stopping {
			if err := stop(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("mailchat stopped")
	return nil
}

// ingestHandler adapts the inbox service to the queue worker.
func ingestHandler(svc *inbox.Service) queue.Handler {
	return func(ctx context.Context, env connector.Envelope) error {
		_, _, err := svc.IngestEnvelope(ctx, env)
		return err
	}
}
