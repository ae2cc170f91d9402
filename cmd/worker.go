package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/mailchat/internal/inbox"
	"github.com/teemow/mailchat/internal/logging"
	"github.com/teemow/mailchat/internal/queue"
)

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume the Redis ingest queue",
		Long: `Run the ingest worker against the Redis queue. Each job is ingested
through the same path as a direct sync; failures are retried with
exponential backoff and moved to the dead-letter list after the last
attempt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg
			if c.Redis.URL == "" {
				return errors.New("the worker needs a Redis URL (redis.url, REDIS_URL or --redis-url)")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			provider, _, err := newInstrumentation(ctx, c)
			if err != nil {
				return err
			}
			defer provider.Shutdown(context.Background())
			metrics := provider.Metrics()

			st, _, err := openStore(ctx, c)
			if err != nil {
				return err
			}
			defer st.Close()

			q, _, err := openQueue(ctx, c)
			if err != nil {
				return err
			}
			defer q.Close()

			svc := inbox.NewService(st, newPipeline(c, metrics), inbox.WithOwner(c.Owner), inbox.WithLogger(logger))
			worker := queue.NewWorker(q, ingestHandler(svc), workerConfig(c), logging.ForComponent(logger, "queue"), metrics)

			if stats, err := q.Stats(ctx); err == nil {
				logger.Info("queue state",
					slog.Int64("ready", stats.Ready),
					slog.Int64("delayed", stats.Delayed),
					slog.Int64("dead", stats.Dead))
			}
			return worker.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.String("redis-url", "", "Redis URL of the ingest queue")
	f.String("store-dsn", "", "Database DSN (sqlite file or postgres:// URL)")
	f.Int("concurrency", 8, "Number of concurrent jobs")
	f.Int("max-attempts", 4, "Attempts before a job is dead-lettered")
	bindKey(f, "redis-url", "redis.url")
	bindKey(f, "store-dsn", "store.dsn")
	bindKey(f, "concurrency", "queue.concurrency")
	bindKey(f, "max-attempts", "queue.max_attempts")

	return cmd
}
