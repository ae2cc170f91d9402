package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/mailchat/internal/config"
	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/connector/registry"
	"github.com/teemow/mailchat/internal/credential"
	"github.com/teemow/mailchat/internal/instrumentation"
	"github.com/teemow/mailchat/internal/pipeline"
	"github.com/teemow/mailchat/internal/queue"
	"github.com/teemow/mailchat/internal/store"
)

// openStore opens the configured store and seeds it when requested. The
// returned check is nil for the in-memory store.
func openStore(ctx context.Context, c *config.Config) (store.Store, func(context.Context) error, error) {
	var (
		st    store.Store
		check func(context.Context) error
	)

	switch c.Store.Driver {
	case config.StoreMemory:
		st = store.NewMemoryStore()
	default:
		sqlStore, err := store.OpenSQL(ctx, c.Store.Driver, c.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open store: %w", err)
		}
		st, check = sqlStore, sqlStore.Ping
	}

	if c.Store.Seed {
		if err := store.Seed(ctx, st, time.Now()); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
	}

	logger.Info("store opened", slog.String("driver", c.Store.Driver), slog.Bool("seed", c.Store.Seed))
	return st, check, nil
}

// newPipeline builds the pipeline. The model tier is only wired when an API
// key is configured.
func newPipeline(c *config.Config, metrics *instrumentation.Metrics) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithTimeout(c.Model.Timeout),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(logger),
	}

	if classifier := pipeline.NewOpenAIClassifier(pipeline.OpenAIConfig{
		APIKey:  c.Model.APIKey,
		Model:   c.Model.Model,
		BaseURL: c.Model.BaseURL,
	}); classifier != nil {
		opts = append(opts, pipeline.WithClassifier(pipeline.WithBreaker(classifier, pipeline.BreakerSettings{
			ConsecutiveFailures: c.Model.BreakerFailures,
			OpenTimeout:         c.Model.BreakerTimeout,
		})))
		logger.Info("model tier enabled", slog.String("model", c.Model.Model))
	} else {
		logger.Info("model tier disabled, using heuristics")
	}

	return pipeline.New(opts...)
}

// newConnector builds and connects the configured mail provider. It returns
// nil when no provider is configured.
func newConnector(ctx context.Context, c *config.Config, metrics *instrumentation.Metrics) (connector.Connector, error) {
	if c.Provider.Type == "" {
		return nil, nil
	}

	opts := registry.Options{
		Provider:  c.Provider.Type,
		Secret:    []byte(c.Provider.Secret),
		SecretKey: c.Provider.SecretKey,
		Metrics:   metrics,
	}
	if len(opts.Secret) == 0 && c.Provider.Keyring {
		secrets, err := credential.Open(credential.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open credential store: %w", err)
		}
		opts.Secrets = secrets
	}

	conn, err := registry.New(opts)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", conn.Provider(), err)
	}
	return conn, nil
}

// openQueue returns the Redis queue when a URL is configured, otherwise an
// in-memory queue that only this process can consume.
func openQueue(ctx context.Context, c *config.Config) (queue.Queue, func(context.Context) error, error) {
	if c.Redis.URL == "" {
		return queue.NewMemoryQueue(), nil, nil
	}
	q, err := queue.NewRedisQueue(ctx, c.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	return q, q.Ping, nil
}

func workerConfig(c *config.Config) queue.WorkerConfig {
	return queue.WorkerConfig{
		Concurrency: c.Queue.Concurrency,
		MaxAttempts: c.Queue.MaxAttempts,
		BaseBackoff: c.Queue.BaseBackoff,
	}
}

// newInstrumentation starts the OpenTelemetry provider from the telemetry
// section of c.
func newInstrumentation(ctx context.Context, c *config.Config) (*instrumentation.Provider, instrumentation.Config, error) {
	instrConfig := c.Telemetry
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, instrConfig, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, instrConfig, nil
}
