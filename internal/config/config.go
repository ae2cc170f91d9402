package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teemow/mailchat/internal/instrumentation"
)

// EnvPrefix is the prefix of mailchat environment variables.
const EnvPrefix = "MAILCHAT"

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "pgx"
)

// MCP transports.
const (
	MCPNone           = "none"
	MCPStdio          = "stdio"
	MCPStreamableHTTP = "streamable-http"
)

// Config is the full runtime configuration.
type Config struct {
	Debug    bool           `mapstructure:"debug"`
	Owner    string         `mapstructure:"owner"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Model    ModelConfig    `mapstructure:"model"`
	Voice    VoiceConfig    `mapstructure:"voice"`
	Provider ProviderConfig `mapstructure:"provider"`
	MCP      MCPConfig      `mapstructure:"mcp"`

	Telemetry instrumentation.Config `mapstructure:"telemetry"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Seed   bool   `mapstructure:"seed"`
}

// RedisConfig points at the queue's Redis server. An empty URL selects the
// in-memory queue.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// QueueConfig tunes the ingest worker.
type QueueConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
}

// ModelConfig configures the generative backend. An empty APIKey disables
// the model tier.
type ModelConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// VoiceConfig configures speech-to-text.
type VoiceConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// ProviderConfig selects the mail connector.
type ProviderConfig struct {
	Type      string `mapstructure:"type"`
	Secret    string `mapstructure:"secret"`
	Keyring   bool   `mapstructure:"keyring"`
	SecretKey string `mapstructure:"secret_key"`
	PageSize  int    `mapstructure:"page_size"`
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	Transport string `mapstructure:"transport"`
	Addr      string `mapstructure:"addr"`
	ReadOnly  bool   `mapstructure:"read_only"`
}

// envAliases maps keys to the unprefixed variables they also accept.
var envAliases = map[string]string{
	"store.dsn":     "DATABASE_URL",
	"redis.url":     "REDIS_URL",
	"model.api_key": "OPENAI_API_KEY",
	"model.model":   "OPENAI_MODEL",
	"voice.url":     "WHISPERIT_API_URL",
	"voice.api_key": "WHISPERIT_API_KEY",

	"telemetry.service_name":  "OTEL_SERVICE_NAME",
	"telemetry.otlp_endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("owner", "you@mailchat.dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", 10.0)
	v.SetDefault("http.rate_burst", 20)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("store.driver", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.seed", true)

	v.SetDefault("redis.url", "")

	v.SetDefault("queue.concurrency", 8)
	v.SetDefault("queue.max_attempts", 4)
	v.SetDefault("queue.base_backoff", 500*time.Millisecond)

	v.SetDefault("model.api_key", "")
	v.SetDefault("model.model", "gpt-4o-mini")
	v.SetDefault("model.base_url", "https://api.openai.com/v1")
	v.SetDefault("model.timeout", 8*time.Second)
	v.SetDefault("model.breaker_failures", 5)
	v.SetDefault("model.breaker_timeout", 30*time.Second)

	v.SetDefault("voice.url", "")
	v.SetDefault("voice.api_key", "")

	v.SetDefault("provider.type", "")
	v.SetDefault("provider.secret", "")
	v.SetDefault("provider.keyring", false)
	v.SetDefault("provider.secret_key", "")
	v.SetDefault("provider.page_size", 25)

	v.SetDefault("mcp.transport", MCPNone)
	v.SetDefault("mcp.addr", ":8081")
	v.SetDefault("mcp.read_only", false)

	t := instrumentation.DefaultConfig()
	v.SetDefault("telemetry.service_name", t.ServiceName)
	v.SetDefault("telemetry.instance_id", t.InstanceID)
	v.SetDefault("telemetry.enabled", t.Enabled)
	v.SetDefault("telemetry.metrics_exporter", t.MetricsExporter)
	v.SetDefault("telemetry.tracing_exporter", t.TracingExporter)
	v.SetDefault("telemetry.otlp_endpoint", t.OTLPEndpoint)
	v.SetDefault("telemetry.otlp_insecure", t.OTLPInsecure)
	v.SetDefault("telemetry.trace_sampling_rate", t.TraceSamplingRate)
	v.SetDefault("telemetry.detailed_labels", t.DetailedLabels)
	v.SetDefault("telemetry.audit.enabled", t.AuditLogging.Enabled)
	v.SetDefault("telemetry.audit.include_pii", t.AuditLogging.IncludePII)
}

// New returns a viper instance with defaults, environment bindings and the
// config file search path set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("mailchat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mailchat")
	v.AddConfigPath("/etc/mailchat")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envName := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		// BindEnv only fails without a key.
		_ = v.BindEnv(key, envName, alias)
	}
	return v
}

// ReadFile reads the config file if one exists. A missing file is not an
// error.
func ReadFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes v into a Config, resolves derived values and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Store.Driver = ResolveStoreDriver(cfg.Store.Driver, cfg.Store.DSN)
	cfg.Telemetry.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveStoreDriver picks the store driver. An explicit driver wins;
// otherwise a postgres:// DSN selects pgx, any other DSN sqlite, and no DSN
// the in-memory store.
func ResolveStoreDriver(driver, dsn string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "":
	case "postgres", "postgresql", StorePostgres:
		return StorePostgres
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}

	switch {
	case dsn == "":
		return StoreMemory
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return StorePostgres
	default:
		return StoreSQLite
	}
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.driver %q", c.Store.Driver))
	}

	switch strings.ToUpper(c.Provider.Type) {
	case "", "GOOGLE", "MICROSOFT", "IMAP_SMTP":
	default:
		errs = append(errs, fmt.Errorf("unsupported provider.type %q", c.Provider.Type))
	}

	switch c.MCP.Transport {
	case MCPNone, MCPStdio, MCPStreamableHTTP:
	default:
		errs = append(errs, fmt.Errorf("unsupported mcp.transport %q", c.MCP.Transport))
	}

	if c.Model.Timeout <= 0 {
		errs = append(errs, errors.New("model.timeout must be positive"))
	}
	if c.HTTP.RateLimit <= 0 {
		errs = append(errs, errors.New("http.rate_limit must be positive"))
	}
	if c.HTTP.RateBurst <= 0 {
		errs = append(errs, errors.New("http.rate_burst must be positive"))
	}
	if c.Queue.Concurrency <= 0 {
		errs = append(errs, errors.New("queue.concurrency must be positive"))
	}
	if c.Queue.MaxAttempts <= 0 {
		errs = append(errs, errors.New("queue.max_attempts must be positive"))
	}
	if c.Queue.BaseBackoff <= 0 {
		errs = append(errs, errors.New("queue.base_backoff must be positive"))
	}

	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
