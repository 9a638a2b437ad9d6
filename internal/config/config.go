package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port           int      `envconfig:"PORT" default:"5002"`
	Env            string   `envconfig:"ENV" default:"development"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Database
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	// Redis
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisSSL      bool          `envconfig:"REDIS_SSL" default:"false"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"1"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	// Upstream stats service
	StatsServiceURL     string        `envconfig:"STATS_SERVICE_URL" default:"http://stats-service:8081"`
	RequestTimeout      time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	UpstreamMaxAttempts int           `envconfig:"UPSTREAM_MAX_ATTEMPTS" default:"3"`
	UpstreamRetryDelay  time.Duration `envconfig:"UPSTREAM_RETRY_DELAY" default:"500ms"`
	UpstreamRateLimit   float64       `envconfig:"UPSTREAM_RATE_LIMIT" default:"20"`
	UpstreamRateBurst   int           `envconfig:"UPSTREAM_RATE_BURST" default:"5"`

	// Prediction fan-out
	BatchConcurrency int `envconfig:"BATCH_CONCURRENCY" default:"5"`

	// Worker pool
	WorkerCount  int           `envconfig:"WORKER_COUNT" default:"2"`
	QueueSize    int           `envconfig:"QUEUE_SIZE" default:"256"`
	JobTimeout   time.Duration `envconfig:"JOB_TIMEOUT" default:"30s"`
	CollectLimit int           `envconfig:"COLLECT_LIMIT" default:"10"`

	// Watchlist events
	EventsEnabled    bool   `envconfig:"EVENTS_ENABLED" default:"true"`
	WatchlistChannel string `envconfig:"WATCHLIST_CHANNEL" default:"watchlist-events"`

	// Model
	ModelDir     string `envconfig:"MODEL_DIR" default:"./models"`
	ModelSeed    int64  `envconfig:"MODEL_SEED" default:"42"`
	TrainingCron string `envconfig:"TRAINING_CRON" default:""`
}

// Load loads configuration from environment variables, reading a local .env
// file first when one exists. It returns an error if DATABASE_URL is missing
// or a value cannot be parsed.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	origins := cfg.AllowedOrigins[:0]
	for _, o := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	// envconfig accepts a variable that is set but empty
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("missing required environment variable: DATABASE_URL")
	}
	if c.UpstreamMaxAttempts < 1 {
		return fmt.Errorf("UPSTREAM_MAX_ATTEMPTS must be at least 1, got %d", c.UpstreamMaxAttempts)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be at least 1, got %d", c.BatchConcurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// RedisAddr returns host:port for the cache store.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
