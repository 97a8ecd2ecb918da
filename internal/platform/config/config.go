package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	pstrings "veriflow/pkg/platform/strings"
)

// Config captures everything the server needs from the environment so main
// stays lean. Defaults suit local development; production overrides them.
type Config struct {
	Addr     string `env:"VERIFLOW_ADDR" envDefault:":8080"`
	LogLevel string `env:"VERIFLOW_LOG_LEVEL" envDefault:"info"`

	// UpstreamBaseURL is the remote verification API root. Step and status
	// endpoints are derived from it.
	UpstreamBaseURL string        `env:"VERIFLOW_UPSTREAM_BASE_URL" envDefault:"https://services.sheerid.com/rest/v2"`
	UpstreamTimeout time.Duration `env:"VERIFLOW_UPSTREAM_TIMEOUT" envDefault:"30s"`
	UploadTimeout   time.Duration `env:"VERIFLOW_UPLOAD_TIMEOUT" envDefault:"60s"`

	// PermitCapacity bounds concurrent in-flight flows per profile type.
	PermitCapacity int64 `env:"VERIFLOW_PERMIT_CAPACITY" envDefault:"3"`

	// Reward-code polling window after document submission.
	PollWindow   time.Duration `env:"VERIFLOW_POLL_WINDOW" envDefault:"20s"`
	PollInterval time.Duration `env:"VERIFLOW_POLL_INTERVAL" envDefault:"5s"`

	// Credit economics, mirrored from the front end's expectations.
	VerifyCost    int `env:"VERIFLOW_VERIFY_COST" envDefault:"1"`
	CheckInReward int `env:"VERIFLOW_CHECKIN_REWARD" envDefault:"1"`

	// Per-user request budget on the authenticated surface.
	RateLimit  int           `env:"VERIFLOW_RATE_LIMIT" envDefault:"30"`
	RateWindow time.Duration `env:"VERIFLOW_RATE_WINDOW" envDefault:"1m"`

	AdminToken    string `env:"VERIFLOW_ADMIN_TOKEN"`
	JWTSigningKey string `env:"VERIFLOW_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string `env:"VERIFLOW_JWT_ISSUER" envDefault:"veriflow"`
	JWTAudience   string `env:"VERIFLOW_JWT_AUDIENCE" envDefault:"veriflow-api"`

	// PostgresDSN empty means in-memory stores (tests, local runs).
	PostgresDSN string `env:"VERIFLOW_POSTGRES_DSN"`

	// RedisURL empty means Redis-backed features fall back to memory.
	RedisURL string `env:"VERIFLOW_REDIS_URL"`
	Redis    RedisConfig

	// KafkaSeeds empty disables attempt event publishing.
	KafkaSeeds []string `env:"VERIFLOW_KAFKA_SEEDS" envSeparator:","`
	KafkaTopic string   `env:"VERIFLOW_KAFKA_TOPIC" envDefault:"veriflow.attempts"`
}

// RedisConfig tunes the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int           `env:"VERIFLOW_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"VERIFLOW_REDIS_MIN_IDLE" envDefault:"2"`
	DialTimeout  time.Duration `env:"VERIFLOW_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"VERIFLOW_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"VERIFLOW_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// FromEnv parses the configuration from environment variables.
func FromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Redis.URL = cfg.RedisURL
	cfg.KafkaSeeds = pstrings.DedupeAndTrim(cfg.KafkaSeeds)
	return cfg, nil
}
