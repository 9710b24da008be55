package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration. Every section is optional: an empty
// connection URL selects the in-memory backend for that concern.
type Config struct {
	Server     Server
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Randomness RandomnessConfig
	Signing    SigningConfig
	Logging    LoggingConfig
	AppVersion string `env:"FAIRDRAW_APP_VERSION" envDefault:"1.0.0"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"FAIRDRAW_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"FAIRDRAW_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MaxBodyBytes    int64         `env:"FAIRDRAW_MAX_BODY_BYTES" envDefault:"33554432"`
	// AdminToken guards run creation. Empty rejects every create request.
	AdminToken string `env:"FAIRDRAW_ADMIN_TOKEN"`
	// ZipMappingFile is the default pipe-delimited postal-code master.
	ZipMappingFile string `env:"FAIRDRAW_ZIP_MAPPING_FILE"`
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"1"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	// SnapshotTTL bounds how long a failed fetch stays available for an
	// override retry.
	SnapshotTTL time.Duration `env:"REDIS_SNAPSHOT_TTL" envDefault:"24h"`
}

type KafkaConfig struct {
	Brokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"fairdraw.audit"`
	Partitions int32    `env:"KAFKA_AUDIT_PARTITIONS" envDefault:"3"`
	// BufferSize caps queued entries awaiting delivery; the oldest are dropped.
	BufferSize    int           `env:"KAFKA_AUDIT_BUFFER" envDefault:"10000"`
	FlushInterval time.Duration `env:"KAFKA_AUDIT_FLUSH_INTERVAL" envDefault:"1s"`
}

// Enabled reports whether a broker list was configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type RandomnessConfig struct {
	TolerancePercent float64       `env:"RANDOMNESS_TOLERANCE_PERCENT" envDefault:"0.5"`
	MinQuorum        int           `env:"RANDOMNESS_MIN_QUORUM" envDefault:"2"`
	AttemptTimeout   time.Duration `env:"RANDOMNESS_ATTEMPT_TIMEOUT" envDefault:"10s"`
	ProxyBase        string        `env:"RANDOMNESS_PROXY_BASE"`
	FailureThreshold int           `env:"RANDOMNESS_BREAKER_FAILURES" envDefault:"3"`
	BreakerCooldown  time.Duration `env:"RANDOMNESS_BREAKER_COOLDOWN" envDefault:"1m"`
}

type SigningConfig struct {
	// KeyFile holds a PEM-encoded P-256 private key. Empty generates an
	// ephemeral key per process.
	KeyFile string `env:"SIGNING_KEY_FILE"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the environment. Values already
// present in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Randomness.TolerancePercent < 0 {
		return fmt.Errorf("RANDOMNESS_TOLERANCE_PERCENT must be >= 0")
	}
	if c.Randomness.MinQuorum < 1 {
		return fmt.Errorf("RANDOMNESS_MIN_QUORUM must be >= 1")
	}
	if c.Kafka.Enabled() && c.Kafka.AuditTopic == "" {
		return fmt.Errorf("KAFKA_AUDIT_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
