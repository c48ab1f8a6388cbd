package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timeouts, TTLs, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Kafka   KafkaConfig
	Redis   RedisConfig
	Payment PaymentConfig
	Saga    SagaConfig
	Sweeper SweeperConfig
	CORS    CORSConfig
	Log     LogConfig
	JWT     JWTConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_ORDER_EVENTS_TOPIC" default:"order-events"`
}

type RedisConfig struct {
	Addr          string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	StockCacheTTL time.Duration `envconfig:"REDIS_STOCK_CACHE_TTL" default:"2s"`
	Enabled       bool          `envconfig:"REDIS_STOCK_CACHE_ENABLED" default:"true"`
}

type PaymentConfig struct {
	BaseURL string        `envconfig:"PAYMENT_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"30s"`
}

// SagaConfig carries the checkout saga tuning knobs. Retry counts apply to
// idempotent stock operations only, never to payment authorization.
type SagaConfig struct {
	ReservationTTL   time.Duration `envconfig:"SAGA_RESERVATION_TTL" default:"15m"`
	StockOpTimeout   time.Duration `envconfig:"SAGA_STOCK_OP_TIMEOUT" default:"5s"`
	StockRetries     int           `envconfig:"SAGA_STOCK_RETRIES" default:"2"`
	RetryBackoffBase time.Duration `envconfig:"SAGA_RETRY_BACKOFF_BASE" default:"100ms"`
}

type SweeperConfig struct {
	Interval  time.Duration `envconfig:"SWEEPER_INTERVAL" default:"30s"`
	BatchSize int           `envconfig:"SWEEPER_BATCH_SIZE" default:"100"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET" required:"true"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433",
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Payment: PaymentConfig{
			BaseURL: "http://localhost:9090",
			Timeout: 5 * time.Second,
		},
		Saga: SagaConfig{
			ReservationTTL:   15 * time.Minute,
			StockOpTimeout:   5 * time.Second,
			StockRetries:     2,
			RetryBackoffBase: 10 * time.Millisecond,
		},
		Sweeper: SweeperConfig{
			Interval:  time.Second,
			BatchSize: 100,
		},
		Log: LogConfig{
			Level: "error",
		},
		JWT: JWTConfig{
			Secret: "test-secret",
		},
	}
}
