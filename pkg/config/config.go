package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort       string        `envconfig:"HTTP_PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`

	// StoreBackend selects the order store: "postgres" or "memory".
	StoreBackend string `envconfig:"STORE_BACKEND" default:"postgres"`

	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"postgres"`
	DBPassword     string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName         string `envconfig:"DB_NAME" default:"checkout"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"internal/repository/migrations"`

	// RedisAddr enables the terminal-order cache when non-empty.
	RedisAddr string `envconfig:"REDIS_ADDR" default:""`

	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`

	PaymentBaseURL string        `envconfig:"PAYMENT_BASE_URL" default:"http://localhost:9090"`
	PaymentTimeout time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"5s"`

	// OrderTTL is the retention window for order records.
	OrderTTL time.Duration `envconfig:"ORDER_TTL" default:"720h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
