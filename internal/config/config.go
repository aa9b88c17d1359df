package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	JWT       JWTConfig
	Billing   BillingConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

// DSN builds the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

// RabbitMQConfig is optional: an empty URL disables settled-check events.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type BillingConfig struct {
	TaxRate       decimal.Decimal
	DefaultCourse string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// New reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	taxRate, err := decimal.NewFromString(v.GetString("billing.tax_rate"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid BILLING_TAX_RATE: %w", op, err)
	}

	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%s: BILLING_TAX_RATE must be in [0, 1)", op)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Postgres: PostgresConfig{
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Name:     v.GetString("postgres.db"),
			Host:     v.GetString("postgres.host"),
			Port:     v.GetInt("postgres.port"),
			SSLMode:  v.GetString("postgres.sslmode"),
			MaxConns: v.GetInt32("postgres.max_conns"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("rabbitmq.url"),
			Exchange: v.GetString("rabbitmq.exchange"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		Billing: BillingConfig{
			TaxRate:       taxRate,
			DefaultCourse: v.GetString("billing.default_course"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("ratelimit.requests"),
			Window:   v.GetDuration("ratelimit.window"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 0)

	v.SetDefault("redis.addr", "localhost:6380")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "tabgo.checks")

	v.SetDefault("jwt.issuer", "tabgo")
	v.SetDefault("jwt.ttl", 12*time.Hour)

	v.SetDefault("billing.tax_rate", "0.13")
	v.SetDefault("billing.default_course", "apps")

	v.SetDefault("ratelimit.requests", 120)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// keys without defaults still need to be known to AutomaticEnv lookups
	for _, k := range []string{"postgres.user", "postgres.password", "postgres.db", "jwt.secret"} {
		_ = v.BindEnv(k)
	}
}

func (c *Config) validate() error {
	if c.Postgres.User == "" {
		return fmt.Errorf("missing POSTGRES_USER")
	}

	if c.Postgres.Password == "" {
		return fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	if c.Postgres.Name == "" {
		return fmt.Errorf("missing POSTGRES_DB")
	}

	if len(c.JWT.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATELIMIT_REQUESTS and RATELIMIT_WINDOW must be positive")
	}

	return nil
}
