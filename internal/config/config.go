package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Checkout  CheckoutConfig
	Payment   PaymentConfig
	Events    EventsConfig
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
}

// DSN renders the connection string pgxpool expects.
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

type CheckoutConfig struct {
	HoldTTL        time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
	TxMaxAttempts  int
}

type PaymentConfig struct {
	// StripeSecretKey selects the Stripe gateway; empty means the fake one.
	StripeSecretKey string
	Currency        string
	Timeout         time.Duration
}

const (
	BrokerNone  = "none"
	BrokerKafka = "kafka"
	BrokerAMQP  = "amqp"
)

type EventsConfig struct {
	Broker       string
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPQueue    string
}

type RateLimitConfig struct {
	// PerMinute caps hold creations per company; 0 disables the limiter.
	PerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := envInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: envString("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	postgresPort, err := envInt("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     envString("POSTGRES_HOST", "localhost"),
		Port:     postgresPort,
		SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
	}

	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     envString("REDIS_ADDR", "localhost:6380"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	holdTTL, err := envDuration("HOLD_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sweepInterval, err := envDuration("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sweepBatch, err := envInt("SWEEP_BATCH_SIZE", 500)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	txAttempts, err := envInt("TX_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if holdTTL <= 0 || sweepInterval <= 0 || sweepBatch <= 0 || txAttempts <= 0 {
		return nil, fmt.Errorf("%s: HOLD_TTL, SWEEP_INTERVAL, SWEEP_BATCH_SIZE and TX_MAX_ATTEMPTS must be positive", op)
	}

	checkoutCfg := CheckoutConfig{
		HoldTTL:        holdTTL,
		SweepInterval:  sweepInterval,
		SweepBatchSize: sweepBatch,
		TxMaxAttempts:  txAttempts,
	}

	paymentTimeout, err := envDuration("PAYMENT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	paymentCfg := PaymentConfig{
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		Currency:        strings.ToLower(envString("PAYMENT_CURRENCY", "usd")),
		Timeout:         paymentTimeout,
	}

	eventsCfg := EventsConfig{
		Broker:       strings.ToLower(envString("EVENTS_BROKER", BrokerNone)),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envString("KAFKA_TOPIC", "seatflow.events"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPQueue:    envString("AMQP_QUEUE", "seatflow.events"),
	}

	switch eventsCfg.Broker {
	case BrokerNone:
	case BrokerKafka:
		if len(eventsCfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("%s: missing KAFKA_BROKERS", op)
		}
	case BrokerAMQP:
		if eventsCfg.AMQPURL == "" {
			return nil, fmt.Errorf("%s: missing AMQP_URL", op)
		}
	default:
		return nil, fmt.Errorf("%s: invalid EVENTS_BROKER %q", op, eventsCfg.Broker)
	}

	perMinute, err := envInt("RATE_LIMIT_PER_MINUTE", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:    serverCfg,
		Postgres:  postgresCfg,
		Redis:     redisCfg,
		Checkout:  checkoutCfg,
		Payment:   paymentCfg,
		Events:    eventsCfg,
		RateLimit: RateLimitConfig{PerMinute: perMinute},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
	}, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
