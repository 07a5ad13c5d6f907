package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Database *Database
	HTTP     *HTTP
	App      *App
	Redis    *Redis
	Notify   *Notify
}

const AppModeProduction = "PROD"
const AppModeDevelop = "DEV"

type App struct {
	LogLevel string `env:"LOG_LEVEL"`
	Mode     string
	// TokenKey is the hex encoded PASETO v4 local key. Empty generates a
	// random key per process.
	TokenKey string `env:"TOKEN_KEY"`
}

// Database keeps orders in postgres. An empty DSN selects the in-memory store.
type Database struct {
	DSN      string `env:"DATABASE_URI"`
	MaxConns int32  `env:"DATABASE_MAX_CONNS"`
}

type HTTP struct {
	HostString string `env:"RUN_ADDRESS"`
}

// Redis configures the order read cache. An empty address disables it.
type Redis struct {
	Address string        `env:"REDIS_ADDRESS"`
	TTL     time.Duration `env:"REDIS_TTL"`
}

// Notify configures delivery of order confirmations. Without brokers the
// confirmations are only logged.
type Notify struct {
	Brokers    string        `env:"KAFKA_BROKERS"`
	Topic      string        `env:"NOTIFY_TOPIC"`
	Workers    int           `env:"NOTIFY_WORKERS"`
	QueueSize  int           `env:"NOTIFY_QUEUE"`
	Retries    int           `env:"NOTIFY_RETRIES"`
	RetryDelay time.Duration `env:"NOTIFY_RETRY_DELAY"`
}

func NewConfig() (*Config, error) {
	var db Database
	var http HTTP
	var app App
	var redis Redis
	var notify Notify

	flag.StringVar(&db.DSN, "d", "", "Database string")
	flag.StringVar(&http.HostString, "a", `localhost:8080`, "HTTP server endpoint")
	flag.StringVar(&app.LogLevel, "l", `error`, "Log level")
	flag.StringVar(&app.Mode, "m", `DEV`, "PROD / DEV")
	flag.StringVar(&app.TokenKey, "t", "", "Token key (hex)")
	flag.StringVar(&redis.Address, "c", "", "Redis address for the order cache")
	flag.DurationVar(&redis.TTL, "cache-ttl", 5*time.Minute, "Order cache TTL")
	flag.StringVar(&notify.Brokers, "k", "", "Kafka brokers, comma separated")
	flag.StringVar(&notify.Topic, "notify-topic", "order-confirmations", "Confirmation topic")
	flag.IntVar(&notify.Workers, "notify-workers", 2, "Confirmation workers")
	flag.IntVar(&notify.QueueSize, "notify-queue", 100, "Confirmation queue size")
	flag.IntVar(&notify.Retries, "notify-retries", 3, "Confirmation delivery retries")
	flag.DurationVar(&notify.RetryDelay, "notify-retry-delay", 3*time.Second, "Delay between delivery retries")
	flag.Parse()

	err := env.Parse(&db)
	if err != nil {
		return nil, fmt.Errorf("error parsing env database config: %w", err)
	}
	err = env.Parse(&http)
	if err != nil {
		return nil, fmt.Errorf("error parsing http config: %w", err)
	}
	err = env.Parse(&app)
	if err != nil {
		return nil, fmt.Errorf("error parsing app config: %w", err)
	}
	err = env.Parse(&redis)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis config: %w", err)
	}
	err = env.Parse(&notify)
	if err != nil {
		return nil, fmt.Errorf("error parsing notify config: %w", err)
	}

	config := Config{
		Database: &db,
		HTTP:     &http,
		App:      &app,
		Redis:    &redis,
		Notify:   &notify,
	}

	return &config, nil
}
