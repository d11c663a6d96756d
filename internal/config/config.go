package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Server     Server
	Postgres   Postgres
	Redis      Redis
	Kafka      Kafka
	MarketData MarketData
	Ingest     Ingest
	Jobs       Jobs
}

// Server holds HTTP server configuration
type Server struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port string `env:"SERVER_PORT" envDefault:"8080"`
}

// Postgres holds market data store configuration
type Postgres struct {
	Host          string `env:"DB_HOST" envDefault:"localhost"`
	Port          string `env:"DB_PORT" envDefault:"5432"`
	User          string `env:"DB_USER" envDefault:"postgres"`
	Password      string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName        string `env:"DB_NAME" envDefault:"portfolio"`
	SSLMode       string `env:"DB_SSLMODE" envDefault:"disable"`
	MigrationsDir string `env:"DB_MIGRATIONS_DIR" envDefault:"db/migrations"`
}

// Redis holds the enrichment-lock store configuration
type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Kafka holds trade-event streaming configuration
type Kafka struct {
	Brokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	TradesTopic   string   `env:"KAFKA_TRADES_TOPIC" envDefault:"portfolio-trades"`
	EventsTopic   string   `env:"KAFKA_EVENTS_TOPIC" envDefault:"portfolio-events"`
	ConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"portfolio-analytics"`
}

// MarketData holds external fetcher configuration
type MarketData struct {
	BaseURL      string        `env:"MARKET_DATA_BASE_URL" envDefault:"https://query1.finance.yahoo.com"`
	Timeout      time.Duration `env:"MARKET_DATA_TIMEOUT" envDefault:"30s"`
	Debug        bool          `env:"MARKET_DATA_DEBUG" envDefault:"false"`
	FetchDelay   time.Duration `env:"MARKET_DATA_FETCH_DELAY" envDefault:"1s"`
	DefaultStart string        `env:"MARKET_DATA_DEFAULT_START" envDefault:"2022-01-01"`
}

// Ingest holds trade ledger seeding configuration
type Ingest struct {
	// Activity-statement CSV files loaded into an empty ledger at startup.
	TradeFiles []string `env:"TRADE_CSV_FILES" envSeparator:","`
}

// Jobs holds scheduler configuration
type Jobs struct {
	EnrichmentInterval time.Duration `env:"ENRICHMENT_JOB_INTERVAL" envDefault:"24h"`
	EnrichOnStartup    bool          `env:"ENRICH_ON_STARTUP" envDefault:"true"`
}

// MustLoad reads configuration from the environment, panicking on failure
func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic("failed to parse config: " + err.Error())
	}
	return cfg
}

// ConnString returns the PostgreSQL connection string
func (p *Postgres) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// Addr returns the redis address in host:port form
func (r *Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
