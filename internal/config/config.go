package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Oracle   Oracle   `mapstructure:"oracle"`
	Ledger   Ledger   `mapstructure:"ledger"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Oracle holds the configuration for the CoinGecko price API.
type Oracle struct {
	BaseURL        string        `mapstructure:"base_url"`
	ApiKey         string        `mapstructure:"apiKey"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN   string `mapstructure:"dsn"`
	Reset bool   `mapstructure:"reset"`
}

// Ledger holds the configuration for the balance ledger and its trade engine.
type Ledger struct {
	ReferenceCurrency string        `mapstructure:"reference_currency"`
	StartingBalance   string        `mapstructure:"starting_balance"`
	Assets            []AssetSeed   `mapstructure:"assets"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
}

// AssetSeed describes a tradable coin created at startup if it is missing.
// OracleID defaults to Symbol.
type AssetSeed struct {
	Symbol   string `mapstructure:"symbol"`
	OracleID string `mapstructure:"oracle_id"`
	Active   bool   `mapstructure:"active"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("oracle.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("oracle.apiKey", "")
	v.SetDefault("oracle.timeout", 5*time.Second)
	v.SetDefault("oracle.rate_limit", 5) // requests per second
	v.SetDefault("oracle.rate_limit_burst", 2)
	v.SetDefault("oracle.max_retries", 3)

	v.SetDefault("ledger.reference_currency", "usd")
	v.SetDefault("ledger.starting_balance", "10000")
	v.SetDefault("ledger.max_retries", 5)
	v.SetDefault("ledger.retry_backoff", 10*time.Millisecond)
	v.SetDefault("ledger.assets", []map[string]any{
		{"symbol": "bitcoin", "active": true},
		{"symbol": "ethereum", "active": true},
		{"symbol": "ripple", "active": true},
		{"symbol": "dogecoin", "active": true},
		{"symbol": "cardano", "active": true},
		{"symbol": "eos", "active": true},
	})

	v.SetDefault("server.port", 3000)
	v.SetDefault("database.dsn", "file:ledger.db?_busy_timeout=5000&_txlock=immediate")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and the environment apply.
func LoadConfig(path string) (config Config, err error) {
	// Optional .env next to the binary, mirrors what operators already keep for secrets.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	SetDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
