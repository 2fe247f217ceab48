package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// WalletSettings is the endpoint/token blob the dashboard persists locally.
// It is always replaced wholesale, never patched field by field.
type WalletSettings struct {
	ProxyURL        string `json:"proxy_url"`
	Token           string `json:"token"`
	BalanceURL      string `json:"balance_url"`
	TransactionsURL string `json:"transactions_url"`
	SearchURL       string `json:"search_url"`
}

// Config holds all application configuration
type Config struct {
	Wallet  WalletSettings
	History HistoryConfig
	Client  ClientConfig
	Server  ServerConfig

	LogLevel     string
	SettingsPath string
}

// HistoryConfig locates the backend functions.
type HistoryConfig struct {
	BaseURL string
	APIKey  string
}

// ClientConfig holds timing for the dashboard side.
type ClientConfig struct {
	RequestTimeout time.Duration
	WriteTimeout   time.Duration
	RefreshDelay   time.Duration
	PollInterval   time.Duration
}

// ServerConfig holds settings for the backend functions server.
type ServerConfig struct {
	Port      string
	APIKey    string
	ProjectID string
	DatasetID string
	Bucket    string
	RateLimit float64
	RateBurst int
}

const (
	DefaultRequestTimeout = 15 * time.Second
	DefaultRefreshDelay   = 800 * time.Millisecond
	DefaultPollInterval   = 30 * time.Second
)

// Load reads an optional .env file and then the environment.
func Load(log zerolog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, relying on environment")
	}

	return &Config{
		Wallet: WalletSettings{
			ProxyURL:        getEnv("WALLET_PROXY_URL", ""),
			Token:           getEnv("WALLET_TOKEN", ""),
			BalanceURL:      getEnv("WALLET_BALANCE_URL", ""),
			TransactionsURL: getEnv("WALLET_TRANSACTIONS_URL", ""),
			SearchURL:       getEnv("WALLET_SEARCH_URL", ""),
		},
		History: HistoryConfig{
			BaseURL: getEnv("HISTORY_BASE_URL", "http://localhost:8080/functions"),
			APIKey:  getEnv("HISTORY_API_KEY", ""),
		},
		Client: ClientConfig{
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", DefaultRequestTimeout),
			WriteTimeout:   getEnvAsDuration("HISTORY_WRITE_TIMEOUT", 10*time.Second),
			RefreshDelay:   getEnvAsDuration("REFRESH_DELAY", DefaultRefreshDelay),
			PollInterval:   getEnvAsDuration("POLL_INTERVAL", DefaultPollInterval),
		},
		Server: ServerConfig{
			Port:      getEnv("PORT", "8080"),
			APIKey:    getEnv("FUNCTIONS_API_KEY", ""),
			ProjectID: getEnv("BIGQUERY_PROJECT", ""),
			DatasetID: getEnv("BIGQUERY_DATASET", "wallet"),
			Bucket:    getEnv("GCS_BUCKET", ""),
			RateLimit: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			RateBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),
		},
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		SettingsPath: getEnv("SETTINGS_PATH", "wallet-settings.json"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil && value > 0 {
		return value
	}
	return fallback
}
