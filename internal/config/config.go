package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	CORS      CORSConfig      `toml:"cors"`
	Auth      AuthConfig      `toml:"auth"`
	Prices    PricesConfig    `toml:"prices"`
	Alerts    AlertsConfig    `toml:"alerts"`
	Mail      MailConfig      `toml:"mail"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string `toml:"port"`
	Host string `toml:"host"`
	Addr string `toml:"-"` // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// AuthConfig holds token and password settings.
type AuthConfig struct {
	AccessTokenSecret  string `toml:"access_token_secret"`
	RefreshTokenSecret string `toml:"refresh_token_secret"`
	AccessTokenTTL     string `toml:"access_token_ttl"`
	RefreshTokenTTL    string `toml:"refresh_token_ttl"`
	BcryptCost         int    `toml:"bcrypt_cost"`
	// ResetTokenKey is a base64 encoded 32 byte fernet key.
	ResetTokenKey string `toml:"reset_token_key"`
	ResetTokenTTL string `toml:"reset_token_ttl"`
	ClientURL     string `toml:"client_url"`
	SecureCookies bool   `toml:"secure_cookies"`
}

// GetAccessTokenTTL parses and returns the access token lifetime
func (c *AuthConfig) GetAccessTokenTTL() time.Duration {
	return parseDuration(c.AccessTokenTTL, 15*time.Minute)
}

// GetRefreshTokenTTL parses and returns the refresh token lifetime
func (c *AuthConfig) GetRefreshTokenTTL() time.Duration {
	return parseDuration(c.RefreshTokenTTL, 7*24*time.Hour)
}

// GetResetTokenTTL parses and returns the password reset token lifetime
func (c *AuthConfig) GetResetTokenTTL() time.Duration {
	return parseDuration(c.ResetTokenTTL, 15*time.Minute)
}

// PricesConfig holds the price feed client and cache settings.
type PricesConfig struct {
	BaseURL         string   `toml:"base_url"`
	APIKey          string   `toml:"api_key"`
	Timeout         string   `toml:"timeout"`
	RateLimit       int      `toml:"rate_limit"` // requests per second
	CacheTTL        string   `toml:"cache_ttl"`
	RefreshSchedule string   `toml:"refresh_schedule"`
	TrackedSymbols  []string `toml:"tracked_symbols"`
	DefaultCurrency string   `toml:"default_currency"`
}

// GetTimeout parses and returns the HTTP timeout of the price feed client
func (c *PricesConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// GetCacheTTL parses and returns how long a fetched price stays fresh
func (c *PricesConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, time.Minute)
}

// AlertsConfig holds the background alert evaluation settings.
type AlertsConfig struct {
	Schedule    string `toml:"schedule"`
	Concurrency int    `toml:"concurrency"`
	JobTimeout  string `toml:"job_timeout"`
}

// GetJobTimeout parses and returns the deadline of one scheduled run
func (c *AlertsConfig) GetJobTimeout() time.Duration {
	return parseDuration(c.JobTimeout, 2*time.Minute)
}

// MailConfig holds SMTP settings. Mail is disabled when Host is empty.
type MailConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// Enabled reports whether an SMTP server is configured.
func (c *MailConfig) Enabled() bool {
	return c.Host != ""
}

// RateLimitConfig holds the per client request limit of the API.
type RateLimitConfig struct {
	Requests int    `toml:"requests"`
	Window   string `toml:"window"`
}

// GetWindow parses and returns the rate limit window
func (c *RateLimitConfig) GetWindow() time.Duration {
	return parseDuration(c.Window, 15*time.Minute)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ErrMissingSecret is returned by Load when a token secret is not configured.
var ErrMissingSecret = errors.New("token secrets must be configured")

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "5001",
			Host: "localhost",
		},
		Database: DatabaseConfig{
			Path: "./data/crypto_portfolio.db",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Auth: AuthConfig{
			AccessTokenTTL:  "15m",
			RefreshTokenTTL: "168h",
			BcryptCost:      12,
			ResetTokenTTL:   "15m",
			ClientURL:       "http://localhost:3000",
		},
		Prices: PricesConfig{
			BaseURL:         "https://api.coingecko.com/api/v3",
			Timeout:         "10s",
			RateLimit:       5,
			CacheTTL:        "1m",
			RefreshSchedule: "@every 1m",
			TrackedSymbols:  []string{"bitcoin", "ethereum"},
			DefaultCurrency: "usd",
		},
		Alerts: AlertsConfig{
			Schedule:    "*/10 * * * *",
			Concurrency: 4,
			JobTimeout:  "2m",
		},
		Mail: MailConfig{
			Port: 587,
			From: "no-reply@localhost",
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   "15m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from the defaults, an optional TOML file named by
// CONFIG_FILE, and environment variables (including a .env file), in
// increasing order of precedence.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(config, path); err != nil {
			return nil, err
		}
	}

	applyEnv(config)

	if config.Auth.AccessTokenSecret == "" || config.Auth.RefreshTokenSecret == "" {
		return nil, ErrMissingSecret
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

func loadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.CORS.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)

	c.Auth.AccessTokenSecret = getEnv("ACCESS_TOKEN_SECRET", c.Auth.AccessTokenSecret)
	c.Auth.RefreshTokenSecret = getEnv("REFRESH_TOKEN_SECRET", c.Auth.RefreshTokenSecret)
	c.Auth.AccessTokenTTL = getEnv("ACCESS_TOKEN_TTL", c.Auth.AccessTokenTTL)
	c.Auth.RefreshTokenTTL = getEnv("REFRESH_TOKEN_TTL", c.Auth.RefreshTokenTTL)
	c.Auth.BcryptCost = getEnvInt("BCRYPT_COST", c.Auth.BcryptCost)
	c.Auth.ResetTokenKey = getEnv("RESET_TOKEN_KEY", c.Auth.ResetTokenKey)
	c.Auth.ResetTokenTTL = getEnv("RESET_TOKEN_TTL", c.Auth.ResetTokenTTL)
	c.Auth.ClientURL = getEnv("CLIENT_URL", c.Auth.ClientURL)
	c.Auth.SecureCookies = getEnvBool("SECURE_COOKIES", c.Auth.SecureCookies)

	c.Prices.BaseURL = getEnv("COINGECKO_BASE_URL", c.Prices.BaseURL)
	c.Prices.APIKey = getEnv("COINGECKO_API_KEY", c.Prices.APIKey)
	c.Prices.CacheTTL = getEnv("PRICE_CACHE_TTL", c.Prices.CacheTTL)
	c.Prices.RefreshSchedule = getEnv("PRICE_REFRESH_SCHEDULE", c.Prices.RefreshSchedule)
	c.Prices.TrackedSymbols = getEnvList("TRACKED_SYMBOLS", c.Prices.TrackedSymbols)
	c.Prices.DefaultCurrency = strings.ToLower(getEnv("DEFAULT_CURRENCY", c.Prices.DefaultCurrency))

	c.Alerts.Schedule = getEnv("ALERT_SCHEDULE", c.Alerts.Schedule)
	c.Alerts.Concurrency = getEnvInt("ALERT_CONCURRENCY", c.Alerts.Concurrency)

	c.Mail.Host = getEnv("SMTP_HOST", c.Mail.Host)
	c.Mail.Port = getEnvInt("SMTP_PORT", c.Mail.Port)
	c.Mail.Username = getEnv("SMTP_USERNAME", c.Mail.Username)
	c.Mail.Password = getEnv("SMTP_PASSWORD", c.Mail.Password)
	c.Mail.From = getEnv("MAIL_FROM", c.Mail.From)

	c.RateLimit.Requests = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.Window = getEnv("RATE_LIMIT_WINDOW", c.RateLimit.Window)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
