package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Market data provider names
const (
	ProviderFMP   = "fmp"
	ProviderYahoo = "yahoo"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Market data provider configuration
	Provider ProviderConfig

	// Catalog build configuration
	Calendar CalendarConfig

	// Exchange rate configuration
	Currency CurrencyConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Logging configuration
	Log LogConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
	// CacheTTLMinutes is how long fetched market data stays in market_data_cache
	CacheTTLMinutes int
}

// ProviderConfig selects and configures the market data source
type ProviderConfig struct {
	Name           string // fmp or yahoo
	FMPAPIKey      string
	FMPBaseURL     string // empty uses the production API
	TimeoutSeconds int
}

// CalendarConfig holds catalog build configuration
type CalendarConfig struct {
	Symbols         string // comma separated; overrides the built-in universe
	SymbolsFile     string // YAML file; overrides Symbols
	MaxConcurrent   int    // Max concurrent symbol fetches (default: 4)
	CacheTTLSeconds int    // How long a built catalog is reused (default: 3600)
}

// CurrencyConfig holds exchange rate configuration
type CurrencyConfig struct {
	Target         string
	TimeoutSeconds int
	ECBBaseURL     string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               int
	CORSAllowedOrigins string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Production bool
	Level      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			CacheTTLMinutes: getEnvInt("MARKET_DATA_CACHE_TTL_MINUTES", 720),
		},
		Provider: ProviderConfig{
			Name:           strings.ToLower(getEnvString("MARKET_DATA_PROVIDER", ProviderYahoo)),
			FMPAPIKey:      os.Getenv("FMP_API_KEY"),
			FMPBaseURL:     os.Getenv("FMP_BASE_URL"),
			TimeoutSeconds: getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30),
		},
		Calendar: CalendarConfig{
			Symbols:         os.Getenv("CALENDAR_SYMBOLS"),
			SymbolsFile:     os.Getenv("CALENDAR_SYMBOLS_FILE"),
			MaxConcurrent:   getEnvInt("CALENDAR_MAX_CONCURRENT", 4),
			CacheTTLSeconds: getEnvInt("CALENDAR_CACHE_TTL_SECONDS", 3600),
		},
		Currency: CurrencyConfig{
			Target:         strings.ToUpper(getEnvString("TARGET_CURRENCY", "EUR")),
			TimeoutSeconds: getEnvInt("EXCHANGE_RATE_TIMEOUT_SECONDS", 10),
			ECBBaseURL:     getEnvString("ECB_BASE_URL", "https://data-api.ecb.europa.eu/service/data/EXR"),
		},
		HTTP: HTTPConfig{
			Port:               getEnvInt("HTTP_PORT", 8080),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
		Log: LogConfig{
			Production: getEnvBool("LOG_PRODUCTION", false),
			Level:      getEnvString("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderFMP:
		if c.Provider.FMPAPIKey == "" {
			return fmt.Errorf("FMP_API_KEY is required when MARKET_DATA_PROVIDER=%s", ProviderFMP)
		}
	case ProviderYahoo:
	default:
		return fmt.Errorf("MARKET_DATA_PROVIDER must be %q or %q, got %q", ProviderFMP, ProviderYahoo, c.Provider.Name)
	}

	// Validate positive integers
	if c.Provider.TimeoutSeconds <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT_SECONDS must be positive, got %d", c.Provider.TimeoutSeconds)
	}
	if c.Calendar.MaxConcurrent <= 0 {
		return fmt.Errorf("CALENDAR_MAX_CONCURRENT must be positive, got %d", c.Calendar.MaxConcurrent)
	}
	if c.Calendar.CacheTTLSeconds <= 0 {
		return fmt.Errorf("CALENDAR_CACHE_TTL_SECONDS must be positive, got %d", c.Calendar.CacheTTLSeconds)
	}
	if c.Currency.TimeoutSeconds <= 0 {
		return fmt.Errorf("EXCHANGE_RATE_TIMEOUT_SECONDS must be positive, got %d", c.Currency.TimeoutSeconds)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if len(c.Currency.Target) != 3 {
		return fmt.Errorf("TARGET_CURRENCY must be a 3-letter ISO code, got %q", c.Currency.Target)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasFMP returns true if Financial Modeling Prep configuration is available
func (c *Config) HasFMP() bool {
	return c.Provider.FMPAPIKey != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:             "",
			CacheTTLMinutes: 720,
		},
		Provider: ProviderConfig{
			Name:           ProviderYahoo,
			FMPAPIKey:      "",
			TimeoutSeconds: 30,
		},
		Calendar: CalendarConfig{
			MaxConcurrent:   4,
			CacheTTLSeconds: 3600,
		},
		Currency: CurrencyConfig{
			Target:         "EUR",
			TimeoutSeconds: 10,
			ECBBaseURL:     "https://data-api.ecb.europa.eu/service/data/EXR",
		},
		HTTP: HTTPConfig{
			Port:               8080,
			CORSAllowedOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
