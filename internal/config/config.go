package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Dataset  DatasetConfig
	Analysis AnalysisConfig
	Promo    PromoConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatasetConfig struct {
	CSVFile string
}

// AnalysisConfig controls baseline aggregation and rule mining.
type AnalysisConfig struct {
	MinSupport    float64
	MinConfidence float64
	MaxRules      int
	// CostRatio derives unit cost from average unit price; the source
	// dataset carries no cost column.
	CostRatio float64
}

// PromoConfig shapes the default promotional scenario grid.
type PromoConfig struct {
	DiscountLevels []float64
	Elasticity     float64
	TopProducts    int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableCSRF      bool
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Dataset: DatasetConfig{
			CSVFile: getEnvString("CSV_FILE", "data_clean/transactions.csv"),
		},
		Analysis: AnalysisConfig{
			MinSupport:    getEnvFloat("ANALYSIS_MIN_SUPPORT", 0.0),
			MinConfidence: getEnvFloat("ANALYSIS_MIN_CONFIDENCE", 0.05),
			MaxRules:      getEnvInt("ANALYSIS_MAX_RULES", 5000),
			CostRatio:     getEnvFloat("ANALYSIS_COST_RATIO", 0.6),
		},
		Promo: PromoConfig{
			DiscountLevels: getEnvFloatSlice("PROMO_DISCOUNT_LEVELS", []float64{0.05, 0.10, 0.15, 0.20, 0.25}),
			Elasticity:     getEnvFloat("PROMO_ELASTICITY", 1.5),
			TopProducts:    getEnvInt("PROMO_TOP_PRODUCTS", 6),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableCSRF:      getEnvBool("SECURITY_CSRF_ENABLED", true),
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Dataset.CSVFile == "" {
		return fmt.Errorf("CSV file path cannot be empty")
	}

	if c.Analysis.MinSupport < 0 || c.Analysis.MinSupport > 1 {
		return fmt.Errorf("minimum support must be in [0, 1], got %f", c.Analysis.MinSupport)
	}

	if c.Analysis.MinConfidence < 0 || c.Analysis.MinConfidence > 1 {
		return fmt.Errorf("minimum confidence must be in [0, 1], got %f", c.Analysis.MinConfidence)
	}

	if c.Analysis.CostRatio < 0 || c.Analysis.CostRatio >= 1 {
		return fmt.Errorf("cost ratio must be in [0, 1), got %f", c.Analysis.CostRatio)
	}

	if len(c.Promo.DiscountLevels) == 0 {
		return fmt.Errorf("at least one promo discount level is required")
	}
	for _, d := range c.Promo.DiscountLevels {
		if d < 0 || d >= 1 {
			return fmt.Errorf("promo discount levels must be in [0, 1), got %f", d)
		}
	}

	if c.Promo.Elasticity < 0 {
		return fmt.Errorf("promo elasticity must be non-negative, got %f", c.Promo.Elasticity)
	}

	if c.Promo.TopProducts <= 0 {
		return fmt.Errorf("promo top products must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvFloatSlice(key string, defaultValue []float64) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	parsed := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return defaultValue
		}
		parsed = append(parsed, f)
	}
	return parsed
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
