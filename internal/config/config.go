package config

import (
	"os"
	"strconv"
	"time"

	"relialab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	AI       AIConfig
	Server   ServerConfig
	Analysis AnalysisConfig
	LogLevel string
}

// DatabaseConfig holds database connection settings. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Enabled reports whether a Postgres database is configured
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// AIConfig holds narrative-summary LLM settings. An empty key disables summaries.
type AIConfig struct {
	OpenAIKey     string
	OpenAIModel   string
	BaseURL       string
	SystemContext string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
}

// Enabled reports whether narrative summaries can be requested
func (c AIConfig) Enabled() bool {
	return c.OpenAIKey != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	UIPort  string
	GinMode string
}

// AnalysisConfig holds estimation defaults applied when a request omits them
type AnalysisConfig struct {
	DefaultConfidence   float64
	DefaultMethod       string
	DefaultDistribution string
	MaxObservations     int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		AI:       loadAIConfig(),
		Server:   loadServerConfig(),
		Analysis: loadAnalysisConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		ConnMaxLifetime: getEnvDurationOrDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

func loadAIConfig() AIConfig {
	return AIConfig{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		BaseURL:       os.Getenv("OPENAI_BASE_URL"),
		SystemContext: getEnvOrDefault("SYSTEM_CONTEXT", "You are a reliability engineer writing concise life-data analysis summaries."),
		MaxTokens:     getEnvIntOrDefault("MAX_TOKENS", 1200),
		Temperature:   getEnvFloatOrDefault("TEMPERATURE", 0.2),
		Timeout:       getEnvDurationOrDefault("LLM_TIMEOUT", 60*time.Second),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		UIPort:  getEnvOrDefault("UI_PORT", "8081"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		DefaultConfidence:   getEnvFloatOrDefault("DEFAULT_CONFIDENCE", 0.90),
		DefaultMethod:       getEnvOrDefault("DEFAULT_METHOD", "SRM"),
		DefaultDistribution: getEnvOrDefault("DEFAULT_DISTRIBUTION", "weibull"),
		MaxObservations:     getEnvIntOrDefault("MAX_OBSERVATIONS", 100000),
	}
}

func validateConfig(config *Config) error {
	cl := config.Analysis.DefaultConfidence
	if !(cl > 0 && cl < 1) {
		return errors.ConfigInvalid("DEFAULT_CONFIDENCE must be a fraction in (0,1)")
	}
	if config.Analysis.MaxObservations <= 0 {
		return errors.ConfigInvalid("MAX_OBSERVATIONS must be positive")
	}
	if config.AI.Enabled() && config.AI.OpenAIModel == "" {
		return errors.ConfigInvalid("LLM_MODEL is required when OPENAI_API_KEY is set")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
