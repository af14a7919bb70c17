package config

import (
	"os"
	"strconv"

	"gridwatch/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Model    ModelConfig
	Data     DataConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// ModelConfig holds scoring engine defaults
type ModelConfig struct {
	// ThresholdFactor is the default k in mean + k*std, overridable per
	// request inside [1.5, 5.0].
	ThresholdFactor float64

	// Ridge enables opt-in covariance regularization when > 0.
	Ridge float64

	// ScoreWorkers bounds row-level scoring parallelism; <= 1 is sequential.
	ScoreWorkers int
}

// DataConfig holds data source settings
type DataConfig struct {
	// WorkbookFile is an optional .xlsx/.csv source for customer and
	// consumption tables ingested by cmd/ingest.
	WorkbookFile string

	// SampleSeed seeds the synthetic data generator.
	SampleSeed int64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	config.Server = ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}

	config.Model = ModelConfig{
		ThresholdFactor: getEnvFloatOrDefault("THRESHOLD_FACTOR", 3.0),
		Ridge:           getEnvFloatOrDefault("MODEL_RIDGE", 0),
		ScoreWorkers:    getEnvIntOrDefault("SCORE_WORKERS", 1),
	}

	config.Data = DataConfig{
		WorkbookFile: getEnvOrDefault("WORKBOOK_FILE", ""),
		SampleSeed:   int64(getEnvIntOrDefault("SAMPLE_SEED", 42)),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:     url,
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("database URL is required")
	}
	if config.Model.ThresholdFactor < 1.5 || config.Model.ThresholdFactor > 5.0 {
		return errors.ConfigInvalid("THRESHOLD_FACTOR must be in [1.5, 5.0]")
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
