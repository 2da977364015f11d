package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Load-board source
	SourceMode       string // "http" or "ws"
	SourceBaseURL    string
	SourceWSURL      string
	SourceTimeout    time.Duration
	SourceBatchLimit int

	// Fleet telemetry
	FleetBaseURL string
	FleetTimeout time.Duration

	// Scan scheduling
	ScanInterval    time.Duration
	RetentionSweep  time.Duration
	RetentionWindow time.Duration

	// Route insertion
	DetourSlackMiles      float64
	DeadheadCapMiles      float64
	AvgSpeedMPH           float64
	FuelCostPerMile       float64
	TotalCostPerMile      float64
	RequireEquipmentMatch bool

	// Match ranking
	MatchMinFeasibility int
	MatchTopK           int
	MatchWorkers        int

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Source defaults
		SourceMode:       getEnvOrDefault("SOURCE_MODE", "http"),
		SourceBaseURL:    getEnvOrDefault("SOURCE_BASE_URL", "http://localhost:9090"),
		SourceWSURL:      getEnvOrDefault("SOURCE_WS_URL", "ws://localhost:9090/v1/postings/stream"),
		SourceTimeout:    getDurationOrDefault("SOURCE_TIMEOUT", 10*time.Second),
		SourceBatchLimit: getIntOrDefault("SOURCE_BATCH_LIMIT", 50),

		// Fleet defaults
		FleetBaseURL: getEnvOrDefault("FLEET_BASE_URL", "http://localhost:9091"),
		FleetTimeout: getDurationOrDefault("FLEET_TIMEOUT", 10*time.Second),

		// Scan defaults
		ScanInterval:    getDurationOrDefault("SCAN_INTERVAL", 2*time.Minute),
		RetentionSweep:  getDurationOrDefault("RETENTION_SWEEP_INTERVAL", 15*time.Minute),
		RetentionWindow: getDurationOrDefault("RETENTION_WINDOW", 24*time.Hour),

		// Insertion defaults
		DetourSlackMiles:      getFloat64OrDefault("DETOUR_SLACK_MILES", 100.0),
		DeadheadCapMiles:      getFloat64OrDefault("DEADHEAD_CAP_MILES", 200.0),
		AvgSpeedMPH:           getFloat64OrDefault("AVG_SPEED_MPH", 52.5),
		FuelCostPerMile:       getFloat64OrDefault("FUEL_COST_PER_MILE", 0.62),
		TotalCostPerMile:      getFloat64OrDefault("TOTAL_COST_PER_MILE", 1.80),
		RequireEquipmentMatch: getBoolOrDefault("MATCH_REQUIRE_EQUIPMENT", false),

		// Match ranking defaults
		MatchMinFeasibility: getIntOrDefault("MATCH_MIN_FEASIBILITY", 70),
		MatchTopK:           getIntOrDefault("MATCH_TOP_K", 20),
		MatchWorkers:        getIntOrDefault("MATCH_WORKERS", 8),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "ghostload"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "ghostload123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "ghostload"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.SourceMode != "http" && c.SourceMode != "ws" {
		return fmt.Errorf("SOURCE_MODE must be 'http' or 'ws', got %q", c.SourceMode)
	}

	if c.SourceMode == "http" && c.SourceBaseURL == "" {
		return fmt.Errorf("SOURCE_BASE_URL cannot be empty")
	}

	if c.SourceMode == "ws" && c.SourceWSURL == "" {
		return fmt.Errorf("SOURCE_WS_URL cannot be empty")
	}

	if c.FleetBaseURL == "" {
		return fmt.Errorf("FLEET_BASE_URL cannot be empty")
	}

	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %s", c.ScanInterval)
	}

	if c.AvgSpeedMPH <= 0 {
		return fmt.Errorf("AVG_SPEED_MPH must be positive, got %f", c.AvgSpeedMPH)
	}

	if c.TotalCostPerMile <= 0 {
		return fmt.Errorf("TOTAL_COST_PER_MILE must be positive, got %f", c.TotalCostPerMile)
	}

	if c.MatchMinFeasibility < 0 || c.MatchMinFeasibility > 100 {
		return fmt.Errorf("MATCH_MIN_FEASIBILITY must be between 0 and 100, got %d", c.MatchMinFeasibility)
	}

	if c.MatchTopK <= 0 {
		return fmt.Errorf("MATCH_TOP_K must be positive, got %d", c.MatchTopK)
	}

	if c.MatchWorkers <= 0 {
		return fmt.Errorf("MATCH_WORKERS must be positive, got %d", c.MatchWorkers)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
