package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	DatabasePath        string `json:"database_path"`
	APIPort             string `json:"api_port"`
	LogLevel            string `json:"log_level"`
	DataDir             string `json:"data_dir"`
	JWTSecret           string `json:"jwt_secret"`
	CORSOrigins         string `json:"cors_origins"`          // comma-separated, * for all
	InboundDomain       string `json:"inbound_domain"`        // domain of per-user forwarding addresses
	ReminderIntervalMin int    `json:"reminder_interval_min"` // minutes between reminder checks
}

// Default configuration values
const (
	DefaultDatabasePath        = "data/taskmatrix.db"
	DefaultAPIPort             = "8080"
	DefaultLogLevel            = "INFO"
	DefaultDataDir             = "data"
	DefaultJWTSecret           = "taskmatrix-default-secret-change-in-production"
	DefaultCORSOrigins         = "*"
	DefaultInboundDomain       = ""
	DefaultReminderIntervalMin = 15
)

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:        DefaultDatabasePath,
		APIPort:             DefaultAPIPort,
		LogLevel:            DefaultLogLevel,
		DataDir:             DefaultDataDir,
		JWTSecret:           DefaultJWTSecret,
		CORSOrigins:         DefaultCORSOrigins,
		InboundDomain:       DefaultInboundDomain,
		ReminderIntervalMin: DefaultReminderIntervalMin,
	}

	// Config file is optional
	cfg.loadFromFile()

	// Override with environment variables
	cfg.loadFromEnv()

	return cfg, nil
}

// loadFromFile loads configuration from config.json file
func (c *Config) loadFromFile() error {
	configPaths := []string{
		"config.json",
		filepath.Join(c.DataDir, "config.json"),
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(data, c); err != nil {
			return err
		}
		return nil
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if val := os.Getenv("TASKMATRIX_DATABASE_PATH"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("TASKMATRIX_API_PORT"); val != "" {
		c.APIPort = val
	}
	if val := os.Getenv("TASKMATRIX_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("TASKMATRIX_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("TASKMATRIX_JWT_SECRET"); val != "" {
		c.JWTSecret = val
	}
	if val := os.Getenv("TASKMATRIX_CORS_ORIGINS"); val != "" {
		c.CORSOrigins = val
	}
	if val := os.Getenv("TASKMATRIX_INBOUND_DOMAIN"); val != "" {
		c.InboundDomain = val
	}
	if val := os.Getenv("TASKMATRIX_REMINDER_INTERVAL_MIN"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.ReminderIntervalMin = n
		}
	}
}

// ReminderInterval returns the reminder check interval as a duration
func (c *Config) ReminderInterval() time.Duration {
	minutes := c.ReminderIntervalMin
	if minutes < 1 {
		minutes = DefaultReminderIntervalMin
	}
	return time.Duration(minutes) * time.Minute
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
