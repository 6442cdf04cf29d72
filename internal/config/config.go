package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Valuation ValuationConfig `json:"valuation"`
	Locations LocationsConfig `json:"locations"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
	Workers   WorkersConfig   `json:"workers"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	Mode            string        `json:"mode"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
	// Disabled runs the service on the in-memory sample store only
	Disabled bool `json:"disabled"`
	// SamplesFile seeds the local sample store, which also serves reads
	// while the database is unreachable
	SamplesFile string `json:"samples_file"`
}

// ValuationConfig tunes the sample search cascade
type ValuationConfig struct {
	MinSamples  int           `json:"min_samples"`
	CallTimeout time.Duration `json:"call_timeout"`
}

// LocationsConfig configures neighboring-location resolution
type LocationsConfig struct {
	NeighborsFile   string        `json:"neighbors_file"`
	CacheTTL        time.Duration `json:"cache_ttl"`
	AnthropicAPIKey string        `json:"anthropic_api_key"`
	AnthropicModel  string        `json:"anthropic_model"`
}

// StorageConfig configures report archiving
type StorageConfig struct {
	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3Prefix    string `json:"s3_prefix"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
}

// Enabled reports whether exports should be archived to S3
func (c StorageConfig) Enabled() bool {
	return c.S3Bucket != ""
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// WorkersConfig
type WorkersConfig struct {
	JanitorSchedule string        `json:"janitor_schedule"`
	MaxSampleAge    time.Duration `json:"max_sample_age"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			Mode:            "release",
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "appraisals",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    5 * time.Minute,
		},
		Valuation: ValuationConfig{
			MinSamples:  5,
			CallTimeout: 10 * time.Second,
		},
		Locations: LocationsConfig{
			CacheTTL:       24 * time.Hour,
			AnthropicModel: "claude-sonnet-4-20250514",
		},
		Storage: StorageConfig{
			S3Region: "us-east-1",
			S3Prefix: "appraisals/",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Workers: WorkersConfig{
			JanitorSchedule: "0 0 3 * * *",
			MaxSampleAge:    2 * 365 * 24 * time.Hour,
		},
	}
}

// LoadConfig loads configuration from a .env file, an optional JSON file and
// environment variables, in that order of increasing precedence.
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; variables already set in the process win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Valuation.MinSamples <= 0 {
		return fmt.Errorf("valuation.min_samples must be positive")
	}
	if c.Valuation.CallTimeout <= 0 {
		return fmt.Errorf("valuation.call_timeout must be positive")
	}
	return nil
}

func overrideWithEnv(config *Config) error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT: %w", err)
		}
		config.Server.Port = p
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}

	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if disabled := os.Getenv("DATABASE_DISABLED"); disabled != "" {
		b, err := strconv.ParseBool(disabled)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_DISABLED: %w", err)
		}
		config.Database.Disabled = b
	}
	if f := os.Getenv("SAMPLES_FILE"); f != "" {
		config.Database.SamplesFile = f
	}

	if n := os.Getenv("VALUATION_MIN_SAMPLES"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return fmt.Errorf("invalid VALUATION_MIN_SAMPLES: %w", err)
		}
		config.Valuation.MinSamples = v
	}
	if err := durationFromEnv("VALUATION_CALL_TIMEOUT", &config.Valuation.CallTimeout); err != nil {
		return err
	}

	if f := os.Getenv("NEIGHBORS_FILE"); f != "" {
		config.Locations.NeighborsFile = f
	}
	if err := durationFromEnv("NEIGHBORS_CACHE_TTL", &config.Locations.CacheTTL); err != nil {
		return err
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Locations.AnthropicAPIKey = key
	}
	if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
		config.Locations.AnthropicModel = model
	}

	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.Storage.S3Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Storage.S3Region = region
	}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		config.Storage.S3AccessKey = key
	}
	if secret := os.Getenv("AWS_SECRET_ACCESS_KEY"); secret != "" {
		config.Storage.S3SecretKey = secret
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if dev := os.Getenv("LOG_DEVELOPMENT"); dev != "" {
		config.Logging.Development = dev == "true" || dev == "1"
	}

	if schedule := os.Getenv("JANITOR_SCHEDULE"); schedule != "" {
		config.Workers.JanitorSchedule = schedule
	}
	return durationFromEnv("SAMPLE_MAX_AGE", &config.Workers.MaxSampleAge)
}

func durationFromEnv(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
