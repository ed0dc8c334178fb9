// Package config loads application configuration from environment variables
// with an optional YAML file override. Environment always wins.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix namespaces every environment variable, e.g. TRADEPULSE_SERVER_PORT.
const envPrefix = "TRADEPULSE"

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Auth     AuthConfig     `yaml:"auth" envconfig:"AUTH"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration. Defaults live in
// Default(): tag-level defaults would be re-applied by the env pass and
// silently undo values read from the YAML file.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// AuthConfig is the single-user credential pair gating the pipeline. Leaving
// Username empty disables authentication. PasswordHash takes a bcrypt hash;
// the plaintext Password field exists for local development only and is
// ignored whenever a hash is set.
type AuthConfig struct {
	Username     string `yaml:"username" envconfig:"USERNAME"`
	Password     string `yaml:"password" envconfig:"PASSWORD"`
	PasswordHash string `yaml:"password_hash" envconfig:"PASSWORD_HASH"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PipelineConfig carries the pipeline's tunables and their dashboard
// defaults.
type PipelineConfig struct {
	QuantityColumn   string        `yaml:"quantity_column" envconfig:"QUANTITY_COLUMN"`
	DefaultSheetName string        `yaml:"default_sheet_name" envconfig:"DEFAULT_SHEET_NAME"`
	CacheSize        int           `yaml:"cache_size" envconfig:"CACHE_SIZE"`
	ForecastWindow   int           `yaml:"forecast_window" envconfig:"FORECAST_WINDOW"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
	FetchRetries     int           `yaml:"fetch_retries" envconfig:"FETCH_RETRIES"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	// SheetsCredentialsFile points at service-account JSON for the Sheets
	// API path; empty disables it and remote loads use the CSV export URL.
	SheetsCredentialsFile string `yaml:"sheets_credentials_file" envconfig:"SHEETS_CREDENTIALS_FILE"`
}

// Load reads configuration layered lowest-precedence first: built-in
// defaults, then the YAML file when one exists, then the environment on top,
// so environment variables always win.
func Load() (*Config, error) {
	cfg := *Default()

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Pipeline.ForecastWindow < 1 {
		return fmt.Errorf("forecast window must be at least 1, got %d", c.Pipeline.ForecastWindow)
	}
	if c.Pipeline.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative, got %d", c.Pipeline.CacheSize)
	}
	if c.Pipeline.QuantityColumn == "" {
		return fmt.Errorf("quantity column cannot be empty")
	}
	// Empty username disables authentication entirely; a username with no
	// credential is the only invalid combination.
	if c.Auth.Username != "" && c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		return fmt.Errorf("either auth password or password hash must be set")
	}
	return nil
}

func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	if custom := os.Getenv(envPrefix + "_CONFIG_FILE"); custom != "" {
		locations = append([]string{custom}, locations...)
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Default returns the built-in defaults. Load starts from these, and tests
// and the CLI use them directly when no environment is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  25,
		},
		// Auth stays zero: empty username means authentication disabled
		// until credentials are configured.
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/tradepulse.log",
		},
		Pipeline: PipelineConfig{
			QuantityColumn:   "Tons",
			DefaultSheetName: "Sheet1",
			CacheSize:        64,
			ForecastWindow:   3,
			FetchTimeout:     15 * time.Second,
			FetchRetries:     1,
			MaxUploadBytes:   32 << 20,
		},
	}
}
