// Package config provides configuration management using Viper.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Folder      string         `mapstructure:"folder"`
	Concurrency int            `mapstructure:"concurrency"`
	Download    DownloadConfig `mapstructure:"download"`
	Extract     ExtractConfig  `mapstructure:"extract"`
	Import      ImportConfig   `mapstructure:"import"`
	Database    DatabaseConfig `mapstructure:"database"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

// DownloadConfig holds download stage configuration.
type DownloadConfig struct {
	Skip bool `mapstructure:"skip"`
}

// ExtractConfig holds extract stage configuration.
type ExtractConfig struct {
	Skip bool `mapstructure:"skip"`
}

// ImportConfig holds import stage configuration.
type ImportConfig struct {
	Skip         bool `mapstructure:"skip"`
	Raster       bool `mapstructure:"raster"`
	SampleWidth  int  `mapstructure:"sample_width"`
	SampleHeight int  `mapstructure:"sample_height"`
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path        string `mapstructure:"path"`
	Table       string `mapstructure:"table"`
	Connections int    `mapstructure:"connections"` // 0 means one per worker
}

// StorageConfig holds archive mirror configuration.
type StorageConfig struct {
	Type      string      `mapstructure:"type"` // s3, azure, http, local
	LocalPath string      `mapstructure:"local_path"`
	S3        S3Config    `mapstructure:"s3"`
	Azure     AzureConfig `mapstructure:"azure"`
	HTTP      HTTPConfig  `mapstructure:"http"`
}

// S3Config holds AWS S3 configuration.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	Container        string `mapstructure:"container"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Prefix           string `mapstructure:"prefix"`
}

// HTTPConfig holds HTTP mirror configuration. Username and password
// feed basic auth, which the NASA Earthdata mirrors require.
type HTTPConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Defaults sets the default configuration values.
func Defaults() {
	viper.SetDefault("folder", "./data")
	viper.SetDefault("concurrency", runtime.NumCPU())

	// Stage defaults
	viper.SetDefault("download.skip", false)
	viper.SetDefault("extract.skip", false)
	viper.SetDefault("import.skip", false)
	viper.SetDefault("import.raster", false)
	viper.SetDefault("import.sample_width", 0)
	viper.SetDefault("import.sample_height", 0)

	// Database defaults
	viper.SetDefault("database.path", "./gmalt.db")
	viper.SetDefault("database.table", "elevation")
	viper.SetDefault("database.connections", 0)

	// Storage defaults
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local_path", "./data")
	viper.SetDefault("storage.http.timeout", 5*time.Minute)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.address", ":9090")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// Load loads configuration from environment and config file.
func Load(configPath string) (*Config, error) {
	Defaults()

	// Environment variable binding
	viper.SetEnvPrefix("GMALT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/gmalt")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Folder == "" {
		return fmt.Errorf("working folder is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Import.SampleWidth < 0 || c.Import.SampleHeight < 0 {
		return fmt.Errorf("tile sample size cannot be negative")
	}

	if !c.Import.Skip && c.Database.Path == "" {
		return fmt.Errorf("database path is required for imports")
	}

	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("S3 region is required")
		}
	case "azure":
		if c.Storage.Azure.Container == "" {
			return fmt.Errorf("azure container is required")
		}
		if c.Storage.Azure.AccountName == "" && c.Storage.Azure.ConnectionString == "" {
			return fmt.Errorf("azure account name or connection string is required")
		}
	case "http":
		if c.Storage.HTTP.BaseURL == "" {
			return fmt.Errorf("HTTP base URL is required")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}

	return nil
}

// SinkConnections returns how many database connections the import
// stage may open, one per worker plus one for bootstrap unless pinned
// down in the configuration.
func (c *Config) SinkConnections() int {
	if c.Database.Connections > 0 {
		return c.Database.Connections
	}
	return c.Concurrency + 1
}
