package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// LimitsConfig holds body consumption limits
type LimitsConfig struct {
	Body      int `mapstructure:"body"`       // Maximum size of a collected body or form (default: 256KB)
	Line      int `mapstructure:"line"`       // Maximum size of a single line (default: 256KB)
	ChunkSize int `mapstructure:"chunk_size"` // Size of the chunks read from the connection (default: 8KB)
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`      // Enable/disable monitoring
	BindAddress string `mapstructure:"bind_address"` // Address to bind monitoring server (default: :9090)
	MetricsPath string `mapstructure:"metrics_path"` // Path for metrics endpoint (default: /metrics)
}

// Config holds the application configuration
type Config struct {
	// Server configuration
	BindAddress       string `mapstructure:"bind_address"`
	LogLevel          string `mapstructure:"log_level"`
	LogFormat         string `mapstructure:"log_format"` // "text" (default) or "json"
	LogHealthRequests bool   `mapstructure:"log_health_requests"`
	ShutdownTimeout   int    `mapstructure:"shutdown_timeout"` // Graceful shutdown timeout in seconds

	// Body consumption limits
	Limits LimitsConfig `mapstructure:"limits"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// InitConfig initializes the configuration system
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory with name ".httpmsg" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".httpmsg")
	}

	// Environment variable configuration
	viper.SetEnvPrefix("HTTPMSG")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// Load loads the configuration from viper
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("bind_address", "0.0.0.0:8080")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("log_health_requests", false)
	viper.SetDefault("shutdown_timeout", 30)

	// Limits defaults
	viper.SetDefault("limits.body", 262144)     // 256KB
	viper.SetDefault("limits.line", 262144)     // 256KB
	viper.SetDefault("limits.chunk_size", 8192) // 8KB

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", false)
	viper.SetDefault("monitoring.bind_address", ":9090")
	viper.SetDefault("monitoring.metrics_path", "/metrics")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.BindAddress == "" {
		return fmt.Errorf("bind_address is required")
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative, got %d", cfg.ShutdownTimeout)
	}

	if err := validateLimits(&cfg.Limits); err != nil {
		return err
	}

	if cfg.Monitoring.Enabled {
		if cfg.Monitoring.BindAddress == "" {
			return fmt.Errorf("monitoring.bind_address is required when monitoring is enabled")
		}
		if cfg.Monitoring.BindAddress == cfg.BindAddress {
			return fmt.Errorf("monitoring.bind_address must differ from bind_address")
		}
		if cfg.Monitoring.MetricsPath == "" || cfg.Monitoring.MetricsPath[0] != '/' {
			return fmt.Errorf("monitoring.metrics_path must start with '/', got %q", cfg.Monitoring.MetricsPath)
		}
	}

	return nil
}

// validateLimits validates the body consumption limits
func validateLimits(limits *LimitsConfig) error {
	if limits.Body <= 0 {
		return fmt.Errorf("limits.body must be positive, got %d", limits.Body)
	}
	if limits.Line <= 0 {
		return fmt.Errorf("limits.line must be positive, got %d", limits.Line)
	}
	if limits.ChunkSize <= 0 {
		return fmt.Errorf("limits.chunk_size must be positive, got %d", limits.ChunkSize)
	}
	if limits.ChunkSize > limits.Body {
		return fmt.Errorf("limits.chunk_size (%d) must not exceed limits.body (%d)", limits.ChunkSize, limits.Body)
	}
	return nil
}
