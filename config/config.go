package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Harrysk/ibm.qradar/pkg/logging"
	"github.com/Harrysk/ibm.qradar/pkg/metrics"
)

// EnvConfigPath names the environment variable pointing at an explicit config file
const EnvConfigPath = "QRADAR_CONFIG"

// Config represents the module configuration. Module arguments describe the
// desired resource; this describes how to reach QRadar.
type Config struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    logging.Config   `mapstructure:"logging"`
	Metrics    metrics.Config   `mapstructure:"metrics"`
}

// ConnectionConfig contains QRadar API connection settings
type ConnectionConfig struct {
	Host          string        `mapstructure:"host"`
	Token         string        `mapstructure:"token"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	ValidateCerts bool          `mapstructure:"validate_certs"`
	ProxyURL      string        `mapstructure:"proxy_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	APIVersion    string        `mapstructure:"api_version"`
}

// RateLimitConfig contains client-side rate limiting settings
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// BaseURL returns the QRadar console URL, defaulting the scheme to https
func (c ConnectionConfig) BaseURL() string {
	host := strings.TrimSuffix(c.Host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

// LoadConfig loads configuration from file and environment.
// An empty configPath falls back to $QRADAR_CONFIG and then the search paths.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath == "" {
		configPath = os.Getenv(EnvConfigPath)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("qradar")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/qradar")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("QRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Connection defaults
	v.SetDefault("connection.validate_certs", true)
	v.SetDefault("connection.timeout", "30s")
	v.SetDefault("connection.api_version", "9.1")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "qradar_module")
}

// bindEnvironmentVariables binds environment variables to configuration keys
func bindEnvironmentVariables(v *viper.Viper) {
	_ = v.BindEnv("connection.host", "QRADAR_HOST")
	_ = v.BindEnv("connection.token", "QRADAR_TOKEN")
	_ = v.BindEnv("connection.username", "QRADAR_USERNAME")
	_ = v.BindEnv("connection.password", "QRADAR_PASSWORD")
	_ = v.BindEnv("connection.validate_certs", "QRADAR_VALIDATE_CERTS")
	_ = v.BindEnv("connection.proxy_url", "QRADAR_PROXY_URL")
	_ = v.BindEnv("connection.timeout", "QRADAR_TIMEOUT")
	_ = v.BindEnv("connection.api_version", "QRADAR_API_VERSION")

	_ = v.BindEnv("logging.level", "QRADAR_LOG_LEVEL")
	_ = v.BindEnv("logging.output", "QRADAR_LOG_OUTPUT")

	_ = v.BindEnv("metrics.enabled", "QRADAR_METRICS_ENABLED")
	_ = v.BindEnv("metrics.textfile_path", "QRADAR_METRICS_TEXTFILE")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Connection.Host == "" {
		return fmt.Errorf("connection host is required")
	}

	if _, err := url.Parse(config.Connection.BaseURL()); err != nil {
		return fmt.Errorf("invalid connection host: %w", err)
	}

	if config.Connection.Token == "" && (config.Connection.Username == "" || config.Connection.Password == "") {
		return fmt.Errorf("either a token or a username and password are required")
	}

	if config.Connection.ProxyURL != "" {
		if _, err := url.Parse(config.Connection.ProxyURL); err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
	}

	if config.Connection.Timeout <= 0 {
		return fmt.Errorf("invalid connection timeout: %s", config.Connection.Timeout)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RPS <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive rps and burst")
	}

	return nil
}
