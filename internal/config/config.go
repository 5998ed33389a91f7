package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName   string `mapstructure:"app_name"`
	Env       string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level"`
	LogOutput string `mapstructure:"log_output"`

	GraphAPIURL         string        `mapstructure:"graph_api_url"`
	GraphAccessToken    string        `mapstructure:"graph_access_token"`
	GraphTimeoutSeconds int64         `mapstructure:"graph_timeout_seconds"`
	GraphTimeout        time.Duration `mapstructure:"-"`

	JobsFile      string `mapstructure:"jobs_file"`
	NotifiersFile string `mapstructure:"notifiers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.GraphAccessToken != "" {
		c.GraphAccessToken = "***"
	}
	return c
}

// LoadFile reads configuration from configs/.env and environment variables, layered over
// an optional YAML/JSON/TOML config file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-graph")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_output", "stderr")
	v.SetDefault("graph_api_url", "https://graph.facebook.com/")
	v.SetDefault("graph_access_token", "")
	v.SetDefault("graph_timeout_seconds", 15)
	v.SetDefault("jobs_file", "./configs/jobs.yaml")
	v.SetDefault("notifiers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/ledger.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
}

func (c *Config) finalize() error {
	if strings.TrimSpace(c.GraphAPIURL) == "" {
		return fmt.Errorf("graph_api_url must not be empty")
	}
	if c.GraphTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid graph_timeout_seconds (must be positive seconds)")
	}
	c.GraphTimeout = time.Duration(c.GraphTimeoutSeconds) * time.Second

	if c.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	c.StorageTTL = time.Duration(c.StorageTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second
	return nil
}
