package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	Platform  PlatformConfig  `yaml:"platform"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	HTTP      HTTPConfig      `yaml:"http"`
	Ingress   IngressConfig   `yaml:"ingress"`
	Log       LogConfig       `yaml:"log"`
	Drafts    DraftConfig     `yaml:"drafts"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// DiscordConfig contains gateway credentials
type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_TOKEN"`
	AppID string `yaml:"app_id" env:"DISCORD_APP_ID"`
}

// PlatformConfig selects the hosting platform adapter and bounds every call to it
type PlatformConfig struct {
	Type               string `yaml:"type" env:"PLATFORM_TYPE"` // "discord" or "memory"
	CallTimeoutSeconds int    `yaml:"call_timeout_seconds" env:"PLATFORM_CALL_TIMEOUT_SECONDS"`
	Retries            int    `yaml:"retries" env:"PLATFORM_RETRIES"`
}

// StoreConfig selects where tenant configurations are persisted
type StoreConfig struct {
	Type string `yaml:"type" env:"STORE_TYPE"` // "file" or "postgres"
	Dir  string `yaml:"dir" env:"STORE_DIR"`   // For file store
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Database string `yaml:"database" env:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
}

// HTTPConfig contains the ingress server settings
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" env:"HTTP_ENABLED"`
	Host    string `yaml:"host" env:"HTTP_HOST"`
	Port    int    `yaml:"port" env:"HTTP_PORT"`
}

// IngressConfig contains the shared secret used to sign ingress tokens
type IngressConfig struct {
	Secret string `yaml:"secret" env:"INGRESS_SECRET"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "text"
}

// DraftConfig bounds how long a submitted form may wait for its legal status
type DraftConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" env:"DRAFT_TTL_MINUTES"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	EvictDrafts string `yaml:"evict_drafts"`
	ReportCases string `yaml:"report_cases"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies environment overrides and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables win over the file
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	// Platform
	if c.Platform.Type == "" {
		c.Platform.Type = "discord"
	}
	switch c.Platform.Type {
	case "discord":
		if c.Discord.Token == "" {
			return fmt.Errorf("discord token is required")
		}
		if c.Discord.AppID == "" {
			return fmt.Errorf("discord app id is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported platform type: %s", c.Platform.Type)
	}
	if c.Platform.CallTimeoutSeconds <= 0 {
		c.Platform.CallTimeoutSeconds = 10
	}
	if c.Platform.Retries < 0 {
		return fmt.Errorf("platform retries must not be negative: %d", c.Platform.Retries)
	}

	// Store
	if c.Store.Type == "" {
		c.Store.Type = "file"
	}
	switch c.Store.Type {
	case "file":
		if c.Store.Dir == "" {
			c.Store.Dir = "config"
		}
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}

	// HTTP ingress
	if c.HTTP.Enabled {
		if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
			return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
		}
		if len(c.Ingress.Secret) < 32 {
			return fmt.Errorf("ingress secret must be at least 32 characters")
		}
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Drafts
	if c.Drafts.TTLMinutes <= 0 {
		c.Drafts.TTLMinutes = 60
	}

	// Scheduler defaults
	if c.Scheduler.EvictDrafts == "" {
		c.Scheduler.EvictDrafts = "0 */5 * * * *" // Every 5 minutes
	}
	if c.Scheduler.ReportCases == "" {
		c.Scheduler.ReportCases = "0 0 * * * *" // Hourly
	}

	return nil
}

// CallTimeout returns the bound applied to each platform call
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Platform.CallTimeoutSeconds) * time.Second
}

// DraftTTL returns how long an unfinished form is kept in memory
func (c *Config) DraftTTL() time.Duration {
	return time.Duration(c.Drafts.TTLMinutes) * time.Minute
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetHTTPAddress returns the ingress listen address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
