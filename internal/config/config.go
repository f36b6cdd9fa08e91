// Package config loads the settings of a view from the environment, an
// optional .env file and an optional YAML file.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendFile, BackendSQLite}

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Port      string
		RateLimit float64 `mapstructure:"rate_limit"`
		RateBurst int     `mapstructure:"rate_burst"`
	} `mapstructure:"http"`

	Slot struct {
		Backend       string
		Key           string
		DataDir       string        `mapstructure:"data_dir"`
		SQLitePath    string        `mapstructure:"sqlite_path"`
		WatchInterval time.Duration `mapstructure:"watch_interval"`
	} `mapstructure:"slot"`

	Sync struct {
		Interval time.Duration
	} `mapstructure:"sync"`

	AMQP struct {
		URL      string
		Exchange string
	} `mapstructure:"amqp"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.timezone", "Local")
	v.SetDefault("http.port", "8081")
	v.SetDefault("http.rate_limit", 5.0)
	v.SetDefault("http.rate_burst", 10)
	v.SetDefault("slot.backend", BackendFile)
	v.SetDefault("slot.key", "sales")
	v.SetDefault("slot.data_dir", "./data")
	v.SetDefault("slot.sqlite_path", "./data/boutique.db")
	v.SetDefault("slot.watch_interval", 250*time.Millisecond)
	v.SetDefault("sync.interval", 5*time.Second)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "boutique.slots")
	v.SetDefault("metrics.enabled", true)
}

// Load reads .env (if present), then the YAML file at path (if not empty),
// then BOUTIQUE_* variables, which win. BOUTIQUE_SLOT_BACKEND sets slot.backend.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BOUTIQUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

// Location resolves App.Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.App.Timezone)
}

// Production reports whether the view runs with production logging.
func (c *Config) Production() bool {
	return c.App.Env == "production"
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.HTTP.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.HTTP.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.Slot.Backend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid slot backend '%s': must be one of %v", c.Slot.Backend, validBackends))
	}

	if strings.TrimSpace(c.Slot.Key) == "" || strings.ContainsAny(c.Slot.Key, `/\`) {
		errors = append(errors, fmt.Sprintf("invalid slot key '%s': must be a non-empty name without slashes", c.Slot.Key))
	}
	if c.Slot.Backend == BackendFile && c.Slot.DataDir == "" {
		errors = append(errors, "data directory cannot be empty when using file backend")
	}
	if c.Slot.Backend == BackendSQLite && c.Slot.SQLitePath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.Slot.WatchInterval < 10*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid watch interval %v: must be at least 10ms", c.Slot.WatchInterval))
	}

	if c.Sync.Interval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.Sync.Interval))
	} else if c.Sync.Interval > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 1 hour", c.Sync.Interval))
	}

	if c.HTTP.RateLimit <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.HTTP.RateLimit))
	}
	if c.HTTP.RateBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate burst %d: must be at least 1", c.HTTP.RateBurst))
	}

	if c.AMQP.URL != "" {
		if parsedURL, err := url.Parse(c.AMQP.URL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQP.URL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQP.Exchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.Slot.Backend == BackendMemory {
			errors = append(errors, "AMQP broadcast needs a file or sqlite backend shared between processes")
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.App.Timezone, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
