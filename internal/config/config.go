package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL  string   `mapstructure:"API_BASE_URL"`
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	SessionFile string   `mapstructure:"SESSION_FILE"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	HTTPTimeout int      `mapstructure:"HTTP_TIMEOUT"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("HTTP_TIMEOUT", 30)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("API_BASE_URL")
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("SESSION_FILE")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("HTTP_TIMEOUT")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields a running console cannot do without.
// DATABASE_URL stays optional: without it sessions persist to a local file
// instead of Postgres.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", c.APIBaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %d", c.HTTPTimeout)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// RequestTimeout is HTTP_TIMEOUT as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}
