// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port                 int
	DBPath               string
	Env                  string
	LockInterval         time.Duration
	LockSchedulerEnabled bool
	CORSOrigins          []string
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration from environment variables and a .env file if
// present. Real environment variables win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "depreciation.db")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOCK_INTERVAL", "1h")
	v.SetDefault("LOCK_SCHEDULER_ENABLED", true)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                 v.GetInt("PORT"),
		DBPath:               v.GetString("DB_PATH"),
		Env:                  strings.ToLower(v.GetString("APP_ENV")),
		LockSchedulerEnabled: v.GetBool("LOCK_SCHEDULER_ENABLED"),
		CORSOrigins:          splitList(v.GetString("CORS_ORIGINS")),
	}

	interval, err := time.ParseDuration(v.GetString("LOCK_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_INTERVAL %q: %w", v.GetString("LOCK_INTERVAL"), err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("LOCK_INTERVAL must be positive, got %s", interval)
	}
	cfg.LockInterval = interval

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT out of range: %d", cfg.Port)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("DB_PATH must not be empty")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
