// Package config loads server configuration from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Feeds  FeedConfig
	Reload ReloadConfig
	DBPath string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
}

// FeedConfig locates the roster and work-report feeds. Each location is
// an http(s) URL or a file path; empty falls back to rows imported into
// the database.
type FeedConfig struct {
	RosterCSV       string
	WorkReportCSV   string
	WorkReportXLSX  string
	WorkReportSheet string
	RulesFile       string
	Timeout         time.Duration
}

// ReloadConfig controls the periodic reload. A zero Interval disables it.
type ReloadConfig struct {
	Interval time.Duration
}

// Load reads .env (when present) and the environment, then validates.
func Load() (*Config, error) {
	return LoadFiles()
}

// LoadFiles is Load reading the given env files instead of ./.env.
func LoadFiles(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
	}
	config.DBPath = getEnv("DB_PATH", "report-engine.db")

	timeout, err := time.ParseDuration(getEnv("FEED_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_TIMEOUT: %w", err)
	}
	config.Feeds = FeedConfig{
		RosterCSV:       getEnv("ROSTER_CSV", ""),
		WorkReportCSV:   getEnv("WORK_REPORT_CSV", ""),
		WorkReportXLSX:  getEnv("WORK_REPORT_XLSX", ""),
		WorkReportSheet: getEnv("WORK_REPORT_SHEET", ""),
		RulesFile:       getEnv("RULES_FILE", ""),
		Timeout:         timeout,
	}

	interval, err := time.ParseDuration(getEnv("RELOAD_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RELOAD_INTERVAL: %w", err)
	}
	config.Reload = ReloadConfig{Interval: interval}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535, got %d", c.App.Port)
	}
	if _, err := ParseLevel(c.App.LogLevel); err != nil {
		return err
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Feeds.WorkReportCSV != "" && c.Feeds.WorkReportXLSX != "" {
		return fmt.Errorf("WORK_REPORT_CSV and WORK_REPORT_XLSX are mutually exclusive")
	}
	if c.Feeds.Timeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT must be positive")
	}
	if c.Reload.Interval < 0 {
		return fmt.Errorf("RELOAD_INTERVAL must not be negative")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// ParseLevel maps LOG_LEVEL onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
