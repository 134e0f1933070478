package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment       string
	AppName           string
	Port              string
	LogLevel          slog.Level
	SQLitePath        string
	MigrationsPath    string
	SeedDefaultData   bool
	AggregatorBaseURL string
	AggregatorTimeout time.Duration
	TargetSitePattern string
	NATSURL           string
	NATSSubject       string
	BroadcastWebhook  string
	BackgroundURL     string
	ProbeEnabled      bool
	ProbeMinutes      int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:       getEnv("APP_ENV", "development"),
		AppName:           getEnv("APP_NAME", "boxd-companion"),
		Port:              getEnv("APP_PORT", "8080"),
		SQLitePath:        getEnv("SQLITE_PATH", "./data/app.sqlite"),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "./migrations"),
		SeedDefaultData:   getEnvAsBool("SEED_DEFAULT_DATA", true),
		AggregatorBaseURL: strings.TrimRight(getEnv("AGGREGATOR_BASE_URL", "https://www.dvdsreleasedates.com"), "/"),
		AggregatorTimeout: time.Duration(getEnvAsInt("AGGREGATOR_TIMEOUT_SECONDS", 0)) * time.Second,
		TargetSitePattern: getEnv("TARGET_SITE_PATTERN", "*://letterboxd.com/*"),
		NATSURL:           strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSSubject:       getEnv("NATS_SUBJECT", "trackers.updated"),
		BroadcastWebhook:  strings.TrimSpace(os.Getenv("BROADCAST_WEBHOOK_URL")),
		BackgroundURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("BACKGROUND_URL")), "/"),
		ProbeEnabled:      getEnvAsBool("PROBE_ENABLED", true),
		ProbeMinutes:      getEnvAsInt("PROBE_MINUTES", 15),
	}

	if cfg.ProbeMinutes <= 0 {
		cfg.ProbeMinutes = 15
	}
	if cfg.AggregatorTimeout < 0 {
		cfg.AggregatorTimeout = 0
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "INFO"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q, expected DEBUG|INFO|WARN|ERROR", raw)
	}
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
