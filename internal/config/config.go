package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-tracker/internal/weather"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration // outbound calls
	LogLevel    slog.Level

	// External collaborators.
	WeatherServiceURL string
	EmailServiceURL   string
	RecordServiceURL  string
	GeocoderAPIKey    string // optional; enables place names for device positions

	// Icon assets.
	IconAssetBase string
	IconMode      weather.IconMode

	// Bound record wait.
	RecordPollInterval time.Duration
	RecordWaitTimeout  time.Duration

	// Session retention.
	SessionMaxCount int           // 0 = unlimited
	SessionMaxAge   time.Duration // idle time before a session is pruned
	PruneInterval   time.Duration

	// Report dispatches allowed per minute (0 = unlimited).
	EmailRatePerMinute int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.WeatherServiceURL = os.Getenv("WEATHER_SERVICE_URL")
	cfg.EmailServiceURL = os.Getenv("EMAIL_SERVICE_URL")
	cfg.RecordServiceURL = os.Getenv("RECORD_SERVICE_URL")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.IconAssetBase = getenvDefault("ICON_ASSET_BASE", "/static/WeatherIcons")

	mode, err := weather.ParseIconMode(getenvDefault("ICON_MODE", "single"))
	if err != nil {
		return nil, fmt.Errorf("invalid ICON_MODE: %w", err)
	}
	cfg.IconMode = mode

	level, err := parseLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"RECORD_POLL_INTERVAL", "250ms", &cfg.RecordPollInterval},
		{"RECORD_WAIT_TIMEOUT", "10s", &cfg.RecordWaitTimeout},
		{"SESSION_MAX_AGE", "30m", &cfg.SessionMaxAge},
		{"PRUNE_INTERVAL", "1m", &cfg.PruneInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", d.key)
		}
		*d.dst = v
	}

	cfg.SessionMaxCount = getenvInt("SESSION_MAX_COUNT", 1000)
	cfg.EmailRatePerMinute = getenvInt("EMAIL_RATE_PER_MINUTE", 30)

	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
