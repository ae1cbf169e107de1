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

// Config holds all configuration for the chart exporter service.
type Config struct {
	// CDP connection settings
	CDPAddress   string
	CDPPort      int
	TabURLFilter string

	// Optional local browser
	LaunchBrowser bool
	ProfileDir    string
	DashboardURL  string

	// HTTP listener
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	CaptureTimeoutMS int

	LogLevel string
	LogFile  string

	// Export outputs
	ArtifactDir string
	JournalDir  string
	Currency    string

	CatalogPath string
	NotifyURL   string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:     getEnvOrDefault("EXPORTER_TAB_URL_FILTER", ""),
		LaunchBrowser:    getEnvBoolOrDefault("CHROMIUM_LAUNCH", false),
		ProfileDir:       getEnvOrDefault("CHROMIUM_PROFILE_DIR", "./browser_profile"),
		DashboardURL:     getEnvOrDefault("EXPORTER_DASHBOARD_URL", "about:blank"),
		BindAddr:         getEnvOrDefault("EXPORTER_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   getEnvListOrDefault("EXPORTER_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192"}),
		PortAutoFallback: getEnvBoolOrDefault("EXPORTER_PORT_AUTO_FALLBACK", true),
		CaptureTimeoutMS: getEnvIntOrDefault("EXPORTER_CAPTURE_TIMEOUT_MS", 15000),
		LogLevel:         strings.ToLower(getEnvOrDefault("EXPORTER_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("EXPORTER_LOG_FILE", "logs/chart_exporter.log"),
		ArtifactDir:      getEnvOrDefault("ARTIFACT_DIR", "./artifacts"),
		JournalDir:       getEnvOrDefault("EXPORT_JOURNAL_DIR", "./export_journal"),
		Currency:         strings.ToUpper(getEnvOrDefault("EXPORT_CURRENCY", "USD")),
		CatalogPath:      getEnvOrDefault("CHART_CATALOG_PATH", "./config/charts.yaml"),
		NotifyURL:        getEnvOrDefault("EXPORT_NOTIFY_URL", ""),
	}
	if cfg.CaptureTimeoutMS < 1000 {
		cfg.CaptureTimeoutMS = 1000
	}
	if cfg.CDPPort <= 0 || cfg.CDPPort > 65535 {
		return nil, fmt.Errorf("config: CHROMIUM_CDP_PORT out of range: %d", cfg.CDPPort)
	}
	return cfg, nil
}

// CDPURL returns the full CDP HTTP endpoint used by the chromedp remote allocator.
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// CaptureTimeout is the per-capture deadline.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.CaptureTimeoutMS) * time.Millisecond
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvListOrDefault splits a comma-separated value, dropping blanks.
func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
