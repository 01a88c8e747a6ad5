package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Environment string

	APIURL            string
	HTTPTimeoutSec    int
	RequestTimeoutSec int
	TLSSkipVerify     bool
	TLSCAFile         string
	TLSCertFile       string
	TLSKeyFile        string

	LogFile  string
	LogLevel slog.Level

	FixtureAddr   string
	FixtureDBPath string
}

func FromEnv() Config {
	return Config{
		Environment:       stringOrDefault("CITY_BROWSER_ENV", "development"),
		APIURL:            strings.TrimRight(stringOrDefault("CITY_BROWSER_API_URL", "http://localhost:8080"), "/"),
		HTTPTimeoutSec:    intOrDefault("CITY_BROWSER_HTTP_TIMEOUT_SECONDS", 30),
		RequestTimeoutSec: intOrDefault("CITY_BROWSER_REQUEST_TIMEOUT_SECONDS", 8),
		TLSSkipVerify:     boolOrDefault("CITY_BROWSER_TLS_SKIP_VERIFY", false),
		TLSCAFile:         strings.TrimSpace(os.Getenv("CITY_BROWSER_TLS_CA_FILE")),
		TLSCertFile:       strings.TrimSpace(os.Getenv("CITY_BROWSER_TLS_CERT_FILE")),
		TLSKeyFile:        strings.TrimSpace(os.Getenv("CITY_BROWSER_TLS_KEY_FILE")),
		LogFile:           strings.TrimSpace(os.Getenv("CITY_BROWSER_LOG_FILE")),
		LogLevel:          levelOrDefault("CITY_BROWSER_LOG_LEVEL", slog.LevelInfo),
		FixtureAddr:       stringOrDefault("CITY_BROWSER_FIXTURE_ADDR", ":8080"),
		FixtureDBPath:     stringOrDefault("CITY_BROWSER_FIXTURE_DB_PATH", "file::memory:?cache=shared"),
	}
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func levelOrDefault(name string, fallback slog.Level) slog.Level {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return fallback
	}
	return level
}
