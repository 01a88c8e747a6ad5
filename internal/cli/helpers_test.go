package cli

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/dwizi/city-browser/internal/config"
)

func configWithLogFile(path string) config.Config {
	return config.Config{LogFile: path, LogLevel: slog.LevelInfo}
}

func fileContains(t *testing.T, path, needle string) bool {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Contains(string(content), needle)
}
