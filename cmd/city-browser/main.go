package main

import (
	"log/slog"
	"os"

	"github.com/dwizi/city-browser/internal/cli"
	"github.com/dwizi/city-browser/internal/config"
)

func main() {
	cfg := config.FromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if err := cli.NewRoot(logger).Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
