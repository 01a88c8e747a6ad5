package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dwizi/city-browser/internal/config"
	"github.com/dwizi/city-browser/internal/fixture"
	"github.com/dwizi/city-browser/internal/tui"
)

const version = "0.1.0"

func NewRoot(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "city-browser",
		Short:         "City Browser is a terminal client for the city listing API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newTUICommand())
	root.AddCommand(newFixtureCommand(logger))
	root.AddCommand(newDemoCommand())
	root.AddCommand(newCitiesCommand(logger))
	root.AddCommand(newVersionCommand())

	return root
}

func newTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive terminal client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			logger, closeLog, err := newFileLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return tui.Run(ctx, cfg, logger)
		},
	}
}

func newFixtureCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "fixture",
		Short: "Run the local development API with seeded data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			server, err := fixture.NewServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			return server.Run(ctx)
		},
	}
}

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the development API and the terminal client together",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			logger, closeLog, err := newFileLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			listener, err := net.Listen("tcp", cfg.FixtureAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.FixtureAddr, err)
			}
			server, err := fixture.NewServer(ctx, cfg, logger)
			if err != nil {
				listener.Close()
				return err
			}
			cfg.APIURL = "http://" + listener.Addr().String()
			logger.Info("demo starting", "api_url", cfg.APIURL)

			group, groupCtx := errgroup.WithContext(ctx)
			uiCtx, stopUI := context.WithCancel(groupCtx)
			defer stopUI()
			serverCtx, stopServer := context.WithCancel(groupCtx)
			defer stopServer()

			group.Go(func() error {
				defer stopUI()
				return server.Serve(serverCtx, listener)
			})
			group.Go(func() error {
				defer stopServer()
				return tui.Run(uiCtx, cfg, logger)
			})
			return group.Wait()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}

// newFileLogger writes to the configured log file, or nowhere, since the
// terminal belongs to the UI.
func newFileLogger(cfg config.Config) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(file, cfg.LogLevel), func() { _ = file.Close() }, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
