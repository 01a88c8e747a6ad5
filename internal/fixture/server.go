package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dwizi/city-browser/internal/config"
)

// Server is the development API: a seeded sqlite store behind the city
// router.
type Server struct {
	logger     *slog.Logger
	store      *Store
	httpServer *http.Server
}

func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sqlStore, err := NewStore(cfg.FixtureDBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlStore.AutoMigrate(ctx); err != nil {
		sqlStore.Close()
		return nil, err
	}
	if err := sqlStore.Seed(ctx); err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("seed fixture data: %w", err)
	}

	handler := NewRouter(Dependencies{
		Store:  sqlStore,
		Logger: logger.With("component", "fixture-api"),
	})
	return &Server{
		logger: logger,
		store:  sqlStore,
		httpServer: &http.Server{
			Addr:              cfg.FixtureAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down and closes the store.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.store.Close()
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer s.store.Close()
	s.logger.Info("fixture api starting", "addr", listener.Addr().String())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := s.httpServer.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
