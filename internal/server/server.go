package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/andymarkow/bankcards/internal/auth"
	"github.com/andymarkow/bankcards/internal/banking"
	"github.com/andymarkow/bankcards/internal/server/router"
	"github.com/andymarkow/bankcards/internal/storage"
)

type Server struct {
	srv *http.Server
	log *slog.Logger
}

type config struct {
	addr     string
	secret   []byte
	log      *slog.Logger
	authOpts []auth.Option
}

type Option func(c *config)

func WithServerAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

func WithJWTSecretKey(secret string) Option {
	return func(c *config) {
		c.secret = []byte(secret)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.log = logger
	}
}

func WithTokenTTL(access, refresh time.Duration) Option {
	return func(c *config) {
		c.authOpts = append(c.authOpts, auth.WithAccessTokenTTL(access), auth.WithRefreshTokenTTL(refresh))
	}
}

func NewServer(store storage.Storage, svc *banking.Service, opts ...Option) *Server {
	cfg := &config{
		addr: "localhost:8080",
		log:  slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := router.NewRouter(store, svc,
		router.WithLogger(cfg.log),
		router.WithSecret(cfg.secret),
		router.WithAuthOptions(cfg.authOpts...),
	)

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return &Server{
		srv: srv,
		log: cfg.log.With(slog.String("module", "server")),
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info(fmt.Sprintf("Starting server on %s", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Gracefully shutting down server...")

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}

	return nil
}
