package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andymarkow/bankcards/internal/banking"
	"github.com/andymarkow/bankcards/internal/config"
	"github.com/andymarkow/bankcards/internal/expiry"
	"github.com/andymarkow/bankcards/internal/fieldcipher"
	"github.com/andymarkow/bankcards/internal/logger"
	"github.com/andymarkow/bankcards/internal/server"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/andymarkow/bankcards/internal/storage/inmemory"
	"github.com/andymarkow/bankcards/internal/storage/pgstorage"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	log     *slog.Logger
	store   storage.Storage
	server  *server.Server
	sweeper *expiry.Sweeper
}

func New() (*Application, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config.NewConfig: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cfg.Validate: %w", err)
	}

	logLevel, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogLevel: %w", err)
	}

	logFormat, err := logger.ParseLogFormat(cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogFormat: %w", err)
	}

	logg := logger.NewLogger(
		logger.WithLevel(logLevel),
		logger.WithFormat(logFormat),
		logger.WithAddSource(false),
	)

	codec, err := fieldcipher.NewFromHex(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("fieldcipher.NewFromHex: %w", err)
	}

	store, err := newStorage(cfg, codec, logg)
	if err != nil {
		return nil, err
	}

	svc := banking.NewService(store,
		banking.WithLogger(logg),
		banking.WithNumberRetries(cfg.CardNumberRetries),
	)

	if cfg.AdminUsername != "" {
		if err := svc.Users.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			store.Close()

			return nil, fmt.Errorf("users.EnsureAdmin: %w", err)
		}
	}

	srv := server.NewServer(store, svc,
		server.WithServerAddr(cfg.ServerAddr),
		server.WithJWTSecretKey(cfg.JWTSecretKey),
		server.WithTokenTTL(cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		server.WithLogger(logg),
	)

	sweeper, err := expiry.New(svc.Cards,
		expiry.WithLogger(logg),
		expiry.WithSchedule(cfg.ExpirySchedule),
	)
	if err != nil {
		store.Close()

		return nil, fmt.Errorf("expiry.New: %w", err)
	}

	return &Application{
		log:     logg,
		store:   store,
		server:  srv,
		sweeper: sweeper,
	}, nil
}

// newStorage picks Postgres when a database URI is configured and the
// in-memory store otherwise.
func newStorage(cfg config.Config, codec *fieldcipher.Cipher, logg *slog.Logger) (storage.Storage, error) {
	if cfg.DatabaseURI == "" {
		logg.Info("Using in-memory storage")

		return storage.NewStorage(inmemory.NewStorage(codec)), nil
	}

	pgstore, err := pgstorage.NewStorage(cfg.DatabaseURI, codec)
	if err != nil {
		return nil, fmt.Errorf("pgstorage.NewStorage: %w", err)
	}

	if err := pgstore.Bootstrap(context.Background()); err != nil {
		pgstore.Close()

		return nil, fmt.Errorf("pgstore.Bootstrap: %w", err)
	}

	logg.Info("Using postgres storage")

	return storage.NewStorage(pgstore), nil
}

func (a *Application) Run() error {
	defer a.store.Close()

	errChan := make(chan error, 1)

	go func() {
		if err := a.server.Start(); err != nil {
			errChan <- fmt.Errorf("server.Start: %w", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeperDone := make(chan struct{})

	go func() {
		defer close(sweeperDone)

		if err := a.sweeper.Run(ctx); err != nil {
			errChan <- fmt.Errorf("sweeper.Run: %w", err)
		}
	}()

	// Graceful shutdown handler
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	var runErr error

	select {
	case runErr = <-errChan:
	case <-quit:
		a.log.Info("Gracefully shutting down application...")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.Shutdown()", slog.Any("error", err))
	}

	<-sweeperDone

	return runErr
}
