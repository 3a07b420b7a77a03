package config

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

var (
	ErrEncryptionKeyInvalid = errors.New("encryption key must be 16, 24 or 32 bytes hex encoded")
	ErrJWTSecretKeyEmpty    = errors.New("jwt secret key is empty")
	ErrAdminPasswordEmpty   = errors.New("admin password is empty")
	ErrTokenTTLInvalid      = errors.New("token ttl must be positive")
	ErrNumberRetriesInvalid = errors.New("card number retries must be positive")
)

type Config struct {
	ServerAddr        string        `env:"RUN_ADDRESS"`
	LogLevel          string        `env:"LOG_LEVEL"`
	LogFormat         string        `env:"LOG_FORMAT"`
	DatabaseURI       string        `env:"DATABASE_URI"`
	JWTSecretKey      string        `env:"JWT_SECRET_KEY"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL"`
	EncryptionKey     string        `env:"ENCRYPTION_KEY"`
	CardNumberRetries int           `env:"CARD_NUMBER_RETRIES"`
	ExpirySchedule    string        `env:"EXPIRY_SCHEDULE"`
	AdminUsername     string        `env:"ADMIN_USERNAME"`
	AdminPassword     string        `env:"ADMIN_PASSWORD"`
}

// NewConfig reads the optional .env file, then command line flags, then
// environment variables. Later sources win.
func NewConfig() (Config, error) {
	return newConfig(".env", os.Args[1:])
}

func newConfig(dotenv string, args []string) (Config, error) {
	cfg := Config{}

	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("godotenv.Load: %w", err)
	}

	fset := flag.NewFlagSet("bankcards", flag.ContinueOnError)

	fset.StringVar(&cfg.ServerAddr, "a", "0.0.0.0:8080", "server listening address [env:RUN_ADDRESS]")
	fset.StringVar(&cfg.LogLevel, "l", "info", "log output level [env:LOG_LEVEL]")
	fset.StringVar(&cfg.LogFormat, "f", "json", "log output format json|text [env:LOG_FORMAT]")
	fset.StringVar(&cfg.DatabaseURI, "d", "", "database connection string, in-memory storage if empty [env:DATABASE_URI]")
	fset.StringVar(&cfg.JWTSecretKey, "s", "secretkey", "JWT secret to sign tokens [env:JWT_SECRET_KEY]")
	fset.DurationVar(&cfg.AccessTokenTTL, "access-ttl", 15*time.Minute, "access token lifetime [env:ACCESS_TOKEN_TTL]")
	fset.DurationVar(&cfg.RefreshTokenTTL, "refresh-ttl", 24*time.Hour, "refresh token lifetime [env:REFRESH_TOKEN_TTL]")
	fset.StringVar(&cfg.EncryptionKey, "k", "", "hex encoded AES key for card numbers [env:ENCRYPTION_KEY]")
	fset.IntVar(&cfg.CardNumberRetries, "r", 3, "card number generation attempts [env:CARD_NUMBER_RETRIES]")
	fset.StringVar(&cfg.ExpirySchedule, "e", "@every 1h", "card expiry sweep schedule [env:EXPIRY_SCHEDULE]")
	fset.StringVar(&cfg.AdminUsername, "admin-user", "admin", "bootstrap admin username, skipped if empty [env:ADMIN_USERNAME]")
	fset.StringVar(&cfg.AdminPassword, "admin-password", "", "bootstrap admin password [env:ADMIN_PASSWORD]")

	if err := fset.Parse(args); err != nil {
		return cfg, fmt.Errorf("fset.Parse: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env.Parse: %w", err)
	}

	return cfg, nil
}

// Validate reports the first setting the application cannot start with.
func (c Config) Validate() error {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncryptionKeyInvalid, err)
	}

	switch len(key) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: got %d bytes", ErrEncryptionKeyInvalid, len(key))
	}

	if c.JWTSecretKey == "" {
		return ErrJWTSecretKeyEmpty
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return ErrTokenTTLInvalid
	}

	if c.CardNumberRetries <= 0 {
		return ErrNumberRetriesInvalid
	}

	if _, err := cron.ParseStandard(c.ExpirySchedule); err != nil {
		return fmt.Errorf("cron.ParseStandard: %w", err)
	}

	if c.AdminUsername != "" && c.AdminPassword == "" {
		return ErrAdminPasswordEmpty
	}

	return nil
}
