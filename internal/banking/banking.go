// Package banking holds the card ledger and lifecycle operations on top of
// the storage contracts.
package banking

import (
	"errors"
	"log/slog"
	"time"

	"github.com/andymarkow/bankcards/internal/cardnum"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/shopspring/decimal"
)

var (
	ErrNotOwner           = errors.New("card is not owned by user")
	ErrCardNumberConflict = errors.New("failed to issue a unique card number")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user is deactivated")
)

const (
	DefaultNumberRetries = 3
)

// DefaultOpeningBalance is credited to every newly issued card.
var DefaultOpeningBalance = decimal.NewFromInt(10000)

// NumberGenerator produces candidate card numbers.
type NumberGenerator interface {
	Generate() (string, error)
}

type Config struct {
	logger         *slog.Logger
	now            func() time.Time
	generator      NumberGenerator
	openingBalance decimal.Decimal
	numberRetries  int
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.now = now
	}
}

func WithNumberGenerator(generator NumberGenerator) Option {
	return func(c *Config) {
		c.generator = generator
	}
}

func WithOpeningBalance(balance decimal.Decimal) Option {
	return func(c *Config) {
		c.openingBalance = balance
	}
}

// WithNumberRetries sets how many card numbers are tried before issuing fails.
func WithNumberRetries(retries int) Option {
	return func(c *Config) {
		if retries > 0 {
			c.numberRetries = retries
		}
	}
}

func newConfig(opts ...Option) *Config {
	cfg := &Config{
		logger:         slog.Default(),
		now:            time.Now,
		generator:      cardnum.New(),
		openingBalance: DefaultOpeningBalance,
		numberRetries:  DefaultNumberRetries,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Service bundles the banking operations over a single store.
type Service struct {
	Users         *Users
	Cards         *Cards
	Ledger        *Ledger
	BlockRequests *BlockRequests
}

func NewService(store storage.Storage, opts ...Option) *Service {
	return &Service{
		Users:         NewUsers(store, store, opts...),
		Cards:         NewCards(store, store, opts...),
		Ledger:        NewLedger(store, store, opts...),
		BlockRequests: NewBlockRequests(store, store, opts...),
	}
}
