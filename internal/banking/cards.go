package banking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/shopspring/decimal"
)

type Cards struct {
	log            *slog.Logger
	now            func() time.Time
	generator      NumberGenerator
	openingBalance decimal.Decimal
	numberRetries  int
	cards          storage.CardStorage
	users          storage.UserStorage
}

func NewCards(crds storage.CardStorage, usrs storage.UserStorage, opts ...Option) *Cards {
	cfg := newConfig(opts...)

	return &Cards{
		log:            cfg.logger.With(slog.String("module", "cards")),
		now:            cfg.now,
		generator:      cfg.generator,
		openingBalance: cfg.openingBalance,
		numberRetries:  cfg.numberRetries,
		cards:          crds,
		users:          usrs,
	}
}

// Issue creates an ACTIVE card for the owner with a freshly generated number.
// A number collision triggers regeneration up to the configured retries.
func (c *Cards) Issue(ctx context.Context, ownerID int64) (*cards.Card, error) {
	if _, err := c.users.GetUser(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("storage.GetUser: %w", err)
	}

	for attempt := 1; attempt <= c.numberRetries; attempt++ {
		number, err := c.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("generator.Generate: %w", err)
		}

		card, err := cards.NewCard(number, ownerID, c.openingBalance, c.now())
		if err != nil {
			return nil, fmt.Errorf("cards.NewCard: %w", err)
		}

		err = c.cards.CreateCard(ctx, card)
		if err == nil {
			c.log.Info("Card issued", slog.Int64("card_id", card.ID()), slog.Int64("owner_id", ownerID))

			return card, nil
		}

		if !errors.Is(err, storage.ErrCardNumberAlreadyExists) {
			return nil, fmt.Errorf("storage.CreateCard: %w", err)
		}

		c.log.Warn("Card number collision, regenerating", slog.Int("attempt", attempt))
	}

	return nil, ErrCardNumberConflict
}

func (c *Cards) Get(ctx context.Context, id int64) (*cards.Card, error) {
	card, err := c.cards.GetCard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetCard: %w", err)
	}

	return card, nil
}

// GetOwned returns the card only when it belongs to userID.
func (c *Cards) GetOwned(ctx context.Context, id, userID int64) (*cards.Card, error) {
	card, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !card.IsOwnedBy(userID) {
		return nil, ErrNotOwner
	}

	return card, nil
}

func (c *Cards) List(ctx context.Context, page storage.Page) ([]*cards.Card, error) {
	list, err := c.cards.ListCards(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("storage.ListCards: %w", err)
	}

	return list, nil
}

func (c *Cards) ListByOwner(ctx context.Context, ownerID int64, page storage.Page) ([]*cards.Card, error) {
	list, err := c.cards.ListCardsByOwner(ctx, ownerID, page)
	if err != nil {
		return nil, fmt.Errorf("storage.ListCardsByOwner: %w", err)
	}

	return list, nil
}

func (c *Cards) Block(ctx context.Context, id int64) (*cards.Card, error) {
	now := c.now()

	card, err := c.cards.UpdateCard(ctx, id, func(card *cards.Card) error {
		return card.Block(now)
	})
	if err != nil {
		return nil, fmt.Errorf("storage.UpdateCard: %w", err)
	}

	c.log.Info("Card blocked", slog.Int64("card_id", id))

	return card, nil
}

func (c *Cards) Activate(ctx context.Context, id int64) (*cards.Card, error) {
	now := c.now()

	card, err := c.cards.UpdateCard(ctx, id, func(card *cards.Card) error {
		return card.Activate(now)
	})
	if err != nil {
		return nil, fmt.Errorf("storage.UpdateCard: %w", err)
	}

	c.log.Info("Card activated", slog.Int64("card_id", id))

	return card, nil
}

func (c *Cards) Delete(ctx context.Context, id int64) error {
	if err := c.cards.DeleteCard(ctx, id); err != nil {
		return fmt.Errorf("storage.DeleteCard: %w", err)
	}

	c.log.Info("Card deleted", slog.Int64("card_id", id))

	return nil
}

// ExpireDue marks every card past its expiration as EXPIRED.
func (c *Cards) ExpireDue(ctx context.Context) (int, error) {
	n, err := c.cards.ExpireCards(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("storage.ExpireCards: %w", err)
	}

	return n, nil
}
