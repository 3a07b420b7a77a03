package banking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/transfers"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	SourceCardID int64
	TargetCardID int64
	Amount       decimal.Decimal
	Description  string
}

// Ledger moves funds between cards of one owner.
type Ledger struct {
	log       *slog.Logger
	cards     storage.CardStorage
	transfers storage.TransferStorage
	now       func() time.Time
}

func NewLedger(crds storage.CardStorage, trs storage.TransferStorage, opts ...Option) *Ledger {
	cfg := newConfig(opts...)

	return &Ledger{
		log:       cfg.logger.With(slog.String("module", "ledger")),
		cards:     crds,
		transfers: trs,
		now:       cfg.now,
	}
}

// Transfer debits the source card and credits the target card atomically.
// Checks run in order: both cards exist, requester owns both, neither is
// blocked, amount is positive with at most two decimal places, source
// balance covers the amount.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest, requesterID int64) (*transfers.Transfer, error) {
	if req.SourceCardID == req.TargetCardID {
		return nil, transfers.ErrSameCard
	}

	now := l.now()

	tr, err := l.transfers.ExecuteTransfer(ctx, req.SourceCardID, req.TargetCardID,
		func(src, dst *cards.Card) (*transfers.Transfer, error) {
			if !src.IsOwnedBy(requesterID) || !dst.IsOwnedBy(requesterID) {
				return nil, ErrNotOwner
			}

			if src.IsBlocked() || dst.IsBlocked() {
				return nil, cards.ErrBlocked
			}

			if err := transfers.ValidateAmount(req.Amount); err != nil {
				return nil, err //nolint:wrapcheck
			}

			if err := src.Withdraw(req.Amount, now); err != nil {
				return nil, err //nolint:wrapcheck
			}

			if err := dst.Deposit(req.Amount, now); err != nil {
				return nil, err //nolint:wrapcheck
			}

			return transfers.NewTransfer(src.ID(), dst.ID(), req.Amount, req.Description, now) //nolint:wrapcheck
		})
	if err != nil {
		return nil, fmt.Errorf("storage.ExecuteTransfer: %w", err)
	}

	l.log.Info("Transfer executed",
		slog.Int64("transfer_id", tr.ID()),
		slog.Int64("source_card_id", tr.SourceCardID()),
		slog.Int64("target_card_id", tr.TargetCardID()),
		slog.String("amount", tr.Amount().String()),
	)

	return tr, nil
}

// History lists transfers touching a card owned by requesterID.
func (l *Ledger) History(
	ctx context.Context, cardID, requesterID int64, page storage.Page,
) ([]*transfers.Transfer, error) {
	card, err := l.cards.GetCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetCard: %w", err)
	}

	if !card.IsOwnedBy(requesterID) {
		return nil, ErrNotOwner
	}

	list, err := l.transfers.ListTransfersByCard(ctx, cardID, page)
	if err != nil {
		return nil, fmt.Errorf("storage.ListTransfersByCard: %w", err)
	}

	return list, nil
}
