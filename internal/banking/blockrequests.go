package banking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/storage"
)

// BlockRequests runs the cardholder block-request workflow.
type BlockRequests struct {
	log      *slog.Logger
	now      func() time.Time
	cards    storage.CardStorage
	requests storage.BlockRequestStorage
}

func NewBlockRequests(crds storage.CardStorage, reqs storage.BlockRequestStorage, opts ...Option) *BlockRequests {
	cfg := newConfig(opts...)

	return &BlockRequests{
		log:      cfg.logger.With(slog.String("module", "block_requests")),
		now:      cfg.now,
		cards:    crds,
		requests: reqs,
	}
}

// Submit files a PENDING block request for a card the requester owns.
func (b *BlockRequests) Submit(ctx context.Context, cardID, requesterID int64) (*blockrequests.BlockRequest, error) {
	card, err := b.cards.GetCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetCard: %w", err)
	}

	if !card.IsOwnedBy(requesterID) {
		return nil, ErrNotOwner
	}

	if card.IsBlocked() {
		return nil, cards.ErrAlreadyBlocked
	}

	req := blockrequests.NewBlockRequest(cardID, requesterID, b.now())

	if err := b.requests.CreateBlockRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("storage.CreateBlockRequest: %w", err)
	}

	b.log.Info("Block request submitted", slog.Int64("request_id", req.ID()), slog.Int64("card_id", cardID))

	return req, nil
}

// Approve marks the request APPROVED. The card status is not changed.
func (b *BlockRequests) Approve(ctx context.Context, id int64) (*blockrequests.BlockRequest, error) {
	now := b.now()

	req, err := b.requests.UpdateBlockRequest(ctx, id, func(req *blockrequests.BlockRequest) error {
		return req.Approve(now)
	})
	if err != nil {
		return nil, fmt.Errorf("storage.UpdateBlockRequest: %w", err)
	}

	b.log.Info("Block request approved", slog.Int64("request_id", id))

	return req, nil
}

func (b *BlockRequests) Decline(ctx context.Context, id int64) (*blockrequests.BlockRequest, error) {
	now := b.now()

	req, err := b.requests.UpdateBlockRequest(ctx, id, func(req *blockrequests.BlockRequest) error {
		return req.Decline(now)
	})
	if err != nil {
		return nil, fmt.Errorf("storage.UpdateBlockRequest: %w", err)
	}

	b.log.Info("Block request declined", slog.Int64("request_id", id))

	return req, nil
}

func (b *BlockRequests) Get(ctx context.Context, id int64) (*blockrequests.BlockRequest, error) {
	req, err := b.requests.GetBlockRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetBlockRequest: %w", err)
	}

	return req, nil
}

func (b *BlockRequests) List(
	ctx context.Context, page storage.Page, statuses ...blockrequests.Status,
) ([]*blockrequests.BlockRequest, error) {
	list, err := b.requests.ListBlockRequests(ctx, page, statuses...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListBlockRequests: %w", err)
	}

	return list, nil
}
