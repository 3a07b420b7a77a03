package dbmodels

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/transfers"
	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/shopspring/decimal"
)

// NumberCodec encrypts card numbers at the storage boundary.
type NumberCodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
	Fingerprint(plaintext string) string
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	Active       bool
}

func UserFromDomain(usr *users.User) *User {
	return &User{
		ID:           usr.ID(),
		Username:     usr.Username(),
		PasswordHash: usr.PasswordHash(),
		Role:         usr.Role().String(),
		Active:       usr.IsActive(),
	}
}

func (u *User) ToDomain() (*users.User, error) {
	usr, err := users.RestoreUser(u.ID, u.Username, u.PasswordHash, users.Role(u.Role), u.Active)
	if err != nil {
		return nil, fmt.Errorf("users.RestoreUser: %w", err)
	}

	return usr, nil
}

// Card is a stored card; the number is kept only as ciphertext plus a
// keyed fingerprint used for uniqueness.
type Card struct {
	ID         int64
	NumberEnc  string
	NumberHash string
	OwnerID    int64
	ExpiresAt  time.Time
	Balance    decimal.Decimal
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func CardFromDomain(codec NumberCodec, card *cards.Card) (*Card, error) {
	numberEnc, err := codec.Encrypt(card.Number())
	if err != nil {
		return nil, fmt.Errorf("codec.Encrypt: %w", err)
	}

	return &Card{
		ID:         card.ID(),
		NumberEnc:  numberEnc,
		NumberHash: codec.Fingerprint(card.Number()),
		OwnerID:    card.OwnerID(),
		ExpiresAt:  card.ExpiresAt(),
		Balance:    card.Balance(),
		Status:     card.Status().String(),
		CreatedAt:  card.CreatedAt(),
		UpdatedAt:  card.UpdatedAt(),
	}, nil
}

func (c *Card) ToDomain(codec NumberCodec) (*cards.Card, error) {
	number, err := codec.Decrypt(c.NumberEnc)
	if err != nil {
		return nil, fmt.Errorf("codec.Decrypt: %w", err)
	}

	card, err := cards.RestoreCard(
		c.ID, number, c.OwnerID, c.ExpiresAt, c.Balance, cards.Status(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("cards.RestoreCard: %w", err)
	}

	return card, nil
}

type Transfer struct {
	ID           int64
	SourceCardID int64
	TargetCardID int64
	Amount       decimal.Decimal
	Currency     string
	CreatedAt    time.Time
	Description  string
}

func TransferFromDomain(tr *transfers.Transfer) *Transfer {
	return &Transfer{
		ID:           tr.ID(),
		SourceCardID: tr.SourceCardID(),
		TargetCardID: tr.TargetCardID(),
		Amount:       tr.Amount(),
		Currency:     tr.Currency(),
		CreatedAt:    tr.CreatedAt(),
		Description:  tr.Description(),
	}
}

func (t *Transfer) ToDomain() *transfers.Transfer {
	return transfers.RestoreTransfer(
		t.ID, t.SourceCardID, t.TargetCardID, t.Amount, t.Currency, t.CreatedAt, t.Description,
	)
}

type BlockRequest struct {
	ID          int64
	CardID      int64
	RequestedBy int64
	RequestedAt time.Time
	Status      string
	ProcessedBy sql.NullInt64
	ProcessedAt sql.NullTime
}

func BlockRequestFromDomain(req *blockrequests.BlockRequest) *BlockRequest {
	row := &BlockRequest{
		ID:          req.ID(),
		CardID:      req.CardID(),
		RequestedBy: req.RequestedBy(),
		RequestedAt: req.RequestedAt(),
		Status:      req.Status().String(),
	}

	if by := req.ProcessedBy(); by != nil {
		row.ProcessedBy = sql.NullInt64{Int64: *by, Valid: true}
	}

	if at := req.ProcessedAt(); at != nil {
		row.ProcessedAt = sql.NullTime{Time: *at, Valid: true}
	}

	return row
}

func (r *BlockRequest) ToDomain() (*blockrequests.BlockRequest, error) {
	var (
		processedBy *int64
		processedAt *time.Time
	)

	if r.ProcessedBy.Valid {
		by := r.ProcessedBy.Int64
		processedBy = &by
	}

	if r.ProcessedAt.Valid {
		at := r.ProcessedAt.Time
		processedAt = &at
	}

	req, err := blockrequests.RestoreBlockRequest(
		r.ID, r.CardID, r.RequestedBy, r.RequestedAt, blockrequests.Status(r.Status), processedBy, processedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("blockrequests.RestoreBlockRequest: %w", err)
	}

	return req, nil
}
