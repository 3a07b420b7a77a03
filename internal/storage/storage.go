package storage

import (
	"context"
	"errors"
	"time"

	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/transfers"
	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/shopspring/decimal"
)

var (
	ErrUserAlreadyExists       = errors.New("user already exists")
	ErrUserNotFound            = errors.New("user not found")
	ErrCardNotFound            = errors.New("card not found")
	ErrCardNumberAlreadyExists = errors.New("card number already exists")
	ErrBlockRequestNotFound    = errors.New("block request not found")
	ErrInvalidPage             = errors.New("invalid page request")
)

// TransferFunc validates and mutates the locked source and target cards and
// returns the transfer record to persist alongside them.
type TransferFunc func(src, dst *cards.Card) (*transfers.Transfer, error)

type UserStorage interface {
	CreateUser(ctx context.Context, usr *users.User) error
	GetUser(ctx context.Context, id int64) (*users.User, error)
	GetUserByUsername(ctx context.Context, username string) (*users.User, error)
	ListUsers(ctx context.Context, page Page) ([]*users.User, error)
	// UpdateUser loads the user, applies fn and saves the result atomically.
	UpdateUser(ctx context.Context, id int64, fn func(usr *users.User) error) (*users.User, error)
}

type CardStorage interface {
	// CreateCard returns ErrCardNumberAlreadyExists when the number is taken.
	CreateCard(ctx context.Context, card *cards.Card) error
	GetCard(ctx context.Context, id int64) (*cards.Card, error)
	ListCards(ctx context.Context, page Page) ([]*cards.Card, error)
	ListCardsByOwner(ctx context.Context, ownerID int64, page Page) ([]*cards.Card, error)
	// UpdateCard loads the card, applies fn and saves the result atomically.
	UpdateCard(ctx context.Context, id int64, fn func(card *cards.Card) error) (*cards.Card, error)
	DeleteCard(ctx context.Context, id int64) error
	SumBalanceByOwner(ctx context.Context, ownerID int64) (decimal.Decimal, error)
	// ExpireCards marks every card whose expiration is not after now as EXPIRED
	// and returns the number of cards changed.
	ExpireCards(ctx context.Context, now time.Time) (int, error)
}

type TransferStorage interface {
	// ExecuteTransfer locks both cards in ascending id order, runs fn and
	// persists both cards and the returned transfer as one atomic unit.
	// Nothing is written when fn fails.
	ExecuteTransfer(ctx context.Context, srcID, dstID int64, fn TransferFunc) (*transfers.Transfer, error)
	ListTransfersByCard(ctx context.Context, cardID int64, page Page) ([]*transfers.Transfer, error)
}

type BlockRequestStorage interface {
	CreateBlockRequest(ctx context.Context, req *blockrequests.BlockRequest) error
	GetBlockRequest(ctx context.Context, id int64) (*blockrequests.BlockRequest, error)
	ListBlockRequests(
		ctx context.Context, page Page, statuses ...blockrequests.Status,
	) ([]*blockrequests.BlockRequest, error)
	// UpdateBlockRequest loads the request, applies fn and saves the result atomically.
	UpdateBlockRequest(
		ctx context.Context, id int64, fn func(req *blockrequests.BlockRequest) error,
	) (*blockrequests.BlockRequest, error)
}

type Storage interface {
	UserStorage
	CardStorage
	TransferStorage
	BlockRequestStorage
	Close() error
	Ping(ctx context.Context) error
}

func NewStorage(store Storage) Storage {
	return store
}
