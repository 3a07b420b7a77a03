package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/transfers"
	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/andymarkow/bankcards/internal/storage/dbmodels"
	"github.com/shopspring/decimal"
)

var _ storage.Storage = (*Storage)(nil)

// Stores are always locked in field order: users, cards, transfers, requests.

type UserStore struct {
	users map[int64]*dbmodels.User
	seq   int64
	mu    sync.RWMutex
}

type CardStore struct {
	cards  map[int64]*dbmodels.Card
	hashes map[string]int64
	seq    int64
	mu     sync.RWMutex
}

type TransferStore struct {
	transfers map[int64]*dbmodels.Transfer
	seq       int64
	mu        sync.RWMutex
}

type BlockRequestStore struct {
	requests map[int64]*dbmodels.BlockRequest
	seq      int64
	mu       sync.RWMutex
}

type Storage struct {
	codec             dbmodels.NumberCodec
	UserStore         UserStore
	CardStore         CardStore
	TransferStore     TransferStore
	BlockRequestStore BlockRequestStore
}

func NewStorage(codec dbmodels.NumberCodec) *Storage {
	return &Storage{
		codec: codec,
		UserStore: UserStore{
			users: make(map[int64]*dbmodels.User),
		},
		CardStore: CardStore{
			cards:  make(map[int64]*dbmodels.Card),
			hashes: make(map[string]int64),
		},
		TransferStore: TransferStore{
			transfers: make(map[int64]*dbmodels.Transfer),
		},
		BlockRequestStore: BlockRequestStore{
			requests: make(map[int64]*dbmodels.BlockRequest),
		},
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) CreateUser(_ context.Context, usr *users.User) error {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	for _, row := range s.UserStore.users {
		if row.Username == usr.Username() {
			return storage.ErrUserAlreadyExists
		}
	}

	s.UserStore.seq++
	usr.SetID(s.UserStore.seq)

	s.UserStore.users[usr.ID()] = dbmodels.UserFromDomain(usr)

	return nil
}

func (s *Storage) GetUser(_ context.Context, id int64) (*users.User, error) {
	s.UserStore.mu.RLock()
	defer s.UserStore.mu.RUnlock()

	row, ok := s.UserStore.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return row.ToDomain()
}

func (s *Storage) GetUserByUsername(_ context.Context, username string) (*users.User, error) {
	s.UserStore.mu.RLock()
	defer s.UserStore.mu.RUnlock()

	for _, row := range s.UserStore.users {
		if row.Username == username {
			return row.ToDomain()
		}
	}

	return nil, storage.ErrUserNotFound
}

func (s *Storage) ListUsers(_ context.Context, page storage.Page) ([]*users.User, error) {
	s.UserStore.mu.RLock()
	defer s.UserStore.mu.RUnlock()

	rows := make([]*dbmodels.User, 0, len(s.UserStore.users))
	for _, row := range s.UserStore.users {
		rows = append(rows, row)
	}

	rows = sortPage(rows, page, userComparators, func(r *dbmodels.User) int64 { return r.ID })

	result := make([]*users.User, 0, len(rows))

	for _, row := range rows {
		usr, err := row.ToDomain()
		if err != nil {
			return nil, err
		}

		result = append(result, usr)
	}

	return result, nil
}

func (s *Storage) UpdateUser(_ context.Context, id int64, fn func(usr *users.User) error) (*users.User, error) {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	row, ok := s.UserStore.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	usr, err := row.ToDomain()
	if err != nil {
		return nil, err
	}

	if err := fn(usr); err != nil {
		return nil, err
	}

	usr.SetID(id)

	s.UserStore.users[id] = dbmodels.UserFromDomain(usr)

	return usr, nil
}

func (s *Storage) CreateCard(_ context.Context, card *cards.Card) error {
	row, err := dbmodels.CardFromDomain(s.codec, card)
	if err != nil {
		return fmt.Errorf("dbmodels.CardFromDomain: %w", err)
	}

	s.CardStore.mu.Lock()
	defer s.CardStore.mu.Unlock()

	if _, ok := s.CardStore.hashes[row.NumberHash]; ok {
		return storage.ErrCardNumberAlreadyExists
	}

	s.CardStore.seq++
	row.ID = s.CardStore.seq
	card.SetID(row.ID)

	s.CardStore.cards[row.ID] = row
	s.CardStore.hashes[row.NumberHash] = row.ID

	return nil
}

func (s *Storage) GetCard(_ context.Context, id int64) (*cards.Card, error) {
	s.CardStore.mu.RLock()
	defer s.CardStore.mu.RUnlock()

	row, ok := s.CardStore.cards[id]
	if !ok {
		return nil, storage.ErrCardNotFound
	}

	return row.ToDomain(s.codec)
}

func (s *Storage) ListCards(_ context.Context, page storage.Page) ([]*cards.Card, error) {
	return s.listCards(page, func(*dbmodels.Card) bool { return true })
}

func (s *Storage) ListCardsByOwner(_ context.Context, ownerID int64, page storage.Page) ([]*cards.Card, error) {
	return s.listCards(page, func(row *dbmodels.Card) bool { return row.OwnerID == ownerID })
}

func (s *Storage) listCards(page storage.Page, match func(row *dbmodels.Card) bool) ([]*cards.Card, error) {
	s.CardStore.mu.RLock()
	defer s.CardStore.mu.RUnlock()

	rows := make([]*dbmodels.Card, 0)

	for _, row := range s.CardStore.cards {
		if match(row) {
			rows = append(rows, row)
		}
	}

	rows = sortPage(rows, page, cardComparators, func(r *dbmodels.Card) int64 { return r.ID })

	result := make([]*cards.Card, 0, len(rows))

	for _, row := range rows {
		card, err := row.ToDomain(s.codec)
		if err != nil {
			return nil, err
		}

		result = append(result, card)
	}

	return result, nil
}

func (s *Storage) UpdateCard(_ context.Context, id int64, fn func(card *cards.Card) error) (*cards.Card, error) {
	s.CardStore.mu.Lock()
	defer s.CardStore.mu.Unlock()

	row, ok := s.CardStore.cards[id]
	if !ok {
		return nil, storage.ErrCardNotFound
	}

	card, err := row.ToDomain(s.codec)
	if err != nil {
		return nil, err
	}

	if err := fn(card); err != nil {
		return nil, err
	}

	s.CardStore.cards[id] = withCardState(row, card)

	return card, nil
}

func (s *Storage) DeleteCard(_ context.Context, id int64) error {
	s.CardStore.mu.Lock()
	defer s.CardStore.mu.Unlock()

	s.TransferStore.mu.Lock()
	defer s.TransferStore.mu.Unlock()

	s.BlockRequestStore.mu.Lock()
	defer s.BlockRequestStore.mu.Unlock()

	row, ok := s.CardStore.cards[id]
	if !ok {
		return storage.ErrCardNotFound
	}

	delete(s.CardStore.cards, id)
	delete(s.CardStore.hashes, row.NumberHash)

	for trID, tr := range s.TransferStore.transfers {
		if tr.SourceCardID == id || tr.TargetCardID == id {
			delete(s.TransferStore.transfers, trID)
		}
	}

	for reqID, req := range s.BlockRequestStore.requests {
		if req.CardID == id {
			delete(s.BlockRequestStore.requests, reqID)
		}
	}

	return nil
}

func (s *Storage) SumBalanceByOwner(_ context.Context, ownerID int64) (decimal.Decimal, error) {
	s.CardStore.mu.RLock()
	defer s.CardStore.mu.RUnlock()

	sum := decimal.Zero

	for _, row := range s.CardStore.cards {
		if row.OwnerID == ownerID {
			sum = sum.Add(row.Balance)
		}
	}

	return sum, nil
}

func (s *Storage) ExpireCards(_ context.Context, now time.Time) (int, error) {
	s.CardStore.mu.Lock()
	defer s.CardStore.mu.Unlock()

	var expired int

	for id, row := range s.CardStore.cards {
		if row.Status == cards.StatusExpired.String() || row.ExpiresAt.After(now) {
			continue
		}

		updated := *row
		updated.Status = cards.StatusExpired.String()
		updated.UpdatedAt = now

		s.CardStore.cards[id] = &updated
		expired++
	}

	return expired, nil
}

func (s *Storage) ExecuteTransfer(
	_ context.Context, srcID, dstID int64, fn storage.TransferFunc,
) (*transfers.Transfer, error) {
	if srcID == dstID {
		return nil, transfers.ErrSameCard
	}

	s.CardStore.mu.Lock()
	defer s.CardStore.mu.Unlock()

	s.TransferStore.mu.Lock()
	defer s.TransferStore.mu.Unlock()

	srcRow, ok := s.CardStore.cards[srcID]
	if !ok {
		return nil, storage.ErrCardNotFound
	}

	dstRow, ok := s.CardStore.cards[dstID]
	if !ok {
		return nil, storage.ErrCardNotFound
	}

	src, err := srcRow.ToDomain(s.codec)
	if err != nil {
		return nil, err
	}

	dst, err := dstRow.ToDomain(s.codec)
	if err != nil {
		return nil, err
	}

	tr, err := fn(src, dst)
	if err != nil {
		return nil, err
	}

	s.TransferStore.seq++
	tr.SetID(s.TransferStore.seq)

	s.CardStore.cards[srcID] = withCardState(srcRow, src)
	s.CardStore.cards[dstID] = withCardState(dstRow, dst)
	s.TransferStore.transfers[tr.ID()] = dbmodels.TransferFromDomain(tr)

	return tr, nil
}

func (s *Storage) ListTransfersByCard(
	_ context.Context, cardID int64, page storage.Page,
) ([]*transfers.Transfer, error) {
	s.TransferStore.mu.RLock()
	defer s.TransferStore.mu.RUnlock()

	rows := make([]*dbmodels.Transfer, 0)

	for _, row := range s.TransferStore.transfers {
		if row.SourceCardID == cardID || row.TargetCardID == cardID {
			rows = append(rows, row)
		}
	}

	rows = sortPage(rows, page, transferComparators, func(r *dbmodels.Transfer) int64 { return r.ID })

	result := make([]*transfers.Transfer, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.ToDomain())
	}

	return result, nil
}

func (s *Storage) CreateBlockRequest(_ context.Context, req *blockrequests.BlockRequest) error {
	s.CardStore.mu.RLock()
	defer s.CardStore.mu.RUnlock()

	s.BlockRequestStore.mu.Lock()
	defer s.BlockRequestStore.mu.Unlock()

	if _, ok := s.CardStore.cards[req.CardID()]; !ok {
		return storage.ErrCardNotFound
	}

	s.BlockRequestStore.seq++
	req.SetID(s.BlockRequestStore.seq)

	s.BlockRequestStore.requests[req.ID()] = dbmodels.BlockRequestFromDomain(req)

	return nil
}

func (s *Storage) GetBlockRequest(_ context.Context, id int64) (*blockrequests.BlockRequest, error) {
	s.BlockRequestStore.mu.RLock()
	defer s.BlockRequestStore.mu.RUnlock()

	row, ok := s.BlockRequestStore.requests[id]
	if !ok {
		return nil, storage.ErrBlockRequestNotFound
	}

	return row.ToDomain()
}

func (s *Storage) ListBlockRequests(
	_ context.Context, page storage.Page, statuses ...blockrequests.Status,
) ([]*blockrequests.BlockRequest, error) {
	s.BlockRequestStore.mu.RLock()
	defer s.BlockRequestStore.mu.RUnlock()

	wanted := make(map[string]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status.String()] = struct{}{}
	}

	rows := make([]*dbmodels.BlockRequest, 0)

	for _, row := range s.BlockRequestStore.requests {
		if _, ok := wanted[row.Status]; len(wanted) > 0 && !ok {
			continue
		}

		rows = append(rows, row)
	}

	rows = sortPage(rows, page, blockRequestComparators, func(r *dbmodels.BlockRequest) int64 { return r.ID })

	result := make([]*blockrequests.BlockRequest, 0, len(rows))

	for _, row := range rows {
		req, err := row.ToDomain()
		if err != nil {
			return nil, err
		}

		result = append(result, req)
	}

	return result, nil
}

func (s *Storage) UpdateBlockRequest(
	_ context.Context, id int64, fn func(req *blockrequests.BlockRequest) error,
) (*blockrequests.BlockRequest, error) {
	s.BlockRequestStore.mu.Lock()
	defer s.BlockRequestStore.mu.Unlock()

	row, ok := s.BlockRequestStore.requests[id]
	if !ok {
		return nil, storage.ErrBlockRequestNotFound
	}

	req, err := row.ToDomain()
	if err != nil {
		return nil, err
	}

	if err := fn(req); err != nil {
		return nil, err
	}

	req.SetID(id)

	s.BlockRequestStore.requests[id] = dbmodels.BlockRequestFromDomain(req)

	return req, nil
}

// withCardState copies the mutable card state onto a stored row, keeping
// the stored ciphertext.
func withCardState(row *dbmodels.Card, card *cards.Card) *dbmodels.Card {
	updated := *row
	updated.Balance = card.Balance()
	updated.Status = card.Status().String()
	updated.UpdatedAt = card.UpdatedAt()

	return &updated
}
