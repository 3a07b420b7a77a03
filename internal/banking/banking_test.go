package banking

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/transfers"
	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/andymarkow/bankcards/internal/fieldcipher"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/andymarkow/bankcards/internal/storage/inmemory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)

type sequenceGenerator struct {
	numbers []string
	calls   int
}

func (g *sequenceGenerator) Generate() (string, error) {
	number := g.numbers[g.calls%len(g.numbers)]
	g.calls++

	return number, nil
}

// tickingClock returns a clock that advances by step on every reading.
func tickingClock(start time.Time, step time.Duration) func() time.Time {
	var ticks int64

	return func() time.Time {
		now := start.Add(time.Duration(ticks) * step)
		ticks++

		return now
	}
}

type fixture struct {
	store *inmemory.Storage
	svc   *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	codec, err := fieldcipher.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	store := inmemory.NewStorage(codec)

	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return testNow }),
	}, opts...)

	return &fixture{
		store: store,
		svc:   NewService(store, opts...),
	}
}

func (f *fixture) user(t *testing.T, name string) *users.User {
	t.Helper()

	usr, err := f.svc.Users.Create(context.Background(), name, "secret", users.RoleUser)
	require.NoError(t, err)

	return usr
}

func (f *fixture) card(t *testing.T, number string, ownerID int64, balance int64) *cards.Card {
	t.Helper()

	card, err := cards.NewCard(number, ownerID, decimal.NewFromInt(balance), testNow)
	require.NoError(t, err)
	require.NoError(t, f.store.CreateCard(context.Background(), card))

	return card
}

func (f *fixture) balance(t *testing.T, cardID int64) decimal.Decimal {
	t.Helper()

	card, err := f.store.GetCard(context.Background(), cardID)
	require.NoError(t, err)

	return card.Balance()
}

func TestLedger_Transfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "u")
	a := f.card(t, "4111111111111111", owner.ID(), 10000)
	b := f.card(t, "5555555555554444", owner.ID(), 0)

	tr, err := f.svc.Ledger.Transfer(ctx, TransferRequest{
		SourceCardID: a.ID(),
		TargetCardID: b.ID(),
		Amount:       decimal.NewFromInt(1000),
	}, owner.ID())
	require.NoError(t, err)

	assert.True(t, tr.Amount().Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, transfers.CurrencyRUB, tr.Currency())
	assert.True(t, f.balance(t, a.ID()).Equal(decimal.NewFromInt(9000)))
	assert.True(t, f.balance(t, b.ID()).Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, testNow, tr.CreatedAt())

	src, err := f.svc.Cards.Get(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, testNow, src.UpdatedAt())

	history, err := f.svc.Ledger.History(ctx, a.ID(), owner.ID(), storage.DefaultPage())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, tr.ID(), history[0].ID())
}

func TestLedger_TransferFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	other := f.user(t, "other")

	a := f.card(t, "4111111111111111", owner.ID(), 500)
	b := f.card(t, "5555555555554444", owner.ID(), 0)
	foreign := f.card(t, "4012888888881881", other.ID(), 0)
	blocked := f.card(t, "5105105105105100", owner.ID(), 0)

	_, err := f.svc.Cards.Block(ctx, blocked.ID())
	require.NoError(t, err)

	tests := []struct {
		name      string
		src       int64
		dst       int64
		amount    decimal.Decimal
		requester int64
		wantErr   error
	}{
		{"insufficient balance", a.ID(), b.ID(), decimal.NewFromInt(501), owner.ID(), cards.ErrInsufficientBalance},
		{"target not owned", a.ID(), foreign.ID(), decimal.NewFromInt(1), owner.ID(), ErrNotOwner},
		{"requester owns neither", a.ID(), b.ID(), decimal.NewFromInt(1), other.ID(), ErrNotOwner},
		{"source missing", 999, b.ID(), decimal.NewFromInt(1), owner.ID(), storage.ErrCardNotFound},
		{"target blocked", a.ID(), blocked.ID(), decimal.NewFromInt(1), owner.ID(), cards.ErrBlocked},
		{"ownership checked before block", a.ID(), blocked.ID(), decimal.NewFromInt(1), other.ID(), ErrNotOwner},
		{"block checked before amount", blocked.ID(), a.ID(), decimal.Zero, owner.ID(), cards.ErrBlocked},
		{"zero amount", a.ID(), b.ID(), decimal.Zero, owner.ID(), transfers.ErrAmountInvalid},
		{"negative amount", a.ID(), b.ID(), decimal.NewFromInt(-10), owner.ID(), transfers.ErrAmountInvalid},
		{"sub-cent amount", a.ID(), b.ID(), decimal.RequireFromString("0.005"), owner.ID(), transfers.ErrAmountInvalid},
		{"three decimal places", a.ID(), b.ID(), decimal.RequireFromString("499.995"), owner.ID(), transfers.ErrAmountInvalid},
		{"same card", a.ID(), a.ID(), decimal.NewFromInt(1), owner.ID(), transfers.ErrSameCard},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Ledger.Transfer(ctx, TransferRequest{
				SourceCardID: tc.src,
				TargetCardID: tc.dst,
				Amount:       tc.amount,
			}, tc.requester)
			require.ErrorIs(t, err, tc.wantErr)

			assert.True(t, f.balance(t, a.ID()).Equal(decimal.NewFromInt(500)))
			assert.True(t, f.balance(t, b.ID()).IsZero())
			assert.True(t, f.balance(t, foreign.ID()).IsZero())
		})
	}

	_, err = f.svc.Ledger.History(ctx, foreign.ID(), owner.ID(), storage.DefaultPage())
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestCards_Issue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "holder")

	card, err := f.svc.Cards.Issue(ctx, owner.ID())
	require.NoError(t, err)

	assert.Equal(t, cards.StatusActive, card.Status())
	assert.True(t, card.Balance().Equal(DefaultOpeningBalance))
	assert.Equal(t, testNow.AddDate(5, 0, 0), card.ExpiresAt())
	require.NoError(t, cards.ValidateNumber(card.Number()))

	owned, err := f.svc.Cards.GetOwned(ctx, card.ID(), owner.ID())
	require.NoError(t, err)
	assert.Equal(t, card.Number(), owned.Number())

	_, err = f.svc.Cards.GetOwned(ctx, card.ID(), owner.ID()+1)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.Cards.Issue(ctx, 999)
	require.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestCards_IssueRetriesOnCollision(t *testing.T) {
	gen := &sequenceGenerator{numbers: []string{"4111111111111111", "4111111111111111", "5555555555554444"}}

	f := newFixture(t, WithNumberGenerator(gen), WithNumberRetries(3))
	ctx := context.Background()

	owner := f.user(t, "holder")

	first, err := f.svc.Cards.Issue(ctx, owner.ID())
	require.NoError(t, err)
	assert.Equal(t, "4111111111111111", first.Number())

	second, err := f.svc.Cards.Issue(ctx, owner.ID())
	require.NoError(t, err)
	assert.Equal(t, "5555555555554444", second.Number())
	assert.Equal(t, 3, gen.calls)
}

func TestCards_IssueConflict(t *testing.T) {
	gen := &sequenceGenerator{numbers: []string{"4111111111111111"}}

	f := newFixture(t, WithNumberGenerator(gen), WithNumberRetries(2))
	ctx := context.Background()

	owner := f.user(t, "holder")

	_, err := f.svc.Cards.Issue(ctx, owner.ID())
	require.NoError(t, err)

	_, err = f.svc.Cards.Issue(ctx, owner.ID())
	require.ErrorIs(t, err, ErrCardNumberConflict)
	assert.Equal(t, 3, gen.calls)
}

func TestCards_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "holder")
	card := f.card(t, "4111111111111111", owner.ID(), 0)

	blocked, err := f.svc.Cards.Block(ctx, card.ID())
	require.NoError(t, err)
	assert.Equal(t, cards.StatusBlocked, blocked.Status())

	_, err = f.svc.Cards.Block(ctx, card.ID())
	require.ErrorIs(t, err, cards.ErrAlreadyBlocked)

	got, err := f.svc.Cards.Get(ctx, card.ID())
	require.NoError(t, err)
	assert.Equal(t, cards.StatusBlocked, got.Status())

	active, err := f.svc.Cards.Activate(ctx, card.ID())
	require.NoError(t, err)
	assert.Equal(t, cards.StatusActive, active.Status())

	_, err = f.svc.Cards.Activate(ctx, card.ID())
	require.ErrorIs(t, err, cards.ErrAlreadyActive)

	_, err = f.svc.Cards.Block(ctx, 404)
	require.ErrorIs(t, err, storage.ErrCardNotFound)

	require.NoError(t, f.svc.Cards.Delete(ctx, card.ID()))
	_, err = f.svc.Cards.Get(ctx, card.ID())
	require.ErrorIs(t, err, storage.ErrCardNotFound)
}

func TestCards_ExpireDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "holder")

	stale, err := cards.NewCard("4111111111111111", owner.ID(), decimal.Zero, testNow.AddDate(-5, 0, -1))
	require.NoError(t, err)
	require.NoError(t, f.store.CreateCard(ctx, stale))

	fresh := f.card(t, "5555555555554444", owner.ID(), 0)

	n, err := f.svc.Cards.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Cards.Get(ctx, stale.ID())
	require.NoError(t, err)
	assert.Equal(t, cards.StatusExpired, got.Status())

	_, err = f.svc.Cards.Activate(ctx, stale.ID())
	require.ErrorIs(t, err, cards.ErrExpired)

	got, err = f.svc.Cards.Get(ctx, fresh.ID())
	require.NoError(t, err)
	assert.Equal(t, cards.StatusActive, got.Status())
}

func TestBlockRequests_Workflow(t *testing.T) {
	f := newFixture(t, WithClock(tickingClock(testNow, time.Minute)))
	ctx := context.Background()

	owner := f.user(t, "holder")
	card := f.card(t, "4111111111111111", owner.ID(), 0)

	req, err := f.svc.BlockRequests.Submit(ctx, card.ID(), owner.ID())
	require.NoError(t, err)
	assert.Equal(t, blockrequests.StatusPending, req.Status())

	approved, err := f.svc.BlockRequests.Approve(ctx, req.ID())
	require.NoError(t, err)
	assert.Equal(t, blockrequests.StatusApproved, approved.Status())
	require.NotNil(t, approved.ProcessedAt())
	require.NotNil(t, approved.ProcessedBy())
	assert.Equal(t, owner.ID(), *approved.ProcessedBy())

	processedAt := *approved.ProcessedAt()
	assert.True(t, processedAt.After(req.RequestedAt()))

	_, err = f.svc.BlockRequests.Approve(ctx, req.ID())
	require.ErrorIs(t, err, blockrequests.ErrAlreadyApproved)

	_, err = f.svc.BlockRequests.Decline(ctx, req.ID())
	require.ErrorIs(t, err, blockrequests.ErrAlreadyApproved)

	// Rejected decisions leave the stored request as first approved.
	stored, err := f.svc.BlockRequests.Get(ctx, req.ID())
	require.NoError(t, err)
	assert.Equal(t, blockrequests.StatusApproved, stored.Status())
	require.NotNil(t, stored.ProcessedAt())
	assert.Equal(t, processedAt, *stored.ProcessedAt())

	// Approval leaves the card itself untouched.
	got, err := f.svc.Cards.Get(ctx, card.ID())
	require.NoError(t, err)
	assert.Equal(t, cards.StatusActive, got.Status())

	_, err = f.svc.BlockRequests.Approve(ctx, 999)
	require.ErrorIs(t, err, storage.ErrBlockRequestNotFound)
}

func TestBlockRequests_Decline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "holder")
	card := f.card(t, "4111111111111111", owner.ID(), 0)

	req, err := f.svc.BlockRequests.Submit(ctx, card.ID(), owner.ID())
	require.NoError(t, err)

	declined, err := f.svc.BlockRequests.Decline(ctx, req.ID())
	require.NoError(t, err)
	assert.Equal(t, blockrequests.StatusRejected, declined.Status())

	_, err = f.svc.BlockRequests.Decline(ctx, req.ID())
	require.ErrorIs(t, err, blockrequests.ErrAlreadyDenied)

	pending, err := f.svc.BlockRequests.List(ctx, storage.DefaultPage(), blockrequests.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestBlockRequests_SubmitFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "holder")
	other := f.user(t, "other")
	card := f.card(t, "4111111111111111", owner.ID(), 0)

	_, err := f.svc.BlockRequests.Submit(ctx, card.ID(), other.ID())
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.BlockRequests.Submit(ctx, 999, owner.ID())
	require.ErrorIs(t, err, storage.ErrCardNotFound)

	_, err = f.svc.Cards.Block(ctx, card.ID())
	require.NoError(t, err)

	_, err = f.svc.BlockRequests.Submit(ctx, card.ID(), owner.ID())
	require.ErrorIs(t, err, cards.ErrAlreadyBlocked)
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	usr := f.user(t, "alice")

	got, err := f.svc.Users.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, usr.ID(), got.ID())

	_, err = f.svc.Users.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Users.Authenticate(ctx, "nobody", "secret")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Users.Deactivate(ctx, usr.ID())
	require.NoError(t, err)

	_, err = f.svc.Users.Deactivate(ctx, usr.ID())
	require.ErrorIs(t, err, users.ErrAlreadyDeactivated)

	_, err = f.svc.Users.Authenticate(ctx, "alice", "secret")
	require.ErrorIs(t, err, ErrUserInactive)

	_, err = f.svc.Users.Activate(ctx, usr.ID())
	require.NoError(t, err)

	_, err = f.svc.Users.Activate(ctx, usr.ID())
	require.ErrorIs(t, err, users.ErrAlreadyActive)

	admin, err := f.svc.Users.SetRole(ctx, usr.ID(), users.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	_, err = f.svc.Users.SetRole(ctx, usr.ID(), users.RoleAdmin)
	require.ErrorIs(t, err, users.ErrAlreadyHasRole)
}

func TestUsers_Balance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	usr := f.user(t, "alice")
	f.card(t, "4111111111111111", usr.ID(), 150)
	f.card(t, "5555555555554444", usr.ID(), 50)

	sum, err := f.svc.Users.Balance(ctx, usr.ID())
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(200)))

	_, err = f.svc.Users.Balance(ctx, 999)
	require.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestUsers_EnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Users.EnsureAdmin(ctx, "root", "toor"))
	require.NoError(t, f.svc.Users.EnsureAdmin(ctx, "root", "toor"))

	list, err := f.svc.Users.List(ctx, storage.DefaultPage())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsAdmin())

	_, err = f.svc.Users.Create(ctx, "root", "x", users.RoleUser)
	require.ErrorIs(t, err, storage.ErrUserAlreadyExists)
}
