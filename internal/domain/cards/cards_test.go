package cards

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCard(t *testing.T, status Status, balance int64) *Card {
	t.Helper()

	now := time.Now()

	card, err := RestoreCard(100, "4111111111111111", 1, now.AddDate(5, 0, 0),
		decimal.NewFromInt(balance), status, now, now)
	require.NoError(t, err)

	return card
}

func TestNewCard(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	card, err := NewCard("5555555555554444", 7, decimal.NewFromInt(10000), now)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, card.Status())
	assert.Equal(t, int64(7), card.OwnerID())
	assert.True(t, card.Balance().Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, time.Date(2031, 1, 15, 12, 0, 0, 0, time.UTC), card.ExpiresAt())
	assert.Equal(t, "**** **** **** 4444", card.MaskedNumber())
}

func TestNewCard_InvalidNumber(t *testing.T) {
	_, err := NewCard("4111111111111112", 7, decimal.Zero, time.Now())
	require.ErrorIs(t, err, ErrNumberFormatInvalid)

	_, err = NewCard("4111111111111111", 7, decimal.NewFromInt(-1), time.Now())
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		op      func(c *Card, now time.Time) error
		want    Status
		wantErr error
	}{
		{"block active", StatusActive, (*Card).Block, StatusBlocked, nil},
		{"block blocked", StatusBlocked, (*Card).Block, StatusBlocked, ErrAlreadyBlocked},
		{"activate blocked", StatusBlocked, (*Card).Activate, StatusActive, nil},
		{"activate active", StatusActive, (*Card).Activate, StatusActive, ErrAlreadyActive},
		{"block expired", StatusExpired, (*Card).Block, StatusExpired, ErrExpired},
		{"activate expired", StatusExpired, (*Card).Activate, StatusExpired, ErrExpired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			card := newTestCard(t, tc.from, 0)
			before := card.UpdatedAt()
			now := before.Add(time.Hour)

			err := tc.op(card, now)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, before, card.UpdatedAt())
			} else {
				require.NoError(t, err)
				assert.Equal(t, now, card.UpdatedAt())
			}

			assert.Equal(t, tc.want, card.Status())
		})
	}
}

func TestExpire(t *testing.T) {
	card := newTestCard(t, StatusActive, 0)

	assert.False(t, card.Expire(time.Now()))
	assert.Equal(t, StatusActive, card.Status())

	assert.True(t, card.Expire(card.ExpiresAt()))
	assert.Equal(t, StatusExpired, card.Status())

	assert.False(t, card.Expire(card.ExpiresAt().Add(time.Hour)))
}

func TestWithdrawDeposit(t *testing.T) {
	card := newTestCard(t, StatusActive, 100)
	now := time.Date(2027, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, card.Withdraw(decimal.NewFromInt(40), now))
	assert.True(t, card.Balance().Equal(decimal.NewFromInt(60)))
	assert.Equal(t, now, card.UpdatedAt())

	require.ErrorIs(t, card.Withdraw(decimal.NewFromInt(61), now), ErrInsufficientBalance)
	assert.True(t, card.Balance().Equal(decimal.NewFromInt(60)))

	require.NoError(t, card.Withdraw(decimal.NewFromInt(60), now))
	assert.True(t, card.Balance().IsZero())

	later := now.Add(time.Minute)

	require.NoError(t, card.Deposit(decimal.RequireFromString("0.01"), later))
	assert.Equal(t, "0.01", card.Balance().String())
	assert.Equal(t, later, card.UpdatedAt())

	require.ErrorIs(t, card.Deposit(decimal.NewFromInt(-1), now), ErrAmountNegative)
	require.ErrorIs(t, card.Withdraw(decimal.NewFromInt(-1), now), ErrAmountNegative)
}

func TestEqual(t *testing.T) {
	a := newTestCard(t, StatusActive, 10)
	b := newTestCard(t, StatusBlocked, 99)
	b.SetID(200)

	assert.True(t, a.Equal(b))

	c, err := NewCard("5555555555554444", 1, decimal.Zero, time.Now())
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("BLOCKED")
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, status)

	_, err = ParseStatus("blocked")
	require.ErrorIs(t, err, ErrStatusInvalid)
}

func TestMaskNumber(t *testing.T) {
	assert.Equal(t, "**** **** **** ****", MaskNumber("12"))
	assert.Equal(t, "**** **** **** 1111", MaskNumber("4111111111111111"))
}
