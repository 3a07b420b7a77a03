//nolint:wrapcheck
package transfers

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrAmountInvalid = errors.New("transfer amount must be positive")
	ErrSameCard      = errors.New("transfer source and target cards are the same")
)

// CurrencyRUB is the only currency cards are held in.
const CurrencyRUB = "RUB"

// AmountScale is the number of decimal places money is stored with.
const AmountScale = 2

// Transfer is an immutable record of funds moved between two cards.
type Transfer struct {
	id           int64
	sourceCardID int64
	targetCardID int64
	amount       decimal.Decimal
	currency     string
	createdAt    time.Time
	description  string
}

func NewTransfer(
	sourceCardID, targetCardID int64, amount decimal.Decimal, description string, now time.Time,
) (*Transfer, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	if sourceCardID == targetCardID {
		return nil, ErrSameCard
	}

	return &Transfer{
		sourceCardID: sourceCardID,
		targetCardID: targetCardID,
		amount:       amount,
		currency:     CurrencyRUB,
		createdAt:    now,
		description:  description,
	}, nil
}

func RestoreTransfer(
	id, sourceCardID, targetCardID int64,
	amount decimal.Decimal,
	currency string,
	createdAt time.Time,
	description string,
) *Transfer {
	return &Transfer{
		id:           id,
		sourceCardID: sourceCardID,
		targetCardID: targetCardID,
		amount:       amount,
		currency:     currency,
		createdAt:    createdAt,
		description:  description,
	}
}

func (t *Transfer) ID() int64 {
	return t.id
}

func (t *Transfer) SetID(id int64) {
	t.id = id
}

func (t *Transfer) SourceCardID() int64 {
	return t.sourceCardID
}

func (t *Transfer) TargetCardID() int64 {
	return t.targetCardID
}

func (t *Transfer) Amount() decimal.Decimal {
	return t.amount
}

func (t *Transfer) Currency() string {
	return t.currency
}

func (t *Transfer) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Transfer) Description() string {
	return t.description
}

// ValidateAmount accepts positive amounts with at most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountInvalid
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: more than %d decimal places", ErrAmountInvalid, AmountScale)
	}

	return nil
}
