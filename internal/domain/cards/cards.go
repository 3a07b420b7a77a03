//nolint:wrapcheck
package cards

import (
	"errors"
	"fmt"
	"time"

	"github.com/andymarkow/bankcards/internal/cardnum"
	"github.com/shopspring/decimal"
)

var (
	ErrNumberFormatInvalid = errors.New("card number format is invalid")
	ErrStatusInvalid       = errors.New("card status is invalid")
	ErrAlreadyBlocked      = errors.New("card already blocked")
	ErrAlreadyActive       = errors.New("card already active")
	ErrExpired             = errors.New("card is expired")
	ErrBlocked             = errors.New("card blocked")
	ErrInsufficientBalance = errors.New("card balance not enough funds")
	ErrAmountNegative      = errors.New("amount is negative")
)

// ValidityYears is the lifetime of a newly issued card.
const ValidityYears = 5

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusBlocked Status = "BLOCKED"
	StatusExpired Status = "EXPIRED"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(status string) (Status, error) {
	switch Status(status) {
	case StatusActive, StatusBlocked, StatusExpired:
		return Status(status), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrStatusInvalid, status)
	}
}

// lifecycle[from][to] holds the outcome of a status transition requested
// through Block or Activate; nil means the transition is allowed.
// EXPIRED is reachable only through Expire.
var lifecycle = map[Status]map[Status]error{
	StatusActive: {
		StatusActive:  ErrAlreadyActive,
		StatusBlocked: nil,
	},
	StatusBlocked: {
		StatusActive:  nil,
		StatusBlocked: ErrAlreadyBlocked,
	},
	StatusExpired: {
		StatusActive:  ErrExpired,
		StatusBlocked: ErrExpired,
	},
}

type Card struct {
	id        int64
	number    string
	ownerID   int64
	expiresAt time.Time
	balance   decimal.Decimal
	status    Status
	createdAt time.Time
	updatedAt time.Time
}

// NewCard creates an ACTIVE card valid for ValidityYears from now.
func NewCard(number string, ownerID int64, openingBalance decimal.Decimal, now time.Time) (*Card, error) {
	if err := ValidateNumber(number); err != nil {
		return nil, err
	}

	if openingBalance.IsNegative() {
		return nil, ErrAmountNegative
	}

	return &Card{
		number:    number,
		ownerID:   ownerID,
		expiresAt: now.AddDate(ValidityYears, 0, 0),
		balance:   openingBalance,
		status:    StatusActive,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// RestoreCard rebuilds a card from stored fields.
func RestoreCard(
	id int64,
	number string,
	ownerID int64,
	expiresAt time.Time,
	balance decimal.Decimal,
	status Status,
	createdAt, updatedAt time.Time,
) (*Card, error) {
	if err := ValidateNumber(number); err != nil {
		return nil, err
	}

	if _, err := ParseStatus(status.String()); err != nil {
		return nil, err
	}

	return &Card{
		id:        id,
		number:    number,
		ownerID:   ownerID,
		expiresAt: expiresAt,
		balance:   balance,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func (c *Card) ID() int64 {
	return c.id
}

func (c *Card) SetID(id int64) {
	c.id = id
}

func (c *Card) Number() string {
	return c.number
}

func (c *Card) OwnerID() int64 {
	return c.ownerID
}

func (c *Card) ExpiresAt() time.Time {
	return c.expiresAt
}

func (c *Card) Balance() decimal.Decimal {
	return c.balance
}

func (c *Card) Status() Status {
	return c.status
}

func (c *Card) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Card) UpdatedAt() time.Time {
	return c.updatedAt
}

func (c *Card) IsBlocked() bool {
	return c.status == StatusBlocked
}

func (c *Card) IsOwnedBy(userID int64) bool {
	return c.ownerID == userID
}

// Equal reports whether both cards carry the same card number.
func (c *Card) Equal(other *Card) bool {
	if c == nil || other == nil {
		return c == other
	}

	return c.number == other.number
}

// MaskedNumber hides all but the last four digits.
func (c *Card) MaskedNumber() string {
	return MaskNumber(c.number)
}

func (c *Card) Block(now time.Time) error {
	return c.transition(StatusBlocked, now)
}

func (c *Card) Activate(now time.Time) error {
	return c.transition(StatusActive, now)
}

func (c *Card) transition(to Status, now time.Time) error {
	outcomes, ok := lifecycle[c.status]
	if !ok {
		return fmt.Errorf("%w: %q", ErrStatusInvalid, c.status)
	}

	err, ok := outcomes[to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrStatusInvalid, c.status, to)
	}

	if err != nil {
		return err
	}

	c.status = to
	c.updatedAt = now

	return nil
}

// Expire marks the card EXPIRED when its expiration is not after now.
// It reports whether the status changed.
func (c *Card) Expire(now time.Time) bool {
	if c.status == StatusExpired || c.expiresAt.After(now) {
		return false
	}

	c.status = StatusExpired
	c.updatedAt = now

	return true
}

// Withdraw debits amount from the card balance.
func (c *Card) Withdraw(amount decimal.Decimal, now time.Time) error {
	if amount.IsNegative() {
		return ErrAmountNegative
	}

	if c.balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	c.balance = c.balance.Sub(amount)
	c.updatedAt = now

	return nil
}

// Deposit credits amount to the card balance.
func (c *Card) Deposit(amount decimal.Decimal, now time.Time) error {
	if amount.IsNegative() {
		return ErrAmountNegative
	}

	c.balance = c.balance.Add(amount)
	c.updatedAt = now

	return nil
}

func ValidateNumber(number string) error {
	if !cardnum.Valid(number) {
		return ErrNumberFormatInvalid
	}

	return nil
}

func MaskNumber(number string) string {
	if len(number) < 4 {
		return "**** **** **** ****"
	}

	return "**** **** **** " + number[len(number)-4:]
}
