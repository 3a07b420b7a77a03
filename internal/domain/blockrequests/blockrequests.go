//nolint:wrapcheck
package blockrequests

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrStatusInvalid   = errors.New("block request status is invalid")
	ErrAlreadyApproved = errors.New("block request already approved")
	ErrAlreadyDenied   = errors.New("block request already denied")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(status string) (Status, error) {
	switch Status(status) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(status), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrStatusInvalid, status)
	}
}

// decisions[from][to] is the outcome of deciding a request; nil allows it.
// APPROVED and REJECTED are terminal.
var decisions = map[Status]map[Status]error{
	StatusPending: {
		StatusApproved: nil,
		StatusRejected: nil,
	},
	StatusApproved: {
		StatusApproved: ErrAlreadyApproved,
		StatusRejected: ErrAlreadyApproved,
	},
	StatusRejected: {
		StatusApproved: ErrAlreadyDenied,
		StatusRejected: ErrAlreadyDenied,
	},
}

// BlockRequest is a cardholder's request to block one of their cards.
type BlockRequest struct {
	id          int64
	cardID      int64
	requestedBy int64
	requestedAt time.Time
	status      Status
	processedBy *int64
	processedAt *time.Time
}

// NewBlockRequest creates a PENDING request.
func NewBlockRequest(cardID, requestedBy int64, now time.Time) *BlockRequest {
	return &BlockRequest{
		cardID:      cardID,
		requestedBy: requestedBy,
		requestedAt: now,
		status:      StatusPending,
	}
}

func RestoreBlockRequest(
	id, cardID, requestedBy int64,
	requestedAt time.Time,
	status Status,
	processedBy *int64,
	processedAt *time.Time,
) (*BlockRequest, error) {
	if _, err := ParseStatus(status.String()); err != nil {
		return nil, err
	}

	return &BlockRequest{
		id:          id,
		cardID:      cardID,
		requestedBy: requestedBy,
		requestedAt: requestedAt,
		status:      status,
		processedBy: processedBy,
		processedAt: processedAt,
	}, nil
}

func (r *BlockRequest) ID() int64 {
	return r.id
}

func (r *BlockRequest) SetID(id int64) {
	r.id = id
}

func (r *BlockRequest) CardID() int64 {
	return r.cardID
}

func (r *BlockRequest) RequestedBy() int64 {
	return r.requestedBy
}

func (r *BlockRequest) RequestedAt() time.Time {
	return r.requestedAt
}

func (r *BlockRequest) Status() Status {
	return r.status
}

func (r *BlockRequest) ProcessedBy() *int64 {
	return r.processedBy
}

func (r *BlockRequest) ProcessedAt() *time.Time {
	return r.processedAt
}

func (r *BlockRequest) IsPending() bool {
	return r.status == StatusPending
}

// Approve moves the request to APPROVED. The card itself is left untouched.
func (r *BlockRequest) Approve(now time.Time) error {
	return r.decide(StatusApproved, now)
}

// Decline moves the request to REJECTED.
func (r *BlockRequest) Decline(now time.Time) error {
	return r.decide(StatusRejected, now)
}

func (r *BlockRequest) decide(to Status, now time.Time) error {
	outcomes, ok := decisions[r.status]
	if !ok {
		return fmt.Errorf("%w: %q", ErrStatusInvalid, r.status)
	}

	if err := outcomes[to]; err != nil {
		return err
	}

	// The requester is recorded as the processor.
	processedBy := r.requestedBy

	r.status = to
	r.processedBy = &processedBy
	r.processedAt = &now

	return nil
}
