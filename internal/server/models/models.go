package models

import (
	"time"

	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/transfers"
	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresAt    string `json:"expires_at"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type SetRoleRequest struct {
	Role string `json:"role"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
}

func NewUserResponse(usr *users.User) UserResponse {
	return UserResponse{
		ID:       usr.ID(),
		Username: usr.Username(),
		Role:     usr.Role().String(),
		Active:   usr.IsActive(),
	}
}

type BalanceResponse struct {
	UserID  int64   `json:"user_id"`
	Balance float64 `json:"balance"`
}

type CardResponse struct {
	ID             int64   `json:"id"`
	Number         string  `json:"number"`
	OwnerID        int64   `json:"owner_id"`
	ExpirationDate string  `json:"expiration_date"`
	Balance        float64 `json:"balance"`
	Status         string  `json:"status"`
}

// NewCardResponse masks the card number.
func NewCardResponse(card *cards.Card) CardResponse {
	return CardResponse{
		ID:             card.ID(),
		Number:         card.MaskedNumber(),
		OwnerID:        card.OwnerID(),
		ExpirationDate: card.ExpiresAt().Format(time.DateOnly),
		Balance:        card.Balance().InexactFloat64(),
		Status:         card.Status().String(),
	}
}

type TransferRequest struct {
	SourceCardID int64           `json:"source_card_id"`
	TargetCardID int64           `json:"target_card_id"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
}

type TransferResponse struct {
	ID           int64   `json:"id"`
	SourceCardID int64   `json:"source_card_id"`
	TargetCardID int64   `json:"target_card_id"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	CreatedAt    string  `json:"created_at"`
	Description  string  `json:"description,omitempty"`
}

func NewTransferResponse(tr *transfers.Transfer) TransferResponse {
	return TransferResponse{
		ID:           tr.ID(),
		SourceCardID: tr.SourceCardID(),
		TargetCardID: tr.TargetCardID(),
		Amount:       tr.Amount().InexactFloat64(),
		Currency:     tr.Currency(),
		CreatedAt:    tr.CreatedAt().Format(time.RFC3339),
		Description:  tr.Description(),
	}
}

type BlockRequestResponse struct {
	ID          int64   `json:"id"`
	CardID      int64   `json:"card_id"`
	RequestedBy int64   `json:"requested_by"`
	RequestedAt string  `json:"requested_at"`
	Status      string  `json:"status"`
	ProcessedBy *int64  `json:"processed_by,omitempty"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

func NewBlockRequestResponse(req *blockrequests.BlockRequest) BlockRequestResponse {
	resp := BlockRequestResponse{
		ID:          req.ID(),
		CardID:      req.CardID(),
		RequestedBy: req.RequestedBy(),
		RequestedAt: req.RequestedAt().Format(time.RFC3339),
		Status:      req.Status().String(),
		ProcessedBy: req.ProcessedBy(),
	}

	if at := req.ProcessedAt(); at != nil {
		processedAt := at.Format(time.RFC3339)
		resp.ProcessedAt = &processedAt
	}

	return resp
}

// PageResponse wraps a listing with its paging parameters.
type PageResponse[T any] struct {
	Items   []T    `json:"items"`
	Page    int    `json:"page"`
	Size    int    `json:"size"`
	SortBy  string `json:"sort_by"`
	SortDir string `json:"sort_dir"`
}

type UserWithBalanceResponse struct {
	UserResponse
	Balance float64 `json:"balance"`
}
