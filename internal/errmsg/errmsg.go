package errmsg

import (
	"errors"
	"net/http"

	"github.com/andymarkow/bankcards/internal/banking"
	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/transfers"
	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/andymarkow/bankcards/internal/storage"
)

type HTTPError struct {
	Code    int
	Message error
}

func NewHTTPError(code int, message error) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return e.Message.Error()
}

var (
	ErrRequestPayloadEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is empty"),
	)

	ErrRequestPayloadInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is invalid"),
	)

	ErrRequestParamInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request parameter is invalid"),
	)

	ErrUnauthorized = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("unauthorized"),
	)

	ErrForbidden = NewHTTPError(
		http.StatusForbidden,
		errors.New("access denied"),
	)

	ErrInternal = NewHTTPError(
		http.StatusInternalServerError,
		errors.New("internal error"),
	)
)

// mappings is checked in order; the first sentinel matched with errors.Is
// decides the response.
var mappings = []struct {
	target error
	code   int
}{
	{storage.ErrUserNotFound, http.StatusNotFound},
	{storage.ErrCardNotFound, http.StatusNotFound},
	{storage.ErrBlockRequestNotFound, http.StatusNotFound},
	{storage.ErrUserAlreadyExists, http.StatusConflict},
	{storage.ErrInvalidPage, http.StatusBadRequest},

	{cards.ErrAlreadyBlocked, http.StatusConflict},
	{cards.ErrAlreadyActive, http.StatusConflict},
	{cards.ErrExpired, http.StatusConflict},
	{cards.ErrBlocked, http.StatusConflict},
	{cards.ErrInsufficientBalance, http.StatusConflict},
	{cards.ErrStatusInvalid, http.StatusBadRequest},

	{blockrequests.ErrAlreadyApproved, http.StatusConflict},
	{blockrequests.ErrAlreadyDenied, http.StatusConflict},
	{blockrequests.ErrStatusInvalid, http.StatusBadRequest},

	{users.ErrAlreadyActive, http.StatusConflict},
	{users.ErrAlreadyDeactivated, http.StatusConflict},
	{users.ErrAlreadyHasRole, http.StatusConflict},
	{users.ErrRoleInvalid, http.StatusBadRequest},
	{users.ErrUsernameEmpty, http.StatusBadRequest},
	{users.ErrPasswordEmpty, http.StatusBadRequest},

	{transfers.ErrAmountInvalid, http.StatusBadRequest},
	{transfers.ErrSameCard, http.StatusBadRequest},

	{banking.ErrNotOwner, http.StatusForbidden},
	{banking.ErrInvalidCredentials, http.StatusUnauthorized},
	{banking.ErrUserInactive, http.StatusForbidden},
	{banking.ErrCardNumberConflict, http.StatusConflict},
}

// FromError maps a business error to its response. Anything unknown becomes
// an opaque internal error.
func FromError(err error) HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return NewHTTPError(m.code, m.target)
		}
	}

	return ErrInternal
}
