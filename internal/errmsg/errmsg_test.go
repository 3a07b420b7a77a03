package errmsg

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/andymarkow/bankcards/internal/banking"
	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/transfers"
	"github.com/andymarkow/bankcards/internal/fieldcipher"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantMsg  string
	}{
		{fmt.Errorf("storage.GetCard: %w", storage.ErrCardNotFound), http.StatusNotFound, "card not found"},
		{banking.ErrNotOwner, http.StatusForbidden, "card is not owned by user"},
		{cards.ErrInsufficientBalance, http.StatusConflict, "card balance not enough funds"},
		{blockrequests.ErrAlreadyApproved, http.StatusConflict, "block request already approved"},
		{transfers.ErrAmountInvalid, http.StatusBadRequest, "transfer amount must be positive"},
		{fmt.Errorf("wrap: %w", storage.ErrInvalidPage), http.StatusBadRequest, "invalid page request"},
		{fieldcipher.ErrDecryption, http.StatusInternalServerError, "internal error"},
		{errors.New("pq: connection reset"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			got := FromError(tc.err)

			assert.Equal(t, tc.wantCode, got.Code)
			assert.Equal(t, tc.wantMsg, got.Error())
		})
	}
}
