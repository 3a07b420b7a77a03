package handlers

import (
	"net/http"

	"github.com/andymarkow/bankcards/internal/banking"
	"github.com/andymarkow/bankcards/internal/server/models"
	"github.com/andymarkow/bankcards/internal/storage"
)

func (h *Handlers) GetUserCards(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	page, ok := h.parsePage(w, r, storage.CardSortFields)
	if !ok {
		return
	}

	list, err := h.svc.Cards.ListByOwner(r.Context(), id.UserID, page)
	if err != nil {
		h.handleServiceError(w, "cards.ListByOwner()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, newPageResponse(mapSlice(list, models.NewCardResponse), page))
}

func (h *Handlers) GetUserCard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	cardID, ok := h.urlParamID(w, r, "cardId")
	if !ok {
		return
	}

	card, err := h.svc.Cards.GetOwned(r.Context(), cardID, id.UserID)
	if err != nil {
		h.handleServiceError(w, "cards.GetOwned()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewCardResponse(card))
}

func (h *Handlers) CreateBlockRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	cardID, ok := h.urlParamID(w, r, "cardId")
	if !ok {
		return
	}

	req, err := h.svc.BlockRequests.Submit(r.Context(), cardID, id.UserID)
	if err != nil {
		h.handleServiceError(w, "blockRequests.Submit()", err)

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.NewBlockRequestResponse(req))
}

func (h *Handlers) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var payload models.TransferRequest

	if !h.decodeRequest(w, r, &payload) {
		return
	}

	tr, err := h.svc.Ledger.Transfer(r.Context(), banking.TransferRequest{
		SourceCardID: payload.SourceCardID,
		TargetCardID: payload.TargetCardID,
		Amount:       payload.Amount,
		Description:  payload.Description,
	}, id.UserID)
	if err != nil {
		h.handleServiceError(w, "ledger.Transfer()", err)

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.NewTransferResponse(tr))
}

func (h *Handlers) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	balance, err := h.svc.Users.Balance(r.Context(), id.UserID)
	if err != nil {
		h.handleServiceError(w, "users.Balance()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.BalanceResponse{
		UserID:  id.UserID,
		Balance: balance.InexactFloat64(),
	})
}

func (h *Handlers) GetCardTransfers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	cardID, ok := h.urlParamID(w, r, "cardId")
	if !ok {
		return
	}

	page, ok := h.parsePage(w, r, storage.TransferSortFields)
	if !ok {
		return
	}

	list, err := h.svc.Ledger.History(r.Context(), cardID, id.UserID, page)
	if err != nil {
		h.handleServiceError(w, "ledger.History()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, newPageResponse(mapSlice(list, models.NewTransferResponse), page))
}
