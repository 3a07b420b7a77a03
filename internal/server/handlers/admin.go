package handlers

import (
	"log/slog"
	"net/http"

	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/andymarkow/bankcards/internal/errmsg"
	"github.com/andymarkow/bankcards/internal/server/models"
	"github.com/andymarkow/bankcards/internal/storage"
)

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload models.CreateUserRequest

	if !h.decodeRequest(w, r, &payload) {
		return
	}

	role := users.RoleUser

	if payload.Role != "" {
		var err error

		role, err = users.ParseRole(payload.Role)
		if err != nil {
			h.handleServiceError(w, "users.ParseRole()", err)

			return
		}
	}

	usr, err := h.svc.Users.Create(r.Context(), payload.Username, payload.Password, role)
	if err != nil {
		h.handleServiceError(w, "users.Create()", err)

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.NewUserResponse(usr))
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, ok := h.parsePage(w, r, storage.UserSortFields)
	if !ok {
		return
	}

	list, err := h.svc.Users.List(r.Context(), page)
	if err != nil {
		h.handleServiceError(w, "users.List()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, newPageResponse(mapSlice(list, models.NewUserResponse), page))
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.urlParamID(w, r, "userId")
	if !ok {
		return
	}

	usr, err := h.svc.Users.Get(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, "users.Get()", err)

		return
	}

	balance, err := h.svc.Users.Balance(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, "users.Balance()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.UserWithBalanceResponse{
		UserResponse: models.NewUserResponse(usr),
		Balance:      balance.InexactFloat64(),
	})
}

func (h *Handlers) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.updateUser(w, r, "users.Activate()", func(userID int64) (*users.User, error) {
		return h.svc.Users.Activate(r.Context(), userID)
	})
}

func (h *Handlers) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.updateUser(w, r, "users.Deactivate()", func(userID int64) (*users.User, error) {
		return h.svc.Users.Deactivate(r.Context(), userID)
	})
}

func (h *Handlers) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var payload models.SetRoleRequest

	userID, ok := h.urlParamID(w, r, "userId")
	if !ok {
		return
	}

	if !h.decodeRequest(w, r, &payload) {
		return
	}

	role, err := users.ParseRole(payload.Role)
	if err != nil {
		h.handleServiceError(w, "users.ParseRole()", err)

		return
	}

	usr, err := h.svc.Users.SetRole(r.Context(), userID, role)
	if err != nil {
		h.handleServiceError(w, "users.SetRole()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewUserResponse(usr))
}

func (h *Handlers) updateUser(
	w http.ResponseWriter, r *http.Request, call string, fn func(userID int64) (*users.User, error),
) {
	userID, ok := h.urlParamID(w, r, "userId")
	if !ok {
		return
	}

	usr, err := fn(userID)
	if err != nil {
		h.handleServiceError(w, call, err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewUserResponse(usr))
}

func (h *Handlers) IssueCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.urlParamID(w, r, "userId")
	if !ok {
		return
	}

	card, err := h.svc.Cards.Issue(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, "cards.Issue()", err)

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.NewCardResponse(card))
}

func (h *Handlers) ListCards(w http.ResponseWriter, r *http.Request) {
	page, ok := h.parsePage(w, r, storage.CardSortFields)
	if !ok {
		return
	}

	list, err := h.svc.Cards.List(r.Context(), page)
	if err != nil {
		h.handleServiceError(w, "cards.List()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, newPageResponse(mapSlice(list, models.NewCardResponse), page))
}

func (h *Handlers) BlockCard(w http.ResponseWriter, r *http.Request) {
	h.updateCard(w, r, "cards.Block()", func(cardID int64) (*cards.Card, error) {
		return h.svc.Cards.Block(r.Context(), cardID)
	})
}

func (h *Handlers) ActivateCard(w http.ResponseWriter, r *http.Request) {
	h.updateCard(w, r, "cards.Activate()", func(cardID int64) (*cards.Card, error) {
		return h.svc.Cards.Activate(r.Context(), cardID)
	})
}

func (h *Handlers) updateCard(
	w http.ResponseWriter, r *http.Request, call string, fn func(cardID int64) (*cards.Card, error),
) {
	cardID, ok := h.urlParamID(w, r, "cardId")
	if !ok {
		return
	}

	card, err := fn(cardID)
	if err != nil {
		h.handleServiceError(w, call, err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewCardResponse(card))
}

func (h *Handlers) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := h.urlParamID(w, r, "cardId")
	if !ok {
		return
	}

	if err := h.svc.Cards.Delete(r.Context(), cardID); err != nil {
		h.handleServiceError(w, "cards.Delete()", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBlockRequests accepts repeated status query parameters as a filter.
func (h *Handlers) ListBlockRequests(w http.ResponseWriter, r *http.Request) {
	page, ok := h.parsePage(w, r, storage.BlockRequestSortFields)
	if !ok {
		return
	}

	var statuses []blockrequests.Status

	for _, raw := range r.URL.Query()["status"] {
		status, err := blockrequests.ParseStatus(raw)
		if err != nil {
			h.log.Info("blockrequests.ParseStatus()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestParamInvalid)

			return
		}

		statuses = append(statuses, status)
	}

	list, err := h.svc.BlockRequests.List(r.Context(), page, statuses...)
	if err != nil {
		h.handleServiceError(w, "blockRequests.List()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, newPageResponse(mapSlice(list, models.NewBlockRequestResponse), page))
}

func (h *Handlers) ApproveBlockRequest(w http.ResponseWriter, r *http.Request) {
	h.decideBlockRequest(w, r, "blockRequests.Approve()", func(id int64) (*blockrequests.BlockRequest, error) {
		return h.svc.BlockRequests.Approve(r.Context(), id)
	})
}

func (h *Handlers) DeclineBlockRequest(w http.ResponseWriter, r *http.Request) {
	h.decideBlockRequest(w, r, "blockRequests.Decline()", func(id int64) (*blockrequests.BlockRequest, error) {
		return h.svc.BlockRequests.Decline(r.Context(), id)
	})
}

func (h *Handlers) decideBlockRequest(
	w http.ResponseWriter, r *http.Request, call string,
	fn func(id int64) (*blockrequests.BlockRequest, error),
) {
	requestID, ok := h.urlParamID(w, r, "requestId")
	if !ok {
		return
	}

	req, err := fn(requestID)
	if err != nil {
		h.handleServiceError(w, call, err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewBlockRequestResponse(req))
}
