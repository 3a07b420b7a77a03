package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/andymarkow/bankcards/internal/auth"
	"github.com/andymarkow/bankcards/internal/banking"
	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/andymarkow/bankcards/internal/errmsg"
	"github.com/andymarkow/bankcards/internal/server/models"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/go-chi/jwtauth/v5"
)

type ctxKey struct{}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID int64
	Role   users.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == users.RoleAdmin
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)

	return id, ok
}

// Identify resolves the access-token subject to the stored user. Role and
// active flag come from storage so role changes and deactivation apply to
// tokens already issued.
func (h *Handlers) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			h.log.Info("jwtauth.FromContext()", slog.Any("error", err))
			handleError(w, errmsg.ErrUnauthorized)

			return
		}

		if typ, _ := claims[auth.ClaimType].(string); typ != string(auth.TokenTypeAccess) {
			handleError(w, errmsg.ErrUnauthorized)

			return
		}

		userID, err := strconv.ParseInt(token.Subject(), 10, 64)
		if err != nil {
			h.log.Info("strconv.ParseInt()", slog.Any("error", err))
			handleError(w, errmsg.ErrUnauthorized)

			return
		}

		usr, err := h.svc.Users.Get(r.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				h.log.Info("users.Get()", slog.Any("error", err))
				handleError(w, errmsg.ErrUnauthorized)

				return
			}

			h.handleServiceError(w, "users.Get()", err)

			return
		}

		if !usr.IsActive() {
			h.handleServiceError(w, "users.Get()", banking.ErrUserInactive)

			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), Identity{UserID: usr.ID(), Role: usr.Role()})))
	})
}

// RequireAdmin rejects callers without the ADMIN role.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			handleError(w, errmsg.ErrUnauthorized)

			return
		}

		if !id.IsAdmin() {
			handleError(w, errmsg.ErrForbidden)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) identity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		handleError(w, errmsg.ErrUnauthorized)
	}

	return id, ok
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var payload models.LoginRequest

	if !h.decodeRequest(w, r, &payload) {
		return
	}

	usr, err := h.svc.Users.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		h.handleServiceError(w, "users.Authenticate()", err)

		return
	}

	h.issueTokens(w, usr)
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload models.RefreshRequest

	if !h.decodeRequest(w, r, &payload) {
		return
	}

	claims, err := h.auth.ParseToken(payload.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		h.log.Info("auth.ParseToken()", slog.Any("error", err))
		handleError(w, errmsg.ErrUnauthorized)

		return
	}

	userID, err := claims.UserID()
	if err != nil {
		h.log.Info("claims.UserID()", slog.Any("error", err))
		handleError(w, errmsg.ErrUnauthorized)

		return
	}

	usr, err := h.svc.Users.Get(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, "users.Get()", err)

		return
	}

	if !usr.IsActive() {
		h.handleServiceError(w, "users.Get()", banking.ErrUserInactive)

		return
	}

	h.issueTokens(w, usr)
}

func (h *Handlers) issueTokens(w http.ResponseWriter, usr *users.User) {
	pair, err := h.auth.CreateTokenPair(usr.ID(), usr.Role().String())
	if err != nil {
		h.handleServiceError(w, "auth.CreateTokenPair()", err)

		return
	}

	w.Header().Set("Authorization", "Bearer "+pair.AccessToken)

	handleJSONResponse(w, http.StatusOK, models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    pair.ExpiresAt.Format(time.RFC3339),
	})
}
