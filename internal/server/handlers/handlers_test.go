package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/andymarkow/bankcards/internal/auth"
	"github.com/andymarkow/bankcards/internal/banking"
	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/andymarkow/bankcards/internal/fieldcipher"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/andymarkow/bankcards/internal/storage/inmemory"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlers() *Handlers {
	return NewHandlers(nil, nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func newServiceHandlers(t *testing.T) (*Handlers, *banking.Service) {
	t.Helper()

	codec, err := fieldcipher.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewStorage(inmemory.NewStorage(codec))
	svc := banking.NewService(store, banking.WithLogger(logger))

	return NewHandlers(store, svc, WithLogger(logger)), svc
}

func requestWithClaims(t *testing.T, claims map[string]any) *http.Request {
	t.Helper()

	token, _, err := jwtauth.New("HS256", []byte("secret"), nil).Encode(claims)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)

	return r.WithContext(jwtauth.NewContext(r.Context(), token, nil))
}

func TestIdentify(t *testing.T) {
	h, svc := newServiceHandlers(t)
	ctx := context.Background()

	admin, err := svc.Users.Create(ctx, "root", "pw", users.RoleAdmin)
	require.NoError(t, err)

	retired, err := svc.Users.Create(ctx, "retired", "pw", users.RoleUser)
	require.NoError(t, err)

	_, err = svc.Users.Deactivate(ctx, retired.ID())
	require.NoError(t, err)

	adminSub := strconv.FormatInt(admin.ID(), 10)

	var got Identity

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		claims map[string]any
		want   int
	}{
		{"access token", map[string]any{"sub": adminSub, auth.ClaimRole: "USER", auth.ClaimType: "access"}, http.StatusOK},
		{"refresh token", map[string]any{"sub": adminSub, auth.ClaimType: "refresh"}, http.StatusUnauthorized},
		{"bad subject", map[string]any{"sub": "seven", auth.ClaimType: "access"}, http.StatusUnauthorized},
		{"unknown user", map[string]any{"sub": "999", auth.ClaimType: "access"}, http.StatusUnauthorized},
		{
			"deactivated user",
			map[string]any{"sub": strconv.FormatInt(retired.ID(), 10), auth.ClaimType: "access"},
			http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			h.Identify(next).ServeHTTP(w, requestWithClaims(t, tc.claims))

			assert.Equal(t, tc.want, w.Code)
		})
	}

	// The stored role wins over the role claim.
	assert.Equal(t, Identity{UserID: admin.ID(), Role: users.RoleAdmin}, got)
}

func TestRequireAdmin(t *testing.T) {
	h := newTestHandlers()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for role, want := range map[users.Role]int{users.RoleAdmin: http.StatusOK, users.RoleUser: http.StatusForbidden} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(withIdentity(r.Context(), Identity{UserID: 1, Role: role}))

		w := httptest.NewRecorder()
		h.RequireAdmin(next).ServeHTTP(w, r)

		assert.Equal(t, want, w.Code, role)
	}

	w := httptest.NewRecorder()
	h.RequireAdmin(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParsePage(t *testing.T) {
	h := newTestHandlers()

	w := httptest.NewRecorder()

	page, ok := h.parsePage(w, httptest.NewRequest(http.MethodGet, "/?page=2&size=5&sort=balance&direction=desc", nil),
		storage.CardSortFields)
	require.True(t, ok)
	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 5, page.Size)
	assert.Equal(t, "balance", page.SortBy)

	w = httptest.NewRecorder()

	_, ok = h.parsePage(w, httptest.NewRequest(http.MethodGet, "/?size=many", nil), storage.CardSortFields)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
