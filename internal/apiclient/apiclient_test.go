package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andymarkow/bankcards/internal/httpclient"
	"github.com/andymarkow/bankcards/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer access-token"
	}

	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Password != "pw" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})

			return
		}

		writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: "access-token", TokenType: "Bearer"})
	})

	r.Get("/api/users/balance", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		writeJSON(w, http.StatusOK, models.BalanceResponse{UserID: 1, Balance: 150.25})
	})

	r.Get("/api/users/cards", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.PageResponse[models.CardResponse]{
			Items: []models.CardResponse{{ID: 1, Number: "**** **** **** 1111", Status: "ACTIVE"}},
			Page:  1,
			Size:  5,
		})
	})

	r.Post("/api/users/transfer", func(w http.ResponseWriter, r *http.Request) {
		var req models.TransferRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Amount.GreaterThan(decimal.NewFromInt(100)) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "card balance not enough funds"})

			return
		}

		writeJSON(w, http.StatusCreated, models.TransferResponse{
			ID: 9, SourceCardID: req.SourceCardID, TargetCardID: req.TargetCardID,
			Amount: req.Amount.InexactFloat64(), Currency: "RUB",
		})
	})

	r.Post("/api/users/request/{cardId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, models.BlockRequestResponse{ID: 3, CardID: 42, Status: "PENDING"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	srv := newTestServer(t)

	return New(srv.URL, WithClient(httpclient.New(httpclient.WithRetryCount(0), httpclient.WithTimeout(5*time.Second))))
}

func TestClient_Login(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.Balance(ctx)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = client.Login(ctx, "alice", "wrong")

	var apiErr *APIError

	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid username or password", apiErr.Message)

	tokens, err := client.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "access-token", tokens.AccessToken)
	assert.Equal(t, "access-token", client.Token())

	balance, err := client.Balance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 150.25, balance.Balance, 0.001)
}

func TestClient_Operations(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	client.token = "access-token"

	page, err := client.Cards(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "**** **** **** 1111", page.Items[0].Number)

	tr, err := client.Transfer(ctx, 1, 2, decimal.NewFromInt(50), "rent")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tr.TargetCardID)
	assert.InDelta(t, 50, tr.Amount, 0.001)

	_, err = client.Transfer(ctx, 1, 2, decimal.NewFromInt(500), "")

	var apiErr *APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	req, err := client.RequestBlock(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", req.Status)
}
