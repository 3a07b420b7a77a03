package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/andymarkow/bankcards/internal/auth"
	"github.com/andymarkow/bankcards/internal/banking"
	"github.com/andymarkow/bankcards/internal/errmsg"
	"github.com/andymarkow/bankcards/internal/server/models"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	storage storage.Storage
	svc     *banking.Service
	log     *slog.Logger
	auth    *auth.JWTAuth
}

// NewHandlers returns a new Handlers instance.
func NewHandlers(store storage.Storage, svc *banking.Service, opts ...Option) *Handlers {
	handlers := &Handlers{
		storage: store,
		svc:     svc,
		log:     slog.Default(),
		auth:    auth.NewJWTAuth([]byte("")),
	}

	// Apply options
	for _, opt := range opts {
		opt(handlers)
	}

	return handlers
}

// Option is a functional option for Handlers.
type Option func(h *Handlers)

// WithLogger is a option for Handlers that sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.log = logger
	}
}

func WithAuth(auth *auth.JWTAuth) Option {
	return func(h *Handlers) {
		h.auth = auth
	}
}

type JSONResponse struct {
	Message any `json:"message,omitempty"`
	Error   any `json:"error,omitempty"`
}

func handleJSONResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err errmsg.HTTPError) {
	resp := &JSONResponse{
		Error: err.Error(),
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(err.Code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// handleServiceError logs err under the failed call and writes the mapped
// response. Internal details never reach the client.
func (h *Handlers) handleServiceError(w http.ResponseWriter, call string, err error) {
	httpErr := errmsg.FromError(err)

	if httpErr.Code >= http.StatusInternalServerError {
		h.log.Error(call, slog.Any("error", err))
	} else {
		h.log.Info(call, slog.Any("error", err))
	}

	handleError(w, httpErr)
}

func (h *Handlers) decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))

		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return false
		}

		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return false
	}

	return true
}

func (h *Handlers) urlParamID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		h.log.Info("strconv.ParseInt()", slog.String("param", key), slog.Any("error", err))
		handleError(w, errmsg.ErrRequestParamInvalid)

		return 0, false
	}

	return id, true
}

// parsePage reads page, size, sort and direction query parameters.
func (h *Handlers) parsePage(w http.ResponseWriter, r *http.Request, fields storage.SortFields) (storage.Page, bool) {
	query := r.URL.Query()

	number, size := 0, storage.DefaultPageSize

	for key, dst := range map[string]*int{"page": &number, "size": &size} {
		raw := query.Get(key)
		if raw == "" {
			continue
		}

		v, err := strconv.Atoi(raw)
		if err != nil {
			h.log.Info("strconv.Atoi()", slog.String("param", key), slog.Any("error", err))
			handleError(w, errmsg.ErrRequestParamInvalid)

			return storage.Page{}, false
		}

		*dst = v
	}

	page, err := storage.NewPage(number, size, query.Get("sort"), query.Get("direction"), fields)
	if err != nil {
		h.handleServiceError(w, "storage.NewPage()", err)

		return storage.Page{}, false
	}

	return page, true
}

func newPageResponse[T any](items []T, page storage.Page) models.PageResponse[T] {
	return models.PageResponse[T]{
		Items:   items,
		Page:    page.Number,
		Size:    page.Size,
		SortBy:  page.SortBy,
		SortDir: string(page.SortDir),
	}
}

func mapSlice[S, T any](items []S, fn func(S) T) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		result = append(result, fn(item))
	}

	return result
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("storage.Ping", slog.Any("error", err))
		handleError(w, errmsg.ErrInternal)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}
