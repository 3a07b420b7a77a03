package router

import (
	"log/slog"

	"github.com/andymarkow/bankcards/internal/auth"
	"github.com/andymarkow/bankcards/internal/banking"
	"github.com/andymarkow/bankcards/internal/server/handlers"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type Options struct {
	log      *slog.Logger
	secret   []byte
	authOpts []auth.Option
}

func NewRouter(store storage.Storage, svc *banking.Service, opts ...Option) chi.Router {
	r := chi.NewRouter()

	rOpts := Options{
		log:    slog.Default(),
		secret: []byte(""),
	}

	for _, opt := range opts {
		opt(&rOpts)
	}

	tokenAuth := jwtauth.New("HS256", rOpts.secret, nil)

	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Logger,
	)

	h := handlers.NewHandlers(store, svc,
		handlers.WithLogger(rOpts.log),
		handlers.WithAuth(auth.NewJWTAuth(rOpts.secret, rOpts.authOpts...)),
	)

	r.Get("/ping", h.Ping)

	r.Group(func(r chi.Router) {
		r.Post("/api/auth/login", h.Login)
		r.Post("/api/auth/refresh", h.Refresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
			h.Identify,
		)

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/cards", h.GetUserCards)
			r.Get("/cards/{cardId}", h.GetUserCard)
			r.Get("/cards/{cardId}/transfers", h.GetCardTransfers)
			r.Post("/request/{cardId}", h.CreateBlockRequest)
			r.Post("/transfer", h.CreateTransfer)
			r.Get("/balance", h.GetUserBalance)
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(h.RequireAdmin)

			r.Post("/users", h.CreateUser)
			r.Get("/users", h.ListUsers)
			r.Get("/users/{userId}", h.GetUser)
			r.Patch("/users/{userId}/activate", h.ActivateUser)
			r.Patch("/users/{userId}/deactivate", h.DeactivateUser)
			r.Patch("/users/{userId}/role", h.SetUserRole)
			r.Post("/users/{userId}/cards", h.IssueCard)

			r.Get("/cards", h.ListCards)
			r.Patch("/cards/{cardId}/block", h.BlockCard)
			r.Patch("/cards/{cardId}/activate", h.ActivateCard)
			r.Delete("/cards/{cardId}", h.DeleteCard)

			r.Get("/requests", h.ListBlockRequests)
			r.Patch("/requests/{requestId}/approve", h.ApproveBlockRequest)
			r.Patch("/requests/{requestId}/decline", h.DeclineBlockRequest)
		})
	})

	return r
}

type Option func(r *Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.log = logger
	}
}

func WithSecret(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}

// WithAuthOptions passes token lifetimes and issuer to the token minter.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(o *Options) {
		o.authOpts = append(o.authOpts, opts...)
	}
}
