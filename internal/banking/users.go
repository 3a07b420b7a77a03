package banking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/shopspring/decimal"
)

type Users struct {
	log   *slog.Logger
	users storage.UserStorage
	cards storage.CardStorage
}

func NewUsers(usrs storage.UserStorage, crds storage.CardStorage, opts ...Option) *Users {
	cfg := newConfig(opts...)

	return &Users{
		log:   cfg.logger.With(slog.String("module", "users")),
		users: usrs,
		cards: crds,
	}
}

func (u *Users) Create(ctx context.Context, username, password string, role users.Role) (*users.User, error) {
	usr, err := users.NewUser(username, password, role)
	if err != nil {
		return nil, fmt.Errorf("users.NewUser: %w", err)
	}

	if err := u.users.CreateUser(ctx, usr); err != nil {
		return nil, fmt.Errorf("storage.CreateUser: %w", err)
	}

	u.log.Info("User created", slog.Int64("user_id", usr.ID()), slog.String("role", usr.Role().String()))

	return usr, nil
}

// EnsureAdmin creates the admin account unless the username is taken.
func (u *Users) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := u.Create(ctx, username, password, users.RoleAdmin)
	if err != nil && !errors.Is(err, storage.ErrUserAlreadyExists) {
		return err
	}

	return nil
}

// Authenticate checks the credentials and returns the active user.
func (u *Users) Authenticate(ctx context.Context, username, password string) (*users.User, error) {
	usr, err := u.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("storage.GetUserByUsername: %w", err)
	}

	if err := usr.CheckPassword(password); err != nil {
		if errors.Is(err, users.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("usr.CheckPassword: %w", err)
	}

	if !usr.IsActive() {
		return nil, ErrUserInactive
	}

	return usr, nil
}

func (u *Users) Get(ctx context.Context, id int64) (*users.User, error) {
	usr, err := u.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetUser: %w", err)
	}

	return usr, nil
}

func (u *Users) List(ctx context.Context, page storage.Page) ([]*users.User, error) {
	list, err := u.users.ListUsers(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("storage.ListUsers: %w", err)
	}

	return list, nil
}

func (u *Users) Activate(ctx context.Context, id int64) (*users.User, error) {
	return u.update(ctx, id, (*users.User).Activate)
}

func (u *Users) Deactivate(ctx context.Context, id int64) (*users.User, error) {
	return u.update(ctx, id, (*users.User).Deactivate)
}

func (u *Users) SetRole(ctx context.Context, id int64, role users.Role) (*users.User, error) {
	return u.update(ctx, id, func(usr *users.User) error {
		return usr.SetRole(role)
	})
}

func (u *Users) update(ctx context.Context, id int64, fn func(usr *users.User) error) (*users.User, error) {
	usr, err := u.users.UpdateUser(ctx, id, fn)
	if err != nil {
		return nil, fmt.Errorf("storage.UpdateUser: %w", err)
	}

	return usr, nil
}

// Balance returns the total balance over all cards of the user.
func (u *Users) Balance(ctx context.Context, id int64) (decimal.Decimal, error) {
	if _, err := u.users.GetUser(ctx, id); err != nil {
		return decimal.Zero, fmt.Errorf("storage.GetUser: %w", err)
	}

	sum, err := u.cards.SumBalanceByOwner(ctx, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("storage.SumBalanceByOwner: %w", err)
	}

	return sum, nil
}
