//nolint:wrapcheck
package users

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameEmpty      = errors.New("username is empty")
	ErrPasswordEmpty      = errors.New("user password is empty")
	ErrRoleInvalid        = errors.New("user role is invalid")
	ErrAlreadyActive      = errors.New("user already active")
	ErrAlreadyDeactivated = errors.New("user already deactivated")
	ErrAlreadyHasRole     = errors.New("user already has this role")
	ErrPasswordMismatch   = errors.New("user password mismatch")
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) String() string {
	return string(r)
}

func ParseRole(role string) (Role, error) {
	switch Role(strings.ToUpper(role)) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrRoleInvalid, role)
	}
}

type User struct {
	id           int64
	username     string
	passwordHash string
	role         Role
	active       bool
}

// NewUser creates an active user and hashes the password.
func NewUser(username, password string, role Role) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if _, err := ParseRole(role.String()); err != nil {
		return nil, err
	}

	passwordHash, err := getPasswordHash(password)
	if err != nil {
		return nil, fmt.Errorf("getPasswordHash: %w", err)
	}

	return &User{
		username:     username,
		passwordHash: passwordHash,
		role:         role,
		active:       true,
	}, nil
}

// RestoreUser rebuilds a user from stored fields.
func RestoreUser(id int64, username, passwordHash string, role Role, active bool) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	if _, err := ParseRole(role.String()); err != nil {
		return nil, err
	}

	return &User{
		id:           id,
		username:     username,
		passwordHash: passwordHash,
		role:         role,
		active:       active,
	}, nil
}

func (u *User) ID() int64 {
	return u.id
}

func (u *User) SetID(id int64) {
	u.id = id
}

func (u *User) Username() string {
	return u.username
}

func (u *User) PasswordHash() string {
	return u.passwordHash
}

func (u *User) Role() Role {
	return u.role
}

func (u *User) IsActive() bool {
	return u.active
}

func (u *User) IsAdmin() bool {
	return u.role == RoleAdmin
}

func (u *User) Activate() error {
	if u.active {
		return ErrAlreadyActive
	}

	u.active = true

	return nil
}

func (u *User) Deactivate() error {
	if !u.active {
		return ErrAlreadyDeactivated
	}

	u.active = false

	return nil
}

func (u *User) SetRole(role Role) error {
	if _, err := ParseRole(role.String()); err != nil {
		return err
	}

	if u.role == role {
		return ErrAlreadyHasRole
	}

	u.role = role

	return nil
}

// CheckPassword compares password with the stored hash.
func (u *User) CheckPassword(password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}

		return fmt.Errorf("bcrypt.CompareHashAndPassword: %w", err)
	}

	return nil
}

func getPasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	return string(hash), nil
}

func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameEmpty
	}

	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordEmpty
	}

	return nil
}
