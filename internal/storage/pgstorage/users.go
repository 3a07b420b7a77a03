package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andymarkow/bankcards/internal/domain/users"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/andymarkow/bankcards/internal/storage/dbmodels"
)

const userColumns = `id, username, password_hash, role, active`

func scanUser(row rowScanner) (*dbmodels.User, error) {
	dbUser := new(dbmodels.User)

	if err := row.Scan(
		&dbUser.ID, &dbUser.Username, &dbUser.PasswordHash, &dbUser.Role, &dbUser.Active,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return dbUser, nil
}

func (s *Storage) CreateUser(ctx context.Context, usr *users.User) error {
	dbUser := dbmodels.UserFromDomain(usr)

	err := WithRetry(func() error {
		query := `INSERT INTO users (username, password_hash, role, active) VALUES ($1, $2, $3, $4) RETURNING id`

		row := s.db.QueryRowContext(ctx, query, dbUser.Username, dbUser.PasswordHash, dbUser.Role, dbUser.Active)

		if err := row.Scan(&dbUser.ID); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrUserAlreadyExists
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	usr.SetID(dbUser.ID)

	return nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*users.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*users.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*users.User, error) {
	var dbUser *dbmodels.User

	err := WithRetry(func() error {
		var err error

		dbUser, err = scanUser(s.db.QueryRowContext(ctx, query, arg))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	usr, err := dbUser.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("dbUser.ToDomain: %w", err)
	}

	return usr, nil
}

func (s *Storage) ListUsers(ctx context.Context, page storage.Page) ([]*users.User, error) {
	dbUsers := make([]*dbmodels.User, 0)

	err := WithRetry(func() error {
		dbUsers = dbUsers[:0]

		query := `SELECT ` + userColumns + ` FROM users ` + page.OrderBy() + ` LIMIT $1 OFFSET $2`

		rows, err := s.db.QueryContext(ctx, query, page.Size, page.Offset())
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbUser, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbUsers = append(dbUsers, dbUser)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]*users.User, 0, len(dbUsers))

	for _, dbUser := range dbUsers {
		usr, err := dbUser.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("dbUser.ToDomain: %w", err)
		}

		result = append(result, usr)
	}

	return result, nil
}

func (s *Storage) UpdateUser(ctx context.Context, id int64, fn func(usr *users.User) error) (*users.User, error) {
	var usr *users.User

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		dbUser, err := scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("tx.QueryRowContext: %w", err)
		}

		usr, err = dbUser.ToDomain()
		if err != nil {
			return fmt.Errorf("dbUser.ToDomain: %w", err)
		}

		if err := fn(usr); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET role = $1, active = $2 WHERE id = $3`,
			usr.Role().String(), usr.IsActive(), id,
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return usr, nil
}
