package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/andymarkow/bankcards/internal/storage/dbmodels"
	"github.com/shopspring/decimal"
)

const cardColumns = `id, number_enc, number_hash, owner_id, expires_at, balance, status, created_at, updated_at`

func scanCard(row rowScanner) (*dbmodels.Card, error) {
	dbCard := new(dbmodels.Card)

	if err := row.Scan(
		&dbCard.ID,
		&dbCard.NumberEnc,
		&dbCard.NumberHash,
		&dbCard.OwnerID,
		&dbCard.ExpiresAt,
		&dbCard.Balance,
		&dbCard.Status,
		&dbCard.CreatedAt,
		&dbCard.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return dbCard, nil
}

func (s *Storage) CreateCard(ctx context.Context, card *cards.Card) error {
	dbCard, err := dbmodels.CardFromDomain(s.codec, card)
	if err != nil {
		return fmt.Errorf("dbmodels.CardFromDomain: %w", err)
	}

	err = WithRetry(func() error {
		row := s.db.QueryRowContext(ctx,
			`INSERT INTO cards (number_enc, number_hash, owner_id, expires_at, balance, status, created_at, updated_at)`+
				` VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			dbCard.NumberEnc, dbCard.NumberHash, dbCard.OwnerID, dbCard.ExpiresAt,
			dbCard.Balance, dbCard.Status, dbCard.CreatedAt, dbCard.UpdatedAt,
		)

		if err := row.Scan(&dbCard.ID); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrCardNumberAlreadyExists
			}

			if isForeignKeyViolation(err) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	card.SetID(dbCard.ID)

	return nil
}

func (s *Storage) GetCard(ctx context.Context, id int64) (*cards.Card, error) {
	var dbCard *dbmodels.Card

	err := WithRetry(func() error {
		var err error

		dbCard, err = scanCard(s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrCardNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	card, err := dbCard.ToDomain(s.codec)
	if err != nil {
		return nil, fmt.Errorf("dbCard.ToDomain: %w", err)
	}

	return card, nil
}

func (s *Storage) ListCards(ctx context.Context, page storage.Page) ([]*cards.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards ` + page.OrderBy() + ` LIMIT $1 OFFSET $2`

	return s.listCards(ctx, query, page.Size, page.Offset())
}

func (s *Storage) ListCardsByOwner(ctx context.Context, ownerID int64, page storage.Page) ([]*cards.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 ` + page.OrderBy() + ` LIMIT $2 OFFSET $3`

	return s.listCards(ctx, query, ownerID, page.Size, page.Offset())
}

func (s *Storage) listCards(ctx context.Context, query string, args ...any) ([]*cards.Card, error) {
	dbCards := make([]*dbmodels.Card, 0)

	err := WithRetry(func() error {
		dbCards = dbCards[:0]

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbCard, err := scanCard(rows)
			if err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbCards = append(dbCards, dbCard)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]*cards.Card, 0, len(dbCards))

	for _, dbCard := range dbCards {
		card, err := dbCard.ToDomain(s.codec)
		if err != nil {
			return nil, fmt.Errorf("dbCard.ToDomain: %w", err)
		}

		result = append(result, card)
	}

	return result, nil
}

func (s *Storage) UpdateCard(ctx context.Context, id int64, fn func(card *cards.Card) error) (*cards.Card, error) {
	var card *cards.Card

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		dbCard, err := scanCard(tx.QueryRowContext(ctx,
			`SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrCardNotFound
			}

			return fmt.Errorf("tx.QueryRowContext: %w", err)
		}

		card, err = dbCard.ToDomain(s.codec)
		if err != nil {
			return fmt.Errorf("dbCard.ToDomain: %w", err)
		}

		if err := fn(card); err != nil {
			return err
		}

		if err := updateCardState(ctx, tx, card); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return card, nil
}

func updateCardState(ctx context.Context, tx *sql.Tx, card *cards.Card) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE cards SET balance = $1, status = $2, updated_at = $3 WHERE id = $4`,
		card.Balance(), card.Status().String(), card.UpdatedAt(), card.ID(),
	); err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	return nil
}

// DeleteCard removes the card; its transfers and block requests go with it.
func (s *Storage) DeleteCard(ctx context.Context, id int64) error {
	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			return storage.ErrCardNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) SumBalanceByOwner(ctx context.Context, ownerID int64) (decimal.Decimal, error) {
	sum := decimal.Zero

	err := WithRetry(func() error {
		row := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(balance), 0) FROM cards WHERE owner_id = $1`, ownerID)

		if err := row.Scan(&sum); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return sum, nil
}

func (s *Storage) ExpireCards(ctx context.Context, now time.Time) (int, error) {
	var expired int64

	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE cards SET status = $1, updated_at = $2 WHERE status <> $1 AND expires_at <= $2`,
			cards.StatusExpired.String(), now,
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		expired, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return int(expired), nil
}
