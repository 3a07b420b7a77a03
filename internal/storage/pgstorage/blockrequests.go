package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andymarkow/bankcards/internal/domain/blockrequests"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/andymarkow/bankcards/internal/storage/dbmodels"
	"github.com/lib/pq"
)

const blockRequestColumns = `id, card_id, requested_by, requested_at, status, processed_by, processed_at`

func scanBlockRequest(row rowScanner) (*dbmodels.BlockRequest, error) {
	dbReq := new(dbmodels.BlockRequest)

	if err := row.Scan(
		&dbReq.ID,
		&dbReq.CardID,
		&dbReq.RequestedBy,
		&dbReq.RequestedAt,
		&dbReq.Status,
		&dbReq.ProcessedBy,
		&dbReq.ProcessedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return dbReq, nil
}

func (s *Storage) CreateBlockRequest(ctx context.Context, req *blockrequests.BlockRequest) error {
	dbReq := dbmodels.BlockRequestFromDomain(req)

	err := WithRetry(func() error {
		row := s.db.QueryRowContext(ctx,
			`INSERT INTO card_block_requests (card_id, requested_by, requested_at, status)`+
				` VALUES ($1, $2, $3, $4) RETURNING id`,
			dbReq.CardID, dbReq.RequestedBy, dbReq.RequestedAt, dbReq.Status,
		)

		if err := row.Scan(&dbReq.ID); err != nil {
			if isForeignKeyViolation(err) {
				return storage.ErrCardNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	req.SetID(dbReq.ID)

	return nil
}

func (s *Storage) GetBlockRequest(ctx context.Context, id int64) (*blockrequests.BlockRequest, error) {
	var dbReq *dbmodels.BlockRequest

	err := WithRetry(func() error {
		var err error

		dbReq, err = scanBlockRequest(s.db.QueryRowContext(ctx,
			`SELECT `+blockRequestColumns+` FROM card_block_requests WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrBlockRequestNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	req, err := dbReq.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("dbReq.ToDomain: %w", err)
	}

	return req, nil
}

func (s *Storage) ListBlockRequests(
	ctx context.Context, page storage.Page, statuses ...blockrequests.Status,
) ([]*blockrequests.BlockRequest, error) {
	dbReqs := make([]*dbmodels.BlockRequest, 0)

	err := WithRetry(func() error {
		dbReqs = dbReqs[:0]

		query := `SELECT ` + blockRequestColumns + ` FROM card_block_requests`
		args := make([]any, 0, 3)

		if len(statuses) > 0 {
			filter := make([]string, 0, len(statuses))
			for _, status := range statuses {
				filter = append(filter, status.String())
			}

			query += ` WHERE status = ANY($1)`
			args = append(args, pq.Array(filter))
		}

		query += fmt.Sprintf(` %s LIMIT $%d OFFSET $%d`, page.OrderBy(), len(args)+1, len(args)+2)
		args = append(args, page.Size, page.Offset())

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbReq, err := scanBlockRequest(rows)
			if err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbReqs = append(dbReqs, dbReq)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]*blockrequests.BlockRequest, 0, len(dbReqs))

	for _, dbReq := range dbReqs {
		req, err := dbReq.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("dbReq.ToDomain: %w", err)
		}

		result = append(result, req)
	}

	return result, nil
}

func (s *Storage) UpdateBlockRequest(
	ctx context.Context, id int64, fn func(req *blockrequests.BlockRequest) error,
) (*blockrequests.BlockRequest, error) {
	var req *blockrequests.BlockRequest

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		dbReq, err := scanBlockRequest(tx.QueryRowContext(ctx,
			`SELECT `+blockRequestColumns+` FROM card_block_requests WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrBlockRequestNotFound
			}

			return fmt.Errorf("tx.QueryRowContext: %w", err)
		}

		req, err = dbReq.ToDomain()
		if err != nil {
			return fmt.Errorf("dbReq.ToDomain: %w", err)
		}

		if err := fn(req); err != nil {
			return err
		}

		updated := dbmodels.BlockRequestFromDomain(req)

		if _, err := tx.ExecContext(ctx,
			`UPDATE card_block_requests SET status = $1, processed_by = $2, processed_at = $3 WHERE id = $4`,
			updated.Status, updated.ProcessedBy, updated.ProcessedAt, id,
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

	return req, nil
}
