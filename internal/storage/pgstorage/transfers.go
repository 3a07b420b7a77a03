package pgstorage

import (
	"context"
	"fmt"

	"github.com/andymarkow/bankcards/internal/domain/cards"
	"github.com/andymarkow/bankcards/internal/domain/transfers"
	"github.com/andymarkow/bankcards/internal/storage"
	"github.com/andymarkow/bankcards/internal/storage/dbmodels"
	"github.com/lib/pq"
)

const transferColumns = `id, source_card_id, target_card_id, amount, currency, created_at, description`

// ExecuteTransfer locks both card rows in ascending id order so concurrent
// transfers over the same cards serialize without deadlocking.
func (s *Storage) ExecuteTransfer(
	ctx context.Context, srcID, dstID int64, fn storage.TransferFunc,
) (*transfers.Transfer, error) {
	if srcID == dstID {
		return nil, transfers.ErrSameCard
	}

	var tr *transfers.Transfer

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		rows, err := tx.QueryContext(ctx,
			`SELECT `+cardColumns+` FROM cards WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
			pq.Array([]int64{srcID, dstID}),
		)
		if err != nil {
			return fmt.Errorf("tx.QueryContext: %w", err)
		}

		locked := make(map[int64]*dbmodels.Card, 2)

		for rows.Next() {
			dbCard, err := scanCard(rows)
			if err != nil {
				rows.Close()

				return fmt.Errorf("rows.Scan: %w", err)
			}

			locked[dbCard.ID] = dbCard
		}

		if err := rows.Err(); err != nil {
			rows.Close()

			return fmt.Errorf("rows.Err: %w", err)
		}

		rows.Close()

		src, dst, err := s.lockedPair(locked, srcID, dstID)
		if err != nil {
			return err
		}

		tr, err = fn(src, dst)
		if err != nil {
			return err
		}

		if err := updateCardState(ctx, tx, src); err != nil {
			return err
		}

		if err := updateCardState(ctx, tx, dst); err != nil {
			return err
		}

		dbTransfer := dbmodels.TransferFromDomain(tr)

		row := tx.QueryRowContext(ctx,
			`INSERT INTO transfers (source_card_id, target_card_id, amount, currency, created_at, description)`+
				` VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			dbTransfer.SourceCardID, dbTransfer.TargetCardID, dbTransfer.Amount,
			dbTransfer.Currency, dbTransfer.CreatedAt, dbTransfer.Description,
		)

		var id int64
		if err := row.Scan(&id); err != nil {
			return fmt.Errorf("tx.QueryRowContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		tr.SetID(id)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return tr, nil
}

func (s *Storage) lockedPair(locked map[int64]*dbmodels.Card, srcID, dstID int64) (*cards.Card, *cards.Card, error) {
	dbSrc, ok := locked[srcID]
	if !ok {
		return nil, nil, storage.ErrCardNotFound
	}

	dbDst, ok := locked[dstID]
	if !ok {
		return nil, nil, storage.ErrCardNotFound
	}

	src, err := dbSrc.ToDomain(s.codec)
	if err != nil {
		return nil, nil, fmt.Errorf("dbCard.ToDomain: %w", err)
	}

	dst, err := dbDst.ToDomain(s.codec)
	if err != nil {
		return nil, nil, fmt.Errorf("dbCard.ToDomain: %w", err)
	}

	return src, dst, nil
}

func (s *Storage) ListTransfersByCard(
	ctx context.Context, cardID int64, page storage.Page,
) ([]*transfers.Transfer, error) {
	dbTransfers := make([]*dbmodels.Transfer, 0)

	err := WithRetry(func() error {
		dbTransfers = dbTransfers[:0]

		query := `SELECT ` + transferColumns + ` FROM transfers WHERE source_card_id = $1 OR target_card_id = $1 ` +
			page.OrderBy() + ` LIMIT $2 OFFSET $3`

		rows, err := s.db.QueryContext(ctx, query, cardID, page.Size, page.Offset())
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbTransfer := new(dbmodels.Transfer)

			if err := rows.Scan(
				&dbTransfer.ID,
				&dbTransfer.SourceCardID,
				&dbTransfer.TargetCardID,
				&dbTransfer.Amount,
				&dbTransfer.Currency,
				&dbTransfer.CreatedAt,
				&dbTransfer.Description,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbTransfers = append(dbTransfers, dbTransfer)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]*transfers.Transfer, 0, len(dbTransfers))
	for _, dbTransfer := range dbTransfers {
		result = append(result, dbTransfer.ToDomain())
	}

	return result, nil
}
