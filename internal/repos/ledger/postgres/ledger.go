package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/google/uuid"
)

var _ ledger.Ledger = (*ledgerRepo)(nil)

type ledgerRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Insert(tx *sql.Tx, rec ledger.Record) error {
	_, err := tx.Exec(`
		INSERT INTO credit_ledger (transaction_id, user_id, kind, amount, reference)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.TransactionID, rec.UserID, string(rec.Kind), rec.Amount, rec.Reference)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return ledger.ErrDuplicateTransaction
		}

		return fmt.Errorf("insert ledger record: %w", err)
	}

	return nil
}

// ListByUser returns the newest records first.
func (r *ledgerRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transaction_id, user_id, kind, amount, reference, created_at
		FROM credit_ledger
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []ledger.Record

	for rows.Next() {
		var (
			rec  ledger.Record
			kind string
		)

		err = rows.Scan(&rec.ID, &rec.TransactionID, &rec.UserID, &kind, &rec.Amount, &rec.Reference, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}

		rec.Kind = ledger.Kind(kind)
		out = append(out, rec)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}

	return out, nil
}
