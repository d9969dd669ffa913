package lottery

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/google/uuid"
)

var _ lottery.Lottery = (*lotteryRepo)(nil)

type lotteryRepo struct{ db *sql.DB }

func New(db *sql.DB) *lotteryRepo {
	return &lotteryRepo{db: db}
}

const entryColumns = `id, user_id, round_id, pack_number, selected_rarity, credits_used,
	payment_confirmed, checkout_session_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (lottery.Entry, error) {
	var (
		e    lottery.Entry
		tier string
	)

	err := row.Scan(&e.ID, &e.UserID, &e.RoundID, &e.PackNumber, &tier, &e.CreditsUsed,
		&e.PaymentConfirmed, &e.CheckoutSessionID, &e.CreatedAt)
	if err != nil {
		return lottery.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Rarity = rarity.Tier(tier)

	return e, nil
}

func (r *lotteryRepo) Insert(tx *sql.Tx, e lottery.Entry) (lottery.Entry, error) {
	out, err := scanEntry(tx.QueryRow(`
		INSERT INTO lottery_entries (id, user_id, round_id, pack_number, selected_rarity, credits_used)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+entryColumns,
		e.ID, e.UserID, e.RoundID, e.PackNumber, string(e.Rarity), e.CreditsUsed))
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return lottery.Entry{}, lottery.ErrDuplicateEntry
		}

		return lottery.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	return out, nil
}

// UpsertPaid records a checkout-confirmed entry; a redelivered webhook updates
// the same (user, round) row.
func (r *lotteryRepo) UpsertPaid(tx *sql.Tx, e lottery.Entry) (lottery.Entry, error) {
	out, err := scanEntry(tx.QueryRow(`
		INSERT INTO lottery_entries (id, user_id, round_id, pack_number, selected_rarity,
			credits_used, payment_confirmed, checkout_session_id)
		VALUES ($1, $2, $3, NULL, $4, 0, true, $5)
		ON CONFLICT (user_id, round_id) WHERE pack_number IS NULL DO UPDATE SET
			selected_rarity = EXCLUDED.selected_rarity,
			payment_confirmed = true,
			checkout_session_id = EXCLUDED.checkout_session_id
		RETURNING `+entryColumns,
		e.ID, e.UserID, e.RoundID, string(e.Rarity), e.CheckoutSessionID))
	if err != nil {
		return lottery.Entry{}, fmt.Errorf("upsert paid entry: %w", err)
	}

	return out, nil
}

func (r *lotteryRepo) EntriesForPack(tx *sql.Tx, roundID uuid.UUID, pack int) ([]lottery.Entry, error) {
	rows, err := tx.Query(`
		SELECT `+entryColumns+`
		FROM lottery_entries
		WHERE round_id = $1
		  AND (pack_number = $2 OR (pack_number IS NULL AND payment_confirmed))
		ORDER BY created_at, id
	`, roundID, pack)
	if err != nil {
		return nil, fmt.Errorf("query pack entries: %w", err)
	}
	defer rows.Close()

	var out []lottery.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate pack entries: %w", err)
	}

	return out, nil
}

func (r *lotteryRepo) Counts(ctx context.Context, roundID uuid.UUID) ([]lottery.Count, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pack_number, selected_rarity, COUNT(*)
		FROM lottery_entries
		WHERE round_id = $1
		  AND (pack_number IS NOT NULL OR payment_confirmed)
		GROUP BY pack_number, selected_rarity
		ORDER BY pack_number NULLS FIRST, selected_rarity
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("query entry counts: %w", err)
	}
	defer rows.Close()

	var out []lottery.Count

	for rows.Next() {
		var (
			c    lottery.Count
			tier string
		)

		err = rows.Scan(&c.Pack, &tier, &c.N)
		if err != nil {
			return nil, fmt.Errorf("scan entry count: %w", err)
		}

		c.Rarity = rarity.Tier(tier)
		out = append(out, c)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate entry counts: %w", err)
	}

	return out, nil
}

func (r *lotteryRepo) CountByUser(ctx context.Context, roundID, userID uuid.UUID) (int, error) {
	var n int

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lottery_entries WHERE round_id = $1 AND user_id = $2
	`, roundID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count user entries: %w", err)
	}

	return n, nil
}
