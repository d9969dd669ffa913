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

func (r *lotteryRepo) ResultExists(tx *sql.Tx, roundID uuid.UUID, pack int) (bool, error) {
	var exists bool

	err := tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM lottery_results WHERE round_id = $1 AND pack_number = $2)
	`, roundID, pack).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}

	return exists, nil
}

func (r *lotteryRepo) InsertResult(tx *sql.Tx, res lottery.Result) error {
	var tier *string
	if res.WinningRarity != nil {
		s := string(*res.WinningRarity)
		tier = &s
	}

	_, err := tx.Exec(`
		INSERT INTO lottery_results (id, round_id, pack_number, winning_rarity, winner_user_id,
			winning_entry_id, pool_size, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, res.ID, res.RoundID, res.PackNumber, tier, res.WinnerUserID, res.WinningEntryID, res.PoolSize, res.SettledAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return lottery.ErrPackAlreadySettled
		}

		return fmt.Errorf("insert result: %w", err)
	}

	return nil
}

func (r *lotteryRepo) Results(ctx context.Context, roundID uuid.UUID) ([]lottery.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, round_id, pack_number, winning_rarity, winner_user_id, winning_entry_id, pool_size, settled_at
		FROM lottery_results
		WHERE round_id = $1
		ORDER BY pack_number
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []lottery.Result

	for rows.Next() {
		var (
			res  lottery.Result
			tier *string
		)

		err = rows.Scan(&res.ID, &res.RoundID, &res.PackNumber, &tier, &res.WinnerUserID,
			&res.WinningEntryID, &res.PoolSize, &res.SettledAt)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		if tier != nil {
			t := rarity.Tier(*tier)
			res.WinningRarity = &t
		}

		out = append(out, res)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return out, nil
}
