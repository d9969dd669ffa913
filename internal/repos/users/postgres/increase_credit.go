package users

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/google/uuid"
)

func (r *usersRepo) IncreaseCredit(tx *sql.Tx, userID uuid.UUID, amount int64) (int64, error) {
	var credit int64

	err := tx.QueryRow(`
		UPDATE users
		SET site_credit = site_credit + $2
		WHERE id = $1
		RETURNING site_credit
	`, userID, amount).Scan(&credit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, users.ErrUserNotFound
		}

		return 0, fmt.Errorf("increase credit: %w", err)
	}

	return credit, nil
}
