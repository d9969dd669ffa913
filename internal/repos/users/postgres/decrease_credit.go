package users

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/google/uuid"
)

// DecreaseCredit never clamps: when the balance cannot cover amount nothing
// changes and ErrInsufficientCredits is returned. A missing user reads the
// same way.
func (r *usersRepo) DecreaseCredit(tx *sql.Tx, userID uuid.UUID, amount int64) (int64, error) {
	var credit int64

	err := tx.QueryRow(`
		UPDATE users
		SET site_credit = site_credit - $2
		WHERE id = $1
		  AND site_credit >= $2
		RETURNING site_credit
	`, userID, amount).Scan(&credit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, users.ErrInsufficientCredits
		}

		return 0, fmt.Errorf("decrease credit: %w", err)
	}

	return credit, nil
}
