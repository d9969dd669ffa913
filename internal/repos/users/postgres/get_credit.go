package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/google/uuid"
)

func (r *usersRepo) GetCredit(ctx context.Context, userID uuid.UUID) (int64, error) {
	var credit int64

	err := r.db.QueryRowContext(ctx, `
		SELECT site_credit
		FROM users
		WHERE id = $1
	`, userID).Scan(&credit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, users.ErrUserNotFound
		}

		return 0, fmt.Errorf("get credit: %w", err)
	}

	return credit, nil
}
