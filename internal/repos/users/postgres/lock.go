package users

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/google/uuid"
)

func (r *usersRepo) LockAndGetCredit(tx *sql.Tx, userID uuid.UUID) (int64, error) {
	var credit int64

	err := tx.QueryRow(`
		SELECT site_credit
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, userID).Scan(&credit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, users.ErrUserNotFound
		}

		return 0, fmt.Errorf("lock/get credit: %w", err)
	}

	return credit, nil
}

// LockMany locks the given users one by one in ascending id order, so two
// transactions touching the same pair of users cannot deadlock. Unknown ids
// are absent from the result.
func (r *usersRepo) LockMany(tx *sql.Tx, userIDs ...uuid.UUID) (map[uuid.UUID]int64, error) {
	ids := slices.Clone(userIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	out := make(map[uuid.UUID]int64, len(ids))

	for _, id := range ids {
		credit, err := r.LockAndGetCredit(tx, id)
		if errors.Is(err, users.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		out[id] = credit
	}

	return out, nil
}
