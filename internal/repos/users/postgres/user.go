package users

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/google/uuid"
)

// Ensure creates a zero-credit row for a user seen for the first time.
func (r *usersRepo) Ensure(tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(`
		INSERT INTO users (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	return nil
}

func (r *usersRepo) Exists(tx *sql.Tx, userID uuid.UUID) error {
	var exists bool

	err := tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}

	if !exists {
		return users.ErrUserNotFound
	}

	return nil
}
