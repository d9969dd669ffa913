package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUserNotFound        = errors.New("user not found")
)

// Users owns the site_credit balance. Mutations take the caller's
// transaction so they commit together with the bid or entry they pay for.
type Users interface {
	Ensure(tx *sql.Tx, userID uuid.UUID) error
	Exists(tx *sql.Tx, userID uuid.UUID) error
	GetCredit(ctx context.Context, userID uuid.UUID) (int64, error)
	LockAndGetCredit(tx *sql.Tx, userID uuid.UUID) (int64, error)
	LockMany(tx *sql.Tx, userIDs ...uuid.UUID) (map[uuid.UUID]int64, error)
	IncreaseCredit(tx *sql.Tx, userID uuid.UUID, amount int64) (int64, error)
	DecreaseCredit(tx *sql.Tx, userID uuid.UUID, amount int64) (int64, error)
}
