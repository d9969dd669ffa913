package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrDuplicateTransaction = errors.New("duplicate transaction")

type Kind string

const (
	KindGrant  Kind = "grant"
	KindDebit  Kind = "debit"
	KindRefund Kind = "refund"
)

// Record is one balance movement. TransactionID is unique across the ledger,
// which makes grants and retried requests idempotent.
type Record struct {
	ID            int64
	TransactionID string
	UserID        uuid.UUID
	Kind          Kind
	Amount        int64
	Reference     string
	CreatedAt     time.Time
}

type Ledger interface {
	Insert(tx *sql.Tx, rec Record) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error)
}
