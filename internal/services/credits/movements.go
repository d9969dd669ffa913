package credits

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/google/uuid"
)

// Movement is one balance change applied inside a caller's transaction.
// An empty TransactionID gets a generated one.
type Movement struct {
	TransactionID string
	UserID        uuid.UUID
	Amount        int64
	Reference     string
}

// Debit takes credit from a user whose row the caller has already locked.
// Insufficient credit fails with users.ErrInsufficientCredits and nothing applied.
func (s *CreditService) Debit(tx *sql.Tx, m Movement) (int64, error) {
	balance, err := s.users.DecreaseCredit(tx, m.UserID, m.Amount)
	if err != nil {
		return 0, fmt.Errorf("decrease credit: %w", err)
	}

	err = s.record(tx, ledger.KindDebit, m)
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// Refund returns committed credit, typically to an outbid leader.
func (s *CreditService) Refund(tx *sql.Tx, m Movement) (int64, error) {
	balance, err := s.users.IncreaseCredit(tx, m.UserID, m.Amount)
	if err != nil {
		return 0, fmt.Errorf("increase credit: %w", err)
	}

	err = s.record(tx, ledger.KindRefund, m)
	if err != nil {
		return 0, err
	}

	return balance, nil
}

func (s *CreditService) record(tx *sql.Tx, kind ledger.Kind, m Movement) error {
	if m.TransactionID == "" {
		m.TransactionID = uuid.NewString()
	}

	err := s.ledger.Insert(tx, ledger.Record{
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
		Kind:          kind,
		Amount:        m.Amount,
		Reference:     m.Reference,
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", kind, err)
	}

	return nil
}

// LockUsers locks every row a flow is about to touch, in a stable order.
func (s *CreditService) LockUsers(tx *sql.Tx, ids ...uuid.UUID) (map[uuid.UUID]int64, error) {
	locked, err := s.users.LockMany(tx, ids...)
	if err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}

	return locked, nil
}

// EnsureUser creates the credit row for a new identity.
func (s *CreditService) EnsureUser(tx *sql.Tx, id uuid.UUID) error {
	err := s.users.Ensure(tx, id)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	return nil
}
