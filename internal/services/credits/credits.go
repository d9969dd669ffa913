package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	pgledger "github.com/fastprodman/ripbid/internal/repos/ledger/postgres"
	"github.com/fastprodman/ripbid/internal/repos/users"
	pgusers "github.com/fastprodman/ripbid/internal/repos/users/postgres"
	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

type Grant struct {
	TransactionID string
	UserID        uuid.UUID
	Amount        int64 // minor units
	Reference     string
}

type CreditService struct {
	db     *sql.DB
	users  users.Users
	ledger ledger.Ledger
	pub    realtime.Publisher
}

func New(dbx *sql.DB, pub realtime.Publisher) *CreditService {
	return &CreditService{
		db:     dbx,
		users:  pgusers.New(dbx),
		ledger: pgledger.New(dbx),
		pub:    pub,
	}
}

// Grant credits a user in a single DB transaction:
//
// 1) Ensure the user row exists.
// 2) Insert the ledger row (unique transaction id -> ErrDuplicateTransaction).
// 3) Increase site_credit.
//
// A duplicate leaves the first application in place.
func (s *CreditService) Grant(ctx context.Context, g Grant) (int64, error) {
	if g.Amount <= 0 {
		return 0, validate.Errorf("amount", "must be positive")
	}

	if g.TransactionID == "" {
		g.TransactionID = uuid.NewString()
	}

	var balance int64

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.users.Ensure(tx, g.UserID)
		if err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}

		err = s.ledger.Insert(tx, ledger.Record{
			TransactionID: g.TransactionID,
			UserID:        g.UserID,
			Kind:          ledger.KindGrant,
			Amount:        g.Amount,
			Reference:     g.Reference,
		})
		if err != nil {
			return fmt.Errorf("record grant: %w", err)
		}

		balance, err = s.users.IncreaseCredit(tx, g.UserID, g.Amount)
		if err != nil {
			return fmt.Errorf("increase credit: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			logging.From(ctx).Info("grant already applied", "transaction_id", g.TransactionID)
		}

		return 0, fmt.Errorf("grant: %w", err)
	}

	s.pub.Publish(ctx, BalanceEvent(g.UserID, balance))

	return balance, nil
}

// Balance returns the user's credit (no locks; suitable for the GET endpoint).
func (s *CreditService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, err := s.users.GetCredit(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get credit: %w", err)
	}

	return balance, nil
}

func (s *CreditService) History(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.Record, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	limit = min(limit, MaxHistoryLimit)

	recs, err := s.ledger.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}

	return recs, nil
}

func BalanceEvent(userID uuid.UUID, balance int64) realtime.Event {
	return realtime.NewEvent(realtime.UserTopic(userID), realtime.EventBalance, map[string]any{
		"balance": balance,
	})
}
