package lottery

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/google/uuid"
)

var (
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrPackAlreadySettled = errors.New("pack already settled")
)

// Entry is a lottery ticket. Credit entries target one pack; paid checkout
// entries have no pack and join every pack of the round.
type Entry struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	RoundID           uuid.UUID
	PackNumber        *int
	Rarity            rarity.Tier
	CreditsUsed       int64
	PaymentConfirmed  bool
	CheckoutSessionID *string
	CreatedAt         time.Time
}

// Count is the number of entrants for one (pack, rarity) bucket; Pack is nil
// for paid round-wide entries.
type Count struct {
	Pack   *int
	Rarity rarity.Tier
	N      int
}

type Result struct {
	ID             uuid.UUID
	RoundID        uuid.UUID
	PackNumber     int
	WinningRarity  *rarity.Tier
	WinnerUserID   *uuid.UUID
	WinningEntryID *uuid.UUID
	PoolSize       int
	SettledAt      time.Time
}

type Lottery interface {
	Insert(tx *sql.Tx, e Entry) (Entry, error)
	UpsertPaid(tx *sql.Tx, e Entry) (Entry, error)
	EntriesForPack(tx *sql.Tx, roundID uuid.UUID, pack int) ([]Entry, error)
	Counts(ctx context.Context, roundID uuid.UUID) ([]Count, error)
	CountByUser(ctx context.Context, roundID, userID uuid.UUID) (int, error)
	ResultExists(tx *sql.Tx, roundID uuid.UUID, pack int) (bool, error)
	InsertResult(tx *sql.Tx, r Result) error
	Results(ctx context.Context, roundID uuid.UUID) ([]Result, error)
}
