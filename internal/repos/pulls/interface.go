package pulls

import (
	"context"
	"database/sql"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/google/uuid"
)

type AwardKind string

const (
	AwardChase   AwardKind = "chase"
	AwardLottery AwardKind = "lottery"
)

// Pull is a card recorded as opened from a pack during a round.
type Pull struct {
	ID         uuid.UUID
	RoundID    uuid.UUID
	PackNumber int
	CardID     *int64
	CardName   string
	CardNumber string
	Rarity     string
	Tier       *rarity.Tier
	AwardedTo  *uuid.UUID
	AwardKind  *AwardKind
	CreatedAt  time.Time
}

type Pulls interface {
	Insert(tx *sql.Tx, p Pull) (Pull, error)
	LockPack(tx *sql.Tx, roundID uuid.UUID, pack int) ([]Pull, error)
	ListRound(ctx context.Context, roundID uuid.UUID) ([]Pull, error)
	// ListRoundPacks returns the distinct pack numbers with recorded pulls, ascending.
	ListRoundPacks(tx *sql.Tx, roundID uuid.UUID) ([]int, error)
	PulledCardIDs(tx *sql.Tx, roundID uuid.UUID) (map[int64]bool, error)
	Award(tx *sql.Tx, pullID, userID uuid.UUID, kind AwardKind) error
	// LastHit is the most recent tiered pull of the stream, nil when none.
	LastHit(ctx context.Context, streamID uuid.UUID) (*Pull, error)
}
