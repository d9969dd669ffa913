package rounds

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/google/uuid"
)

var (
	ErrRoundNotFound  = errors.New("round not found")
	ErrDuplicateRound = errors.New("round number already used in stream")
)

type Round struct {
	ID                uuid.UUID
	StreamID          uuid.UUID
	RoundNumber       int
	SetName           rarity.Set
	TotalPacksPlanned int
	PacksOpened       int
	ChaseMinPrice     int64
	BiddingStatus     stream.BiddingStatus
	BiddingEndsAt     *time.Time
	Locked            bool
	CreatedAt         time.Time
}

// CheckAcceptingBids reports auction.ErrBiddingClosed unless chase bids and
// lottery entries may be taken at now.
func (r Round) CheckAcceptingBids(now time.Time) error {
	return auction.CheckOpen(r.BiddingStatus == stream.BiddingOpen && !r.Locked, r.BiddingEndsAt, now)
}

func (r Round) ValidPack(pack int) bool {
	return pack >= 1 && pack <= r.TotalPacksPlanned
}

type Rounds interface {
	Create(ctx context.Context, r Round) error
	Get(ctx context.Context, id uuid.UUID) (Round, error)
	// Lock takes the row FOR UPDATE; Share takes FOR SHARE so concurrent
	// entries proceed while settlement waits.
	Lock(tx *sql.Tx, id uuid.UUID) (Round, error)
	Share(tx *sql.Tx, id uuid.UUID) (Round, error)
	ListByStream(ctx context.Context, streamID uuid.UUID) ([]Round, error)
	UpdateBidding(tx *sql.Tx, id uuid.UUID, status stream.BiddingStatus, endsAt *time.Time) error
	SetLocked(tx *sql.Tx, id uuid.UUID) error
	IncrementPacksOpened(tx *sql.Tx, id uuid.UUID) error
	// DueForClose lists open rounds whose bidding window has passed.
	DueForClose(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}
