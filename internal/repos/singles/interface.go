package singles

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/google/uuid"
)

var ErrSingleNotFound = errors.New("live single not found")

type Single struct {
	ID           uuid.UUID
	StreamID     uuid.UUID
	CardID       *int64
	CardName     string
	CardNumber   string
	SetName      string
	ImageURL     string
	StartingBid  int64
	MinIncrement int64
	BuyNow       *int64
	Status       stream.SingleStatus
	IsActive     bool
	WinnerUserID *uuid.UUID
	WinningBidID *uuid.UUID
	CreatedAt    time.Time
}

func (s Single) Rules() auction.Rules {
	return auction.Rules{StartingBid: s.StartingBid, MinIncrement: s.MinIncrement}
}

type SingleView struct {
	Single
	Leader *auction.Bid
}

type Singles interface {
	Create(ctx context.Context, s Single) error
	CreateMany(tx *sql.Tx, singles []Single) (int, error)
	Get(ctx context.Context, id uuid.UUID) (Single, error)
	Lock(tx *sql.Tx, id uuid.UUID) (Single, error)
	LockOpenByStream(tx *sql.Tx, streamID uuid.UUID) ([]Single, error)
	ListByStream(ctx context.Context, streamID uuid.UUID) ([]SingleView, error)
	Leader(ctx context.Context, singleID uuid.UUID) (*auction.Bid, error)
	TopBid(tx *sql.Tx, singleID uuid.UUID) (*auction.Bid, error)
	InsertBid(tx *sql.Tx, singleID uuid.UUID, bid auction.Bid) (auction.Bid, error)
	SetStatus(tx *sql.Tx, id uuid.UUID, status stream.SingleStatus) error
	Sell(tx *sql.Tx, id uuid.UUID, bid auction.Bid) error
}
