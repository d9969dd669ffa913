package chase

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/google/uuid"
)

var (
	ErrSlotNotFound  = errors.New("chase slot not found")
	ErrDuplicateSlot = errors.New("chase slot already exists for card")
)

type Slot struct {
	ID           uuid.UUID
	RoundID      uuid.UUID
	CardID       *int64
	CardName     string
	StartingBid  int64
	MinIncrement int64
	IsActive     bool
	Locked       bool
	WinnerUserID *uuid.UUID
	WinningBidID *uuid.UUID
	SettledAt    *time.Time
	CreatedAt    time.Time
}

func (s Slot) Rules() auction.Rules {
	return auction.Rules{StartingBid: s.StartingBid, MinIncrement: s.MinIncrement}
}

func (s Slot) Settled() bool {
	return s.SettledAt != nil
}

// SlotView is a slot with its current leading bid, if any.
type SlotView struct {
	Slot
	Leader *auction.Bid
}

type Chase interface {
	CreateSlot(ctx context.Context, s Slot) error
	// CreateSlots inserts slots, skipping cards that already have one in the
	// round, and reports how many were created.
	CreateSlots(tx *sql.Tx, slots []Slot) (int, error)
	GetSlot(ctx context.Context, id uuid.UUID) (Slot, error)
	LockSlot(tx *sql.Tx, id uuid.UUID) (Slot, error)
	LockRoundSlots(tx *sql.Tx, roundID uuid.UUID) ([]Slot, error)
	ListSlots(ctx context.Context, roundID uuid.UUID) ([]SlotView, error)
	Leader(ctx context.Context, slotID uuid.UUID) (*auction.Bid, error)
	TopBid(tx *sql.Tx, slotID uuid.UUID) (*auction.Bid, error)
	InsertBid(tx *sql.Tx, slotID uuid.UUID, bid auction.Bid) (auction.Bid, error)
	SetRoundLocked(tx *sql.Tx, roundID uuid.UUID, locked bool) error
	Award(tx *sql.Tx, slotID uuid.UUID, bid auction.Bid, at time.Time) error
	SettleWithoutWinner(tx *sql.Tx, slotID uuid.UUID, at time.Time) error
}
