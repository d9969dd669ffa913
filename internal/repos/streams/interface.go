package streams

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/google/uuid"
)

var ErrStreamNotFound = errors.New("stream not found")

type Stream struct {
	ID             uuid.UUID
	Title          string
	Status         stream.Status
	IsCurrent      bool
	ScheduledDate  time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	SinglesCloseAt *time.Time
	CreatedAt      time.Time
}

// SinglesOpen reports auction.ErrBiddingClosed unless singles bids may be
// taken at now.
func (s Stream) SinglesOpen(now time.Time) error {
	return auction.CheckOpen(s.Status != stream.StatusEnded, s.SinglesCloseAt, now)
}

type Streams interface {
	Create(ctx context.Context, s Stream) error
	Get(ctx context.Context, id uuid.UUID) (Stream, error)
	// Lock blocks singles bids (which hold Share) while the stream changes state.
	Lock(tx *sql.Tx, id uuid.UUID) (Stream, error)
	Share(tx *sql.Tx, id uuid.UUID) (Stream, error)
	List(ctx context.Context) ([]Stream, error)
	// Current prefers the stream flagged current, then a live one, then the
	// next scheduled, then the most recently ended.
	Current(ctx context.Context) (Stream, error)
	SetStatus(tx *sql.Tx, id uuid.UUID, status stream.Status, at time.Time) error
	SetCurrent(tx *sql.Tx, id uuid.UUID) error
	// DueForSinglesClose lists streams whose singles window has passed or
	// which ended while singles were still open.
	DueForSinglesClose(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}
