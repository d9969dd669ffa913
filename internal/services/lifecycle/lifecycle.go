// Package lifecycle holds the operator side of a stream: scheduling, round
// bidding windows, slot and single creation, and the read views built on them.
package lifecycle

import (
	"context"
	"database/sql"
	"time"

	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/cards"
	pgcards "github.com/fastprodman/ripbid/internal/repos/cards/postgres"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	pgchase "github.com/fastprodman/ripbid/internal/repos/chase/postgres"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	pglottery "github.com/fastprodman/ripbid/internal/repos/lottery/postgres"
	"github.com/fastprodman/ripbid/internal/repos/pulls"
	pgpulls "github.com/fastprodman/ripbid/internal/repos/pulls/postgres"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	pgrounds "github.com/fastprodman/ripbid/internal/repos/rounds/postgres"
	"github.com/fastprodman/ripbid/internal/repos/singles"
	pgsingles "github.com/fastprodman/ripbid/internal/repos/singles/postgres"
	"github.com/fastprodman/ripbid/internal/repos/streams"
	pgstreams "github.com/fastprodman/ripbid/internal/repos/streams/postgres"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/google/uuid"
)

const (
	DefaultBiddingWindow = 7 * time.Minute
	DefaultExtension     = 60 * time.Second
	DefaultTotalPacks    = 10
	DefaultChaseMinPrice = 4000
	DefaultStartingBid   = 1000
	DefaultMinIncrement  = 100
)

// SinglesCloser finishes a stream's live singles when the stream ends.
type SinglesCloser interface {
	CloseSingles(ctx context.Context, streamID uuid.UUID) (settlement.SinglesOutcome, error)
}

type LifecycleService struct {
	db      *sql.DB
	streams streams.Streams
	rounds  rounds.Rounds
	chase   chase.Chase
	singles singles.Singles
	cards   cards.Cards
	pulls   pulls.Pulls
	entries lottery.Lottery
	pub     realtime.Publisher
	closer  SinglesCloser
	now     func() time.Time
}

func New(dbx *sql.DB, pub realtime.Publisher, closer SinglesCloser) *LifecycleService {
	return &LifecycleService{
		db:      dbx,
		streams: pgstreams.New(dbx),
		rounds:  pgrounds.New(dbx),
		chase:   pgchase.New(dbx),
		singles: pgsingles.New(dbx),
		cards:   pgcards.New(dbx),
		pulls:   pgpulls.New(dbx),
		entries: pglottery.New(dbx),
		pub:     pub,
		closer:  closer,
		now:     time.Now,
	}
}
