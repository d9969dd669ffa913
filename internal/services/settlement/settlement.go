// Package settlement turns closed auctions and opened packs into awards:
// chase winners, lottery draws, refunds for unpulled chase cards and sold
// live singles.
package settlement

import (
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/ripbid/internal/cache"
	"github.com/fastprodman/ripbid/internal/domain/auction"
	domlottery "github.com/fastprodman/ripbid/internal/domain/lottery"
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
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/google/uuid"
)

var (
	ErrBiddingStillOpen = errors.New("round bidding still open")
	ErrRoundConcluded   = errors.New("round already concluded")
	ErrPullsRecorded    = errors.New("round already has recorded pulls")
)

// PullInput records one card opened from a pack. With CardID set, blank card
// fields are filled from the catalog. Tier overrides the classified tier.
type PullInput struct {
	RoundID    uuid.UUID
	PackNumber int
	CardID     *int64
	CardName   string
	CardNumber string
	Rarity     string
	Tier       string
}

type ChaseAward struct {
	SlotID   uuid.UUID
	PullID   uuid.UUID
	CardName string
	Bid      auction.Bid
}

type PackOutcome struct {
	Result      lottery.Result
	ChaseAwards []ChaseAward
	Prize       []pulls.Pull
}

type RoundOutcome struct {
	Packs   []PackOutcome
	Refunds []Refund
}

type Refund struct {
	TargetID   uuid.UUID
	UserID     uuid.UUID
	Amount     int64
	NewBalance int64
}

type Sale struct {
	SingleID uuid.UUID
	CardName string
	Bid      auction.Bid
}

type SinglesOutcome struct {
	Sold   []Sale
	Locked int
}

type SettlementService struct {
	db      *sql.DB
	credits *credits.CreditService
	rounds  rounds.Rounds
	streams streams.Streams
	chase   chase.Chase
	singles singles.Singles
	entries lottery.Lottery
	pulls   pulls.Pulls
	cards   cards.Cards
	pub     realtime.Publisher
	leaders cache.LeaderCache
	now     func() time.Time
	draw    func(domlottery.Pool) (domlottery.Entry, error)
}

func New(dbx *sql.DB, cs *credits.CreditService, pub realtime.Publisher, leaders cache.LeaderCache) *SettlementService {
	return &SettlementService{
		db:      dbx,
		credits: cs,
		rounds:  pgrounds.New(dbx),
		streams: pgstreams.New(dbx),
		chase:   pgchase.New(dbx),
		singles: pgsingles.New(dbx),
		entries: pglottery.New(dbx),
		pulls:   pgpulls.New(dbx),
		cards:   pgcards.New(dbx),
		pub:     pub,
		leaders: leaders,
		now:     time.Now,
		draw:    domlottery.Draw,
	}
}
