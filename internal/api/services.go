package api

import (
	"context"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/cards"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/fastprodman/ripbid/internal/repos/pulls"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/fastprodman/ripbid/internal/repos/singles"
	"github.com/fastprodman/ripbid/internal/repos/streams"
	"github.com/fastprodman/ripbid/internal/services/bidding"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/fastprodman/ripbid/internal/services/lifecycle"
	svclottery "github.com/fastprodman/ripbid/internal/services/lottery"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/google/uuid"
)

// Services is everything the HTTP layer calls into. The concrete services in
// internal/services satisfy these interfaces; tests use stubs.
type Services struct {
	Credits    CreditService
	Bids       BidService
	Lottery    LotteryService
	Settlement SettlementService
	Lifecycle  LifecycleService
	Events     Subscriber
}

type CreditService interface {
	Grant(ctx context.Context, g credits.Grant) (int64, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.Record, error)
}

type BidService interface {
	PlaceChaseBid(ctx context.Context, req bidding.BidRequest) (bidding.BidResult, error)
	PlaceSingleBid(ctx context.Context, req bidding.BidRequest) (bidding.BidResult, error)
	SlotLeader(ctx context.Context, slotID uuid.UUID) (*auction.Bid, error)
	SingleLeader(ctx context.Context, singleID uuid.UUID) (*auction.Bid, error)
}

type LotteryService interface {
	Enter(ctx context.Context, req svclottery.EntryRequest) (svclottery.EntryResult, error)
	ConfirmPaidEntry(ctx context.Context, ce svclottery.CheckoutEntry) (lottery.Entry, error)
	Participants(ctx context.Context, roundID, viewer uuid.UUID) (svclottery.Participants, error)
	Results(ctx context.Context, roundID uuid.UUID) ([]lottery.Result, error)
}

type SettlementService interface {
	RecordPull(ctx context.Context, in settlement.PullInput) (pulls.Pull, error)
	SettlePack(ctx context.Context, roundID uuid.UUID, pack int) (settlement.PackOutcome, error)
	CloseBidding(ctx context.Context, roundID uuid.UUID) (rounds.Round, error)
	ConcludeRound(ctx context.Context, roundID uuid.UUID) (settlement.RoundOutcome, error)
	CloseSingles(ctx context.Context, streamID uuid.UUID) (settlement.SinglesOutcome, error)
	CancelSingle(ctx context.Context, singleID uuid.UUID) (*settlement.Refund, error)
}

type LifecycleService interface {
	CreateStream(ctx context.Context, in lifecycle.NewStream) (streams.Stream, error)
	StartStream(ctx context.Context, id uuid.UUID) (streams.Stream, error)
	EndStream(ctx context.Context, id uuid.UUID) (streams.Stream, settlement.SinglesOutcome, error)
	SetCurrent(ctx context.Context, id uuid.UUID) (streams.Stream, error)
	Current(ctx context.Context) (streams.Stream, error)
	ListStreams(ctx context.Context) ([]streams.Stream, error)
	Overview(ctx context.Context, streamID, viewer uuid.UUID) (lifecycle.Overview, error)
	Rounds(ctx context.Context, streamID uuid.UUID) ([]rounds.Round, error)
	Slots(ctx context.Context, roundID uuid.UUID) ([]chase.SlotView, error)
	Singles(ctx context.Context, streamID uuid.UUID) ([]singles.SingleView, error)
	Pulls(ctx context.Context, roundID uuid.UUID) ([]pulls.Pull, error)

	CreateRound(ctx context.Context, in lifecycle.NewRound) (rounds.Round, error)
	OpenBidding(ctx context.Context, roundID uuid.UUID, d time.Duration) (rounds.Round, error)
	ExtendBidding(ctx context.Context, roundID uuid.UUID, extra time.Duration) (rounds.Round, error)

	CreateSlot(ctx context.Context, in lifecycle.NewSlot) (chase.Slot, error)
	GenerateSlots(ctx context.Context, roundID uuid.UUID, d lifecycle.AuctionDefaults) (int, error)
	CreateSingle(ctx context.Context, in lifecycle.NewSingle) (singles.Single, error)
	GenerateSingles(ctx context.Context, streamID uuid.UUID, d lifecycle.AuctionDefaults) (int, error)
	UpsertCard(ctx context.Context, c cards.Card) (cards.Card, error)
	SearchCards(ctx context.Context, set, query string, limit int) ([]cards.Card, error)
}

// Subscriber hands out push subscriptions; *realtime.Hub implements it.
type Subscriber interface {
	Subscribe(topics ...string) *realtime.Subscription
}

var (
	_ CreditService     = (*credits.CreditService)(nil)
	_ BidService        = (*bidding.BidService)(nil)
	_ LotteryService    = (*svclottery.LotteryService)(nil)
	_ SettlementService = (*settlement.SettlementService)(nil)
	_ LifecycleService  = (*lifecycle.LifecycleService)(nil)
	_ Subscriber        = (*realtime.Hub)(nil)
)
