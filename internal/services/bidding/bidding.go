package bidding

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/cache"
	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	pgchase "github.com/fastprodman/ripbid/internal/repos/chase/postgres"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	pgrounds "github.com/fastprodman/ripbid/internal/repos/rounds/postgres"
	"github.com/fastprodman/ripbid/internal/repos/singles"
	pgsingles "github.com/fastprodman/ripbid/internal/repos/singles/postgres"
	"github.com/fastprodman/ripbid/internal/repos/streams"
	pgstreams "github.com/fastprodman/ripbid/internal/repos/streams/postgres"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/google/uuid"
)

type BidService struct {
	db      *sql.DB
	credits *credits.CreditService
	rounds  rounds.Rounds
	chase   chase.Chase
	streams streams.Streams
	singles singles.Singles
	pub     realtime.Publisher
	leaders cache.LeaderCache
	now     func() time.Time
}

func New(dbx *sql.DB, cs *credits.CreditService, pub realtime.Publisher, leaders cache.LeaderCache) *BidService {
	return &BidService{
		db:      dbx,
		credits: cs,
		rounds:  pgrounds.New(dbx),
		chase:   pgchase.New(dbx),
		streams: pgstreams.New(dbx),
		singles: pgsingles.New(dbx),
		pub:     pub,
		leaders: leaders,
		now:     time.Now,
	}
}

// PlaceChaseBid runs the full flow in a single DB transaction:
//
// 1) Share-lock the round and check its bidding window.
// 2) Lock the slot row (FOR UPDATE) and check it is biddable.
// 3) Validate the amount against the current leader.
// 4) Lock bidder and previous leader, refund the leader, debit the bidder.
// 5) Insert the bid.
//
// Events and cache invalidation happen after commit.
func (s *BidService) PlaceChaseBid(ctx context.Context, req BidRequest) (BidResult, error) {
	err := req.validate()
	if err != nil {
		return BidResult{}, err
	}

	slot, err := s.chase.GetSlot(ctx, req.TargetID)
	if err != nil {
		return BidResult{}, fmt.Errorf("get slot: %w", err)
	}

	var res BidResult

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		round, err := s.rounds.Share(tx, slot.RoundID)
		if err != nil {
			return fmt.Errorf("share round: %w", err)
		}

		err = round.CheckAcceptingBids(s.now())
		if err != nil {
			return err
		}

		slot, err = s.chase.LockSlot(tx, req.TargetID)
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}

		if !slot.IsActive || slot.Locked || slot.Settled() {
			return auction.ErrBiddingClosed
		}

		top, err := s.chase.TopBid(tx, slot.ID)
		if err != nil {
			return fmt.Errorf("read leader: %w", err)
		}

		res, err = s.apply(tx, req, slot.Rules(), top, "chase "+slot.CardName, s.chase.InsertBid)

		return err
	})
	if err != nil {
		return BidResult{}, fmt.Errorf("place chase bid: %w", err)
	}

	logging.From(ctx).Info("chase bid placed",
		"slot_id", slot.ID, "user_id", req.UserID, "amount", req.Amount)

	s.leaders.Invalidate(ctx, cache.SlotKey(slot.ID))
	s.pub.Publish(ctx, res.events(realtime.RoundTopic(slot.RoundID), realtime.EventSlotLeader, slot.ID)...)

	return res, nil
}

// PlaceSingleBid follows the chase flow with the stream as the gate: the
// stream must not have ended and its singles window must still be open.
func (s *BidService) PlaceSingleBid(ctx context.Context, req BidRequest) (BidResult, error) {
	err := req.validate()
	if err != nil {
		return BidResult{}, err
	}

	single, err := s.singles.Get(ctx, req.TargetID)
	if err != nil {
		return BidResult{}, fmt.Errorf("get single: %w", err)
	}

	var res BidResult

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		st, err := s.streams.Share(tx, single.StreamID)
		if err != nil {
			return fmt.Errorf("share stream: %w", err)
		}

		err = st.SinglesOpen(s.now())
		if err != nil {
			return err
		}

		single, err = s.singles.Lock(tx, req.TargetID)
		if err != nil {
			return fmt.Errorf("lock single: %w", err)
		}

		if single.Status != stream.SingleOpen || !single.IsActive {
			return auction.ErrBiddingClosed
		}

		top, err := s.singles.TopBid(tx, single.ID)
		if err != nil {
			return fmt.Errorf("read leader: %w", err)
		}

		res, err = s.apply(tx, req, single.Rules(), top, "single "+single.CardName, s.singles.InsertBid)

		return err
	})
	if err != nil {
		return BidResult{}, fmt.Errorf("place single bid: %w", err)
	}

	logging.From(ctx).Info("single bid placed",
		"single_id", single.ID, "user_id", req.UserID, "amount", req.Amount)

	s.leaders.Invalidate(ctx, cache.SingleKey(single.ID))
	s.pub.Publish(ctx, res.events(realtime.StreamTopic(single.StreamID), realtime.EventSingleLeader, single.ID)...)

	return res, nil
}

func (s *BidService) SlotLeader(ctx context.Context, slotID uuid.UUID) (*auction.Bid, error) {
	return s.leaders.Leader(ctx, cache.SlotKey(slotID), func(ctx context.Context) (*auction.Bid, error) {
		return s.chase.Leader(ctx, slotID)
	})
}

func (s *BidService) SingleLeader(ctx context.Context, singleID uuid.UUID) (*auction.Bid, error) {
	return s.leaders.Leader(ctx, cache.SingleKey(singleID), func(ctx context.Context) (*auction.Bid, error) {
		return s.singles.Leader(ctx, singleID)
	})
}

func (r BidRequest) validate() error {
	if r.Amount <= 0 {
		return validate.Errorf("amount", "must be positive")
	}

	return nil
}
