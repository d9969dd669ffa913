package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/ripbid/internal/cache"
	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/google/uuid"
)

// CloseBidding ends the round's bidding window and locks its slots.
func (s *SettlementService) CloseBidding(ctx context.Context, roundID uuid.UUID) (rounds.Round, error) {
	var round rounds.Round

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error

		round, err = s.rounds.Lock(tx, roundID)
		if err != nil {
			return fmt.Errorf("lock round: %w", err)
		}

		if round.Locked {
			return ErrRoundConcluded
		}

		return s.closeBidding(tx, &round)
	})
	if err != nil {
		return rounds.Round{}, fmt.Errorf("close bidding: %w", err)
	}

	logging.From(ctx).Info("round bidding closed", "round_id", roundID)

	s.pub.Publish(ctx, biddingEvent(round))

	return round, nil
}

func (s *SettlementService) closeBidding(tx *sql.Tx, round *rounds.Round) error {
	err := round.BiddingStatus.Transition(stream.BiddingClosed)
	if err != nil {
		return err
	}

	err = s.rounds.UpdateBidding(tx, round.ID, stream.BiddingClosed, round.BiddingEndsAt)
	if err != nil {
		return err
	}

	err = s.chase.SetRoundLocked(tx, round.ID, true)
	if err != nil {
		return fmt.Errorf("lock slots: %w", err)
	}

	round.BiddingStatus = stream.BiddingClosed

	return nil
}

// ConcludeRound finishes a round in a single DB transaction:
//
// 1) Close bidding if it is still open.
// 2) Settle every pack that has pulls but no result yet.
// 3) Refund the leader of every slot still unsettled (its card was never
// pulled) and close the slot without a winner.
// 4) Lock the round.
func (s *SettlementService) ConcludeRound(ctx context.Context, roundID uuid.UUID) (RoundOutcome, error) {
	var out RoundOutcome

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		round, err := s.rounds.Lock(tx, roundID)
		if err != nil {
			return fmt.Errorf("lock round: %w", err)
		}

		if round.Locked {
			return ErrRoundConcluded
		}

		if round.BiddingStatus == stream.BiddingOpen {
			err = s.closeBidding(tx, &round)
			if err != nil {
				return err
			}
		}

		out.Packs, err = s.settleOutstandingPacks(tx, round)
		if err != nil {
			return err
		}

		out.Refunds, err = s.refundUnpulled(tx, round.ID)
		if err != nil {
			return err
		}

		return s.rounds.SetLocked(tx, round.ID)
	})
	if err != nil {
		return RoundOutcome{}, fmt.Errorf("conclude round: %w", err)
	}

	logging.From(ctx).Info("round concluded",
		"round_id", roundID, "packs_settled", len(out.Packs), "refunds", len(out.Refunds))

	for _, p := range out.Packs {
		s.afterPack(ctx, roundID, p)
	}

	evs := []realtime.Event{realtime.NewEvent(realtime.RoundTopic(roundID), realtime.EventRoundConcluded, nil)}
	keys := make([]cache.Key, 0, len(out.Refunds))

	for _, r := range out.Refunds {
		keys = append(keys, cache.SlotKey(r.TargetID))
		evs = append(evs,
			realtime.NewEvent(realtime.UserTopic(r.UserID), realtime.EventRefund, map[string]any{
				"id":     r.TargetID,
				"amount": r.Amount,
			}),
			credits.BalanceEvent(r.UserID, r.NewBalance),
		)
	}

	s.leaders.Invalidate(ctx, keys...)
	s.pub.Publish(ctx, evs...)

	return out, nil
}

func (s *SettlementService) settleOutstandingPacks(tx *sql.Tx, round rounds.Round) ([]PackOutcome, error) {
	// the round row lock keeps new pulls out while this runs
	packs, err := s.pulls.ListRoundPacks(tx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("list pulled packs: %w", err)
	}

	var outcomes []PackOutcome

	for _, pack := range packs {
		settled, err := s.entries.ResultExists(tx, round.ID, pack)
		if err != nil {
			return nil, fmt.Errorf("check pack settled: %w", err)
		}

		if settled {
			continue
		}

		out, err := s.settlePack(tx, round, pack)
		if err != nil {
			return nil, fmt.Errorf("settle pack %d: %w", pack, err)
		}

		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

func (s *SettlementService) refundUnpulled(tx *sql.Tx, roundID uuid.UUID) ([]Refund, error) {
	slots, err := s.chase.LockRoundSlots(tx, roundID)
	if err != nil {
		return nil, fmt.Errorf("lock slots: %w", err)
	}

	type pending struct {
		slot chase.Slot
		top  *auction.Bid
	}

	var (
		open    []pending
		leaders []uuid.UUID
	)

	for _, sl := range slots {
		if sl.Settled() {
			continue
		}

		top, err := s.chase.TopBid(tx, sl.ID)
		if err != nil {
			return nil, fmt.Errorf("read leader: %w", err)
		}

		open = append(open, pending{slot: sl, top: top})

		if top != nil {
			leaders = append(leaders, top.UserID)
		}
	}

	_, err = s.credits.LockUsers(tx, leaders...)
	if err != nil {
		return nil, err
	}

	at := s.now()

	var refunds []Refund

	for _, p := range open {
		if p.top != nil {
			balance, err := s.credits.Refund(tx, credits.Movement{
				TransactionID: "refund:" + p.top.ID.String(),
				UserID:        p.top.UserID,
				Amount:        p.top.Amount,
				Reference:     "chase " + p.slot.CardName + " not pulled",
			})
			if err != nil {
				return nil, fmt.Errorf("refund leader: %w", err)
			}

			refunds = append(refunds, Refund{
				TargetID:   p.slot.ID,
				UserID:     p.top.UserID,
				Amount:     p.top.Amount,
				NewBalance: balance,
			})
		}

		err = s.chase.SettleWithoutWinner(tx, p.slot.ID, at)
		if err != nil {
			return nil, err
		}
	}

	return refunds, nil
}

func biddingEvent(r rounds.Round) realtime.Event {
	return realtime.NewEvent(realtime.RoundTopic(r.ID), realtime.EventBidding, map[string]any{
		"status": r.BiddingStatus,
		"endsAt": r.BiddingEndsAt,
	})
}
