package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fastprodman/ripbid/internal/cache"
	domlottery "github.com/fastprodman/ripbid/internal/domain/lottery"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/fastprodman/ripbid/internal/repos/pulls"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/google/uuid"
)

// SettlePack settles one opened pack in a single DB transaction:
//
// 1) Chase: each pulled card matching an unsettled slot with a leader goes to
// that leader.
// 2) Lottery: the pool is the entrants of the rarest pulled tier that has any;
// one is drawn and wins every pulled card not claimed by a chase.
// 3) The result row makes the pack settled exactly once.
func (s *SettlementService) SettlePack(ctx context.Context, roundID uuid.UUID, pack int) (PackOutcome, error) {
	var out PackOutcome

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		round, err := s.rounds.Lock(tx, roundID)
		if err != nil {
			return fmt.Errorf("lock round: %w", err)
		}

		err = s.checkPack(tx, round, pack)
		if err != nil {
			return err
		}

		out, err = s.settlePack(tx, round, pack)

		return err
	})
	if err != nil {
		return PackOutcome{}, fmt.Errorf("settle pack: %w", err)
	}

	logging.From(ctx).Info("pack settled",
		"round_id", roundID, "pack", pack, "winner", out.Result.WinnerUserID,
		"pool_size", out.Result.PoolSize, "chase_awards", len(out.ChaseAwards))

	s.afterPack(ctx, roundID, out)

	return out, nil
}

func (s *SettlementService) settlePack(tx *sql.Tx, round rounds.Round, pack int) (PackOutcome, error) {
	at := s.now()

	packPulls, err := s.pulls.LockPack(tx, round.ID, pack)
	if err != nil {
		return PackOutcome{}, fmt.Errorf("lock pack pulls: %w", err)
	}

	slots, err := s.chase.LockRoundSlots(tx, round.ID)
	if err != nil {
		return PackOutcome{}, fmt.Errorf("lock slots: %w", err)
	}

	out := PackOutcome{Result: lottery.Result{
		ID:         uuid.New(),
		RoundID:    round.ID,
		PackNumber: pack,
		SettledAt:  at,
	}}

	out.ChaseAwards, err = s.awardChase(tx, slots, packPulls, at)
	if err != nil {
		return PackOutcome{}, err
	}

	entries, err := s.entries.EntriesForPack(tx, round.ID, pack)
	if err != nil {
		return PackOutcome{}, fmt.Errorf("pack entries: %w", err)
	}

	pool, ok, err := domlottery.SelectPool(round.SetName, pulledTiers(packPulls), toPoolEntries(entries))
	if err != nil {
		return PackOutcome{}, fmt.Errorf("select pool: %w", err)
	}

	if ok {
		winner, err := s.draw(pool)
		if err != nil {
			return PackOutcome{}, fmt.Errorf("draw winner: %w", err)
		}

		tier := pool.Tier
		out.Result.WinningRarity = &tier
		out.Result.WinnerUserID = &winner.UserID
		out.Result.WinningEntryID = &winner.ID
		out.Result.PoolSize = len(pool.Entries)

		for _, p := range packPulls {
			if p.AwardedTo != nil {
				continue
			}

			err = s.pulls.Award(tx, p.ID, winner.UserID, pulls.AwardLottery)
			if err != nil {
				return PackOutcome{}, err
			}

			kind := pulls.AwardLottery
			p.AwardedTo = &winner.UserID
			p.AwardKind = &kind
			out.Prize = append(out.Prize, p)
		}
	}

	err = s.entries.InsertResult(tx, out.Result)
	if err != nil {
		return PackOutcome{}, fmt.Errorf("insert result: %w", err)
	}

	err = s.rounds.IncrementPacksOpened(tx, round.ID)
	if err != nil {
		return PackOutcome{}, fmt.Errorf("count pack opened: %w", err)
	}

	return out, nil
}

// awardChase settles slots whose card appears in the pack. A slot nobody bid
// on stays open here and is closed out when the round concludes. Awarded
// pulls are marked in packPulls.
func (s *SettlementService) awardChase(tx *sql.Tx, slots []chase.Slot, packPulls []pulls.Pull, at time.Time) ([]ChaseAward, error) {
	var awards []ChaseAward

	for i := range packPulls {
		p := &packPulls[i]
		if p.AwardedTo != nil {
			continue
		}

		j := matchSlot(slots, *p)
		if j < 0 {
			continue
		}

		top, err := s.chase.TopBid(tx, slots[j].ID)
		if err != nil {
			return nil, fmt.Errorf("read leader: %w", err)
		}

		if top == nil {
			continue
		}

		err = s.chase.Award(tx, slots[j].ID, *top, at)
		if err != nil {
			return nil, err
		}

		err = s.pulls.Award(tx, p.ID, top.UserID, pulls.AwardChase)
		if err != nil {
			return nil, err
		}

		kind := pulls.AwardChase
		p.AwardedTo = &top.UserID
		p.AwardKind = &kind
		slots[j].SettledAt = &at

		awards = append(awards, ChaseAward{SlotID: slots[j].ID, PullID: p.ID, CardName: p.CardName, Bid: *top})
	}

	return awards, nil
}

// matchSlot finds the unsettled slot for a pulled card: by catalog id when
// both sides have one, otherwise by card name.
func matchSlot(slots []chase.Slot, p pulls.Pull) int {
	for i, sl := range slots {
		if sl.Settled() || !sl.IsActive {
			continue
		}

		if sl.CardID != nil && p.CardID != nil {
			if *sl.CardID == *p.CardID {
				return i
			}

			continue
		}

		if strings.EqualFold(strings.TrimSpace(sl.CardName), strings.TrimSpace(p.CardName)) {
			return i
		}
	}

	return -1
}

func pulledTiers(ps []pulls.Pull) []rarity.Tier {
	var tiers []rarity.Tier

	for _, p := range ps {
		if p.Tier != nil {
			tiers = append(tiers, *p.Tier)
		}
	}

	return tiers
}

func toPoolEntries(entries []lottery.Entry) []domlottery.Entry {
	out := make([]domlottery.Entry, 0, len(entries))

	for _, e := range entries {
		out = append(out, domlottery.Entry{ID: e.ID, UserID: e.UserID, Tier: e.Rarity, CreatedAt: e.CreatedAt})
	}

	return out
}

func (s *SettlementService) afterPack(ctx context.Context, roundID uuid.UUID, out PackOutcome) {
	evs := []realtime.Event{
		realtime.NewEvent(realtime.RoundTopic(roundID), realtime.EventPackSettled, map[string]any{
			"packNumber":    out.Result.PackNumber,
			"winningRarity": out.Result.WinningRarity,
			"winnerUserId":  out.Result.WinnerUserID,
			"poolSize":      out.Result.PoolSize,
		}),
	}

	keys := make([]cache.Key, 0, len(out.ChaseAwards))

	for _, a := range out.ChaseAwards {
		keys = append(keys, cache.SlotKey(a.SlotID))
		evs = append(evs,
			realtime.NewEvent(realtime.RoundTopic(roundID), realtime.EventSlotSettled, map[string]any{
				"id":     a.SlotID,
				"userId": a.Bid.UserID,
				"amount": a.Bid.Amount,
			}),
			realtime.NewEvent(realtime.UserTopic(a.Bid.UserID), realtime.EventWon, map[string]any{
				"kind":     pulls.AwardChase,
				"cardName": a.CardName,
			}),
		)
	}

	if out.Result.WinnerUserID != nil && len(out.Prize) > 0 {
		names := make([]string, 0, len(out.Prize))
		for _, p := range out.Prize {
			names = append(names, p.CardName)
		}

		evs = append(evs, realtime.NewEvent(realtime.UserTopic(*out.Result.WinnerUserID), realtime.EventWon, map[string]any{
			"kind":       pulls.AwardLottery,
			"packNumber": out.Result.PackNumber,
			"cards":      names,
		}))
	}

	s.leaders.Invalidate(ctx, keys...)
	s.pub.Publish(ctx, evs...)
}
