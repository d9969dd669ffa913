package lottery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	pglottery "github.com/fastprodman/ripbid/internal/repos/lottery/postgres"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	pgrounds "github.com/fastprodman/ripbid/internal/repos/rounds/postgres"
	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/google/uuid"
)

type EntryRequest struct {
	UserID        uuid.UUID
	RoundID       uuid.UUID
	PackNumber    int
	Rarity        string
	TransactionID string
}

type EntryResult struct {
	Entry      lottery.Entry
	NewBalance int64
}

// CheckoutEntry is a lottery entry paid through checkout instead of credits.
type CheckoutEntry struct {
	SessionID string
	UserID    uuid.UUID
	RoundID   uuid.UUID
	Rarity    string
}

// Participants are entrant counts per pack and tier. RoundWide holds paid
// entries, which compete in every pack of the round.
type Participants struct {
	ByPack    map[int]map[rarity.Tier]int
	RoundWide map[rarity.Tier]int
	Total     int
	Mine      int
}

type LotteryService struct {
	db        *sql.DB
	credits   *credits.CreditService
	rounds    rounds.Rounds
	entries   lottery.Lottery
	pub       realtime.Publisher
	entryCost int64
	now       func() time.Time
}

func New(dbx *sql.DB, cs *credits.CreditService, pub realtime.Publisher, entryCost int64) *LotteryService {
	return &LotteryService{
		db:        dbx,
		credits:   cs,
		rounds:    pgrounds.New(dbx),
		entries:   pglottery.New(dbx),
		pub:       pub,
		entryCost: entryCost,
		now:       time.Now,
	}
}

// Enter buys one ticket for (round, pack) with a chosen rarity. The entry
// insert and the debit commit together; a duplicate (user, round, pack)
// debits nothing.
func (s *LotteryService) Enter(ctx context.Context, req EntryRequest) (EntryResult, error) {
	var res EntryResult

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// FOR SHARE: entries run concurrently, settlement waits for them
		round, err := s.rounds.Share(tx, req.RoundID)
		if err != nil {
			return fmt.Errorf("share round: %w", err)
		}

		tier, err := checkEntry(round, req.PackNumber, req.Rarity)
		if err != nil {
			return err
		}

		err = round.CheckAcceptingBids(s.now())
		if err != nil {
			return err
		}

		settled, err := s.entries.ResultExists(tx, round.ID, req.PackNumber)
		if err != nil {
			return fmt.Errorf("check pack settled: %w", err)
		}

		if settled {
			return auction.ErrBiddingClosed
		}

		locked, err := s.credits.LockUsers(tx, req.UserID)
		if err != nil {
			return err
		}

		if _, ok := locked[req.UserID]; !ok {
			return users.ErrInsufficientCredits
		}

		pack := req.PackNumber

		res.Entry, err = s.entries.Insert(tx, lottery.Entry{
			ID:          uuid.New(),
			UserID:      req.UserID,
			RoundID:     round.ID,
			PackNumber:  &pack,
			Rarity:      tier,
			CreditsUsed: s.entryCost,
		})
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}

		res.NewBalance, err = s.credits.Debit(tx, credits.Movement{
			TransactionID: req.TransactionID,
			UserID:        req.UserID,
			Amount:        s.entryCost,
			Reference:     fmt.Sprintf("lottery round %d pack %d", round.RoundNumber, pack),
		})
		if err != nil {
			return fmt.Errorf("debit entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return EntryResult{}, fmt.Errorf("enter lottery: %w", err)
	}

	logging.From(ctx).Info("lottery entry",
		"round_id", req.RoundID, "pack", req.PackNumber, "rarity", res.Entry.Rarity, "user_id", req.UserID)

	s.pub.Publish(ctx,
		realtime.NewEvent(realtime.RoundTopic(req.RoundID), realtime.EventLotteryEntries, map[string]any{
			"packNumber": req.PackNumber,
			"rarity":     res.Entry.Rarity,
		}),
		credits.BalanceEvent(req.UserID, res.NewBalance),
	)

	return res, nil
}

// ConfirmPaidEntry records a checkout-paid entry. Payment already happened, so
// it is accepted whatever the bidding state; redelivery updates the same row.
func (s *LotteryService) ConfirmPaidEntry(ctx context.Context, ce CheckoutEntry) (lottery.Entry, error) {
	var out lottery.Entry

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		round, err := s.rounds.Share(tx, ce.RoundID)
		if err != nil {
			return fmt.Errorf("share round: %w", err)
		}

		tier, err := parseTier(round.SetName, ce.Rarity)
		if err != nil {
			return err
		}

		err = s.credits.EnsureUser(tx, ce.UserID)
		if err != nil {
			return err
		}

		session := ce.SessionID

		out, err = s.entries.UpsertPaid(tx, lottery.Entry{
			ID:                uuid.New(),
			UserID:            ce.UserID,
			RoundID:           round.ID,
			Rarity:            tier,
			PaymentConfirmed:  true,
			CheckoutSessionID: &session,
		})

		return err
	})
	if err != nil {
		return lottery.Entry{}, fmt.Errorf("confirm paid entry: %w", err)
	}

	s.pub.Publish(ctx, realtime.NewEvent(realtime.RoundTopic(ce.RoundID), realtime.EventLotteryEntries, map[string]any{
		"rarity": out.Rarity,
		"paid":   true,
	}))

	return out, nil
}

// Participants aggregates entry counts; viewer may be uuid.Nil.
func (s *LotteryService) Participants(ctx context.Context, roundID, viewer uuid.UUID) (Participants, error) {
	_, err := s.rounds.Get(ctx, roundID)
	if err != nil {
		return Participants{}, fmt.Errorf("get round: %w", err)
	}

	counts, err := s.entries.Counts(ctx, roundID)
	if err != nil {
		return Participants{}, fmt.Errorf("count entries: %w", err)
	}

	p := Participants{
		ByPack:    make(map[int]map[rarity.Tier]int),
		RoundWide: make(map[rarity.Tier]int),
	}

	for _, c := range counts {
		p.Total += c.N

		if c.Pack == nil {
			p.RoundWide[c.Rarity] += c.N
			continue
		}

		if p.ByPack[*c.Pack] == nil {
			p.ByPack[*c.Pack] = make(map[rarity.Tier]int)
		}

		p.ByPack[*c.Pack][c.Rarity] += c.N
	}

	if viewer != uuid.Nil {
		p.Mine, err = s.entries.CountByUser(ctx, roundID, viewer)
		if err != nil {
			return Participants{}, fmt.Errorf("count user entries: %w", err)
		}
	}

	return p, nil
}

func (s *LotteryService) Results(ctx context.Context, roundID uuid.UUID) ([]lottery.Result, error) {
	res, err := s.entries.Results(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	return res, nil
}

func checkEntry(round rounds.Round, pack int, tier string) (rarity.Tier, error) {
	if !round.ValidPack(pack) {
		return "", validate.Errorf("packNumber", "must be between 1 and %d", round.TotalPacksPlanned)
	}

	return parseTier(round.SetName, tier)
}

func parseTier(set rarity.Set, tier string) (rarity.Tier, error) {
	t := rarity.Tier(tier)

	err := rarity.Validate(set, t)
	if err != nil {
		if errors.Is(err, rarity.ErrUnknownRarity) || errors.Is(err, rarity.ErrUnknownSet) {
			return "", validate.Errorf("rarity", "%q is not a lottery tier of %s", tier, set)
		}

		return "", err
	}

	return t, nil
}
