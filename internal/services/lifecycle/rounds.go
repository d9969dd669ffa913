package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/google/uuid"
)

// NewRound creates one of a stream's three rounds. Set accepts the catalog
// name or its short alias; zero numeric fields take the defaults.
type NewRound struct {
	StreamID      uuid.UUID
	RoundNumber   int
	Set           string
	TotalPacks    int
	ChaseMinPrice int64
}

func (s *LifecycleService) CreateRound(ctx context.Context, in NewRound) (rounds.Round, error) {
	if in.RoundNumber < stream.MinRoundNumber || in.RoundNumber > stream.MaxRoundNumber {
		return rounds.Round{}, validate.Errorf("roundNumber", "must be between %d and %d",
			stream.MinRoundNumber, stream.MaxRoundNumber)
	}

	set, err := rarity.ParseSet(in.Set)
	if err != nil {
		return rounds.Round{}, validate.Errorf("set", "%q is not a supported set", in.Set)
	}

	if in.TotalPacks == 0 {
		in.TotalPacks = DefaultTotalPacks
	}

	if in.TotalPacks < 0 {
		return rounds.Round{}, validate.Errorf("totalPacks", "must be positive")
	}

	if in.ChaseMinPrice == 0 {
		in.ChaseMinPrice = DefaultChaseMinPrice
	}

	st, err := s.streams.Get(ctx, in.StreamID)
	if err != nil {
		return rounds.Round{}, fmt.Errorf("get stream: %w", err)
	}

	if st.Status == stream.StatusEnded {
		return rounds.Round{}, fmt.Errorf("add round to ended stream: %w", stream.ErrInvalidTransition)
	}

	r := rounds.Round{
		ID:                uuid.New(),
		StreamID:          st.ID,
		RoundNumber:       in.RoundNumber,
		SetName:           set,
		TotalPacksPlanned: in.TotalPacks,
		ChaseMinPrice:     in.ChaseMinPrice,
	}

	err = s.rounds.Create(ctx, r)
	if err != nil {
		return rounds.Round{}, fmt.Errorf("create round: %w", err)
	}

	return s.rounds.Get(ctx, r.ID)
}

// OpenBidding opens (or reopens) the round's window for d, DefaultBiddingWindow
// when d is zero, and unlocks its slots. A round cannot reopen once any pack
// has been pulled.
func (s *LifecycleService) OpenBidding(ctx context.Context, roundID uuid.UUID, d time.Duration) (rounds.Round, error) {
	if d <= 0 {
		d = DefaultBiddingWindow
	}

	return s.updateBidding(ctx, roundID, func(tx *sql.Tx, r *rounds.Round) error {
		err := r.BiddingStatus.Transition(stream.BiddingOpen)
		if err != nil {
			return err
		}

		packs, err := s.pulls.ListRoundPacks(tx, r.ID)
		if err != nil {
			return fmt.Errorf("list pulled packs: %w", err)
		}

		if len(packs) > 0 {
			return settlement.ErrPullsRecorded
		}

		endsAt := s.now().Add(d)
		r.BiddingStatus = stream.BiddingOpen
		r.BiddingEndsAt = &endsAt

		return s.chase.SetRoundLocked(tx, r.ID, false)
	})
}

// ExtendBidding pushes an open window out by extra (DefaultExtension when
// zero), counted from now if the deadline already passed.
func (s *LifecycleService) ExtendBidding(ctx context.Context, roundID uuid.UUID, extra time.Duration) (rounds.Round, error) {
	if extra <= 0 {
		extra = DefaultExtension
	}

	return s.updateBidding(ctx, roundID, func(_ *sql.Tx, r *rounds.Round) error {
		if r.BiddingStatus != stream.BiddingOpen {
			return auction.ErrBiddingClosed
		}

		base := s.now()
		if r.BiddingEndsAt != nil && r.BiddingEndsAt.After(base) {
			base = *r.BiddingEndsAt
		}

		endsAt := base.Add(extra)
		r.BiddingEndsAt = &endsAt

		return nil
	})
}

func (s *LifecycleService) updateBidding(ctx context.Context, roundID uuid.UUID, change func(*sql.Tx, *rounds.Round) error) (rounds.Round, error) {
	var round rounds.Round

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error

		round, err = s.rounds.Lock(tx, roundID)
		if err != nil {
			return fmt.Errorf("lock round: %w", err)
		}

		if round.Locked {
			return settlement.ErrRoundConcluded
		}

		err = change(tx, &round)
		if err != nil {
			return err
		}

		return s.rounds.UpdateBidding(tx, round.ID, round.BiddingStatus, round.BiddingEndsAt)
	})
	if err != nil {
		return rounds.Round{}, fmt.Errorf("update bidding: %w", err)
	}

	logging.From(ctx).Info("round bidding updated",
		"round_id", roundID, "status", round.BiddingStatus, "ends_at", round.BiddingEndsAt)

	s.pub.Publish(ctx, realtime.NewEvent(realtime.RoundTopic(roundID), realtime.EventBidding, map[string]any{
		"status": round.BiddingStatus,
		"endsAt": round.BiddingEndsAt,
	}))

	return round, nil
}
