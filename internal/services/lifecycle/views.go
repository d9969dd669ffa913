package lifecycle

import (
	"context"
	"fmt"

	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/fastprodman/ripbid/internal/repos/pulls"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/fastprodman/ripbid/internal/repos/singles"
	"github.com/fastprodman/ripbid/internal/repos/streams"
	"github.com/google/uuid"
)

// Overview is the storefront dashboard for one stream as seen by viewer.
type Overview struct {
	Stream           streams.Stream
	Rounds           []rounds.Round
	CurrentRound     *rounds.Round
	ActiveSlots      int
	LeadingSlots     int
	LotteryEntries   int
	MyLotteryEntries int
	ActiveSingles    int
	LeadingSingles   int
	LastHit          *pulls.Pull
}

// Overview aggregates the stream dashboard; viewer may be uuid.Nil.
func (s *LifecycleService) Overview(ctx context.Context, streamID, viewer uuid.UUID) (Overview, error) {
	st, err := s.streams.Get(ctx, streamID)
	if err != nil {
		return Overview{}, fmt.Errorf("get stream: %w", err)
	}

	out := Overview{Stream: st}

	out.Rounds, err = s.rounds.ListByStream(ctx, streamID)
	if err != nil {
		return Overview{}, fmt.Errorf("list rounds: %w", err)
	}

	out.CurrentRound = currentRound(out.Rounds)

	if out.CurrentRound != nil {
		slots, err := s.chase.ListSlots(ctx, out.CurrentRound.ID)
		if err != nil {
			return Overview{}, fmt.Errorf("list slots: %w", err)
		}

		for _, v := range slots {
			if v.IsActive && !v.Settled() {
				out.ActiveSlots++
			}

			if viewer != uuid.Nil && v.Leader != nil && v.Leader.UserID == viewer && !v.Settled() {
				out.LeadingSlots++
			}
		}

		counts, err := s.entries.Counts(ctx, out.CurrentRound.ID)
		if err != nil {
			return Overview{}, fmt.Errorf("count entries: %w", err)
		}

		for _, c := range counts {
			out.LotteryEntries += c.N
		}

		if viewer != uuid.Nil {
			out.MyLotteryEntries, err = s.entries.CountByUser(ctx, out.CurrentRound.ID, viewer)
			if err != nil {
				return Overview{}, fmt.Errorf("count user entries: %w", err)
			}
		}
	}

	list, err := s.singles.ListByStream(ctx, streamID)
	if err != nil {
		return Overview{}, fmt.Errorf("list singles: %w", err)
	}

	for _, v := range list {
		if v.Status != stream.SingleOpen || !v.IsActive {
			continue
		}

		out.ActiveSingles++

		if viewer != uuid.Nil && v.Leader != nil && v.Leader.UserID == viewer {
			out.LeadingSingles++
		}
	}

	out.LastHit, err = s.pulls.LastHit(ctx, streamID)
	if err != nil {
		return Overview{}, fmt.Errorf("last hit: %w", err)
	}

	return out, nil
}

// currentRound prefers the open round, then the first one not yet
// concluded, then the last.
func currentRound(list []rounds.Round) *rounds.Round {
	if len(list) == 0 {
		return nil
	}

	for i := range list {
		if list[i].BiddingStatus == stream.BiddingOpen {
			return &list[i]
		}
	}

	for i := range list {
		if !list[i].Locked {
			return &list[i]
		}
	}

	return &list[len(list)-1]
}

func (s *LifecycleService) Rounds(ctx context.Context, streamID uuid.UUID) ([]rounds.Round, error) {
	list, err := s.rounds.ListByStream(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}

	return list, nil
}

func (s *LifecycleService) Slots(ctx context.Context, roundID uuid.UUID) ([]chase.SlotView, error) {
	_, err := s.rounds.Get(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("get round: %w", err)
	}

	list, err := s.chase.ListSlots(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	return list, nil
}

func (s *LifecycleService) Singles(ctx context.Context, streamID uuid.UUID) ([]singles.SingleView, error) {
	_, err := s.streams.Get(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	list, err := s.singles.ListByStream(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("list singles: %w", err)
	}

	return list, nil
}

func (s *LifecycleService) Pulls(ctx context.Context, roundID uuid.UUID) ([]pulls.Pull, error) {
	list, err := s.pulls.ListRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("list pulls: %w", err)
	}

	return list, nil
}
