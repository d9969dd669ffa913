package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/fastprodman/ripbid/internal/repos/pulls"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/google/uuid"
)

// RecordPull stores a card opened on stream. Bidding must be over and the
// pack not yet settled.
func (s *SettlementService) RecordPull(ctx context.Context, in PullInput) (pulls.Pull, error) {
	if in.CardID != nil {
		card, err := s.cards.Get(ctx, *in.CardID)
		if err != nil {
			return pulls.Pull{}, fmt.Errorf("get card: %w", err)
		}

		in.CardName = orElse(in.CardName, card.Name)
		in.CardNumber = orElse(in.CardNumber, card.Number)
		in.Rarity = orElse(in.Rarity, card.Rarity)
	}

	if strings.TrimSpace(in.CardName) == "" {
		return pulls.Pull{}, validate.Errorf("cardName", "required")
	}

	var out pulls.Pull

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		round, err := s.rounds.Lock(tx, in.RoundID)
		if err != nil {
			return fmt.Errorf("lock round: %w", err)
		}

		err = s.checkPack(tx, round, in.PackNumber)
		if err != nil {
			return err
		}

		tier, err := resolveTier(round.SetName, in)
		if err != nil {
			return err
		}

		out, err = s.pulls.Insert(tx, pulls.Pull{
			ID:         uuid.New(),
			RoundID:    round.ID,
			PackNumber: in.PackNumber,
			CardID:     in.CardID,
			CardName:   in.CardName,
			CardNumber: in.CardNumber,
			Rarity:     in.Rarity,
			Tier:       tier,
		})
		if err != nil {
			return fmt.Errorf("insert pull: %w", err)
		}

		return nil
	})
	if err != nil {
		return pulls.Pull{}, fmt.Errorf("record pull: %w", err)
	}

	logging.From(ctx).Info("pull recorded",
		"round_id", out.RoundID, "pack", out.PackNumber, "card", out.CardName, "tier", out.Tier)

	s.pub.Publish(ctx, realtime.NewEvent(realtime.RoundTopic(out.RoundID), realtime.EventPullRecorded, map[string]any{
		"packNumber": out.PackNumber,
		"cardName":   out.CardName,
		"tier":       out.Tier,
	}))

	return out, nil
}

// checkPack guards every per-pack operator action.
func (s *SettlementService) checkPack(tx *sql.Tx, round rounds.Round, pack int) error {
	if round.Locked {
		return ErrRoundConcluded
	}

	if !round.ValidPack(pack) {
		return validate.Errorf("packNumber", "must be between 1 and %d", round.TotalPacksPlanned)
	}

	if round.BiddingStatus == stream.BiddingOpen {
		return ErrBiddingStillOpen
	}

	settled, err := s.entries.ResultExists(tx, round.ID, pack)
	if err != nil {
		return fmt.Errorf("check pack settled: %w", err)
	}

	if settled {
		return lottery.ErrPackAlreadySettled
	}

	return nil
}

func resolveTier(set rarity.Set, in PullInput) (*rarity.Tier, error) {
	if in.Tier != "" {
		t := rarity.Tier(in.Tier)

		err := rarity.Validate(set, t)
		if err != nil {
			if errors.Is(err, rarity.ErrUnknownRarity) || errors.Is(err, rarity.ErrUnknownSet) {
				return nil, validate.Errorf("tier", "%q is not a lottery tier of %s", in.Tier, set)
			}

			return nil, err
		}

		return &t, nil
	}

	t, ok := rarity.Classify(set, rarity.Card{Name: in.CardName, Number: in.CardNumber, Rarity: in.Rarity})
	if !ok {
		return nil, nil
	}

	return &t, nil
}

func orElse(given, fallback string) string {
	if given != "" {
		return given
	}

	return fallback
}
