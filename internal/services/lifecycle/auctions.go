package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/repos/cards"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/fastprodman/ripbid/internal/repos/singles"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/google/uuid"
)

// AuctionDefaults seed generated slots and singles, in minor units.
type AuctionDefaults struct {
	StartingBid  int64
	MinIncrement int64
}

func (d AuctionDefaults) orDefault() AuctionDefaults {
	if d.StartingBid <= 0 {
		d.StartingBid = DefaultStartingBid
	}

	if d.MinIncrement <= 0 {
		d.MinIncrement = DefaultMinIncrement
	}

	return d
}

type NewSlot struct {
	RoundID      uuid.UUID
	CardID       *int64
	CardName     string
	StartingBid  int64
	MinIncrement int64
}

func (s *LifecycleService) CreateSlot(ctx context.Context, in NewSlot) (chase.Slot, error) {
	if in.CardID != nil {
		card, err := s.cards.Get(ctx, *in.CardID)
		if err != nil {
			return chase.Slot{}, fmt.Errorf("get card: %w", err)
		}

		if in.CardName == "" {
			in.CardName = card.Name
		}
	}

	err := checkAuction(in.CardName, in.StartingBid, in.MinIncrement)
	if err != nil {
		return chase.Slot{}, err
	}

	round, err := s.rounds.Get(ctx, in.RoundID)
	if err != nil {
		return chase.Slot{}, fmt.Errorf("get round: %w", err)
	}

	if round.Locked {
		return chase.Slot{}, settlement.ErrRoundConcluded
	}

	slot := chase.Slot{
		ID:           uuid.New(),
		RoundID:      round.ID,
		CardID:       in.CardID,
		CardName:     in.CardName,
		StartingBid:  in.StartingBid,
		MinIncrement: in.MinIncrement,
		IsActive:     true,
	}

	err = s.chase.CreateSlot(ctx, slot)
	if err != nil {
		return chase.Slot{}, fmt.Errorf("create slot: %w", err)
	}

	return s.chase.GetSlot(ctx, slot.ID)
}

// GenerateSlots creates a slot for every catalog card of the round's set
// priced at or above the round's chase minimum. Cards that already have a
// slot are skipped, so the call can be repeated.
func (s *LifecycleService) GenerateSlots(ctx context.Context, roundID uuid.UUID, d AuctionDefaults) (int, error) {
	d = d.orDefault()

	round, err := s.rounds.Get(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("get round: %w", err)
	}

	if round.Locked {
		return 0, settlement.ErrRoundConcluded
	}

	candidates, err := s.cards.ChaseCandidates(ctx, round.SetName, round.ChaseMinPrice)
	if err != nil {
		return 0, fmt.Errorf("chase candidates: %w", err)
	}

	slots := make([]chase.Slot, 0, len(candidates))

	for _, c := range candidates {
		id := c.ID
		slots = append(slots, chase.Slot{
			ID:           uuid.New(),
			RoundID:      round.ID,
			CardID:       &id,
			CardName:     c.Name,
			StartingBid:  d.StartingBid,
			MinIncrement: d.MinIncrement,
			IsActive:     true,
		})
	}

	var created int

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		created, err = s.chase.CreateSlots(tx, slots)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("generate slots: %w", err)
	}

	logging.From(ctx).Info("chase slots generated", "round_id", roundID, "created", created, "candidates", len(candidates))

	return created, nil
}

type NewSingle struct {
	StreamID     uuid.UUID
	CardID       *int64
	CardName     string
	CardNumber   string
	SetName      string
	ImageURL     string
	StartingBid  int64
	MinIncrement int64
	BuyNow       *int64
}

func (s *LifecycleService) CreateSingle(ctx context.Context, in NewSingle) (singles.Single, error) {
	if in.CardID != nil {
		card, err := s.cards.Get(ctx, *in.CardID)
		if err != nil {
			return singles.Single{}, fmt.Errorf("get card: %w", err)
		}

		in = fillSingle(in, card)
	}

	err := checkAuction(in.CardName, in.StartingBid, in.MinIncrement)
	if err != nil {
		return singles.Single{}, err
	}

	if in.BuyNow != nil && *in.BuyNow < in.StartingBid {
		return singles.Single{}, validate.Errorf("buyNow", "must not be below the starting bid")
	}

	st, err := s.streams.Get(ctx, in.StreamID)
	if err != nil {
		return singles.Single{}, fmt.Errorf("get stream: %w", err)
	}

	if st.Status == stream.StatusEnded {
		return singles.Single{}, fmt.Errorf("add single to ended stream: %w", stream.ErrInvalidTransition)
	}

	sg := singles.Single{
		ID:           uuid.New(),
		StreamID:     st.ID,
		CardID:       in.CardID,
		CardName:     in.CardName,
		CardNumber:   in.CardNumber,
		SetName:      in.SetName,
		ImageURL:     in.ImageURL,
		StartingBid:  in.StartingBid,
		MinIncrement: in.MinIncrement,
		BuyNow:       in.BuyNow,
		Status:       stream.SingleOpen,
		IsActive:     true,
	}

	err = s.singles.Create(ctx, sg)
	if err != nil {
		return singles.Single{}, fmt.Errorf("create single: %w", err)
	}

	return s.singles.Get(ctx, sg.ID)
}

// GenerateSingles lists every catalog card flagged for live singles on the
// stream, skipping cards already listed.
func (s *LifecycleService) GenerateSingles(ctx context.Context, streamID uuid.UUID, d AuctionDefaults) (int, error) {
	d = d.orDefault()

	st, err := s.streams.Get(ctx, streamID)
	if err != nil {
		return 0, fmt.Errorf("get stream: %w", err)
	}

	flagged, err := s.cards.FlaggedForSingles(ctx)
	if err != nil {
		return 0, fmt.Errorf("flagged cards: %w", err)
	}

	list := make([]singles.Single, 0, len(flagged))

	for _, c := range flagged {
		id := c.ID
		in := fillSingle(NewSingle{CardID: &id}, c)
		list = append(list, singles.Single{
			ID:           uuid.New(),
			StreamID:     st.ID,
			CardID:       &id,
			CardName:     in.CardName,
			CardNumber:   in.CardNumber,
			SetName:      in.SetName,
			ImageURL:     in.ImageURL,
			StartingBid:  d.StartingBid,
			MinIncrement: d.MinIncrement,
		})
	}

	var created int

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		created, err = s.singles.CreateMany(tx, list)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("generate singles: %w", err)
	}

	logging.From(ctx).Info("live singles generated", "stream_id", streamID, "created", created)

	return created, nil
}

func (s *LifecycleService) UpsertCard(ctx context.Context, c cards.Card) (cards.Card, error) {
	if strings.TrimSpace(c.Name) == "" {
		return cards.Card{}, validate.Errorf("cardName", "required")
	}

	set, err := rarity.ParseSet(string(c.SetName))
	if err != nil {
		return cards.Card{}, validate.Errorf("setName", "%q is not a supported set", c.SetName)
	}

	c.SetName = set

	id, err := s.cards.Upsert(ctx, c)
	if err != nil {
		return cards.Card{}, fmt.Errorf("upsert card: %w", err)
	}

	return s.cards.Get(ctx, id)
}

func (s *LifecycleService) SearchCards(ctx context.Context, set, query string, limit int) ([]cards.Card, error) {
	var parsed rarity.Set

	if set != "" {
		var err error

		parsed, err = rarity.ParseSet(set)
		if err != nil {
			return nil, validate.Errorf("set", "%q is not a supported set", set)
		}
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	list, err := s.cards.Search(ctx, parsed, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}

	return list, nil
}

func fillSingle(in NewSingle, c cards.Card) NewSingle {
	if in.CardName == "" {
		in.CardName = c.Name
	}

	if in.CardNumber == "" {
		in.CardNumber = c.Number
	}

	if in.SetName == "" {
		in.SetName = string(c.SetName)
	}

	if in.ImageURL == "" {
		in.ImageURL = c.ImageURL
	}

	return in
}

func checkAuction(name string, start, inc int64) error {
	if strings.TrimSpace(name) == "" {
		return validate.Errorf("cardName", "required")
	}

	if start <= 0 {
		return validate.Errorf("startingBid", "must be positive")
	}

	if inc < 0 {
		return validate.Errorf("minIncrement", "must not be negative")
	}

	return nil
}
