package lifecycle

import (
	"database/sql"
	"testing"
	"time"

	"github.com/fastprodman/ripbid/internal/cache"
	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/pgtestutil"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/cards"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/fastprodman/ripbid/internal/services/credits"
	svclottery "github.com/fastprodman/ripbid/internal/services/lottery"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*LifecycleService, *sql.DB) {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	hub := realtime.NewHub(32)
	closer := settlement.New(db, credits.New(db, hub), hub, cache.NewDirect())

	return New(db, hub, closer), db
}

func TestStreamLifecycle(t *testing.T) {
	t.Parallel()

	svc, db := newService(t)
	ctx := t.Context()

	_, err := svc.CreateStream(ctx, NewStream{})
	require.ErrorIs(t, err, validate.ErrInvalid)

	st, err := svc.CreateStream(ctx, NewStream{Title: "Friday rips", ScheduledDate: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, stream.StatusScheduled, st.Status)

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.ID, cur.ID)

	_, _, err = svc.EndStream(ctx, st.ID)
	require.ErrorIs(t, err, stream.ErrInvalidTransition)

	st, err = svc.StartStream(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, stream.StatusLive, st.Status)
	assert.True(t, st.IsCurrent)
	assert.NotNil(t, st.StartedAt)

	singleID := pgtestutil.SeedSingle(t, db, st.ID, "Pikachu VMAX", 1000, 100)

	st, closed, err := svc.EndStream(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, stream.StatusEnded, st.Status)
	assert.Equal(t, 1, closed.Locked)

	views, err := svc.Singles(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, singleID, views[0].ID)
	assert.Equal(t, stream.SingleLocked, views[0].Status)

	_, err = svc.StartStream(ctx, st.ID)
	require.ErrorIs(t, err, stream.ErrInvalidTransition)
}

func TestRoundBiddingWindow(t *testing.T) {
	t.Parallel()

	svc, db := newService(t)
	ctx := t.Context()
	streamID := pgtestutil.SeedStream(t, db, "live", nil)

	_, err := svc.CreateRound(ctx, NewRound{StreamID: streamID, RoundNumber: 4, Set: "prismatic"})
	require.ErrorIs(t, err, validate.ErrInvalid)

	_, err = svc.CreateRound(ctx, NewRound{StreamID: streamID, RoundNumber: 1, Set: "base set"})
	require.ErrorIs(t, err, validate.ErrInvalid)

	round, err := svc.CreateRound(ctx, NewRound{StreamID: streamID, RoundNumber: 1, Set: "prismatic"})
	require.NoError(t, err)
	assert.Equal(t, rarity.PrismaticEvolutions, round.SetName)
	assert.Equal(t, DefaultTotalPacks, round.TotalPacksPlanned)
	assert.Equal(t, int64(DefaultChaseMinPrice), round.ChaseMinPrice)
	assert.Equal(t, stream.BiddingNotStarted, round.BiddingStatus)

	_, err = svc.CreateRound(ctx, NewRound{StreamID: streamID, RoundNumber: 1, Set: "crown_zenith"})
	require.ErrorIs(t, err, rounds.ErrDuplicateRound)

	_, err = svc.ExtendBidding(ctx, round.ID, 0)
	require.ErrorIs(t, err, auction.ErrBiddingClosed)

	now := time.Now().Truncate(time.Second)
	svc.now = func() time.Time { return now }

	round, err = svc.OpenBidding(ctx, round.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, stream.BiddingOpen, round.BiddingStatus)
	require.NotNil(t, round.BiddingEndsAt)
	assert.True(t, round.BiddingEndsAt.Equal(now.Add(7*time.Minute)))

	round, err = svc.ExtendBidding(ctx, round.ID, 0)
	require.NoError(t, err)
	assert.True(t, round.BiddingEndsAt.Equal(now.Add(8*time.Minute)))

	_, err = svc.OpenBidding(ctx, round.ID, time.Minute)
	require.ErrorIs(t, err, stream.ErrInvalidTransition)

	pgtestutil.MustExec(t, db, `UPDATE rounds SET locked = true WHERE id = $1`, round.ID)
	_, err = svc.ExtendBidding(ctx, round.ID, time.Minute)
	require.ErrorIs(t, err, settlement.ErrRoundConcluded)
}

func TestOpenBidding_RejectedAfterPull(t *testing.T) {
	t.Parallel()

	svc, db := newService(t)
	ctx := t.Context()
	hub := realtime.NewHub(8)
	settle := settlement.New(db, credits.New(db, hub), hub, cache.NewDirect())
	entries := svclottery.New(db, credits.New(db, hub), hub, 500)

	streamID := pgtestutil.SeedStream(t, db, "live", nil)
	round, err := svc.CreateRound(ctx, NewRound{StreamID: streamID, RoundNumber: 1, Set: "prismatic"})
	require.NoError(t, err)

	_, err = svc.OpenBidding(ctx, round.ID, 0)
	require.NoError(t, err)

	_, err = settle.CloseBidding(ctx, round.ID)
	require.NoError(t, err)

	// reopening before anything is pulled is allowed
	_, err = svc.OpenBidding(ctx, round.ID, 0)
	require.NoError(t, err)

	_, err = settle.CloseBidding(ctx, round.ID)
	require.NoError(t, err)

	_, err = settle.RecordPull(ctx, settlement.PullInput{RoundID: round.ID, PackNumber: 3, CardName: "Umbreon ex", Rarity: "Special Illustration Rare"})
	require.NoError(t, err)

	_, err = svc.OpenBidding(ctx, round.ID, 0)
	require.ErrorIs(t, err, settlement.ErrPullsRecorded)

	got, err := svc.rounds.Get(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, stream.BiddingClosed, got.BiddingStatus)

	userID := pgtestutil.SeedUser(t, db, 5000)
	_, err = entries.Enter(ctx, svclottery.EntryRequest{UserID: userID, RoundID: round.ID, PackNumber: 3, Rarity: string(rarity.PrismaticSIR)})
	require.ErrorIs(t, err, auction.ErrBiddingClosed)
	assert.Equal(t, int64(5000), pgtestutil.Credit(t, db, userID))
}

func TestGenerateSlotsAndSingles(t *testing.T) {
	t.Parallel()

	svc, db := newService(t)
	ctx := t.Context()
	streamID := pgtestutil.SeedStream(t, db, "scheduled", nil)

	set := string(rarity.PrismaticEvolutions)
	pgtestutil.SeedCard(t, db, "Umbreon ex", "161/131", set, "Special Illustration Rare", 120000)
	pgtestutil.SeedCard(t, db, "Sylveon ex", "156/131", set, "Special Illustration Rare", 4000)
	pgtestutil.SeedCard(t, db, "Leafeon ex", "144/131", set, "Ultra Rare", 2500)
	pgtestutil.SeedCard(t, db, "Mewtwo VSTAR", "GG44/GG70", string(rarity.CrownZenith), "Ultra Rare", 9000)

	round, err := svc.CreateRound(ctx, NewRound{StreamID: streamID, RoundNumber: 2, Set: set})
	require.NoError(t, err)

	n, err := svc.GenerateSlots(ctx, round.ID, AuctionDefaults{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.GenerateSlots(ctx, round.ID, AuctionDefaults{})
	require.NoError(t, err)
	assert.Zero(t, n)

	slots, err := svc.Slots(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, int64(DefaultStartingBid), slots[0].StartingBid)
	assert.Nil(t, slots[0].Leader)

	pgtestutil.MustExec(t, db, `UPDATE all_cards SET live_singles = true WHERE card_name IN ('Mewtwo VSTAR', 'Leafeon ex')`)

	n, err = svc.GenerateSingles(ctx, streamID, AuctionDefaults{StartingBid: 2000, MinIncrement: 200})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.GenerateSingles(ctx, streamID, AuctionDefaults{})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.CreateSlot(ctx, NewSlot{RoundID: round.ID, CardName: "Custom slab", StartingBid: 0})
	require.ErrorIs(t, err, validate.ErrInvalid)

	slot, err := svc.CreateSlot(ctx, NewSlot{RoundID: round.ID, CardName: "Custom slab", StartingBid: 500, MinIncrement: 50})
	require.NoError(t, err)
	assert.True(t, slot.IsActive)
	assert.Nil(t, slot.CardID)
}

func TestOverview(t *testing.T) {
	t.Parallel()

	svc, db := newService(t)
	ctx := t.Context()

	streamID := pgtestutil.SeedStream(t, db, "live", nil)
	endsAt := time.Now().Add(time.Hour)
	roundID := pgtestutil.SeedRound(t, db, streamID, 1, string(rarity.PrismaticEvolutions), 10, &endsAt)

	viewer := pgtestutil.SeedUser(t, db, 0)
	other := pgtestutil.SeedUser(t, db, 0)

	slotA := pgtestutil.SeedSlot(t, db, roundID, nil, "Umbreon ex", 1000, 100)
	pgtestutil.SeedSlot(t, db, roundID, nil, "Espeon ex", 1000, 100)
	pgtestutil.MustExec(t, db, `INSERT INTO chase_bids (id, slot_id, user_id, amount) VALUES ($1, $2, $3, 1000)`, uuid.New(), slotA, viewer)

	singleID := pgtestutil.SeedSingle(t, db, streamID, "Pikachu VMAX", 1000, 100)
	pgtestutil.MustExec(t, db, `INSERT INTO live_single_bids (id, card_id, user_id, amount) VALUES ($1, $2, $3, 1000)`, uuid.New(), singleID, other)

	for _, u := range []uuid.UUID{viewer, other} {
		pgtestutil.MustExec(t, db, `
			INSERT INTO lottery_entries (id, user_id, round_id, pack_number, selected_rarity, credits_used)
			VALUES ($1, $2, $3, 1, 'SIR', 500)`, uuid.New(), u, roundID)
	}

	pgtestutil.MustExec(t, db, `
		INSERT INTO pulled_cards (id, round_id, pack_number, card_name, lottery_tier)
		VALUES ($1, $2, 1, 'Umbreon ex', 'SIR')`, uuid.New(), roundID)

	ov, err := svc.Overview(ctx, streamID, viewer)
	require.NoError(t, err)
	require.NotNil(t, ov.CurrentRound)
	assert.Equal(t, roundID, ov.CurrentRound.ID)
	assert.Equal(t, 2, ov.ActiveSlots)
	assert.Equal(t, 1, ov.LeadingSlots)
	assert.Equal(t, 2, ov.LotteryEntries)
	assert.Equal(t, 1, ov.MyLotteryEntries)
	assert.Equal(t, 1, ov.ActiveSingles)
	assert.Zero(t, ov.LeadingSingles)
	require.NotNil(t, ov.LastHit)
	assert.Equal(t, "Umbreon ex", ov.LastHit.CardName)

	anon, err := svc.Overview(ctx, streamID, uuid.Nil)
	require.NoError(t, err)
	assert.Zero(t, anon.LeadingSlots)
	assert.Zero(t, anon.MyLotteryEntries)
}

func TestCurrentRound(t *testing.T) {
	t.Parallel()

	assert.Nil(t, currentRound(nil))

	list := []rounds.Round{
		{RoundNumber: 1, Locked: true, BiddingStatus: stream.BiddingClosed},
		{RoundNumber: 2, BiddingStatus: stream.BiddingNotStarted},
		{RoundNumber: 3, BiddingStatus: stream.BiddingOpen},
	}
	assert.Equal(t, 3, currentRound(list).RoundNumber)

	list[2].BiddingStatus = stream.BiddingNotStarted
	assert.Equal(t, 2, currentRound(list).RoundNumber)

	list[1].Locked, list[2].Locked = true, true
	assert.Equal(t, 3, currentRound(list).RoundNumber)
}

func TestCatalogUpsertAndSearch(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := t.Context()

	_, err := svc.UpsertCard(ctx, cards.Card{Name: " ", SetName: "prismatic"})
	require.ErrorIs(t, err, validate.ErrInvalid)

	_, err = svc.UpsertCard(ctx, cards.Card{Name: "Umbreon ex", SetName: "base set"})
	require.ErrorIs(t, err, validate.ErrInvalid)

	price := int64(120000)

	saved, err := svc.UpsertCard(ctx, cards.Card{
		Name:          "Umbreon ex",
		Number:        "161/131",
		SetName:       "prismatic",
		Rarity:        "Special Illustration Rare",
		UngradedPrice: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, rarity.PrismaticEvolutions, saved.SetName)

	// same identity updates in place
	price = 125000

	again, err := svc.UpsertCard(ctx, cards.Card{
		Name:          "Umbreon ex",
		Number:        "161/131",
		SetName:       rarity.PrismaticEvolutions,
		Rarity:        "Special Illustration Rare",
		UngradedPrice: &price,
		LiveSingles:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)
	require.NotNil(t, again.UngradedPrice)
	assert.Equal(t, int64(125000), *again.UngradedPrice)
	assert.True(t, again.LiveSingles)

	_, err = svc.UpsertCard(ctx, cards.Card{Name: "Pikachu VMAX", Number: "GG30/GG70", SetName: "crown_zenith"})
	require.NoError(t, err)

	found, err := svc.SearchCards(ctx, "", "umbr", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, saved.ID, found[0].ID)

	found, err = svc.SearchCards(ctx, "crown_zenith", "", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Pikachu VMAX", found[0].Name)

	found, err = svc.SearchCards(ctx, "", "GG30", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = svc.SearchCards(ctx, "base set", "", 10)
	require.ErrorIs(t, err, validate.ErrInvalid)
}
