package bidding

import (
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/ripbid/internal/cache"
	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/pgtestutil"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*BidService, *sql.DB, *realtime.Hub) {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	hub := realtime.NewHub(16)
	svc := New(db, credits.New(db, hub), hub, cache.NewDirect())

	return svc, db, hub
}

func openRound(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()

	streamID := pgtestutil.SeedStream(t, db, "live", nil)
	endsAt := time.Now().Add(time.Hour)

	return pgtestutil.SeedRound(t, db, streamID, 1, string(rarity.PrismaticEvolutions), 10, &endsAt)
}

func TestBidService_ChaseScenario(t *testing.T) {
	t.Parallel()

	svc, db, hub := newService(t)
	ctx := t.Context()

	roundID := openRound(t, db)
	slotID := pgtestutil.SeedSlot(t, db, roundID, nil, "Umbreon ex", 1000, 500)
	userA := pgtestutil.SeedUser(t, db, 5000)
	userB := pgtestutil.SeedUser(t, db, 5000)

	subA := hub.Subscribe(realtime.UserTopic(userA))
	defer subA.Close()

	// A opens at the starting bid
	res, err := svc.PlaceChaseBid(ctx, BidRequest{UserID: userA, TargetID: slotID, Amount: 1000})
	require.NoError(t, err)
	assert.True(t, res.IsLeading)
	assert.Equal(t, int64(4000), res.NewBalance)
	assert.Nil(t, res.Refunded)

	// B below the increment
	_, err = svc.PlaceChaseBid(ctx, BidRequest{UserID: userB, TargetID: slotID, Amount: 1400})
	require.ErrorIs(t, err, auction.ErrBidTooLow)

	var tooLow *auction.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, auction.ReasonIncrementTooLow, tooLow.Reason)
	assert.Equal(t, int64(1500), tooLow.Minimum)
	assert.Equal(t, int64(5000), pgtestutil.Credit(t, db, userB))

	// B at the minimum takes the lead and A is made whole
	res, err = svc.PlaceChaseBid(ctx, BidRequest{UserID: userB, TargetID: slotID, Amount: 1500})
	require.NoError(t, err)
	assert.Equal(t, int64(3500), res.NewBalance)
	require.NotNil(t, res.Refunded)
	assert.Equal(t, userA, res.Refunded.UserID)
	assert.Equal(t, int64(1000), res.Refunded.Amount)
	assert.Equal(t, int64(5000), pgtestutil.Credit(t, db, userA))

	leader, err := svc.SlotLeader(ctx, slotID)
	require.NoError(t, err)
	require.NotNil(t, leader)
	assert.Equal(t, userB, leader.UserID)

	var types []string
	for len(subA.C) > 0 {
		types = append(types, (<-subA.C).Type)
	}
	assert.Contains(t, types, realtime.EventOutbid)
}

func TestBidService_ChaseRejections(t *testing.T) {
	t.Parallel()

	svc, db, _ := newService(t)
	ctx := t.Context()

	roundID := openRound(t, db)
	slotID := pgtestutil.SeedSlot(t, db, roundID, nil, "Sylveon ex", 1000, 100)
	poor := pgtestutil.SeedUser(t, db, 900)

	_, err := svc.PlaceChaseBid(ctx, BidRequest{UserID: poor, TargetID: slotID, Amount: 1000})
	require.ErrorIs(t, err, users.ErrInsufficientCredits)
	assert.Equal(t, int64(900), pgtestutil.Credit(t, db, poor))

	_, err = svc.PlaceChaseBid(ctx, BidRequest{UserID: uuid.New(), TargetID: slotID, Amount: 1000})
	require.ErrorIs(t, err, users.ErrInsufficientCredits)

	_, err = svc.PlaceChaseBid(ctx, BidRequest{UserID: poor, TargetID: slotID, Amount: 500})
	require.ErrorIs(t, err, auction.ErrBidTooLow)

	_, err = svc.PlaceChaseBid(ctx, BidRequest{UserID: poor, TargetID: slotID, Amount: 0})
	require.ErrorIs(t, err, validate.ErrInvalid)

	// window passed
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	rich := pgtestutil.SeedUser(t, db, 10000)
	_, err = svc.PlaceChaseBid(ctx, BidRequest{UserID: rich, TargetID: slotID, Amount: 1000})
	require.ErrorIs(t, err, auction.ErrBiddingClosed)

	svc.now = time.Now

	pgtestutil.MustExec(t, db, `UPDATE chase_slots SET locked = true WHERE id = $1`, slotID)
	_, err = svc.PlaceChaseBid(ctx, BidRequest{UserID: rich, TargetID: slotID, Amount: 1000})
	require.ErrorIs(t, err, auction.ErrBiddingClosed)
	assert.Equal(t, int64(10000), pgtestutil.Credit(t, db, rich))
}

func TestBidService_SelfRaiseCommitsDifference(t *testing.T) {
	t.Parallel()

	svc, db, _ := newService(t)
	ctx := t.Context()

	roundID := openRound(t, db)
	slotID := pgtestutil.SeedSlot(t, db, roundID, nil, "Espeon ex", 1000, 100)
	user := pgtestutil.SeedUser(t, db, 2000)

	_, err := svc.PlaceChaseBid(ctx, BidRequest{UserID: user, TargetID: slotID, Amount: 1000})
	require.NoError(t, err)

	// 2000 total only covers the raise because the first 1000 is refunded
	res, err := svc.PlaceChaseBid(ctx, BidRequest{UserID: user, TargetID: slotID, Amount: 2000})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.NewBalance)
	require.NotNil(t, res.Refunded)
	assert.Equal(t, user, res.Refunded.UserID)
}

func TestBidService_DuplicateTransactionID(t *testing.T) {
	t.Parallel()

	svc, db, _ := newService(t)
	ctx := t.Context()

	roundID := openRound(t, db)
	slotID := pgtestutil.SeedSlot(t, db, roundID, nil, "Glaceon ex", 1000, 100)
	user := pgtestutil.SeedUser(t, db, 5000)

	_, err := svc.PlaceChaseBid(ctx, BidRequest{UserID: user, TargetID: slotID, Amount: 1000, TransactionID: "bid-1"})
	require.NoError(t, err)

	_, err = svc.PlaceChaseBid(ctx, BidRequest{UserID: user, TargetID: slotID, Amount: 1200, TransactionID: "bid-1"})
	require.ErrorIs(t, err, ledger.ErrDuplicateTransaction)
	assert.Equal(t, int64(4000), pgtestutil.Credit(t, db, user))
}

func TestBidService_ConcurrentBidsKeepCreditConserved(t *testing.T) {
	t.Parallel()

	svc, db, _ := newService(t)
	ctx := t.Context()

	roundID := openRound(t, db)
	slotID := pgtestutil.SeedSlot(t, db, roundID, nil, "Vaporeon ex", 1000, 100)

	const bidders = 6

	ids := make([]uuid.UUID, bidders)
	for i := range ids {
		ids[i] = pgtestutil.SeedUser(t, db, 10000)
	}

	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)

		go func(amount int64) {
			defer wg.Done()

			_, err := svc.PlaceChaseBid(ctx, BidRequest{UserID: id, TargetID: slotID, Amount: amount})
			if err != nil && !errors.Is(err, auction.ErrBidTooLow) {
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(1000 + i*200))
	}

	wg.Wait()

	leader, err := svc.SlotLeader(ctx, slotID)
	require.NoError(t, err)
	require.NotNil(t, leader)

	// only the leader has credit committed
	var total int64
	for _, id := range ids {
		total += pgtestutil.Credit(t, db, id)
	}

	assert.Equal(t, int64(bidders*10000)-leader.Amount, total)
	assert.Equal(t, int64(10000)-leader.Amount, pgtestutil.Credit(t, db, leader.UserID))
}

func TestBidService_Singles(t *testing.T) {
	t.Parallel()

	svc, db, _ := newService(t)
	ctx := t.Context()

	closeAt := time.Now().Add(time.Hour)
	streamID := pgtestutil.SeedStream(t, db, "live", &closeAt)
	singleID := pgtestutil.SeedSingle(t, db, streamID, "Pikachu VMAX", 2000, 200)
	userA := pgtestutil.SeedUser(t, db, 5000)
	userB := pgtestutil.SeedUser(t, db, 5000)

	_, err := svc.PlaceSingleBid(ctx, BidRequest{UserID: userA, TargetID: singleID, Amount: 2000})
	require.NoError(t, err)

	_, err = svc.PlaceSingleBid(ctx, BidRequest{UserID: userB, TargetID: singleID, Amount: 2100})
	require.ErrorIs(t, err, auction.ErrBidTooLow)

	res, err := svc.PlaceSingleBid(ctx, BidRequest{UserID: userB, TargetID: singleID, Amount: 2200})
	require.NoError(t, err)
	assert.Equal(t, int64(2800), res.NewBalance)
	assert.Equal(t, int64(5000), pgtestutil.Credit(t, db, userA))

	svc.now = func() time.Time { return closeAt }

	_, err = svc.PlaceSingleBid(ctx, BidRequest{UserID: userA, TargetID: singleID, Amount: 3000})
	require.ErrorIs(t, err, auction.ErrBiddingClosed)

	svc.now = time.Now

	pgtestutil.MustExec(t, db, `UPDATE streams SET status = 'ended' WHERE id = $1`, streamID)
	_, err = svc.PlaceSingleBid(ctx, BidRequest{UserID: userA, TargetID: singleID, Amount: 3000})
	require.ErrorIs(t, err, auction.ErrBiddingClosed)

	leader, err := svc.SingleLeader(ctx, singleID)
	require.NoError(t, err)
	assert.Equal(t, userB, leader.UserID)
}
