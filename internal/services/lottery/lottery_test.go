package lottery

import (
	"database/sql"
	"testing"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/pgtestutil"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entryCost = 500

func newService(t *testing.T) (*LotteryService, *sql.DB) {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	hub := realtime.NewHub(16)

	return New(db, credits.New(db, hub), hub, entryCost), db
}

func prismaticRound(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()

	streamID := pgtestutil.SeedStream(t, db, "live", nil)
	endsAt := time.Now().Add(time.Hour)

	return pgtestutil.SeedRound(t, db, streamID, 1, string(rarity.PrismaticEvolutions), 10, &endsAt)
}

func TestLotteryService_DuplicateEntry(t *testing.T) {
	t.Parallel()

	svc, db := newService(t)
	ctx := t.Context()

	roundID := prismaticRound(t, db)
	user := pgtestutil.SeedUser(t, db, 2000)

	res, err := svc.Enter(ctx, EntryRequest{UserID: user, RoundID: roundID, PackNumber: 4, Rarity: "Ultra Rare"})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), res.NewBalance)
	assert.Equal(t, rarity.PrismaticUltraRare, res.Entry.Rarity)
	assert.Equal(t, int64(entryCost), res.Entry.CreditsUsed)
	require.NotNil(t, res.Entry.PackNumber)
	assert.Equal(t, 4, *res.Entry.PackNumber)

	_, err = svc.Enter(ctx, EntryRequest{UserID: user, RoundID: roundID, PackNumber: 4, Rarity: "Pokeball Pattern"})
	require.ErrorIs(t, err, lottery.ErrDuplicateEntry)
	assert.Equal(t, int64(1500), pgtestutil.Credit(t, db, user))

	// another pack is a separate ticket
	_, err = svc.Enter(ctx, EntryRequest{UserID: user, RoundID: roundID, PackNumber: 5, Rarity: "Pokeball Pattern"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), pgtestutil.Credit(t, db, user))
}

func TestLotteryService_EnterRejections(t *testing.T) {
	t.Parallel()

	svc, db := newService(t)
	ctx := t.Context()

	roundID := prismaticRound(t, db)
	user := pgtestutil.SeedUser(t, db, 2000)
	poor := pgtestutil.SeedUser(t, db, 499)

	tests := []struct {
		name    string
		req     EntryRequest
		wantErr error
	}{
		{"pack_zero", EntryRequest{UserID: user, RoundID: roundID, PackNumber: 0, Rarity: "SIR"}, validate.ErrInvalid},
		{"pack_beyond_plan", EntryRequest{UserID: user, RoundID: roundID, PackNumber: 11, Rarity: "SIR"}, validate.ErrInvalid},
		{"tier_of_other_set", EntryRequest{UserID: user, RoundID: roundID, PackNumber: 1, Rarity: "IR"}, validate.ErrInvalid},
		{"insufficient", EntryRequest{UserID: poor, RoundID: roundID, PackNumber: 1, Rarity: "SIR"}, users.ErrInsufficientCredits},
		{"unknown_user", EntryRequest{UserID: uuid.New(), RoundID: roundID, PackNumber: 1, Rarity: "SIR"}, users.ErrInsufficientCredits},
	}

	for _, tt := range tests {
		_, err := svc.Enter(ctx, tt.req)
		require.ErrorIs(t, err, tt.wantErr, tt.name)
	}

	assert.Equal(t, int64(499), pgtestutil.Credit(t, db, poor))

	// a settled pack no longer sells tickets
	pgtestutil.MustExec(t, db, `INSERT INTO lottery_results (id, round_id, pack_number) VALUES ($1, $2, 2)`, uuid.New(), roundID)
	_, err := svc.Enter(ctx, EntryRequest{UserID: user, RoundID: roundID, PackNumber: 2, Rarity: "SIR"})
	require.ErrorIs(t, err, auction.ErrBiddingClosed)

	pgtestutil.MustExec(t, db, `UPDATE rounds SET bidding_status = 'closed' WHERE id = $1`, roundID)
	_, err = svc.Enter(ctx, EntryRequest{UserID: user, RoundID: roundID, PackNumber: 1, Rarity: "SIR"})
	require.ErrorIs(t, err, auction.ErrBiddingClosed)

	assert.Equal(t, int64(2000), pgtestutil.Credit(t, db, user))
}

func TestLotteryService_Participants(t *testing.T) {
	t.Parallel()

	svc, db := newService(t)
	ctx := t.Context()

	roundID := prismaticRound(t, db)
	a := pgtestutil.SeedUser(t, db, 5000)
	b := pgtestutil.SeedUser(t, db, 5000)
	payer := uuid.New()

	for _, req := range []EntryRequest{
		{UserID: a, RoundID: roundID, PackNumber: 1, Rarity: "SIR"},
		{UserID: b, RoundID: roundID, PackNumber: 1, Rarity: "SIR"},
		{UserID: a, RoundID: roundID, PackNumber: 2, Rarity: "Masterball Pattern"},
	} {
		_, err := svc.Enter(ctx, req)
		require.NoError(t, err)
	}

	entry, err := svc.ConfirmPaidEntry(ctx, CheckoutEntry{SessionID: "cs_1", UserID: payer, RoundID: roundID, Rarity: "Ultra Rare"})
	require.NoError(t, err)
	assert.True(t, entry.PaymentConfirmed)
	assert.Nil(t, entry.PackNumber)

	// redelivery keeps one row
	_, err = svc.ConfirmPaidEntry(ctx, CheckoutEntry{SessionID: "cs_1", UserID: payer, RoundID: roundID, Rarity: "Ultra Rare"})
	require.NoError(t, err)

	p, err := svc.Participants(ctx, roundID, a)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 2, p.Mine)
	assert.Equal(t, 2, p.ByPack[1][rarity.PrismaticSIR])
	assert.Equal(t, 1, p.ByPack[2][rarity.PrismaticMasterball])
	assert.Equal(t, 1, p.RoundWide[rarity.PrismaticUltraRare])

	_, err = svc.ConfirmPaidEntry(ctx, CheckoutEntry{SessionID: "cs_2", UserID: payer, RoundID: roundID, Rarity: "Hyper"})
	require.ErrorIs(t, err, validate.ErrInvalid)
}
