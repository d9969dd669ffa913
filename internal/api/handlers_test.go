package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/fastprodman/ripbid/internal/services/bidding"
	"github.com/fastprodman/ripbid/internal/services/credits"
	svclottery "github.com/fastprodman/ripbid/internal/services/lottery"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceChaseBidHandler(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	slotID := uuid.New()
	bidID := uuid.New()

	var got bidding.BidRequest

	env := newTestEnv(t, Services{
		Bids: &stubBids{
			chase: func(req bidding.BidRequest) (bidding.BidResult, error) {
				got = req

				return bidding.BidResult{
					Bid:        auction.Bid{ID: bidID, UserID: req.UserID, Amount: req.Amount, CreatedAt: time.Now()},
					NewBalance: 500,
					IsLeading:  true,
				}, nil
			},
		},
	})

	rec := env.do(t, http.MethodPost, "/slots/"+slotID.String()+"/bids", env.token(t, userID, false),
		map[string]string{"amount": "15.00", "transactionId": "tx-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, bidding.BidRequest{UserID: userID, TargetID: slotID, Amount: 1500, TransactionID: "tx-1"}, got)

	body := decode(t, rec)
	assert.Equal(t, "5.00", body["newBalance"])
	assert.Equal(t, true, body["isLeading"])

	bid, ok := body["bid"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "15.00", bid["amount"])
	assert.Equal(t, bidID.String(), bid["id"])
}

func TestPlaceBidHandler_Rejections(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	singleID := uuid.New()

	env := newTestEnv(t, Services{
		Bids: &stubBids{
			single: func(req bidding.BidRequest) (bidding.BidResult, error) {
				switch req.Amount {
				case 1000:
					return bidding.BidResult{}, &auction.BidTooLowError{Reason: auction.ReasonMinimumBid, Minimum: 2000}
				case 5000:
					return bidding.BidResult{}, users.ErrInsufficientCredits
				default:
					return bidding.BidResult{}, auction.ErrBiddingClosed
				}
			},
		},
	})

	path := "/singles/" + singleID.String() + "/bids"
	tok := env.token(t, userID, false)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"too_low", map[string]string{"amount": "10"}, http.StatusConflict, CodeBidTooLow},
		{"insufficient", map[string]string{"amount": "50"}, http.StatusConflict, CodeInsufficientCredits},
		{"closed", map[string]string{"amount": "70"}, http.StatusConflict, CodeBiddingClosed},
		{"bad_amount", map[string]string{"amount": "1.234"}, http.StatusBadRequest, CodeValidation},
		{"unknown_field", map[string]string{"amount": "10", "user": "x"}, http.StatusBadRequest, CodeValidation},
		{"empty_body", nil, http.StatusBadRequest, CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := env.do(t, http.MethodPost, path, tok, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decode(t, rec)["error"])
		})
	}

	rec := env.do(t, http.MethodPost, "/singles/not-a-uuid/bids", tok, map[string]string{"amount": "10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnterLotteryHandler(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	roundID := uuid.New()
	pack := 4

	env := newTestEnv(t, Services{
		Lottery: &stubLottery{
			enter: func(req svclottery.EntryRequest) (svclottery.EntryResult, error) {
				if req.PackNumber != pack || req.Rarity != "SIR" || req.UserID != userID || req.RoundID != roundID {
					return svclottery.EntryResult{}, lottery.ErrDuplicateEntry
				}

				return svclottery.EntryResult{
					Entry: lottery.Entry{
						ID:          uuid.New(),
						UserID:      userID,
						RoundID:     roundID,
						PackNumber:  &pack,
						Rarity:      rarity.Tier("SIR"),
						CreditsUsed: 500,
					},
					NewBalance: 1500,
				}, nil
			},
		},
	})

	path := "/rounds/" + roundID.String() + "/lottery/entries"
	tok := env.token(t, userID, false)

	rec := env.do(t, http.MethodPost, path, tok, map[string]any{"packNumber": 4, "rarity": "SIR"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "15.00", body["newBalance"])

	entry, ok := body["entry"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "5.00", entry["creditsUsed"])
	assert.InDelta(t, 4, entry["packNumber"], 0)

	rec = env.do(t, http.MethodPost, path, tok, map[string]any{"packNumber": 5, "rarity": "SIR"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeDuplicateEntry, decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, path, tok, map[string]any{"packNumber": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrantCreditsHandler(t *testing.T) {
	t.Parallel()

	admin := uuid.New()
	userID := uuid.New()

	var got credits.Grant

	env := newTestEnv(t, Services{
		Credits: &stubCredits{
			grant: func(g credits.Grant) (int64, error) {
				if g.TransactionID == "dup" {
					return 0, ledger.ErrDuplicateTransaction
				}

				got = g

				return 2500, nil
			},
		},
	})

	path := "/admin/users/" + userID.String() + "/credits"
	tok := env.token(t, admin, true)

	rec := env.do(t, http.MethodPost, path, tok, map[string]string{"amount": "25", "transactionId": "promo-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, credits.Grant{TransactionID: "promo-1", UserID: userID, Amount: 2500, Reference: "promo"}, got)
	assert.Equal(t, "25.00", decode(t, rec)["balance"])

	rec = env.do(t, http.MethodPost, path, tok, map[string]string{"amount": "25", "transactionId": "dup"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeDuplicateTransaction, decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, path, tok, map[string]string{"amount": "25"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
