package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/stretchr/testify/assert"
)

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient", fmt.Errorf("debit: %w", users.ErrInsufficientCredits), http.StatusConflict, CodeInsufficientCredits},
		{"bidding_closed", auction.ErrBiddingClosed, http.StatusConflict, CodeBiddingClosed},
		{"duplicate_entry", lottery.ErrDuplicateEntry, http.StatusConflict, CodeDuplicateEntry},
		{"duplicate_tx", ledger.ErrDuplicateTransaction, http.StatusConflict, CodeDuplicateTransaction},
		{"bidding_open", settlement.ErrBiddingStillOpen, http.StatusConflict, CodeBiddingOpen},
		{"concluded", settlement.ErrRoundConcluded, http.StatusConflict, CodeRoundConcluded},
		{"pack_settled", lottery.ErrPackAlreadySettled, http.StatusConflict, CodePackSettled},
		{"pulls_recorded", fmt.Errorf("update bidding: %w", settlement.ErrPullsRecorded), http.StatusConflict, CodePullsRecorded},
		{"duplicate_round", rounds.ErrDuplicateRound, http.StatusConflict, CodeDuplicate},
		{"slot_not_found", fmt.Errorf("get slot: %w", chase.ErrSlotNotFound), http.StatusNotFound, CodeNotFound},
		{"validation", validate.Errorf("packNumber", "out of range"), http.StatusBadRequest, CodeValidation},
		{"transition", fmt.Errorf("stream ended: %w", stream.ErrInvalidTransition), http.StatusBadRequest, CodeValidation},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decode(t, rec)["error"])
		})
	}
}

func TestWriteServiceError_BidTooLow(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := fmt.Errorf("place bid: %w", &auction.BidTooLowError{Reason: auction.ReasonIncrementTooLow, Minimum: 1500})

	writeServiceError(rec, httptest.NewRequest(http.MethodPost, "/", nil), err)

	body := decode(t, rec)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeBidTooLow, body["error"])
	assert.Equal(t, auction.ReasonIncrementTooLow, body["detail"])
	assert.Equal(t, "15.00", body["minimum"])
}

func TestWriteServiceError_ValidationField(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeServiceError(rec, httptest.NewRequest(http.MethodPost, "/", nil), validate.Errorf("rarity", "unknown"))

	body := decode(t, rec)
	assert.Equal(t, "rarity", body["field"])
	assert.Equal(t, "rarity: unknown", body["message"])
}
