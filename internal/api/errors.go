package api

import (
	"errors"
	"net/http"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/repos/cards"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/fastprodman/ripbid/internal/repos/singles"
	"github.com/fastprodman/ripbid/internal/repos/streams"
	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/fastprodman/ripbid/internal/services/settlement"
)

// Wire error codes.
const (
	CodeInsufficientCredits  = "insufficient_credits"
	CodeBidTooLow            = "bid_too_low"
	CodeBiddingClosed        = "bidding_closed"
	CodeDuplicateEntry       = "duplicate_entry"
	CodeDuplicateTransaction = "duplicate_transaction"
	CodeDuplicate            = "duplicate"
	CodeBiddingOpen          = "bidding_open"
	CodeRoundConcluded       = "round_concluded"
	CodePackSettled          = "pack_settled"
	CodePullsRecorded        = "pulls_recorded"
	CodeNotAuthenticated     = "not_authenticated"
	CodeForbidden            = "forbidden"
	CodeValidation           = "validation_error"
	CodeNotFound             = "not_found"
	CodeInternal             = "internal_error"
)

type conflict struct {
	target error
	code   string
}

var conflicts = []conflict{
	{users.ErrInsufficientCredits, CodeInsufficientCredits},
	{auction.ErrBiddingClosed, CodeBiddingClosed},
	{lottery.ErrDuplicateEntry, CodeDuplicateEntry},
	{ledger.ErrDuplicateTransaction, CodeDuplicateTransaction},
	{settlement.ErrBiddingStillOpen, CodeBiddingOpen},
	{settlement.ErrRoundConcluded, CodeRoundConcluded},
	{lottery.ErrPackAlreadySettled, CodePackSettled},
	{settlement.ErrPullsRecorded, CodePullsRecorded},
	{rounds.ErrDuplicateRound, CodeDuplicate},
	{chase.ErrDuplicateSlot, CodeDuplicate},
}

var notFound = []error{
	users.ErrUserNotFound,
	streams.ErrStreamNotFound,
	rounds.ErrRoundNotFound,
	chase.ErrSlotNotFound,
	singles.ErrSingleNotFound,
	cards.ErrCardNotFound,
}

var invalid = []error{
	validate.ErrInvalid,
	auction.ErrInvalidAmount,
	auction.ErrInvalidTransition,
	stream.ErrInvalidTransition,
	rarity.ErrUnknownSet,
	rarity.ErrUnknownRarity,
}

// writeServiceError maps a service error to its wire code and status.
// Anything unrecognized is logged and reported as internal_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLow *auction.BidTooLowError
	if errors.As(err, &tooLow) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":   CodeBidTooLow,
			"message": tooLow.Error(),
			"detail":  tooLow.Reason,
			"minimum": formatAmount(tooLow.Minimum),
		})

		return
	}

	for _, c := range conflicts {
		if errors.Is(err, c.target) {
			writeError(w, http.StatusConflict, c.code, c.target.Error())
			return
		}
	}

	for _, target := range notFound {
		if errors.Is(err, target) {
			writeError(w, http.StatusNotFound, CodeNotFound, target.Error())
			return
		}
	}

	var verr *validate.Error
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   CodeValidation,
			"message": verr.Error(),
			"field":   verr.Field,
		})

		return
	}

	for _, target := range invalid {
		if errors.Is(err, target) {
			writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
			return
		}
	}

	logging.From(r.Context()).Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
