package api

import (
	"context"
	"net/http"

	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/services/bidding"
	svclottery "github.com/fastprodman/ripbid/internal/services/lottery"
	"github.com/google/uuid"
)

type bidRequest struct {
	Amount        string `json:"amount"`
	TransactionID string `json:"transactionId,omitempty"`
}

type entryRequest struct {
	PackNumber    int    `json:"packNumber"`
	Rarity        string `json:"rarity"`
	TransactionID string `json:"transactionId,omitempty"`
}

func viewer(r *http.Request) uuid.UUID {
	p, _ := principalFrom(r.Context())
	return p.UserID
}

// GetBalanceHandler handles GET /me/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID := viewer(r)

	bal, err := h.svc.Credits.Balance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"balance": formatAmount(bal),
	})
}

// GetLedgerHandler handles GET /me/ledger?limit=N
func (h *HandlerProvider) GetLedgerHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	list, err := h.svc.Credits.History(r.Context(), viewer(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": newLedgerViews(list)})
}

// GetCurrentStreamHandler handles GET /streams/current
func (h *HandlerProvider) GetCurrentStreamHandler(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Lifecycle.Current(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newStreamView(st))
}

// GetOverviewHandler handles GET /streams/{streamId}/overview
func (h *HandlerProvider) GetOverviewHandler(w http.ResponseWriter, r *http.Request) {
	streamID, err := uuidParam(r, "streamId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ov, err := h.svc.Lifecycle.Overview(r.Context(), streamID, viewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOverviewView(ov))
}

// ListRoundsHandler handles GET /streams/{streamId}/rounds
func (h *HandlerProvider) ListRoundsHandler(w http.ResponseWriter, r *http.Request) {
	streamID, err := uuidParam(r, "streamId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	list, err := h.svc.Lifecycle.Rounds(r.Context(), streamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]roundView, 0, len(list))
	for _, rd := range list {
		out = append(out, newRoundView(rd))
	}

	writeJSON(w, http.StatusOK, map[string]any{"rounds": out})
}

// ListSinglesHandler handles GET /streams/{streamId}/singles
func (h *HandlerProvider) ListSinglesHandler(w http.ResponseWriter, r *http.Request) {
	streamID, err := uuidParam(r, "streamId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	list, err := h.svc.Lifecycle.Singles(r.Context(), streamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]singleView, 0, len(list))
	for _, v := range list {
		out = append(out, newSingleView(v.Single, v.Leader))
	}

	writeJSON(w, http.StatusOK, map[string]any{"singles": out})
}

// ListSlotsHandler handles GET /rounds/{roundId}/slots
func (h *HandlerProvider) ListSlotsHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	list, err := h.svc.Lifecycle.Slots(r.Context(), roundID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]slotView, 0, len(list))
	for _, v := range list {
		out = append(out, newSlotView(v.Slot, v.Leader))
	}

	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

// ListPullsHandler handles GET /rounds/{roundId}/pulls
func (h *HandlerProvider) ListPullsHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	list, err := h.svc.Lifecycle.Pulls(r.Context(), roundID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"pulls": newPullViews(list)})
}

// GetLotteryHandler handles GET /rounds/{roundId}/lottery
func (h *HandlerProvider) GetLotteryHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	parts, err := h.svc.Lottery.Participants(r.Context(), roundID, viewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	results, err := h.svc.Lottery.Results(r.Context(), roundID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newParticipantsView(parts, results))
}

// GetSlotLeaderHandler handles GET /slots/{slotId}/leader
func (h *HandlerProvider) GetSlotLeaderHandler(w http.ResponseWriter, r *http.Request) {
	slotID, err := uuidParam(r, "slotId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	leader, err := h.svc.Bids.SlotLeader(r.Context(), slotID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"leader": newBidView(leader)})
}

// GetSingleLeaderHandler handles GET /singles/{singleId}/leader
func (h *HandlerProvider) GetSingleLeaderHandler(w http.ResponseWriter, r *http.Request) {
	singleID, err := uuidParam(r, "singleId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	leader, err := h.svc.Bids.SingleLeader(r.Context(), singleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"leader": newBidView(leader)})
}

// PlaceChaseBidHandler handles POST /slots/{slotId}/bids
func (h *HandlerProvider) PlaceChaseBidHandler(w http.ResponseWriter, r *http.Request) {
	h.placeBid(w, r, "slotId", h.svc.Bids.PlaceChaseBid)
}

// PlaceSingleBidHandler handles POST /singles/{singleId}/bids
func (h *HandlerProvider) PlaceSingleBidHandler(w http.ResponseWriter, r *http.Request) {
	h.placeBid(w, r, "singleId", h.svc.Bids.PlaceSingleBid)
}

func (h *HandlerProvider) placeBid(w http.ResponseWriter, r *http.Request, param string, place func(context.Context, bidding.BidRequest) (bidding.BidResult, error)) {
	targetID, err := uuidParam(r, param)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req bidRequest

	err = decodeBody(w, r, &req, false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	amount, err := parseAmountCents(req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := place(r.Context(), bidding.BidRequest{
		UserID:        viewer(r),
		TargetID:      targetID,
		Amount:        amount,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newBidResultView(res))
}

// EnterLotteryHandler handles POST /rounds/{roundId}/lottery/entries
func (h *HandlerProvider) EnterLotteryHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req entryRequest

	err = decodeBody(w, r, &req, false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if req.Rarity == "" {
		writeServiceError(w, r, validate.Errorf("rarity", "required"))
		return
	}

	res, err := h.svc.Lottery.Enter(r.Context(), svclottery.EntryRequest{
		UserID:        viewer(r),
		RoundID:       roundID,
		PackNumber:    req.PackNumber,
		Rarity:        req.Rarity,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"newBalance": formatAmount(res.NewBalance),
		"entry":      newEntryView(res.Entry),
	})
}
