package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/repos/cards"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/fastprodman/ripbid/internal/repos/streams"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/fastprodman/ripbid/internal/services/lifecycle"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/google/uuid"
)

type streamRequest struct {
	Title          string     `json:"title"`
	ScheduledDate  time.Time  `json:"scheduledDate"`
	SinglesCloseAt *time.Time `json:"singlesCloseAt,omitempty"`
}

type roundRequest struct {
	RoundNumber   int    `json:"roundNumber"`
	Set           string `json:"set"`
	TotalPacks    int    `json:"totalPacks,omitempty"`
	ChaseMinPrice string `json:"chaseMinPrice,omitempty"`
}

type biddingRequest struct {
	Seconds int `json:"seconds,omitempty"`
}

type auctionRequest struct {
	CardID       *int64 `json:"cardId,omitempty"`
	CardName     string `json:"cardName,omitempty"`
	CardNumber   string `json:"cardNumber,omitempty"`
	SetName      string `json:"setName,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	StartingBid  string `json:"startingBid"`
	MinIncrement string `json:"minIncrement,omitempty"`
	BuyNow       string `json:"buyNow,omitempty"`
}

type defaultsRequest struct {
	StartingBid  string `json:"startingBid,omitempty"`
	MinIncrement string `json:"minIncrement,omitempty"`
}

type pullRequest struct {
	PackNumber int    `json:"packNumber"`
	CardID     *int64 `json:"cardId,omitempty"`
	CardName   string `json:"cardName,omitempty"`
	CardNumber string `json:"cardNumber,omitempty"`
	Rarity     string `json:"rarity,omitempty"`
	Tier       string `json:"tier,omitempty"`
}

type grantRequest struct {
	Amount        string `json:"amount"`
	TransactionID string `json:"transactionId"`
	Reference     string `json:"reference,omitempty"`
}

type cardRequest struct {
	CardName            string `json:"cardName"`
	CardNumber          string `json:"cardNumber"`
	SetName             string `json:"setName"`
	Rarity              string `json:"rarity"`
	ImageURL            string `json:"imageUrl,omitempty"`
	UngradedMarketPrice string `json:"ungradedMarketPrice,omitempty"`
	PSA10Price          string `json:"psa10Price,omitempty"`
	LiveSingles         bool   `json:"liveSingles"`
}

// --- Streams ---

// ListStreamsHandler handles GET /admin/streams
func (h *HandlerProvider) ListStreamsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Lifecycle.ListStreams(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]streamView, 0, len(list))
	for _, st := range list {
		out = append(out, newStreamView(st))
	}

	writeJSON(w, http.StatusOK, map[string]any{"streams": out})
}

// CreateStreamHandler handles POST /admin/streams
func (h *HandlerProvider) CreateStreamHandler(w http.ResponseWriter, r *http.Request) {
	var req streamRequest

	err := decodeBody(w, r, &req, false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	st, err := h.svc.Lifecycle.CreateStream(r.Context(), lifecycle.NewStream{
		Title:          req.Title,
		ScheduledDate:  req.ScheduledDate,
		SinglesCloseAt: req.SinglesCloseAt,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newStreamView(st))
}

// StartStreamHandler handles POST /admin/streams/{streamId}/start
func (h *HandlerProvider) StartStreamHandler(w http.ResponseWriter, r *http.Request) {
	h.streamAction(w, r, h.svc.Lifecycle.StartStream)
}

// SetCurrentStreamHandler handles POST /admin/streams/{streamId}/current
func (h *HandlerProvider) SetCurrentStreamHandler(w http.ResponseWriter, r *http.Request) {
	h.streamAction(w, r, h.svc.Lifecycle.SetCurrent)
}

func (h *HandlerProvider) streamAction(w http.ResponseWriter, r *http.Request, act func(context.Context, uuid.UUID) (streams.Stream, error)) {
	streamID, err := uuidParam(r, "streamId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	st, err := act(r.Context(), streamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newStreamView(st))
}

// EndStreamHandler handles POST /admin/streams/{streamId}/end
func (h *HandlerProvider) EndStreamHandler(w http.ResponseWriter, r *http.Request) {
	streamID, err := uuidParam(r, "streamId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	st, closed, err := h.svc.Lifecycle.EndStream(r.Context(), streamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stream":  newStreamView(st),
		"singles": newSinglesOutcomeView(closed),
	})
}

// --- Rounds ---

// CreateRoundHandler handles POST /admin/streams/{streamId}/rounds
func (h *HandlerProvider) CreateRoundHandler(w http.ResponseWriter, r *http.Request) {
	streamID, err := uuidParam(r, "streamId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req roundRequest

	err = decodeBody(w, r, &req, false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	minPrice, err := parseOptionalAmount("chaseMinPrice", req.ChaseMinPrice)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rd, err := h.svc.Lifecycle.CreateRound(r.Context(), lifecycle.NewRound{
		StreamID:      streamID,
		RoundNumber:   req.RoundNumber,
		Set:           req.Set,
		TotalPacks:    req.TotalPacks,
		ChaseMinPrice: minPrice,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newRoundView(rd))
}

// OpenBiddingHandler handles POST /admin/rounds/{roundId}/bidding/open
func (h *HandlerProvider) OpenBiddingHandler(w http.ResponseWriter, r *http.Request) {
	h.biddingAction(w, r, h.svc.Lifecycle.OpenBidding)
}

// ExtendBiddingHandler handles POST /admin/rounds/{roundId}/bidding/extend
func (h *HandlerProvider) ExtendBiddingHandler(w http.ResponseWriter, r *http.Request) {
	h.biddingAction(w, r, h.svc.Lifecycle.ExtendBidding)
}

// biddingAction reads an optional {"seconds": N}; zero lets the service
// apply its default window.
func (h *HandlerProvider) biddingAction(w http.ResponseWriter, r *http.Request, act func(context.Context, uuid.UUID, time.Duration) (rounds.Round, error)) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req biddingRequest

	err = decodeBody(w, r, &req, true)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if req.Seconds < 0 {
		writeServiceError(w, r, validate.Errorf("seconds", "must not be negative"))
		return
	}

	rd, err := act(r.Context(), roundID, time.Duration(req.Seconds)*time.Second)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newRoundView(rd))
}

// CloseBiddingHandler handles POST /admin/rounds/{roundId}/bidding/close
func (h *HandlerProvider) CloseBiddingHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rd, err := h.svc.Settlement.CloseBidding(r.Context(), roundID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newRoundView(rd))
}

// ConcludeRoundHandler handles POST /admin/rounds/{roundId}/conclude
func (h *HandlerProvider) ConcludeRoundHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out, err := h.svc.Settlement.ConcludeRound(r.Context(), roundID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	packs := make([]packOutcomeView, 0, len(out.Packs))
	for _, p := range out.Packs {
		packs = append(packs, newPackOutcomeView(p))
	}

	refunds := make([]refundView, 0, len(out.Refunds))
	for _, rf := range out.Refunds {
		refunds = append(refunds, newRefundView(rf))
	}

	writeJSON(w, http.StatusOK, map[string]any{"packs": packs, "refunds": refunds})
}

// --- Chase slots and settlement ---

// CreateSlotHandler handles POST /admin/rounds/{roundId}/slots
func (h *HandlerProvider) CreateSlotHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req auctionRequest

	err = decodeBody(w, r, &req, false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	start, inc, err := parseAuctionAmounts(req.StartingBid, req.MinIncrement)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slot, err := h.svc.Lifecycle.CreateSlot(r.Context(), lifecycle.NewSlot{
		RoundID:      roundID,
		CardID:       req.CardID,
		CardName:     req.CardName,
		StartingBid:  start,
		MinIncrement: inc,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSlotView(slot, nil))
}

// GenerateSlotsHandler handles POST /admin/rounds/{roundId}/slots/generate
func (h *HandlerProvider) GenerateSlotsHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	d, err := decodeDefaults(w, r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	n, err := h.svc.Lifecycle.GenerateSlots(r.Context(), roundID, d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"created": n})
}

// RecordPullHandler handles POST /admin/rounds/{roundId}/pulls
func (h *HandlerProvider) RecordPullHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req pullRequest

	err = decodeBody(w, r, &req, false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	p, err := h.svc.Settlement.RecordPull(r.Context(), settlement.PullInput{
		RoundID:    roundID,
		PackNumber: req.PackNumber,
		CardID:     req.CardID,
		CardName:   req.CardName,
		CardNumber: req.CardNumber,
		Rarity:     req.Rarity,
		Tier:       req.Tier,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newPullView(p))
}

// SettlePackHandler handles POST /admin/rounds/{roundId}/packs/{packNumber}/settle
func (h *HandlerProvider) SettlePackHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	pack, err := intParam(r, "packNumber")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out, err := h.svc.Settlement.SettlePack(r.Context(), roundID, pack)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPackOutcomeView(out))
}

// --- Live singles ---

// CreateSingleHandler handles POST /admin/streams/{streamId}/singles
func (h *HandlerProvider) CreateSingleHandler(w http.ResponseWriter, r *http.Request) {
	streamID, err := uuidParam(r, "streamId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req auctionRequest

	err = decodeBody(w, r, &req, false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	start, inc, err := parseAuctionAmounts(req.StartingBid, req.MinIncrement)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	in := lifecycle.NewSingle{
		StreamID:     streamID,
		CardID:       req.CardID,
		CardName:     req.CardName,
		CardNumber:   req.CardNumber,
		SetName:      req.SetName,
		ImageURL:     req.ImageURL,
		StartingBid:  start,
		MinIncrement: inc,
	}

	if req.BuyNow != "" {
		buyNow, err := parseAmountCents(req.BuyNow)
		if err != nil {
			writeServiceError(w, r, validate.Errorf("buyNow", "must be a positive amount"))
			return
		}

		in.BuyNow = &buyNow
	}

	sg, err := h.svc.Lifecycle.CreateSingle(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSingleView(sg, nil))
}

// GenerateSinglesHandler handles POST /admin/streams/{streamId}/singles/generate
func (h *HandlerProvider) GenerateSinglesHandler(w http.ResponseWriter, r *http.Request) {
	streamID, err := uuidParam(r, "streamId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	d, err := decodeDefaults(w, r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	n, err := h.svc.Lifecycle.GenerateSingles(r.Context(), streamID, d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"created": n})
}

// CloseSinglesHandler handles POST /admin/streams/{streamId}/singles/close
func (h *HandlerProvider) CloseSinglesHandler(w http.ResponseWriter, r *http.Request) {
	streamID, err := uuidParam(r, "streamId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out, err := h.svc.Settlement.CloseSingles(r.Context(), streamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newSinglesOutcomeView(out))
}

// CancelSingleHandler handles POST /admin/singles/{singleId}/cancel
func (h *HandlerProvider) CancelSingleHandler(w http.ResponseWriter, r *http.Request) {
	singleID, err := uuidParam(r, "singleId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	refund, err := h.svc.Settlement.CancelSingle(r.Context(), singleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := map[string]any{"status": "cancelled", "refund": nil}
	if refund != nil {
		resp["refund"] = newRefundView(*refund)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Credits and catalog ---

// GrantCreditsHandler handles POST /admin/users/{userId}/credits
func (h *HandlerProvider) GrantCreditsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req grantRequest

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

	if req.TransactionID == "" {
		writeServiceError(w, r, validate.Errorf("transactionId", "required"))
		return
	}

	ref := req.Reference
	if ref == "" {
		ref = "promo"
	}

	bal, err := h.svc.Credits.Grant(r.Context(), credits.Grant{
		TransactionID: req.TransactionID,
		UserID:        userID,
		Amount:        amount,
		Reference:     ref,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"balance": formatAmount(bal),
	})
}

// SearchCardsHandler handles GET /admin/cards?set=&q=&limit=
func (h *HandlerProvider) SearchCardsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()

	list, err := h.svc.Lifecycle.SearchCards(r.Context(), q.Get("set"), q.Get("q"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]cardView, 0, len(list))
	for _, c := range list {
		out = append(out, newCardView(c))
	}

	writeJSON(w, http.StatusOK, map[string]any{"cards": out})
}

// UpsertCardHandler handles PUT /admin/cards
func (h *HandlerProvider) UpsertCardHandler(w http.ResponseWriter, r *http.Request) {
	var req cardRequest

	err := decodeBody(w, r, &req, false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	c := cards.Card{
		Name:        req.CardName,
		Number:      req.CardNumber,
		SetName:     rarity.Set(req.SetName),
		Rarity:      req.Rarity,
		ImageURL:    req.ImageURL,
		LiveSingles: req.LiveSingles,
	}

	c.UngradedPrice, err = optionalPrice("ungradedMarketPrice", req.UngradedMarketPrice)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	c.PSA10Price, err = optionalPrice("psa10Price", req.PSA10Price)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	saved, err := h.svc.Lifecycle.UpsertCard(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCardView(saved))
}

// --- Helpers ---

func parseAuctionAmounts(start, inc string) (int64, int64, error) {
	s, err := parseMinor("startingBid", start)
	if err != nil {
		return 0, 0, err
	}

	i, err := parseOptionalAmount("minIncrement", inc)
	if err != nil {
		return 0, 0, err
	}

	return s, i, nil
}

func decodeDefaults(w http.ResponseWriter, r *http.Request) (lifecycle.AuctionDefaults, error) {
	var req defaultsRequest

	err := decodeBody(w, r, &req, true)
	if err != nil {
		return lifecycle.AuctionDefaults{}, err
	}

	start, err := parseOptionalAmount("startingBid", req.StartingBid)
	if err != nil {
		return lifecycle.AuctionDefaults{}, err
	}

	inc, err := parseOptionalAmount("minIncrement", req.MinIncrement)
	if err != nil {
		return lifecycle.AuctionDefaults{}, err
	}

	return lifecycle.AuctionDefaults{StartingBid: start, MinIncrement: inc}, nil
}

func optionalPrice(field, s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}

	v, err := parseOptionalAmount(field, s)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
