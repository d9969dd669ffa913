package api

import (
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/repos/cards"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/fastprodman/ripbid/internal/repos/ledger"
	"github.com/fastprodman/ripbid/internal/repos/lottery"
	"github.com/fastprodman/ripbid/internal/repos/pulls"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/fastprodman/ripbid/internal/repos/singles"
	"github.com/fastprodman/ripbid/internal/repos/streams"
	"github.com/fastprodman/ripbid/internal/services/bidding"
	"github.com/fastprodman/ripbid/internal/services/lifecycle"
	svclottery "github.com/fastprodman/ripbid/internal/services/lottery"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/google/uuid"
)

// Wire representations. Amounts are 2-decimal strings, as in requests.

type bidView struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

func newBidView(b *auction.Bid) *bidView {
	if b == nil {
		return nil
	}

	return &bidView{ID: b.ID, UserID: b.UserID, Amount: formatAmount(b.Amount), CreatedAt: b.CreatedAt}
}

type bidResultView struct {
	Bid        *bidView `json:"bid"`
	NewBalance string   `json:"newBalance"`
	IsLeading  bool     `json:"isLeading"`
}

func newBidResultView(res bidding.BidResult) bidResultView {
	return bidResultView{
		Bid:        newBidView(&res.Bid),
		NewBalance: formatAmount(res.NewBalance),
		IsLeading:  res.IsLeading,
	}
}

type slotView struct {
	ID           uuid.UUID  `json:"id"`
	RoundID      uuid.UUID  `json:"roundId"`
	CardID       *int64     `json:"cardId,omitempty"`
	CardName     string     `json:"cardName"`
	StartingBid  string     `json:"startingBid"`
	MinIncrement string     `json:"minIncrement"`
	MinimumBid   string     `json:"minimumBid"`
	IsActive     bool       `json:"isActive"`
	Locked       bool       `json:"locked"`
	WinnerUserID *uuid.UUID `json:"winnerUserId,omitempty"`
	SettledAt    *time.Time `json:"settledAt,omitempty"`
	Leader       *bidView   `json:"leader"`
}

func newSlotView(s chase.Slot, leader *auction.Bid) slotView {
	var top *int64
	if leader != nil {
		top = &leader.Amount
	}

	return slotView{
		ID:           s.ID,
		RoundID:      s.RoundID,
		CardID:       s.CardID,
		CardName:     s.CardName,
		StartingBid:  formatAmount(s.StartingBid),
		MinIncrement: formatAmount(s.MinIncrement),
		MinimumBid:   formatAmount(s.Rules().Minimum(top)),
		IsActive:     s.IsActive,
		Locked:       s.Locked,
		WinnerUserID: s.WinnerUserID,
		SettledAt:    s.SettledAt,
		Leader:       newBidView(leader),
	}
}

type singleView struct {
	ID           uuid.UUID  `json:"id"`
	StreamID     uuid.UUID  `json:"streamId"`
	CardID       *int64     `json:"cardId,omitempty"`
	CardName     string     `json:"cardName"`
	CardNumber   string     `json:"cardNumber,omitempty"`
	SetName      string     `json:"setName,omitempty"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	StartingBid  string     `json:"startingBid"`
	MinIncrement string     `json:"minIncrement"`
	MinimumBid   string     `json:"minimumBid"`
	BuyNow       *string    `json:"buyNow,omitempty"`
	Status       string     `json:"status"`
	IsActive     bool       `json:"isActive"`
	WinnerUserID *uuid.UUID `json:"winnerUserId,omitempty"`
	Leader       *bidView   `json:"leader"`
}

func newSingleView(s singles.Single, leader *auction.Bid) singleView {
	var top *int64
	if leader != nil {
		top = &leader.Amount
	}

	return singleView{
		ID:           s.ID,
		StreamID:     s.StreamID,
		CardID:       s.CardID,
		CardName:     s.CardName,
		CardNumber:   s.CardNumber,
		SetName:      s.SetName,
		ImageURL:     s.ImageURL,
		StartingBid:  formatAmount(s.StartingBid),
		MinIncrement: formatAmount(s.MinIncrement),
		MinimumBid:   formatAmount(s.Rules().Minimum(top)),
		BuyNow:       formatAmountPtr(s.BuyNow),
		Status:       string(s.Status),
		IsActive:     s.IsActive,
		WinnerUserID: s.WinnerUserID,
		Leader:       newBidView(leader),
	}
}

type streamView struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	IsCurrent      bool       `json:"isCurrent"`
	ScheduledDate  time.Time  `json:"scheduledDate"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
	SinglesCloseAt *time.Time `json:"singlesCloseAt,omitempty"`
}

func newStreamView(s streams.Stream) streamView {
	return streamView{
		ID:             s.ID,
		Title:          s.Title,
		Status:         string(s.Status),
		IsCurrent:      s.IsCurrent,
		ScheduledDate:  s.ScheduledDate,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		SinglesCloseAt: s.SinglesCloseAt,
	}
}

type roundView struct {
	ID                uuid.UUID  `json:"id"`
	StreamID          uuid.UUID  `json:"streamId"`
	RoundNumber       int        `json:"roundNumber"`
	SetName           string     `json:"setName"`
	TotalPacksPlanned int        `json:"totalPacksPlanned"`
	PacksOpened       int        `json:"packsOpened"`
	ChaseMinPrice     string     `json:"chaseMinPrice"`
	BiddingStatus     string     `json:"biddingStatus"`
	BiddingEndsAt     *time.Time `json:"biddingEndsAt,omitempty"`
	Locked            bool       `json:"locked"`
}

func newRoundView(r rounds.Round) roundView {
	return roundView{
		ID:                r.ID,
		StreamID:          r.StreamID,
		RoundNumber:       r.RoundNumber,
		SetName:           string(r.SetName),
		TotalPacksPlanned: r.TotalPacksPlanned,
		PacksOpened:       r.PacksOpened,
		ChaseMinPrice:     formatAmount(r.ChaseMinPrice),
		BiddingStatus:     string(r.BiddingStatus),
		BiddingEndsAt:     r.BiddingEndsAt,
		Locked:            r.Locked,
	}
}

type pullView struct {
	ID         uuid.UUID  `json:"id"`
	RoundID    uuid.UUID  `json:"roundId"`
	PackNumber int        `json:"packNumber"`
	CardID     *int64     `json:"cardId,omitempty"`
	CardName   string     `json:"cardName"`
	CardNumber string     `json:"cardNumber,omitempty"`
	Rarity     string     `json:"rarity,omitempty"`
	Tier       *string    `json:"tier,omitempty"`
	AwardedTo  *uuid.UUID `json:"awardedTo,omitempty"`
	AwardKind  *string    `json:"awardKind,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func newPullView(p pulls.Pull) pullView {
	v := pullView{
		ID:         p.ID,
		RoundID:    p.RoundID,
		PackNumber: p.PackNumber,
		CardID:     p.CardID,
		CardName:   p.CardName,
		CardNumber: p.CardNumber,
		Rarity:     p.Rarity,
		AwardedTo:  p.AwardedTo,
		CreatedAt:  p.CreatedAt,
	}

	if p.Tier != nil {
		t := string(*p.Tier)
		v.Tier = &t
	}

	if p.AwardKind != nil {
		k := string(*p.AwardKind)
		v.AwardKind = &k
	}

	return v
}

func newPullViews(list []pulls.Pull) []pullView {
	out := make([]pullView, 0, len(list))
	for _, p := range list {
		out = append(out, newPullView(p))
	}

	return out
}

type entryView struct {
	ID               uuid.UUID `json:"id"`
	RoundID          uuid.UUID `json:"roundId"`
	PackNumber       *int      `json:"packNumber"`
	Rarity           string    `json:"rarity"`
	CreditsUsed      string    `json:"creditsUsed"`
	PaymentConfirmed bool      `json:"paymentConfirmed"`
	CreatedAt        time.Time `json:"createdAt"`
}

func newEntryView(e lottery.Entry) entryView {
	return entryView{
		ID:               e.ID,
		RoundID:          e.RoundID,
		PackNumber:       e.PackNumber,
		Rarity:           string(e.Rarity),
		CreditsUsed:      formatAmount(e.CreditsUsed),
		PaymentConfirmed: e.PaymentConfirmed,
		CreatedAt:        e.CreatedAt,
	}
}

type resultView struct {
	PackNumber    int        `json:"packNumber"`
	WinningRarity *string    `json:"winningRarity"`
	WinnerUserID  *uuid.UUID `json:"winnerUserId"`
	PoolSize      int        `json:"poolSize"`
	SettledAt     time.Time  `json:"settledAt"`
}

func newResultView(r lottery.Result) resultView {
	v := resultView{
		PackNumber:   r.PackNumber,
		WinnerUserID: r.WinnerUserID,
		PoolSize:     r.PoolSize,
		SettledAt:    r.SettledAt,
	}

	if r.WinningRarity != nil {
		t := string(*r.WinningRarity)
		v.WinningRarity = &t
	}

	return v
}

type participantsView struct {
	ByPack    map[int]map[string]int `json:"byPack"`
	RoundWide map[string]int         `json:"roundWide"`
	Total     int                    `json:"total"`
	Mine      int                    `json:"mine"`
	Results   []resultView           `json:"results"`
}

func newParticipantsView(p svclottery.Participants, results []lottery.Result) participantsView {
	tiers := func(m map[rarity.Tier]int) map[string]int {
		out := make(map[string]int, len(m))
		for t, n := range m {
			out[string(t)] = n
		}

		return out
	}

	v := participantsView{
		ByPack:    make(map[int]map[string]int, len(p.ByPack)),
		RoundWide: tiers(p.RoundWide),
		Total:     p.Total,
		Mine:      p.Mine,
		Results:   make([]resultView, 0, len(results)),
	}

	for pack, m := range p.ByPack {
		v.ByPack[pack] = tiers(m)
	}

	for _, r := range results {
		v.Results = append(v.Results, newResultView(r))
	}

	return v
}

type ledgerView struct {
	TransactionID string    `json:"transactionId"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	Reference     string    `json:"reference,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newLedgerViews(list []ledger.Record) []ledgerView {
	out := make([]ledgerView, 0, len(list))
	for _, rec := range list {
		out = append(out, ledgerView{
			TransactionID: rec.TransactionID,
			Kind:          string(rec.Kind),
			Amount:        formatAmount(rec.Amount),
			Reference:     rec.Reference,
			CreatedAt:     rec.CreatedAt,
		})
	}

	return out
}

type cardView struct {
	ID            int64   `json:"id"`
	Name          string  `json:"cardName"`
	Number        string  `json:"cardNumber"`
	SetName       string  `json:"setName"`
	Rarity        string  `json:"rarity"`
	ImageURL      string  `json:"imageUrl,omitempty"`
	UngradedPrice *string `json:"ungradedMarketPrice,omitempty"`
	PSA10Price    *string `json:"psa10Price,omitempty"`
	LiveSingles   bool    `json:"liveSingles"`
}

func newCardView(c cards.Card) cardView {
	return cardView{
		ID:            c.ID,
		Name:          c.Name,
		Number:        c.Number,
		SetName:       string(c.SetName),
		Rarity:        c.Rarity,
		ImageURL:      c.ImageURL,
		UngradedPrice: formatAmountPtr(c.UngradedPrice),
		PSA10Price:    formatAmountPtr(c.PSA10Price),
		LiveSingles:   c.LiveSingles,
	}
}

type overviewView struct {
	Stream           streamView  `json:"stream"`
	Rounds           []roundView `json:"rounds"`
	CurrentRound     *int        `json:"currentRound"`
	ActiveSlots      int         `json:"activeSlots"`
	LeadingSlots     int         `json:"leadingSlots"`
	LotteryEntries   int         `json:"lotteryEntries"`
	MyLotteryEntries int         `json:"myLotteryEntries"`
	ActiveSingles    int         `json:"activeSingles"`
	LeadingSingles   int         `json:"leadingSingles"`
	LastHit          *pullView   `json:"lastHit"`
}

func newOverviewView(o lifecycle.Overview) overviewView {
	v := overviewView{
		Stream:           newStreamView(o.Stream),
		Rounds:           make([]roundView, 0, len(o.Rounds)),
		ActiveSlots:      o.ActiveSlots,
		LeadingSlots:     o.LeadingSlots,
		LotteryEntries:   o.LotteryEntries,
		MyLotteryEntries: o.MyLotteryEntries,
		ActiveSingles:    o.ActiveSingles,
		LeadingSingles:   o.LeadingSingles,
	}

	for _, r := range o.Rounds {
		v.Rounds = append(v.Rounds, newRoundView(r))
	}

	if o.CurrentRound != nil {
		n := o.CurrentRound.RoundNumber
		v.CurrentRound = &n
	}

	if o.LastHit != nil {
		p := newPullView(*o.LastHit)
		v.LastHit = &p
	}

	return v
}

type refundView struct {
	TargetID   uuid.UUID `json:"targetId"`
	UserID     uuid.UUID `json:"userId"`
	Amount     string    `json:"amount"`
	NewBalance string    `json:"newBalance"`
}

func newRefundView(r settlement.Refund) refundView {
	return refundView{
		TargetID:   r.TargetID,
		UserID:     r.UserID,
		Amount:     formatAmount(r.Amount),
		NewBalance: formatAmount(r.NewBalance),
	}
}

type packOutcomeView struct {
	Result      resultView  `json:"result"`
	ChaseAwards []awardView `json:"chaseAwards"`
	Prize       []pullView  `json:"prize"`
}

type awardView struct {
	SlotID   uuid.UUID `json:"slotId"`
	PullID   uuid.UUID `json:"pullId"`
	CardName string    `json:"cardName"`
	Bid      *bidView  `json:"bid"`
}

func newPackOutcomeView(o settlement.PackOutcome) packOutcomeView {
	v := packOutcomeView{
		Result:      newResultView(o.Result),
		ChaseAwards: make([]awardView, 0, len(o.ChaseAwards)),
		Prize:       newPullViews(o.Prize),
	}

	for _, a := range o.ChaseAwards {
		v.ChaseAwards = append(v.ChaseAwards, awardView{
			SlotID:   a.SlotID,
			PullID:   a.PullID,
			CardName: a.CardName,
			Bid:      newBidView(&a.Bid),
		})
	}

	return v
}

type singlesOutcomeView struct {
	Sold   []saleView `json:"sold"`
	Locked int        `json:"locked"`
}

type saleView struct {
	SingleID uuid.UUID `json:"singleId"`
	CardName string    `json:"cardName"`
	Bid      *bidView  `json:"bid"`
}

func newSinglesOutcomeView(o settlement.SinglesOutcome) singlesOutcomeView {
	v := singlesOutcomeView{Sold: make([]saleView, 0, len(o.Sold)), Locked: o.Locked}
	for _, s := range o.Sold {
		v.Sold = append(v.Sold, saleView{SingleID: s.SingleID, CardName: s.CardName, Bid: newBidView(&s.Bid)})
	}

	return v
}
