package bidding

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/users"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/google/uuid"
)

type insertBidFunc func(tx *sql.Tx, targetID uuid.UUID, bid auction.Bid) (auction.Bid, error)

// apply moves the credit for an accepted bid. The target row is already
// locked by the caller. The previous leader is refunded before the bidder is
// debited, so raising your own bid only commits the difference.
func (s *BidService) apply(tx *sql.Tx, req BidRequest, rules auction.Rules, top *auction.Bid, ref string, insert insertBidFunc) (BidResult, error) {
	var topAmount *int64
	if top != nil {
		topAmount = &top.Amount
	}

	err := rules.Check(req.Amount, topAmount)
	if err != nil {
		return BidResult{}, err
	}

	ids := []uuid.UUID{req.UserID}
	if top != nil {
		ids = append(ids, top.UserID)
	}

	locked, err := s.credits.LockUsers(tx, ids...)
	if err != nil {
		return BidResult{}, err
	}

	// a user with no credit row has nothing to bid with
	if _, ok := locked[req.UserID]; !ok {
		return BidResult{}, users.ErrInsufficientCredits
	}

	var res BidResult

	if top != nil {
		balance, err := s.credits.Refund(tx, credits.Movement{
			TransactionID: "refund:" + top.ID.String(),
			UserID:        top.UserID,
			Amount:        top.Amount,
			Reference:     "outbid on " + ref,
		})
		if err != nil {
			return BidResult{}, fmt.Errorf("refund leader: %w", err)
		}

		res.Refunded = &Refund{UserID: top.UserID, Amount: top.Amount, NewBalance: balance}
	}

	res.NewBalance, err = s.credits.Debit(tx, credits.Movement{
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Reference:     "bid on " + ref,
	})
	if err != nil {
		return BidResult{}, fmt.Errorf("debit bidder: %w", err)
	}

	res.Bid, err = insert(tx, req.TargetID, auction.Bid{ID: uuid.New(), UserID: req.UserID, Amount: req.Amount})
	if err != nil {
		return BidResult{}, err
	}

	res.IsLeading = true

	return res, nil
}

func (r BidResult) events(topic, leaderType string, targetID uuid.UUID) []realtime.Event {
	evs := []realtime.Event{
		realtime.NewEvent(topic, leaderType, map[string]any{
			"id":     targetID,
			"userId": r.Bid.UserID,
			"amount": r.Bid.Amount,
		}),
		credits.BalanceEvent(r.Bid.UserID, r.NewBalance),
	}

	if r.Refunded != nil && r.Refunded.UserID != r.Bid.UserID {
		evs = append(evs,
			realtime.NewEvent(realtime.UserTopic(r.Refunded.UserID), realtime.EventOutbid, map[string]any{
				"id":       targetID,
				"refunded": r.Refunded.Amount,
				"topBid":   r.Bid.Amount,
			}),
			credits.BalanceEvent(r.Refunded.UserID, r.Refunded.NewBalance),
		)
	}

	return evs
}
