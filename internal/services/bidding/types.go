package bidding

import (
	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/google/uuid"
)

// BidRequest targets a chase slot or a live single. Amount is in minor units.
// TransactionID is optional; when set it keys the debit ledger row, so a
// retried request fails as a duplicate instead of bidding twice.
type BidRequest struct {
	UserID        uuid.UUID
	TargetID      uuid.UUID
	Amount        int64
	TransactionID string
}

type BidResult struct {
	Bid        auction.Bid
	NewBalance int64
	IsLeading  bool
	Refunded   *Refund
}

// Refund is the committed amount returned to the outbid leader.
type Refund struct {
	UserID     uuid.UUID
	Amount     int64
	NewBalance int64
}
