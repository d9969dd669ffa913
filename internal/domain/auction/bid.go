// Package auction holds the ascending-bid rules shared by chase slots and
// live singles: minimum acceptable bid, leader selection and the bidding window.
package auction

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBidTooLow     = errors.New("bid too low")
	ErrBiddingClosed = errors.New("bidding closed")
	ErrInvalidAmount = errors.New("bid amount must be positive")
)

// Reasons carried by BidTooLowError.
const (
	ReasonMinimumBid      = "minimum_bid"
	ReasonIncrementTooLow = "increment_too_low"
)

// BidTooLowError reports the smallest amount that would have been accepted.
type BidTooLowError struct {
	Reason  string
	Minimum int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low (%s): minimum is %d.%02d", e.Reason, e.Minimum/100, e.Minimum%100)
}

func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}

// Rules are the per-target bid parameters, in minor units.
type Rules struct {
	StartingBid  int64
	MinIncrement int64
}

// Minimum returns the lowest acceptable next bid given the current top bid
// (nil when there are no bids yet). A later bid must strictly exceed the top
// bid even when the increment is zero.
func (r Rules) Minimum(top *int64) int64 {
	if top == nil {
		return r.StartingBid
	}

	step := max(r.MinIncrement, 1)

	return max(r.StartingBid, *top+step)
}

// Check validates amount against the rules and the current top bid.
func (r Rules) Check(amount int64, top *int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	minimum := r.Minimum(top)
	if amount >= minimum {
		return nil
	}

	reason := ReasonIncrementTooLow
	if top == nil || amount < r.StartingBid {
		reason = ReasonMinimumBid
	}

	return &BidTooLowError{Reason: reason, Minimum: minimum}
}

type Bid struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    int64
	CreatedAt time.Time
}

// Leader picks the highest bid; ties go to the earliest, then to the lowest id.
func Leader(bids []Bid) (Bid, bool) {
	if len(bids) == 0 {
		return Bid{}, false
	}

	best := bids[0]
	for _, b := range bids[1:] {
		if outranks(b, best) {
			best = b
		}
	}

	return best, true
}

func outranks(a, b Bid) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}

	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// CheckOpen returns ErrBiddingClosed unless the target is open and the
// optional deadline has not passed.
func CheckOpen(open bool, closesAt *time.Time, now time.Time) error {
	if !open {
		return ErrBiddingClosed
	}

	if closesAt != nil && !now.Before(*closesAt) {
		return ErrBiddingClosed
	}

	return nil
}
