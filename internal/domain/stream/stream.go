package stream

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Status is the stream lifecycle: scheduled -> live -> ended.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusEnded     Status = "ended"
)

var statusTransitions = map[Status][]Status{
	StatusScheduled: {StatusLive},
	StatusLive:      {StatusEnded},
}

func (s Status) Transition(to Status) error {
	if slices.Contains(statusTransitions[s], to) {
		return nil
	}

	return fmt.Errorf("%w: stream %s -> %s", ErrInvalidTransition, s, to)
}

// BiddingStatus is a round's chase/lottery window.
type BiddingStatus string

const (
	BiddingNotStarted BiddingStatus = "not_started"
	BiddingOpen       BiddingStatus = "open"
	BiddingClosed     BiddingStatus = "closed"
)

var biddingTransitions = map[BiddingStatus][]BiddingStatus{
	BiddingNotStarted: {BiddingOpen},
	BiddingOpen:       {BiddingClosed},
	BiddingClosed:     {BiddingOpen},
}

func (b BiddingStatus) Transition(to BiddingStatus) error {
	if slices.Contains(biddingTransitions[b], to) {
		return nil
	}

	return fmt.Errorf("%w: bidding %s -> %s", ErrInvalidTransition, b, to)
}

const (
	MinRoundNumber = 1
	MaxRoundNumber = 3
)

// SingleStatus is a live single's auction state.
type SingleStatus string

const (
	SingleOpen      SingleStatus = "open"
	SingleLocked    SingleStatus = "locked"
	SingleSold      SingleStatus = "sold"
	SingleCancelled SingleStatus = "cancelled"
)
