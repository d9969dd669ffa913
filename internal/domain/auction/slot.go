package auction

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid slot transition")

// SlotState is the chase slot lifecycle:
// inactive -> open -> locked -> settled.
type SlotState string

const (
	SlotInactive SlotState = "inactive"
	SlotOpen     SlotState = "open"
	SlotLocked   SlotState = "locked"
	SlotSettled  SlotState = "settled"
)

var slotTransitions = map[SlotState][]SlotState{
	SlotInactive: {SlotOpen},
	SlotOpen:     {SlotLocked},
	// a closed round may be reopened by the operator
	SlotLocked:  {SlotOpen, SlotSettled},
	SlotSettled: nil,
}

func (s SlotState) Transition(to SlotState) (SlotState, error) {
	for _, next := range slotTransitions[s] {
		if next == to {
			return to, nil
		}
	}

	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
}

// DeriveSlotState maps stored slot flags and the round's bidding state onto
// the lifecycle.
func DeriveSlotState(active, locked, settled, roundOpen bool) SlotState {
	switch {
	case settled:
		return SlotSettled
	case !active:
		return SlotInactive
	case locked || !roundOpen:
		return SlotLocked
	default:
		return SlotOpen
	}
}
