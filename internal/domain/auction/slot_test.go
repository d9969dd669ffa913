package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotState_Transition(t *testing.T) {
	t.Parallel()

	s, err := SlotInactive.Transition(SlotOpen)
	require.NoError(t, err)
	s, err = s.Transition(SlotLocked)
	require.NoError(t, err)
	s, err = s.Transition(SlotSettled)
	require.NoError(t, err)
	assert.Equal(t, SlotSettled, s)

	_, err = SlotSettled.Transition(SlotOpen)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = SlotOpen.Transition(SlotSettled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeriveSlotState(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SlotSettled, DeriveSlotState(true, true, true, false))
	assert.Equal(t, SlotInactive, DeriveSlotState(false, false, false, true))
	assert.Equal(t, SlotLocked, DeriveSlotState(true, true, false, true))
	assert.Equal(t, SlotLocked, DeriveSlotState(true, false, false, false))
	assert.Equal(t, SlotOpen, DeriveSlotState(true, false, false, true))
}
