// Package lottery selects the prize pool for a pack and draws its winner.
package lottery

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/google/uuid"
)

var ErrNoParticipants = errors.New("no participants")

type Entry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Tier      rarity.Tier
	CreatedAt time.Time
}

// Pool is the set of entrants eligible for a pack's prize.
type Pool struct {
	Tier    rarity.Tier
	Entries []Entry
}

// SelectPool picks the rarest tier that was both pulled in the pack and has
// at least one entrant. Entrants of lower tiers are not considered even when
// their tier also hit. ok is false when no pulled tier had entrants.
func SelectPool(set rarity.Set, pulled []rarity.Tier, entries []Entry) (Pool, bool, error) {
	tiers, err := rarity.Precedence(set)
	if err != nil {
		return Pool{}, false, fmt.Errorf("precedence: %w", err)
	}

	hit := make(map[rarity.Tier]bool, len(pulled))
	for _, t := range pulled {
		hit[t] = true
	}

	byTier := make(map[rarity.Tier][]Entry)
	for _, e := range entries {
		byTier[e.Tier] = append(byTier[e.Tier], e)
	}

	for _, t := range tiers {
		if !hit[t] || len(byTier[t]) == 0 {
			continue
		}

		pool := Pool{Tier: t, Entries: byTier[t]}
		sortEntries(pool.Entries)

		return pool, true, nil
	}

	return Pool{}, false, nil
}

// entries are ordered by entry time so a given random index is reproducible
func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return bytes.Compare(a.ID[:], b.ID[:])
	})
}
