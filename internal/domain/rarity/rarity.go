// Package rarity holds the per-set lottery tiers and their precedence,
// rarest first.
package rarity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownSet    = errors.New("unknown set")
	ErrUnknownRarity = errors.New("unknown rarity")
)

// Set is the catalog set name as stored on rounds and cards.
type Set string

const (
	PrismaticEvolutions Set = "SV: Prismatic Evolutions"
	CrownZenith         Set = "Crown Zenith: Galarian Gallery"
	DestinedRivals      Set = "SV10: Destined Rivals"
)

// Tier is a lottery rarity bucket within a set.
type Tier string

const (
	PrismaticSIR        Tier = "SIR"
	PrismaticMasterball Tier = "Masterball Pattern"
	PrismaticUltraRare  Tier = "Ultra Rare"
	PrismaticPokeball   Tier = "Pokeball Pattern"

	CrownZenithSecretRare      Tier = "Secret Rare (includes Pikachu)"
	CrownZenithUltraRare       Tier = "Ultra Rare (Non Galarian Gallery)"
	CrownZenithGalarianGallery Tier = "Ultra Rare (Galarian Gallery)"

	DestinedRivalsSIRHyper    Tier = "SIR / Hyper Rare"
	DestinedRivalsIR          Tier = "IR"
	DestinedRivalsUltraDouble Tier = "Ultra Rare / Double Rare"
)

var precedence = map[Set][]Tier{
	PrismaticEvolutions: {PrismaticSIR, PrismaticMasterball, PrismaticUltraRare, PrismaticPokeball},
	CrownZenith:         {CrownZenithSecretRare, CrownZenithUltraRare, CrownZenithGalarianGallery},
	DestinedRivals:      {DestinedRivalsSIRHyper, DestinedRivalsIR, DestinedRivalsUltraDouble},
}

// short keys used by the storefront URLs
var aliases = map[string]Set{
	"prismatic":       PrismaticEvolutions,
	"crown_zenith":    CrownZenith,
	"destined_rivals": DestinedRivals,
}

// Sets lists the supported sets in a stable order.
func Sets() []Set {
	return []Set{PrismaticEvolutions, CrownZenith, DestinedRivals}
}

// ParseSet accepts either the stored set name or its short key.
func ParseSet(s string) (Set, error) {
	s = strings.TrimSpace(s)

	if set, ok := aliases[strings.ToLower(s)]; ok {
		return set, nil
	}

	if _, ok := precedence[Set(s)]; ok {
		return Set(s), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownSet, s)
}

// Precedence returns the set's tiers, rarest first.
func Precedence(set Set) ([]Tier, error) {
	tiers, ok := precedence[set]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSet, set)
	}

	out := make([]Tier, len(tiers))
	copy(out, tiers)

	return out, nil
}

// Rank is the tier's position in the precedence table; 0 is the rarest.
func Rank(set Set, tier Tier) (int, error) {
	tiers, ok := precedence[set]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSet, set)
	}

	for i, t := range tiers {
		if t == tier {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %q in %q", ErrUnknownRarity, tier, set)
}

func Validate(set Set, tier Tier) error {
	_, err := Rank(set, tier)
	return err
}

// Rarest returns the highest-precedence tier among candidates. Tiers that do
// not belong to the set are ignored.
func Rarest(set Set, candidates []Tier) (Tier, bool) {
	best, bestRank := Tier(""), -1

	for _, c := range candidates {
		r, err := Rank(set, c)
		if err != nil {
			continue
		}

		if bestRank == -1 || r < bestRank {
			best, bestRank = c, r
		}
	}

	return best, bestRank >= 0
}
