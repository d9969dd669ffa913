package rarity

import "strings"

// Card is the subset of catalog fields classification looks at.
type Card struct {
	Name   string
	Number string
	Rarity string
}

// Classify maps a pulled card onto its set's lottery tier. Cards that fall
// outside every tier (commons, plain holos) report false.
func Classify(set Set, card Card) (Tier, bool) {
	r := strings.ToLower(card.Rarity)
	name := strings.ToLower(card.Name)

	switch set {
	case PrismaticEvolutions:
		switch {
		case strings.Contains(r, "special illustration"):
			return PrismaticSIR, true
		case hasAny(r, name, "master ball", "masterball"):
			return PrismaticMasterball, true
		case strings.Contains(r, "ultra rare"):
			return PrismaticUltraRare, true
		case hasAny(r, name, "poke ball", "pokeball", "poké ball"):
			return PrismaticPokeball, true
		}
	case CrownZenith:
		gallery := strings.HasPrefix(strings.ToUpper(strings.TrimSpace(card.Number)), "GG")
		switch {
		case strings.Contains(r, "secret"):
			return CrownZenithSecretRare, true
		case gallery && strings.Contains(name, "pikachu"):
			return CrownZenithSecretRare, true
		case strings.Contains(r, "ultra rare") && gallery:
			return CrownZenithGalarianGallery, true
		case strings.Contains(r, "ultra rare"):
			return CrownZenithUltraRare, true
		}
	case DestinedRivals:
		switch {
		case strings.Contains(r, "special illustration"), strings.Contains(r, "hyper rare"):
			return DestinedRivalsSIRHyper, true
		case strings.Contains(r, "illustration rare"):
			return DestinedRivalsIR, true
		case strings.Contains(r, "ultra rare"), strings.Contains(r, "double rare"):
			return DestinedRivalsUltraDouble, true
		}
	}

	return "", false
}

func hasAny(rarity, name string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(rarity, n) || strings.Contains(name, n) {
			return true
		}
	}

	return false
}
