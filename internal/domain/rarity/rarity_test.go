package rarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Set
		wantErr bool
	}{
		{in: "prismatic", want: PrismaticEvolutions},
		{in: "Crown_Zenith", want: CrownZenith},
		{in: "SV10: Destined Rivals", want: DestinedRivals},
		{in: "Base Set", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSet(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownSet)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrecedence_RarestFirst(t *testing.T) {
	t.Parallel()

	tiers, err := Precedence(PrismaticEvolutions)
	require.NoError(t, err)
	assert.Equal(t, []Tier{PrismaticSIR, PrismaticMasterball, PrismaticUltraRare, PrismaticPokeball}, tiers)

	tiers[0] = "mutated"
	again, _ := Precedence(PrismaticEvolutions)
	assert.Equal(t, PrismaticSIR, again[0], "callers must not mutate the table")

	_, err = Precedence("Jungle")
	assert.ErrorIs(t, err, ErrUnknownSet)
}

func TestRank(t *testing.T) {
	t.Parallel()

	r, err := Rank(CrownZenith, CrownZenithGalarianGallery)
	require.NoError(t, err)
	assert.Equal(t, 2, r)

	_, err = Rank(CrownZenith, PrismaticSIR)
	assert.ErrorIs(t, err, ErrUnknownRarity)

	assert.NoError(t, Validate(DestinedRivals, DestinedRivalsIR))
	assert.ErrorIs(t, Validate(DestinedRivals, "IR "), ErrUnknownRarity)
}

func TestRarest(t *testing.T) {
	t.Parallel()

	got, ok := Rarest(PrismaticEvolutions, []Tier{PrismaticPokeball, PrismaticMasterball, PrismaticSIR})
	require.True(t, ok)
	assert.Equal(t, PrismaticSIR, got)

	got, ok = Rarest(DestinedRivals, []Tier{DestinedRivalsUltraDouble, "bogus", DestinedRivalsIR})
	require.True(t, ok)
	assert.Equal(t, DestinedRivalsIR, got)

	_, ok = Rarest(CrownZenith, nil)
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		set    Set
		card   Card
		want   Tier
		wantOK bool
	}{
		{name: "pe_sir", set: PrismaticEvolutions, card: Card{Name: "Umbreon ex", Rarity: "Special Illustration Rare"}, want: PrismaticSIR, wantOK: true},
		{name: "pe_masterball_by_name", set: PrismaticEvolutions, card: Card{Name: "Eevee (Master Ball)", Rarity: "Common"}, want: PrismaticMasterball, wantOK: true},
		{name: "pe_pokeball", set: PrismaticEvolutions, card: Card{Name: "Eevee", Rarity: "Poke Ball Pattern"}, want: PrismaticPokeball, wantOK: true},
		{name: "pe_ultra", set: PrismaticEvolutions, card: Card{Name: "Leafeon ex", Rarity: "Ultra Rare"}, want: PrismaticUltraRare, wantOK: true},
		{name: "pe_common", set: PrismaticEvolutions, card: Card{Name: "Eevee", Rarity: "Common"}},
		{name: "cz_secret", set: CrownZenith, card: Card{Name: "Giratina VSTAR", Number: "GG69/GG70", Rarity: "Secret Rare"}, want: CrownZenithSecretRare, wantOK: true},
		{name: "cz_pikachu_gg", set: CrownZenith, card: Card{Name: "Pikachu VMAX", Number: "GG30/GG70", Rarity: "Ultra Rare"}, want: CrownZenithSecretRare, wantOK: true},
		{name: "cz_gg_ultra", set: CrownZenith, card: Card{Name: "Mewtwo VSTAR", Number: "GG44/GG70", Rarity: "Ultra Rare"}, want: CrownZenithGalarianGallery, wantOK: true},
		{name: "cz_main_ultra", set: CrownZenith, card: Card{Name: "Zacian V", Number: "145/159", Rarity: "Ultra Rare"}, want: CrownZenithUltraRare, wantOK: true},
		{name: "dr_sir_before_ir", set: DestinedRivals, card: Card{Name: "Team Rocket's Mewtwo ex", Rarity: "Special Illustration Rare"}, want: DestinedRivalsSIRHyper, wantOK: true},
		{name: "dr_hyper", set: DestinedRivals, card: Card{Rarity: "Hyper Rare"}, want: DestinedRivalsSIRHyper, wantOK: true},
		{name: "dr_ir", set: DestinedRivals, card: Card{Rarity: "Illustration Rare"}, want: DestinedRivalsIR, wantOK: true},
		{name: "dr_double", set: DestinedRivals, card: Card{Rarity: "Double Rare"}, want: DestinedRivalsUltraDouble, wantOK: true},
		{name: "unknown_set", set: "Jungle", card: Card{Rarity: "Ultra Rare"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Classify(tt.set, tt.card)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
