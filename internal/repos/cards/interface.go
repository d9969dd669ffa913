package cards

import (
	"context"
	"errors"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
)

var ErrCardNotFound = errors.New("card not found")

// Card is a catalog entry. Prices are market prices in minor units.
type Card struct {
	ID            int64
	Name          string
	Number        string
	SetName       rarity.Set
	Rarity        string
	ImageURL      string
	UngradedPrice *int64
	PSA10Price    *int64
	LiveSingles   bool
	DateUpdated   time.Time
}

type Cards interface {
	Upsert(ctx context.Context, c Card) (int64, error)
	Get(ctx context.Context, id int64) (Card, error)
	Search(ctx context.Context, set rarity.Set, query string, limit int) ([]Card, error)
	// ChaseCandidates lists cards of the set priced at or above minPrice,
	// most valuable first.
	ChaseCandidates(ctx context.Context, set rarity.Set, minPrice int64) ([]Card, error)
	// FlaggedForSingles lists cards the operator marked for live singles.
	FlaggedForSingles(ctx context.Context) ([]Card, error)
}
