package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/repos/cards"
)

var _ cards.Cards = (*cardsRepo)(nil)

type cardsRepo struct{ db *sql.DB }

func New(db *sql.DB) *cardsRepo {
	return &cardsRepo{db: db}
}

const cardColumns = `id, card_name, card_number, set_name, rarity, image_url,
	ungraded_market_price, psa_10_price, live_singles, date_updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (cards.Card, error) {
	var (
		c   cards.Card
		set string
	)

	err := row.Scan(&c.ID, &c.Name, &c.Number, &set, &c.Rarity, &c.ImageURL,
		&c.UngradedPrice, &c.PSA10Price, &c.LiveSingles, &c.DateUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cards.Card{}, cards.ErrCardNotFound
		}

		return cards.Card{}, fmt.Errorf("scan card: %w", err)
	}

	c.SetName = rarity.Set(set)

	return c, nil
}

func (r *cardsRepo) Upsert(ctx context.Context, c cards.Card) (int64, error) {
	var id int64

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO all_cards (card_name, card_number, set_name, rarity, image_url,
			ungraded_market_price, psa_10_price, live_singles, date_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (set_name, card_number, card_name) DO UPDATE SET
			rarity = EXCLUDED.rarity,
			image_url = EXCLUDED.image_url,
			ungraded_market_price = EXCLUDED.ungraded_market_price,
			psa_10_price = EXCLUDED.psa_10_price,
			live_singles = EXCLUDED.live_singles,
			date_updated = now()
		RETURNING id
	`, c.Name, c.Number, string(c.SetName), c.Rarity, c.ImageURL,
		c.UngradedPrice, c.PSA10Price, c.LiveSingles).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert card: %w", err)
	}

	return id, nil
}

func (r *cardsRepo) Get(ctx context.Context, id int64) (cards.Card, error) {
	return scanCard(r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM all_cards WHERE id = $1`, id))
}

func (r *cardsRepo) Search(ctx context.Context, set rarity.Set, query string, limit int) ([]cards.Card, error) {
	return r.list(ctx, `
		SELECT `+cardColumns+`
		FROM all_cards
		WHERE ($1 = '' OR set_name = $1)
		  AND ($2 = '' OR card_name ILIKE '%' || $2 || '%' OR card_number ILIKE $2 || '%')
		ORDER BY card_name, card_number
		LIMIT $3
	`, string(set), query, limit)
}

func (r *cardsRepo) ChaseCandidates(ctx context.Context, set rarity.Set, minPrice int64) ([]cards.Card, error) {
	return r.list(ctx, `
		SELECT `+cardColumns+`
		FROM all_cards
		WHERE set_name = $1
		  AND ungraded_market_price IS NOT NULL
		  AND ungraded_market_price >= $2
		ORDER BY ungraded_market_price DESC, card_name
	`, string(set), minPrice)
}

func (r *cardsRepo) FlaggedForSingles(ctx context.Context) ([]cards.Card, error) {
	return r.list(ctx, `
		SELECT `+cardColumns+`
		FROM all_cards
		WHERE live_singles
		ORDER BY set_name, card_name
	`)
}

func (r *cardsRepo) list(ctx context.Context, query string, args ...any) ([]cards.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var out []cards.Card

	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, c)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}

	return out, nil
}
