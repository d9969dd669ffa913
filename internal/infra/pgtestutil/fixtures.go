package pgtestutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Seed helpers insert rows with plain SQL so service tests do not depend on
// the repositories they exercise.

func SeedUser(t *testing.T, db *sql.DB, credit int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	MustExec(t, db, `INSERT INTO users (id, site_credit) VALUES ($1, $2)`, id, credit)

	return id
}

func SeedStream(t *testing.T, db *sql.DB, status string, singlesCloseAt *time.Time) uuid.UUID {
	t.Helper()

	id := uuid.New()
	MustExec(t, db, `
		INSERT INTO streams (id, title, status, scheduled_date, singles_close_at)
		VALUES ($1, 'test stream', $2, now(), $3)
	`, id, status, singlesCloseAt)

	return id
}

// SeedRound creates a round with bidding open until endsAt (nil = no deadline).
func SeedRound(t *testing.T, db *sql.DB, streamID uuid.UUID, number int, set string, packs int, endsAt *time.Time) uuid.UUID {
	t.Helper()

	id := uuid.New()
	MustExec(t, db, `
		INSERT INTO rounds (id, stream_id, round_number, set_name, total_packs_planned, bidding_status, bidding_ends_at)
		VALUES ($1, $2, $3, $4, $5, 'open', $6)
	`, id, streamID, number, set, packs, endsAt)

	return id
}

func SeedCard(t *testing.T, db *sql.DB, name, number, set, rarity string, price int64) int64 {
	t.Helper()

	var id int64

	err := db.QueryRowContext(t.Context(), `
		INSERT INTO all_cards (card_name, card_number, set_name, rarity, ungraded_market_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, name, number, set, rarity, price).Scan(&id)
	if err != nil {
		t.Fatalf("seed card: %v", err)
	}

	return id
}

func SeedSlot(t *testing.T, db *sql.DB, roundID uuid.UUID, cardID *int64, name string, start, inc int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	MustExec(t, db, `
		INSERT INTO chase_slots (id, round_id, all_card_id, card_name, starting_bid, min_increment)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, roundID, cardID, name, start, inc)

	return id
}

func SeedSingle(t *testing.T, db *sql.DB, streamID uuid.UUID, name string, start, inc int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	MustExec(t, db, `
		INSERT INTO live_singles (id, stream_id, card_name, starting_bid, min_increment)
		VALUES ($1, $2, $3, $4, $5)
	`, id, streamID, name, start, inc)

	return id
}

func Credit(t *testing.T, db *sql.DB, userID uuid.UUID) int64 {
	t.Helper()

	var credit int64

	err := db.QueryRowContext(t.Context(), `SELECT site_credit FROM users WHERE id = $1`, userID).Scan(&credit)
	if err != nil {
		t.Fatalf("read credit: %v", err)
	}

	return credit
}
