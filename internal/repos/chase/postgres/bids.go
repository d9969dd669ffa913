package chase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/google/uuid"
)

const leaderLateral = `
	LEFT JOIN LATERAL (
		SELECT b.id, b.user_id, b.amount, b.created_at
		FROM chase_bids b
		WHERE b.slot_id = s.id
		ORDER BY b.amount DESC, b.created_at ASC, b.id ASC
		LIMIT 1
	) top ON true`

type nullableBid struct {
	id        *uuid.UUID
	userID    *uuid.UUID
	amount    *int64
	createdAt *time.Time
}

func (n *nullableBid) dest() []any {
	return []any{&n.id, &n.userID, &n.amount, &n.createdAt}
}

func (n *nullableBid) bid() *auction.Bid {
	if n.id == nil {
		return nil
	}

	return &auction.Bid{ID: *n.id, UserID: *n.userID, Amount: *n.amount, CreatedAt: *n.createdAt}
}

func (r *chaseRepo) ListSlots(ctx context.Context, roundID uuid.UUID) ([]chase.SlotView, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+slotColumns+`, top.id, top.user_id, top.amount, top.created_at
		FROM chase_slots s`+leaderLateral+`
		WHERE s.round_id = $1
		ORDER BY s.starting_bid DESC, s.card_name
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var out []chase.SlotView

	for rows.Next() {
		var (
			v   chase.SlotView
			top nullableBid
		)

		err = rows.Scan(append(slotDest(&v.Slot), top.dest()...)...)
		if err != nil {
			return nil, fmt.Errorf("scan slot view: %w", err)
		}

		v.Leader = top.bid()
		out = append(out, v)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return out, nil
}

func (r *chaseRepo) Leader(ctx context.Context, slotID uuid.UUID) (*auction.Bid, error) {
	return scanTop(r.db.QueryRowContext(ctx, topBidQuery, slotID))
}

// TopBid reads the leader inside the bidding transaction; the caller holds
// the slot row lock, which serializes writers.
func (r *chaseRepo) TopBid(tx *sql.Tx, slotID uuid.UUID) (*auction.Bid, error) {
	return scanTop(tx.QueryRow(topBidQuery, slotID))
}

const topBidQuery = `
	SELECT id, user_id, amount, created_at
	FROM chase_bids
	WHERE slot_id = $1
	ORDER BY amount DESC, created_at ASC, id ASC
	LIMIT 1`

func scanTop(row *sql.Row) (*auction.Bid, error) {
	var b auction.Bid

	err := row.Scan(&b.ID, &b.UserID, &b.Amount, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("top bid: %w", err)
	}

	return &b, nil
}

func (r *chaseRepo) InsertBid(tx *sql.Tx, slotID uuid.UUID, bid auction.Bid) (auction.Bid, error) {
	err := tx.QueryRow(`
		INSERT INTO chase_bids (id, slot_id, user_id, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, bid.ID, slotID, bid.UserID, bid.Amount).Scan(&bid.CreatedAt)
	if err != nil {
		return auction.Bid{}, fmt.Errorf("insert chase bid: %w", err)
	}

	return bid, nil
}

func (r *chaseRepo) Award(tx *sql.Tx, slotID uuid.UUID, bid auction.Bid, at time.Time) error {
	res, err := tx.Exec(`
		UPDATE chase_slots
		SET locked = true, winner_user_id = $2, winning_bid_id = $3, settled_at = $4
		WHERE id = $1 AND settled_at IS NULL
	`, slotID, bid.UserID, bid.ID, at)
	if err != nil {
		return fmt.Errorf("award slot: %w", err)
	}

	return expectOne(res)
}
