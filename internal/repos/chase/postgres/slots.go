package chase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/repos/chase"
	"github.com/google/uuid"
)

var _ chase.Chase = (*chaseRepo)(nil)

type chaseRepo struct{ db *sql.DB }

func New(db *sql.DB) *chaseRepo {
	return &chaseRepo{db: db}
}

const slotColumns = `s.id, s.round_id, s.all_card_id, s.card_name, s.starting_bid, s.min_increment,
	s.is_active, s.locked, s.winner_user_id, s.winning_bid_id, s.settled_at, s.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func slotDest(s *chase.Slot) []any {
	return []any{&s.ID, &s.RoundID, &s.CardID, &s.CardName, &s.StartingBid, &s.MinIncrement,
		&s.IsActive, &s.Locked, &s.WinnerUserID, &s.WinningBidID, &s.SettledAt, &s.CreatedAt}
}

func scanSlot(row rowScanner) (chase.Slot, error) {
	var s chase.Slot

	err := row.Scan(slotDest(&s)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chase.Slot{}, chase.ErrSlotNotFound
		}

		return chase.Slot{}, fmt.Errorf("scan slot: %w", err)
	}

	return s, nil
}

const insertSlot = `
	INSERT INTO chase_slots (id, round_id, all_card_id, card_name, starting_bid, min_increment, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *chaseRepo) CreateSlot(ctx context.Context, s chase.Slot) error {
	_, err := r.db.ExecContext(ctx, insertSlot,
		s.ID, s.RoundID, s.CardID, s.CardName, s.StartingBid, s.MinIncrement, s.IsActive)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return chase.ErrDuplicateSlot
		}

		return fmt.Errorf("insert slot: %w", err)
	}

	return nil
}

func (r *chaseRepo) CreateSlots(tx *sql.Tx, slots []chase.Slot) (int, error) {
	created := 0

	for _, s := range slots {
		res, err := tx.Exec(insertSlot+` ON CONFLICT DO NOTHING`,
			s.ID, s.RoundID, s.CardID, s.CardName, s.StartingBid, s.MinIncrement, s.IsActive)
		if err != nil {
			return created, fmt.Errorf("insert slot %q: %w", s.CardName, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("rows affected: %w", err)
		}

		created += int(n)
	}

	return created, nil
}

func (r *chaseRepo) GetSlot(ctx context.Context, id uuid.UUID) (chase.Slot, error) {
	return scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM chase_slots s WHERE s.id = $1`, id))
}

func (r *chaseRepo) LockSlot(tx *sql.Tx, id uuid.UUID) (chase.Slot, error) {
	return scanSlot(tx.QueryRow(`SELECT `+slotColumns+` FROM chase_slots s WHERE s.id = $1 FOR UPDATE`, id))
}

// LockRoundSlots locks in id order, the same order every settlement path uses.
func (r *chaseRepo) LockRoundSlots(tx *sql.Tx, roundID uuid.UUID) ([]chase.Slot, error) {
	rows, err := tx.Query(`
		SELECT `+slotColumns+`
		FROM chase_slots s
		WHERE s.round_id = $1
		ORDER BY s.id
		FOR UPDATE
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("lock round slots: %w", err)
	}
	defer rows.Close()

	var out []chase.Slot

	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate round slots: %w", err)
	}

	return out, nil
}

func (r *chaseRepo) SetRoundLocked(tx *sql.Tx, roundID uuid.UUID, locked bool) error {
	_, err := tx.Exec(`
		UPDATE chase_slots SET locked = $2 WHERE round_id = $1 AND settled_at IS NULL
	`, roundID, locked)
	if err != nil {
		return fmt.Errorf("set slots locked: %w", err)
	}

	return nil
}

func (r *chaseRepo) SettleWithoutWinner(tx *sql.Tx, slotID uuid.UUID, at time.Time) error {
	res, err := tx.Exec(`
		UPDATE chase_slots SET locked = true, settled_at = $2
		WHERE id = $1 AND settled_at IS NULL
	`, slotID, at)
	if err != nil {
		return fmt.Errorf("settle slot: %w", err)
	}

	return expectOne(res)
}

func expectOne(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return chase.ErrSlotNotFound
	}

	return nil
}
