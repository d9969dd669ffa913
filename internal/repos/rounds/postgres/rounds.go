package rounds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/rarity"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/repos/rounds"
	"github.com/google/uuid"
)

var _ rounds.Rounds = (*roundsRepo)(nil)

type roundsRepo struct{ db *sql.DB }

func New(db *sql.DB) *roundsRepo {
	return &roundsRepo{db: db}
}

const roundColumns = `id, stream_id, round_number, set_name, total_packs_planned, packs_opened,
	chase_min_price, bidding_status, bidding_ends_at, locked, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (rounds.Round, error) {
	var (
		r            rounds.Round
		set, bidding string
	)

	err := row.Scan(&r.ID, &r.StreamID, &r.RoundNumber, &set, &r.TotalPacksPlanned, &r.PacksOpened,
		&r.ChaseMinPrice, &bidding, &r.BiddingEndsAt, &r.Locked, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rounds.Round{}, rounds.ErrRoundNotFound
		}

		return rounds.Round{}, fmt.Errorf("scan round: %w", err)
	}

	r.SetName = rarity.Set(set)
	r.BiddingStatus = stream.BiddingStatus(bidding)

	return r, nil
}

func (r *roundsRepo) Create(ctx context.Context, rd rounds.Round) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rounds (id, stream_id, round_number, set_name, total_packs_planned, chase_min_price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rd.ID, rd.StreamID, rd.RoundNumber, string(rd.SetName), rd.TotalPacksPlanned, rd.ChaseMinPrice)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return rounds.ErrDuplicateRound
		}

		return fmt.Errorf("insert round: %w", err)
	}

	return nil
}

func (r *roundsRepo) Get(ctx context.Context, id uuid.UUID) (rounds.Round, error) {
	return scanRound(r.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id))
}

func (r *roundsRepo) Lock(tx *sql.Tx, id uuid.UUID) (rounds.Round, error) {
	return scanRound(tx.QueryRow(`SELECT `+roundColumns+` FROM rounds WHERE id = $1 FOR UPDATE`, id))
}

func (r *roundsRepo) Share(tx *sql.Tx, id uuid.UUID) (rounds.Round, error) {
	return scanRound(tx.QueryRow(`SELECT `+roundColumns+` FROM rounds WHERE id = $1 FOR SHARE`, id))
}

func (r *roundsRepo) ListByStream(ctx context.Context, streamID uuid.UUID) ([]rounds.Round, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE stream_id = $1 ORDER BY round_number`, streamID)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []rounds.Round

	for rows.Next() {
		rd, err := scanRound(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, rd)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}

	return out, nil
}

func (r *roundsRepo) UpdateBidding(tx *sql.Tx, id uuid.UUID, status stream.BiddingStatus, endsAt *time.Time) error {
	res, err := tx.Exec(`
		UPDATE rounds SET bidding_status = $2, bidding_ends_at = $3 WHERE id = $1
	`, id, string(status), endsAt)
	if err != nil {
		return fmt.Errorf("update bidding: %w", err)
	}

	return expectOne(res)
}

func (r *roundsRepo) SetLocked(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE rounds SET locked = true, bidding_status = 'closed' WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("lock round: %w", err)
	}

	return expectOne(res)
}

func (r *roundsRepo) IncrementPacksOpened(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`UPDATE rounds SET packs_opened = packs_opened + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment packs opened: %w", err)
	}

	return expectOne(res)
}

func (r *roundsRepo) DueForClose(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM rounds
		WHERE bidding_status = 'open'
		  AND bidding_ends_at IS NOT NULL
		  AND bidding_ends_at <= $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("query due rounds: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan round id: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate due rounds: %w", err)
	}

	return ids, nil
}

func expectOne(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return rounds.ErrRoundNotFound
	}

	return nil
}
