package singles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/auction"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/repos/singles"
	"github.com/google/uuid"
)

var _ singles.Singles = (*singlesRepo)(nil)

type singlesRepo struct{ db *sql.DB }

func New(db *sql.DB) *singlesRepo {
	return &singlesRepo{db: db}
}

const singleColumns = `ls.id, ls.stream_id, ls.all_card_id, ls.card_name, ls.card_number, ls.set_name,
	ls.image_url, ls.starting_bid, ls.min_increment, ls.buy_now, ls.status, ls.is_active,
	ls.winner_user_id, ls.winning_bid_id, ls.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type singleRow struct {
	s      singles.Single
	status string
}

func (r *singleRow) dest() []any {
	s := &r.s

	return []any{&s.ID, &s.StreamID, &s.CardID, &s.CardName, &s.CardNumber, &s.SetName,
		&s.ImageURL, &s.StartingBid, &s.MinIncrement, &s.BuyNow, &r.status, &s.IsActive,
		&s.WinnerUserID, &s.WinningBidID, &s.CreatedAt}
}

func (r *singleRow) single() singles.Single {
	r.s.Status = stream.SingleStatus(r.status)
	return r.s
}

func scanSingle(row rowScanner) (singles.Single, error) {
	var sr singleRow

	err := row.Scan(sr.dest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return singles.Single{}, singles.ErrSingleNotFound
		}

		return singles.Single{}, fmt.Errorf("scan single: %w", err)
	}

	return sr.single(), nil
}

const insertSingle = `
	INSERT INTO live_singles (id, stream_id, all_card_id, card_name, card_number, set_name,
		image_url, starting_bid, min_increment, buy_now)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func insertArgs(s singles.Single) []any {
	return []any{s.ID, s.StreamID, s.CardID, s.CardName, s.CardNumber, s.SetName,
		s.ImageURL, s.StartingBid, s.MinIncrement, s.BuyNow}
}

func (r *singlesRepo) Create(ctx context.Context, s singles.Single) error {
	_, err := r.db.ExecContext(ctx, insertSingle, insertArgs(s)...)
	if err != nil {
		return fmt.Errorf("insert single: %w", err)
	}

	return nil
}

// CreateMany skips catalog cards that already have a single in the stream.
func (r *singlesRepo) CreateMany(tx *sql.Tx, list []singles.Single) (int, error) {
	created := 0

	for _, s := range list {
		res, err := tx.Exec(`
			INSERT INTO live_singles (id, stream_id, all_card_id, card_name, card_number, set_name,
				image_url, starting_bid, min_increment, buy_now)
			SELECT $1::uuid, $2::uuid, $3::bigint, $4::text, $5::text, $6::text,
				$7::text, $8::bigint, $9::bigint, $10::bigint
			WHERE NOT EXISTS (
				SELECT 1 FROM live_singles WHERE stream_id = $2 AND all_card_id = $3
			)
		`, insertArgs(s)...)
		if err != nil {
			return created, fmt.Errorf("insert single %q: %w", s.CardName, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("rows affected: %w", err)
		}

		created += int(n)
	}

	return created, nil
}

func (r *singlesRepo) Get(ctx context.Context, id uuid.UUID) (singles.Single, error) {
	return scanSingle(r.db.QueryRowContext(ctx, `SELECT `+singleColumns+` FROM live_singles ls WHERE ls.id = $1`, id))
}

func (r *singlesRepo) Lock(tx *sql.Tx, id uuid.UUID) (singles.Single, error) {
	return scanSingle(tx.QueryRow(`SELECT `+singleColumns+` FROM live_singles ls WHERE ls.id = $1 FOR UPDATE`, id))
}

func (r *singlesRepo) LockOpenByStream(tx *sql.Tx, streamID uuid.UUID) ([]singles.Single, error) {
	rows, err := tx.Query(`
		SELECT `+singleColumns+`
		FROM live_singles ls
		WHERE ls.stream_id = $1 AND ls.status = 'open'
		ORDER BY ls.id
		FOR UPDATE
	`, streamID)
	if err != nil {
		return nil, fmt.Errorf("lock open singles: %w", err)
	}
	defer rows.Close()

	var out []singles.Single

	for rows.Next() {
		s, err := scanSingle(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate open singles: %w", err)
	}

	return out, nil
}

func (r *singlesRepo) ListByStream(ctx context.Context, streamID uuid.UUID) ([]singles.SingleView, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+singleColumns+`, top.id, top.user_id, top.amount, top.created_at
		FROM live_singles ls
		LEFT JOIN LATERAL (
			SELECT b.id, b.user_id, b.amount, b.created_at
			FROM live_single_bids b
			WHERE b.card_id = ls.id
			ORDER BY b.amount DESC, b.created_at ASC, b.id ASC
			LIMIT 1
		) top ON true
		WHERE ls.stream_id = $1 AND ls.status <> 'cancelled'
		ORDER BY ls.created_at, ls.card_name
	`, streamID)
	if err != nil {
		return nil, fmt.Errorf("query singles: %w", err)
	}
	defer rows.Close()

	var out []singles.SingleView

	for rows.Next() {
		var (
			sr        singleRow
			id, user  *uuid.UUID
			amount    *int64
			createdAt *time.Time
		)

		err = rows.Scan(append(sr.dest(), &id, &user, &amount, &createdAt)...)
		if err != nil {
			return nil, fmt.Errorf("scan single view: %w", err)
		}

		v := singles.SingleView{Single: sr.single()}
		if id != nil {
			v.Leader = &auction.Bid{ID: *id, UserID: *user, Amount: *amount, CreatedAt: *createdAt}
		}

		out = append(out, v)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate singles: %w", err)
	}

	return out, nil
}

const topBidQuery = `
	SELECT id, user_id, amount, created_at
	FROM live_single_bids
	WHERE card_id = $1
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

func (r *singlesRepo) Leader(ctx context.Context, singleID uuid.UUID) (*auction.Bid, error) {
	return scanTop(r.db.QueryRowContext(ctx, topBidQuery, singleID))
}

func (r *singlesRepo) TopBid(tx *sql.Tx, singleID uuid.UUID) (*auction.Bid, error) {
	return scanTop(tx.QueryRow(topBidQuery, singleID))
}

func (r *singlesRepo) InsertBid(tx *sql.Tx, singleID uuid.UUID, bid auction.Bid) (auction.Bid, error) {
	err := tx.QueryRow(`
		INSERT INTO live_single_bids (id, card_id, user_id, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, bid.ID, singleID, bid.UserID, bid.Amount).Scan(&bid.CreatedAt)
	if err != nil {
		return auction.Bid{}, fmt.Errorf("insert single bid: %w", err)
	}

	return bid, nil
}

func (r *singlesRepo) SetStatus(tx *sql.Tx, id uuid.UUID, status stream.SingleStatus) error {
	res, err := tx.Exec(`UPDATE live_singles SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update single status: %w", err)
	}

	return expectOne(res)
}

func (r *singlesRepo) Sell(tx *sql.Tx, id uuid.UUID, bid auction.Bid) error {
	res, err := tx.Exec(`
		UPDATE live_singles
		SET status = 'sold', winner_user_id = $2, winning_bid_id = $3
		WHERE id = $1
	`, id, bid.UserID, bid.ID)
	if err != nil {
		return fmt.Errorf("sell single: %w", err)
	}

	return expectOne(res)
}

func expectOne(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return singles.ErrSingleNotFound
	}

	return nil
}
