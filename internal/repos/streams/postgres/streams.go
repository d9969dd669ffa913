package streams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/repos/streams"
	"github.com/google/uuid"
)

var _ streams.Streams = (*streamsRepo)(nil)

type streamsRepo struct{ db *sql.DB }

func New(db *sql.DB) *streamsRepo {
	return &streamsRepo{db: db}
}

const streamColumns = `id, title, status, is_current, scheduled_date, started_at, ended_at, singles_close_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStream(row rowScanner) (streams.Stream, error) {
	var (
		s      streams.Stream
		status string
	)

	err := row.Scan(&s.ID, &s.Title, &status, &s.IsCurrent, &s.ScheduledDate,
		&s.StartedAt, &s.EndedAt, &s.SinglesCloseAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return streams.Stream{}, streams.ErrStreamNotFound
		}

		return streams.Stream{}, fmt.Errorf("scan stream: %w", err)
	}

	s.Status = stream.Status(status)

	return s, nil
}

func (r *streamsRepo) Create(ctx context.Context, s streams.Stream) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO streams (id, title, status, scheduled_date, singles_close_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.Title, string(s.Status), s.ScheduledDate, s.SinglesCloseAt)
	if err != nil {
		return fmt.Errorf("insert stream: %w", err)
	}

	return nil
}

func (r *streamsRepo) Get(ctx context.Context, id uuid.UUID) (streams.Stream, error) {
	return scanStream(r.db.QueryRowContext(ctx,
		`SELECT `+streamColumns+` FROM streams WHERE id = $1`, id))
}

func (r *streamsRepo) Lock(tx *sql.Tx, id uuid.UUID) (streams.Stream, error) {
	return scanStream(tx.QueryRow(
		`SELECT `+streamColumns+` FROM streams WHERE id = $1 FOR UPDATE`, id))
}

func (r *streamsRepo) Share(tx *sql.Tx, id uuid.UUID) (streams.Stream, error) {
	return scanStream(tx.QueryRow(
		`SELECT `+streamColumns+` FROM streams WHERE id = $1 FOR SHARE`, id))
}

func (r *streamsRepo) List(ctx context.Context) ([]streams.Stream, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+streamColumns+` FROM streams ORDER BY scheduled_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query streams: %w", err)
	}
	defer rows.Close()

	var out []streams.Stream

	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate streams: %w", err)
	}

	return out, nil
}

func (r *streamsRepo) Current(ctx context.Context) (streams.Stream, error) {
	return scanStream(r.db.QueryRowContext(ctx, `
		SELECT `+streamColumns+`
		FROM streams
		ORDER BY
			is_current DESC,
			(status = 'live') DESC,
			(status = 'scheduled') DESC,
			CASE WHEN status = 'scheduled' THEN scheduled_date END ASC,
			COALESCE(ended_at, scheduled_date) DESC
		LIMIT 1
	`))
}

func (r *streamsRepo) SetStatus(tx *sql.Tx, id uuid.UUID, status stream.Status, at time.Time) error {
	res, err := tx.Exec(`
		UPDATE streams
		SET status = $2,
		    started_at = CASE WHEN $2 = 'live' THEN $3 ELSE started_at END,
		    ended_at = CASE WHEN $2 = 'ended' THEN $3 ELSE ended_at END
		WHERE id = $1
	`, id, string(status), at)
	if err != nil {
		return fmt.Errorf("update stream status: %w", err)
	}

	return expectOne(res, streams.ErrStreamNotFound)
}

func (r *streamsRepo) SetCurrent(tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.Exec(`UPDATE streams SET is_current = false WHERE is_current AND id <> $1`, id)
	if err != nil {
		return fmt.Errorf("clear current stream: %w", err)
	}

	res, err := tx.Exec(`UPDATE streams SET is_current = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("set current stream: %w", err)
	}

	return expectOne(res, streams.ErrStreamNotFound)
}

func (r *streamsRepo) DueForSinglesClose(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT s.id
		FROM streams s
		JOIN live_singles ls ON ls.stream_id = s.id AND ls.status = 'open'
		WHERE s.status = 'ended'
		   OR (s.singles_close_at IS NOT NULL AND s.singles_close_at <= $1)
	`, now)
	if err != nil {
		return nil, fmt.Errorf("query due streams: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan stream id: %w", err)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate due streams: %w", err)
	}

	return ids, nil
}

func expectOne(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}
