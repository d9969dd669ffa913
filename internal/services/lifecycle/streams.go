package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/repos/streams"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/google/uuid"
)

type NewStream struct {
	Title          string
	ScheduledDate  time.Time
	SinglesCloseAt *time.Time
}

func (s *LifecycleService) CreateStream(ctx context.Context, in NewStream) (streams.Stream, error) {
	if strings.TrimSpace(in.Title) == "" {
		return streams.Stream{}, validate.Errorf("title", "required")
	}

	if in.ScheduledDate.IsZero() {
		in.ScheduledDate = s.now()
	}

	st := streams.Stream{
		ID:             uuid.New(),
		Title:          in.Title,
		Status:         stream.StatusScheduled,
		ScheduledDate:  in.ScheduledDate,
		SinglesCloseAt: in.SinglesCloseAt,
	}

	err := s.streams.Create(ctx, st)
	if err != nil {
		return streams.Stream{}, fmt.Errorf("create stream: %w", err)
	}

	return s.streams.Get(ctx, st.ID)
}

// StartStream takes a scheduled stream live and makes it the current one.
func (s *LifecycleService) StartStream(ctx context.Context, id uuid.UUID) (streams.Stream, error) {
	return s.moveStream(ctx, id, stream.StatusLive, func(tx *sql.Tx) error {
		return s.streams.SetCurrent(tx, id)
	})
}

// EndStream ends a live stream, then closes its remaining singles.
func (s *LifecycleService) EndStream(ctx context.Context, id uuid.UUID) (streams.Stream, settlement.SinglesOutcome, error) {
	st, err := s.moveStream(ctx, id, stream.StatusEnded, nil)
	if err != nil {
		return streams.Stream{}, settlement.SinglesOutcome{}, err
	}

	out, err := s.closer.CloseSingles(ctx, id)
	if err != nil {
		// the sweeper retries streams that ended with open singles
		logging.From(ctx).Error("close singles after stream end", "stream_id", id, "error", err)
	}

	return st, out, nil
}

func (s *LifecycleService) moveStream(ctx context.Context, id uuid.UUID, to stream.Status, then func(*sql.Tx) error) (streams.Stream, error) {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		st, err := s.streams.Lock(tx, id)
		if err != nil {
			return fmt.Errorf("lock stream: %w", err)
		}

		err = st.Status.Transition(to)
		if err != nil {
			return err
		}

		err = s.streams.SetStatus(tx, id, to, s.now())
		if err != nil {
			return err
		}

		if then != nil {
			return then(tx)
		}

		return nil
	})
	if err != nil {
		return streams.Stream{}, fmt.Errorf("stream %s: %w", to, err)
	}

	logging.From(ctx).Info("stream status changed", "stream_id", id, "status", to)

	s.pub.Publish(ctx, realtime.NewEvent(realtime.StreamTopic(id), realtime.EventStreamStatus, map[string]any{
		"status": to,
	}))

	return s.streams.Get(ctx, id)
}

func (s *LifecycleService) SetCurrent(ctx context.Context, id uuid.UUID) (streams.Stream, error) {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.streams.SetCurrent(tx, id)
	})
	if err != nil {
		return streams.Stream{}, fmt.Errorf("set current stream: %w", err)
	}

	return s.streams.Get(ctx, id)
}

func (s *LifecycleService) Current(ctx context.Context) (streams.Stream, error) {
	st, err := s.streams.Current(ctx)
	if err != nil {
		return streams.Stream{}, fmt.Errorf("current stream: %w", err)
	}

	return st, nil
}

func (s *LifecycleService) ListStreams(ctx context.Context) ([]streams.Stream, error) {
	list, err := s.streams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}

	return list, nil
}
