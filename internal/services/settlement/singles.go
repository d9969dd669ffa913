package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/ripbid/internal/cache"
	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/google/uuid"
)

// CloseSingles finishes every open single of the stream: sold to its leader
// when it has one, locked otherwise. Winners keep their committed credit.
func (s *SettlementService) CloseSingles(ctx context.Context, streamID uuid.UUID) (SinglesOutcome, error) {
	var out SinglesOutcome

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := s.streams.Lock(tx, streamID)
		if err != nil {
			return fmt.Errorf("lock stream: %w", err)
		}

		open, err := s.singles.LockOpenByStream(tx, streamID)
		if err != nil {
			return err
		}

		for _, sg := range open {
			top, err := s.singles.TopBid(tx, sg.ID)
			if err != nil {
				return fmt.Errorf("read leader: %w", err)
			}

			if top == nil {
				err = s.singles.SetStatus(tx, sg.ID, stream.SingleLocked)
				if err != nil {
					return err
				}

				out.Locked++

				continue
			}

			err = s.singles.Sell(tx, sg.ID, *top)
			if err != nil {
				return err
			}

			out.Sold = append(out.Sold, Sale{SingleID: sg.ID, CardName: sg.CardName, Bid: *top})
		}

		return nil
	})
	if err != nil {
		return SinglesOutcome{}, fmt.Errorf("close singles: %w", err)
	}

	logging.From(ctx).Info("singles closed", "stream_id", streamID, "sold", len(out.Sold), "locked", out.Locked)

	evs := []realtime.Event{realtime.NewEvent(realtime.StreamTopic(streamID), realtime.EventSinglesClosed, map[string]any{
		"sold":   len(out.Sold),
		"locked": out.Locked,
	})}
	keys := make([]cache.Key, 0, len(out.Sold))

	for _, sale := range out.Sold {
		keys = append(keys, cache.SingleKey(sale.SingleID))
		evs = append(evs, realtime.NewEvent(realtime.UserTopic(sale.Bid.UserID), realtime.EventWon, map[string]any{
			"kind":     "single",
			"cardName": sale.CardName,
			"amount":   sale.Bid.Amount,
		}))
	}

	s.leaders.Invalidate(ctx, keys...)
	s.pub.Publish(ctx, evs...)

	return out, nil
}

// CancelSingle withdraws a single that is still open and refunds its leader.
func (s *SettlementService) CancelSingle(ctx context.Context, singleID uuid.UUID) (*Refund, error) {
	single, err := s.singles.Get(ctx, singleID)
	if err != nil {
		return nil, fmt.Errorf("get single: %w", err)
	}

	var refund *Refund

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := s.streams.Lock(tx, single.StreamID)
		if err != nil {
			return fmt.Errorf("lock stream: %w", err)
		}

		single, err = s.singles.Lock(tx, singleID)
		if err != nil {
			return err
		}

		if single.Status != stream.SingleOpen && single.Status != stream.SingleLocked {
			return fmt.Errorf("cancel %s single: %w", single.Status, stream.ErrInvalidTransition)
		}

		top, err := s.singles.TopBid(tx, singleID)
		if err != nil {
			return fmt.Errorf("read leader: %w", err)
		}

		if top != nil {
			_, err = s.credits.LockUsers(tx, top.UserID)
			if err != nil {
				return err
			}

			balance, err := s.credits.Refund(tx, credits.Movement{
				TransactionID: "refund:" + top.ID.String(),
				UserID:        top.UserID,
				Amount:        top.Amount,
				Reference:     "single " + single.CardName + " cancelled",
			})
			if err != nil {
				return fmt.Errorf("refund leader: %w", err)
			}

			refund = &Refund{TargetID: singleID, UserID: top.UserID, Amount: top.Amount, NewBalance: balance}
		}

		return s.singles.SetStatus(tx, singleID, stream.SingleCancelled)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel single: %w", err)
	}

	s.leaders.Invalidate(ctx, cache.SingleKey(singleID))

	evs := []realtime.Event{realtime.NewEvent(realtime.StreamTopic(single.StreamID), realtime.EventSingleLeader, map[string]any{
		"id":     singleID,
		"status": stream.SingleCancelled,
	})}

	if refund != nil {
		evs = append(evs,
			realtime.NewEvent(realtime.UserTopic(refund.UserID), realtime.EventRefund, map[string]any{
				"id":     singleID,
				"amount": refund.Amount,
			}),
			credits.BalanceEvent(refund.UserID, refund.NewBalance),
		)
	}

	s.pub.Publish(ctx, evs...)

	return refund, nil
}
