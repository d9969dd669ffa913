package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/stream"
	"github.com/fastprodman/ripbid/internal/infra/logging"
)

// Sweep closes round bidding windows and singles windows that have passed.
// Failures on one item do not stop the others.
func (s *SettlementService) Sweep(ctx context.Context) error {
	now := s.now()

	var errs []error

	due, err := s.rounds.DueForClose(ctx, now)
	if err != nil {
		return fmt.Errorf("rounds due: %w", err)
	}

	for _, id := range due {
		_, err = s.CloseBidding(ctx, id)
		// closed by the operator in the meantime
		if errors.Is(err, stream.ErrInvalidTransition) || errors.Is(err, ErrRoundConcluded) {
			continue
		}

		if err != nil {
			errs = append(errs, err)
		}
	}

	streamsDue, err := s.streams.DueForSinglesClose(ctx, now)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("streams due: %w", err))...)
	}

	for _, id := range streamsDue {
		_, err = s.CloseSingles(ctx, id)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SettlementService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := logging.From(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Sweep(ctx)
			if err != nil {
				log.Error("sweep failed", "error", err)
			}
		}
	}
}
