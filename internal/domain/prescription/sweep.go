package prescription

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ExpirySweeper releases stock reservations that outlived their TTL. A
// prescription abandoned mid-consultation would otherwise hold its quantity
// forever.
type ExpirySweeper struct {
	svc    *Service
	ttl    time.Duration
	logger zerolog.Logger
}

func NewExpirySweeper(svc *Service, ttl time.Duration, logger zerolog.Logger) *ExpirySweeper {
	return &ExpirySweeper{svc: svc, ttl: ttl, logger: logger}
}

// Run performs a single sweep pass and returns the number of reservations
// released. A failed release is logged and skipped so one bad row cannot
// wedge the sweep.
func (sw *ExpirySweeper) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-sw.ttl)
	expired, err := sw.svc.repo.ListExpiredReservations(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, p := range expired {
		if err := sw.svc.ReleaseStock(ctx, p); err != nil {
			sw.logger.Error().Err(err).
				Str("prescription_id", p.ID.String()).
				Msg("failed to release expired reservation")
			continue
		}
		released++
		sw.logger.Info().
			Str("prescription_id", p.ID.String()).
			Str("drug_id", p.DrugID.String()).
			Int("quantity", p.Quantity).
			Msg("released expired stock reservation")
	}
	return released, nil
}

// Start runs the sweep on a fixed interval until ctx is cancelled.
func (sw *ExpirySweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sw.Run(ctx); err != nil {
				sw.logger.Error().Err(err).Msg("reservation expiry sweep failed")
			}
		}
	}
}
