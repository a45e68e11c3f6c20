package assist

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/textfolk/server/internal/repo"
)

// PendingActionTTL is how long an unconfirmed workflow survives before the
// sweep removes it.
const PendingActionTTL = 300 * time.Second

// sweepInterval is how often the sweep runs.
const sweepInterval = 60 * time.Second

// Sweeper periodically deletes expired pending actions. The sweep is
// advisory: a confirm between expiry and the next run still resolves. Its
// bulk delete is idempotent and safe next to normal traffic.
type Sweeper struct {
	pending  repo.PendingRepo
	interval time.Duration
	ttl      time.Duration
}

// NewSweeper creates a Sweeper with the default interval and TTL.
func NewSweeper(pending repo.PendingRepo) *Sweeper {
	return &Sweeper{pending: pending, interval: sweepInterval, ttl: PendingActionTTL}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.pending.DeleteExpired(ctx, time.Now().Add(-s.ttl))
			if err != nil {
				log.Error().Err(err).Msg("pending action sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("expired", n).Msg("swept expired pending actions")
			}
		}
	}
}
