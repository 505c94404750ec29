package reservation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Sweep returns every expired hold of the showtime to available and
// reports how many seats were released.  It is idempotent and safe to run
// concurrently with itself and with Hold/Book.
func (e *Engine) Sweep(ctx context.Context, showtimeID uint64) (int64, error) {
	n, err := e.ledger.SweepExpired(ctx, showtimeID, e.clock())
	if err != nil {
		return 0, fmt.Errorf("sweep showtime %d: %w", showtimeID, err)
	}
	if n > 0 {
		e.log.WithContext(ctx).WithFields(logrus.Fields{"show_id": showtimeID, "released": n}).Debug("expired holds released")
	}
	return n, nil
}

// SweepAll releases expired holds across every showtime.  The periodic
// sweeper calls it so that stale holds do not outlive the schedule
// interval even when nobody touches their showtime.
func (e *Engine) SweepAll(ctx context.Context) (int64, error) {
	n, err := e.ledger.SweepAllExpired(ctx, e.clock())
	if err != nil {
		return 0, fmt.Errorf("sweep all showtimes: %w", err)
	}
	if n > 0 {
		e.log.WithContext(ctx).WithField("released", n).Info("expired holds released")
	}
	return n, nil
}
