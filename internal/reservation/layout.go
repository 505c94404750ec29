package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/showtime-seat-reservation/internal/model"
	"github.com/iliyamo/showtime-seat-reservation/internal/repository"
)

// LayoutView is a snapshot of a showtime's seats taken right after a
// sweep.  It may be stale by the time the caller acts on it; Hold and Book
// re-check state under the row lock.
type LayoutView struct {
	Showtime model.ShowtimeDetail
	Seats    []model.SeatState
}

// Layout sweeps the showtime and returns its metadata plus every seat
// ordered by row then number.  ErrNotFound is returned for an unknown
// showtime.
func (e *Engine) Layout(ctx context.Context, showtimeID uint64) (*LayoutView, error) {
	if _, err := e.Sweep(ctx, showtimeID); err != nil {
		return nil, err
	}
	detail, err := e.Showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	seats, err := e.ledger.ListSeatStates(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("list seats of showtime %d: %w", showtimeID, err)
	}
	return &LayoutView{Showtime: *detail, Seats: seats}, nil
}

// Showtime returns the catalog metadata of a showtime without touching
// its seats, or ErrNotFound.
func (e *Engine) Showtime(ctx context.Context, showtimeID uint64) (*model.ShowtimeDetail, error) {
	detail, err := e.catalog.ShowtimeDetail(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load showtime %d: %w", showtimeID, err)
	}
	return detail, nil
}
