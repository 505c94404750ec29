// Package seed creates the demo catalog: one venue, one hall of 4x10
// seats, one movie and an upcoming showtime, plus a demo user.  Every step
// is get-or-create, so running it repeatedly is harmless.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/showtime-seat-reservation/internal/model"
)

// Catalog is the write side of the catalog used for seeding.
type Catalog interface {
	EnsureVenue(ctx context.Context, name, city string) (uint64, error)
	EnsureHall(ctx context.Context, venueID uint64, name string) (uint64, error)
	EnsureSeat(ctx context.Context, hallID uint64, row string, number uint32) (uint64, error)
	EnsureMovie(ctx context.Context, title string, durationMinutes uint32) (uint64, error)
	FindUpcomingShowtime(ctx context.Context, movieID, hallID uint64, after time.Time) (uint64, bool, error)
	ScheduleShowtime(ctx context.Context, st *model.Showtime) error
}

// Users creates identity rows.
type Users interface {
	EnsureUser(ctx context.Context, email string) (uint64, error)
}

const (
	VenueName     = "Metro Cineplex"
	VenueCity     = "Metro City"
	HallName      = "Hall 1"
	MovieTitle    = "Release Night"
	MovieDuration = 120
	DemoEmail     = "demo@example.com"
	SeatsPerRow   = 10
)

// Rows are the seat rows of the demo hall.
var Rows = []string{"A", "B", "C", "D"}

// Result lists the identifiers the seed produced or found.
type Result struct {
	VenueID    uint64
	HallID     uint64
	MovieID    uint64
	ShowtimeID uint64
	UserID     uint64
	Seats      map[string]uint64 // label -> seat id
	Scheduled  bool              // a new showtime was created
}

// Demo seeds the demo data.  A showtime of the demo movie in the demo hall
// starting after now is reused; otherwise one is scheduled 24h from now.
func Demo(ctx context.Context, catalog Catalog, users Users, now time.Time) (*Result, error) {
	res := &Result{Seats: make(map[string]uint64, len(Rows)*SeatsPerRow)}
	var err error

	if res.VenueID, err = catalog.EnsureVenue(ctx, VenueName, VenueCity); err != nil {
		return nil, fmt.Errorf("seed venue: %w", err)
	}
	if res.HallID, err = catalog.EnsureHall(ctx, res.VenueID, HallName); err != nil {
		return nil, fmt.Errorf("seed hall: %w", err)
	}
	for _, row := range Rows {
		for n := uint32(1); n <= SeatsPerRow; n++ {
			id, err := catalog.EnsureSeat(ctx, res.HallID, row, n)
			if err != nil {
				return nil, fmt.Errorf("seed seat %s%d: %w", row, n, err)
			}
			res.Seats[model.Seat{Row: row, Number: n}.Label()] = id
		}
	}
	if res.MovieID, err = catalog.EnsureMovie(ctx, MovieTitle, MovieDuration); err != nil {
		return nil, fmt.Errorf("seed movie: %w", err)
	}

	id, found, err := catalog.FindUpcomingShowtime(ctx, res.MovieID, res.HallID, now)
	if err != nil {
		return nil, fmt.Errorf("seed showtime lookup: %w", err)
	}
	if found {
		res.ShowtimeID = id
	} else {
		start := now.Add(24 * time.Hour).UTC().Truncate(time.Minute)
		st := &model.Showtime{
			MovieID:  res.MovieID,
			HallID:   res.HallID,
			StartsAt: start,
			EndsAt:   start.Add(MovieDuration * time.Minute),
		}
		if err := catalog.ScheduleShowtime(ctx, st); err != nil {
			return nil, fmt.Errorf("seed showtime: %w", err)
		}
		res.ShowtimeID = st.ID
		res.Scheduled = true
	}

	if res.UserID, err = users.EnsureUser(ctx, DemoEmail); err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}
	return res, nil
}
