// Package repository contains data access logic for the catalog side of the
// service: venues, halls, seats, movies and showtimes.  The reservation
// engine only reads from it (existence checks and layout metadata); the
// write helpers exist for scheduling and demo seeding.
package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
)

// CatalogRepo manages persistence for catalog rows.
type CatalogRepo struct {
    db    *sql.DB
    seats *ShowSeatRepo
}

// NewCatalogRepo constructs a CatalogRepo with the given DB handle.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
    return &CatalogRepo{db: db, seats: NewShowSeatRepo(db)}
}

// ShowtimeExists reports whether a showtime with the given ID exists.
func (r *CatalogRepo) ShowtimeExists(ctx context.Context, id uint64) (bool, error) {
    return exists(ctx, r.db, `SELECT 1 FROM showtimes WHERE id = ? LIMIT 1`, id)
}

// HasSeat reports whether seatID is part of the showtime's seat set, i.e.
// whether a show_seats row exists for the pair.
func (r *CatalogRepo) HasSeat(ctx context.Context, showtimeID, seatID uint64) (bool, error) {
    return exists(ctx, r.db, `SELECT 1 FROM show_seats WHERE showtime_id = ? AND seat_id = ? LIMIT 1`, showtimeID, seatID)
}

// ShowtimeDetail loads a showtime with its hall, venue and movie names.
// It returns ErrShowtimeNotFound if there is no matching row.
func (r *CatalogRepo) ShowtimeDetail(ctx context.Context, id uint64) (*model.ShowtimeDetail, error) {
    const q = `SELECT st.id, h.id, h.name, v.id, v.name, m.id, m.title, st.starts_at, st.ends_at
               FROM showtimes st
               JOIN halls h ON h.id = st.hall_id
               JOIN venues v ON v.id = h.venue_id
               JOIN movies m ON m.id = st.movie_id
               WHERE st.id = ?`
    var d model.ShowtimeDetail
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &d.ID, &d.HallID, &d.HallName, &d.VenueID, &d.VenueName, &d.MovieID, &d.MovieTitle, &d.StartsAt, &d.EndsAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowtimeNotFound
        }
        return nil, err
    }
    d.StartsAt = d.StartsAt.UTC()
    d.EndsAt = d.EndsAt.UTC()
    return &d, nil
}

// EnsureVenue returns the ID of the venue with the given name and city,
// creating it when missing.
func (r *CatalogRepo) EnsureVenue(ctx context.Context, name, city string) (uint64, error) {
    return ensure(ctx, r.db,
        `SELECT id FROM venues WHERE name = ? AND city = ? LIMIT 1`,
        `INSERT INTO venues (name, city) VALUES (?, ?)`,
        name, city)
}

// EnsureHall returns the ID of the named hall of a venue, creating it when missing.
func (r *CatalogRepo) EnsureHall(ctx context.Context, venueID uint64, name string) (uint64, error) {
    return ensure(ctx, r.db,
        `SELECT id FROM halls WHERE venue_id = ? AND name = ? LIMIT 1`,
        `INSERT INTO halls (venue_id, name) VALUES (?, ?)`,
        venueID, name)
}

// EnsureSeat returns the ID of the seat at (row, number) in a hall,
// creating it when missing.
func (r *CatalogRepo) EnsureSeat(ctx context.Context, hallID uint64, row string, number uint32) (uint64, error) {
    return ensure(ctx, r.db,
        `SELECT id FROM seats WHERE hall_id = ? AND row_label = ? AND seat_number = ? LIMIT 1`,
        `INSERT INTO seats (hall_id, row_label, seat_number) VALUES (?, ?, ?)`,
        hallID, row, number)
}

// EnsureMovie returns the ID of the movie with the given title and
// duration, creating it when missing.
func (r *CatalogRepo) EnsureMovie(ctx context.Context, title string, durationMinutes uint32) (uint64, error) {
    return ensure(ctx, r.db,
        `SELECT id FROM movies WHERE title = ? AND duration_minutes = ? LIMIT 1`,
        `INSERT INTO movies (title, duration_minutes) VALUES (?, ?)`,
        title, durationMinutes)
}

// FindUpcomingShowtime returns the earliest showtime of the movie in the
// hall starting after the given instant.
func (r *CatalogRepo) FindUpcomingShowtime(ctx context.Context, movieID, hallID uint64, after time.Time) (uint64, bool, error) {
    const q = `SELECT id FROM showtimes
               WHERE movie_id = ? AND hall_id = ? AND starts_at > ?
               ORDER BY starts_at LIMIT 1`
    var id uint64
    err := r.db.QueryRowContext(ctx, q, movieID, hallID, after.UTC()).Scan(&id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return 0, false, nil
        }
        return 0, false, err
    }
    return id, true, nil
}

// ScheduleShowtime inserts a showtime and one available show_seats row per
// seat of its hall in a single transaction.  On success st.ID is set.
func (r *CatalogRepo) ScheduleShowtime(ctx context.Context, st *model.Showtime) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const q = `INSERT INTO showtimes (movie_id, hall_id, starts_at, ends_at) VALUES (?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, st.MovieID, st.HallID, st.StartsAt.UTC(), st.EndsAt.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    if _, err := r.seats.CreateForShowtimeTx(ctx, tx, uint64(id), st.HallID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    st.ID = uint64(id)
    return nil
}

func exists(ctx context.Context, cmd sqlCommand, q string, args ...interface{}) (bool, error) {
    var one int
    err := cmd.QueryRowContext(ctx, q, args...).Scan(&one)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return false, nil
        }
        return false, err
    }
    return true, nil
}

// ensure implements get-or-create: sel and ins take the same arguments.
func ensure(ctx context.Context, cmd sqlCommand, sel, ins string, args ...interface{}) (uint64, error) {
    var id uint64
    err := cmd.QueryRowContext(ctx, sel, args...).Scan(&id)
    if err == nil {
        return id, nil
    }
    if !errors.Is(err, sql.ErrNoRows) {
        return 0, err
    }
    res, err := cmd.ExecContext(ctx, ins, args...)
    if err != nil {
        return 0, err
    }
    newID, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(newID), nil
}
