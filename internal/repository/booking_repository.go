package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
)

// BookingRepo appends rows to the bookings table.  Bookings are never
// updated or deleted; the (showtime_id, seat_id) unique key is the
// storage-level guard against double booking.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts b within tx and populates its generated ID.  A unique
// key violation is reported as ErrDuplicateBooking.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings (user_id, showtime_id, seat_id, created_at) VALUES (?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, b.UserID, b.ShowtimeID, b.SeatID, b.CreatedAt.UTC())
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicateBooking
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    return nil
}
