package model

import "time"

// Booking is the ownership record written exactly once when a seat is
// booked for a showtime.  The (ShowtimeID, SeatID) pair is unique and
// rows are never updated or deleted.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – user who booked the seat.
//  ShowtimeID – showtime the seat was booked for.
//  SeatID     – seat that was booked.
//  CreatedAt  – when the booking was committed.
type Booking struct {
    ID         uint64    // bookings.id
    UserID     uint64    // bookings.user_id
    ShowtimeID uint64    // bookings.showtime_id
    SeatID     uint64    // bookings.seat_id
    CreatedAt  time.Time // bookings.created_at
}
