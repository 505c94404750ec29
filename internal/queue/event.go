// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
)

// BookingConfirmedQueue is the durable queue booking events are routed to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published after a booking has been committed.
// It carries enough context for downstream consumers to log or notify
// without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID   uint64 `json:"booking_id"`
    UserID      uint64 `json:"user_id"`
    ShowID      uint64 `json:"show_id"`
    SeatID      uint64 `json:"seat_id"`
    VenueName   string `json:"venue_name"`
    HallName    string `json:"hall_name"`
    MovieTitle  string `json:"movie_title"`
    StartsAt    string `json:"starts_at"`
    ConfirmedAt string `json:"confirmed_at"`
}

// NewBookingConfirmed builds the event for b.  detail may be nil when the
// showtime metadata could not be loaded; the names are then left empty.
func NewBookingConfirmed(b *model.Booking, detail *model.ShowtimeDetail) BookingConfirmedEvent {
    ev := BookingConfirmedEvent{
        BookingID:   b.ID,
        UserID:      b.UserID,
        ShowID:      b.ShowtimeID,
        SeatID:      b.SeatID,
        ConfirmedAt: b.CreatedAt.UTC().Format(time.RFC3339),
    }
    if detail != nil {
        ev.VenueName = detail.VenueName
        ev.HallName = detail.HallName
        ev.MovieTitle = detail.MovieTitle
        ev.StartsAt = detail.StartsAt.UTC().Format(time.RFC3339)
    }
    return ev
}
