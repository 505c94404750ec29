package model

import (
    "errors"
    "time"
)

// SeatStatus is the reservation state of a seat for one showtime.
type SeatStatus string

const (
    StatusAvailable SeatStatus = "available"
    StatusHeld      SeatStatus = "held"
    StatusBooked    SeatStatus = "booked"
)

// Valid reports whether s is one of the known statuses.
func (s SeatStatus) Valid() bool {
    switch s {
    case StatusAvailable, StatusHeld, StatusBooked:
        return true
    }
    return false
}

// ShowSeat links a seat to a particular showtime and tracks its
// reservation state.  There is exactly one show_seat record for every
// seat in a hall once a showtime has been scheduled.
//
// Fields:
//  ID         – primary key identifier.
//  ShowtimeID – the showtime to which this seat belongs.
//  SeatID     – the seat being made available.
//  Status     – available, held or booked.
//  HolderID   – user holding or owning the seat (nil when available).
//  HoldExpiry – when a hold goes stale (nil unless held).
//  BookedAt   – set once when the seat is booked.
type ShowSeat struct {
    ID         uint64     // show_seats.id
    ShowtimeID uint64     // show_seats.showtime_id
    SeatID     uint64     // show_seats.seat_id
    Status     SeatStatus // show_seats.status
    HolderID   *uint64    // show_seats.locked_by (nullable)
    HoldExpiry *time.Time // show_seats.locked_until (nullable)
    BookedAt   *time.Time // show_seats.booked_at (nullable)
}

// ErrInvalidSeatState is returned by CheckInvariant when the status,
// holder and timestamps of a ShowSeat disagree.
var ErrInvalidSeatState = errors.New("invalid show seat state")

// CheckInvariant verifies the relationship between Status and the
// nullable columns.
func (s *ShowSeat) CheckInvariant() error {
    switch s.Status {
    case StatusAvailable:
        if s.HolderID != nil || s.HoldExpiry != nil {
            return ErrInvalidSeatState
        }
    case StatusHeld:
        if s.HolderID == nil {
            return ErrInvalidSeatState
        }
    case StatusBooked:
        if s.HolderID == nil || s.HoldExpiry != nil || s.BookedAt == nil {
            return ErrInvalidSeatState
        }
    default:
        return ErrInvalidSeatState
    }
    return nil
}

// ActiveHold reports whether the seat is held and the hold has not
// expired at now.
func (s *ShowSeat) ActiveHold(now time.Time) bool {
    return s.Status == StatusHeld && s.HoldExpiry != nil && s.HoldExpiry.After(now)
}

// HeldBy reports whether userID is the current holder.
func (s *ShowSeat) HeldBy(userID uint64) bool {
    return s.HolderID != nil && *s.HolderID == userID
}

// Expired reports whether a held seat's expiry lies strictly before
// now, which is the condition the sweeper releases on.
func (s *ShowSeat) Expired(now time.Time) bool {
    return s.Status == StatusHeld && s.HoldExpiry != nil && s.HoldExpiry.Before(now)
}

// Release resets the seat to available.
func (s *ShowSeat) Release() {
    s.Status = StatusAvailable
    s.HolderID = nil
    s.HoldExpiry = nil
}

// SeatState is one entry of a showtime layout: the seat's position and
// its current reservation state.
type SeatState struct {
    SeatID     uint64
    Row        string
    Number     uint32
    Status     SeatStatus
    HolderID   *uint64
    HoldExpiry *time.Time
}
