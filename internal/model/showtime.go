package model

import "time"

// Showtime represents a scheduled screening of a movie in a
// particular hall.  One ShowSeat row exists for every seat of the
// hall once the showtime has been scheduled.
//
// Fields:
//  ID       – primary key identifier.
//  MovieID  – movie being screened.
//  HallID   – hall where the showtime takes place.
//  StartsAt – when the screening begins (UTC).
//  EndsAt   – when the screening ends (UTC, after StartsAt).
type Showtime struct {
    ID       uint64    // showtimes.id
    MovieID  uint64    // showtimes.movie_id
    HallID   uint64    // showtimes.hall_id
    StartsAt time.Time // showtimes.starts_at
    EndsAt   time.Time // showtimes.ends_at
}

// ShowtimeDetail is a showtime joined with the names of its hall,
// venue and movie.  It is what layout and catalog responses render.
type ShowtimeDetail struct {
    ID         uint64
    HallID     uint64
    HallName   string
    VenueID    uint64
    VenueName  string
    MovieID    uint64
    MovieTitle string
    StartsAt   time.Time
    EndsAt     time.Time
}
