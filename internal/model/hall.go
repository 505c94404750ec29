package model

// Hall represents an individual screening hall within a venue.
// Seats belong to exactly one hall and showtimes are scheduled
// into a hall.
//
// Fields:
//  ID      – primary key identifier.
//  VenueID – ID of the containing venue.
//  Name    – hall name, e.g. "Hall 1".
type Hall struct {
    ID      uint64 // halls.id
    VenueID uint64 // halls.venue_id
    Name    string // halls.name
}
