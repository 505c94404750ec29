package model

// Venue is a physical cinema location.  A venue contains one or more
// halls.  This struct corresponds to a row in the `venues` table.
//
// Fields:
//  ID   – primary key identifier.
//  Name – display name of the venue.
//  City – city the venue is located in.
type Venue struct {
    ID   uint64 // venues.id
    Name string // venues.name
    City string // venues.city
}
