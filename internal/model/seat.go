package model

import "strconv"

// Seat describes a physical seat in a hall.  Seats are uniquely
// identified by their hall, row label and seat number and never
// change once created.
//
// Fields:
//  ID     – primary key identifier.
//  HallID – hall to which this seat belongs.
//  Row    – letter or string designating the row.
//  Number – number of the seat within the row.
type Seat struct {
    ID     uint64 // seats.id
    HallID uint64 // seats.hall_id
    Row    string // seats.row_label
    Number uint32 // seats.seat_number
}

// Label renders the seat as it is printed on a ticket, e.g. "A7".
func (s Seat) Label() string {
    return s.Row + strconv.FormatUint(uint64(s.Number), 10)
}
