// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation engine to distinguish between different failure scenarios
// without inspecting driver errors.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrShowtimeNotFound is returned when a showtime lookup yields no rows.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrShowSeatNotFound is returned when no show_seats row exists for a
// (showtime, seat) pair.
var ErrShowSeatNotFound = errors.New("show seat not found")

// ErrDuplicateBooking is returned when inserting a booking violates the
// (showtime_id, seat_id) unique key.  Callers should translate this into
// an HTTP 409 response.
var ErrDuplicateBooking = errors.New("duplicate booking")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a MySQL unique key violation.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
