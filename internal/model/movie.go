package model

// Movie is the film screened by a showtime.
type Movie struct {
    ID              uint64 // movies.id
    Title           string // movies.title
    DurationMinutes uint32 // movies.duration_minutes
}
