package model

// User is the minimal identity record the reservation service needs.
// Accounts are managed by another system; this service only checks
// that a user ID exists before mutating seat state.
type User struct {
    ID    uint64 // users.id
    Email string // users.email
}
