package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
)

// SeatTx is the set of writes available inside a seat transaction.  A
// ShowSeat returned by LockShowSeat stays locked against other
// transactions until the surrounding WithinSeatTx call returns.
type SeatTx interface {
    LockShowSeat(ctx context.Context, showtimeID, seatID uint64) (*model.ShowSeat, error)
    UpdateShowSeat(ctx context.Context, ss *model.ShowSeat) error
    InsertBooking(ctx context.Context, b *model.Booking) error
}

// Ledger is the MySQL seat ledger: show_seats plus bookings, with every
// mutation running in a serializable transaction.
type Ledger struct {
    db       *sql.DB
    seats    *ShowSeatRepo
    bookings *BookingRepo
}

// NewLedger builds a Ledger over db.
func NewLedger(db *sql.DB) *Ledger {
    return &Ledger{db: db, seats: NewShowSeatRepo(db), bookings: NewBookingRepo(db)}
}

// SweepExpired releases stale holds of one showtime.
func (l *Ledger) SweepExpired(ctx context.Context, showtimeID uint64, now time.Time) (int64, error) {
    return l.seats.SweepExpired(ctx, showtimeID, now)
}

// SweepAllExpired releases stale holds of every showtime.
func (l *Ledger) SweepAllExpired(ctx context.Context, now time.Time) (int64, error) {
    return l.seats.SweepAllExpired(ctx, now)
}

// ListSeatStates returns the ordered seat states of a showtime.
func (l *Ledger) ListSeatStates(ctx context.Context, showtimeID uint64) ([]model.SeatState, error) {
    return l.seats.ListByShowtime(ctx, showtimeID)
}

// WithinSeatTx runs fn inside a transaction.  The transaction commits when
// fn returns nil and rolls back otherwise; a unique key violation raised at
// commit is reported as ErrDuplicateBooking.
func (l *Ledger) WithinSeatTx(ctx context.Context, fn func(SeatTx) error) error {
    tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&sqlSeatTx{tx: tx, ledger: l}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicateBooking
        }
        return err
    }
    committed = true
    return nil
}

type sqlSeatTx struct {
    tx     *sql.Tx
    ledger *Ledger
}

func (t *sqlSeatTx) LockShowSeat(ctx context.Context, showtimeID, seatID uint64) (*model.ShowSeat, error) {
    return t.ledger.seats.LockTx(ctx, t.tx, showtimeID, seatID)
}

func (t *sqlSeatTx) UpdateShowSeat(ctx context.Context, ss *model.ShowSeat) error {
    return t.ledger.seats.UpdateTx(ctx, t.tx, ss)
}

func (t *sqlSeatTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    return t.ledger.bookings.CreateTx(ctx, t.tx, b)
}
