package repository // repository for show seat persistence

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
)

// sqlCommand is satisfied by both *sql.DB and *sql.Tx so that read
// helpers can run inside or outside a transaction.
type sqlCommand interface {
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// ShowSeatRepo encapsulates database operations for show_seats.  It is the
// only writer of the status, locked_by, locked_until and booked_at columns.
type ShowSeatRepo struct {
    db *sql.DB
}

// NewShowSeatRepo constructs a ShowSeatRepo given a DB handle.
func NewShowSeatRepo(db *sql.DB) *ShowSeatRepo {
    return &ShowSeatRepo{db: db}
}

// SweepExpired releases every hold of the showtime whose locked_until lies
// before now.  It is a single conditional UPDATE without a preceding
// locking read, so concurrent sweeps simply find nothing left to change.
// It returns the number of rows released.
func (r *ShowSeatRepo) SweepExpired(ctx context.Context, showtimeID uint64, now time.Time) (int64, error) {
    const q = `UPDATE show_seats
               SET status = 'available', locked_by = NULL, locked_until = NULL
               WHERE showtime_id = ? AND status = 'held' AND locked_until < ?`
    res, err := r.db.ExecContext(ctx, q, showtimeID, now.UTC())
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// SweepAllExpired is SweepExpired across every showtime.
func (r *ShowSeatRepo) SweepAllExpired(ctx context.Context, now time.Time) (int64, error) {
    const q = `UPDATE show_seats
               SET status = 'available', locked_by = NULL, locked_until = NULL
               WHERE status = 'held' AND locked_until < ?`
    res, err := r.db.ExecContext(ctx, q, now.UTC())
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ListByShowtime returns the current state of every seat of the showtime
// ordered by row label then seat number.
func (r *ShowSeatRepo) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.SeatState, error) {
    const q = `SELECT ss.seat_id, se.row_label, se.seat_number, ss.status, ss.locked_by, ss.locked_until
               FROM show_seats ss
               JOIN seats se ON se.id = ss.seat_id
               WHERE ss.showtime_id = ?
               ORDER BY se.row_label, se.seat_number`
    rows, err := r.db.QueryContext(ctx, q, showtimeID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.SeatState, 0)
    for rows.Next() {
        var (
            st       model.SeatState
            status   string
            lockedBy sql.NullInt64
            until    sql.NullTime
        )
        if err := rows.Scan(&st.SeatID, &st.Row, &st.Number, &status, &lockedBy, &until); err != nil {
            return nil, err
        }
        st.Status = model.SeatStatus(status)
        st.HolderID = uint64Ptr(lockedBy)
        st.HoldExpiry = timePtr(until)
        out = append(out, st)
    }
    return out, rows.Err()
}

// LockTx reads the show_seats row for (showtimeID, seatID) with an
// exclusive row lock held until tx ends.  Other transactions locking the
// same row block; other seats are unaffected.  ErrShowSeatNotFound is
// returned when the pair does not exist.
func (r *ShowSeatRepo) LockTx(ctx context.Context, tx *sql.Tx, showtimeID, seatID uint64) (*model.ShowSeat, error) {
    const q = `SELECT id, showtime_id, seat_id, status, locked_by, locked_until, booked_at
               FROM show_seats
               WHERE showtime_id = ? AND seat_id = ?
               FOR UPDATE`
    var (
        ss       model.ShowSeat
        status   string
        lockedBy sql.NullInt64
        until    sql.NullTime
        bookedAt sql.NullTime
    )
    err := tx.QueryRowContext(ctx, q, showtimeID, seatID).Scan(
        &ss.ID, &ss.ShowtimeID, &ss.SeatID, &status, &lockedBy, &until, &bookedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowSeatNotFound
        }
        return nil, err
    }
    ss.Status = model.SeatStatus(status)
    ss.HolderID = uint64Ptr(lockedBy)
    ss.HoldExpiry = timePtr(until)
    ss.BookedAt = timePtr(bookedAt)
    return &ss, nil
}

// UpdateTx writes the reservation columns of ss back to its row.  The
// caller must hold the row lock obtained through LockTx.
func (r *ShowSeatRepo) UpdateTx(ctx context.Context, tx *sql.Tx, ss *model.ShowSeat) error {
    const q = `UPDATE show_seats
               SET status = ?, locked_by = ?, locked_until = ?, booked_at = ?
               WHERE id = ?`
    _, err := tx.ExecContext(ctx, q,
        string(ss.Status), nullUint64(ss.HolderID), nullTime(ss.HoldExpiry), nullTime(ss.BookedAt), ss.ID)
    return err
}

// CreateForShowtimeTx inserts one available show_seats row for every seat
// in the hall.  It runs inside the transaction that schedules the
// showtime and returns the number of rows created.
func (r *ShowSeatRepo) CreateForShowtimeTx(ctx context.Context, tx *sql.Tx, showtimeID, hallID uint64) (int64, error) {
    const q = `INSERT INTO show_seats (showtime_id, seat_id, status)
               SELECT ?, id, 'available' FROM seats WHERE hall_id = ?`
    res, err := tx.ExecContext(ctx, q, showtimeID, hallID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

func uint64Ptr(v sql.NullInt64) *uint64 {
    if !v.Valid {
        return nil
    }
    u := uint64(v.Int64)
    return &u
}

func timePtr(v sql.NullTime) *time.Time {
    if !v.Valid {
        return nil
    }
    t := v.Time.UTC()
    return &t
}

func nullUint64(p *uint64) interface{} {
    if p == nil {
        return nil
    }
    return *p
}

func nullTime(p *time.Time) interface{} {
    if p == nil {
        return nil
    }
    return p.UTC()
}
