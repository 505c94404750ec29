package repository

import (
    "context"
    "database/sql"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
)

var seatColumns = []string{"id", "showtime_id", "seat_id", "status", "locked_by", "locked_until", "booked_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() {
        assert.NoError(t, mock.ExpectationsWereMet())
        db.Close()
    })
    return db, mock
}

func TestSweepExpired(t *testing.T) {
    db, mock := newMock(t)
    now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

    mock.ExpectExec(regexp.QuoteMeta("WHERE showtime_id = ? AND status = 'held' AND locked_until < ?")).
        WithArgs(uint64(9), now).
        WillReturnResult(sqlmock.NewResult(0, 3))

    n, err := NewShowSeatRepo(db).SweepExpired(context.Background(), 9, now)
    require.NoError(t, err)
    assert.EqualValues(t, 3, n)
}

func TestSweepAllExpired(t *testing.T) {
    db, mock := newMock(t)
    now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

    mock.ExpectExec(regexp.QuoteMeta("WHERE status = 'held' AND locked_until < ?")).
        WithArgs(now).
        WillReturnResult(sqlmock.NewResult(0, 0))

    n, err := NewShowSeatRepo(db).SweepAllExpired(context.Background(), now)
    require.NoError(t, err)
    assert.Zero(t, n)
}

func TestListByShowtime(t *testing.T) {
    db, mock := newMock(t)
    until := time.Date(2026, 3, 1, 18, 5, 0, 0, time.UTC)

    rows := sqlmock.NewRows([]string{"seat_id", "row_label", "seat_number", "status", "locked_by", "locked_until"}).
        AddRow(1, "A", 1, "available", nil, nil).
        AddRow(2, "A", 2, "held", 4, until).
        AddRow(3, "B", 1, "booked", 5, nil)
    mock.ExpectQuery(regexp.QuoteMeta("ORDER BY se.row_label, se.seat_number")).
        WithArgs(uint64(9)).
        WillReturnRows(rows)

    states, err := NewShowSeatRepo(db).ListByShowtime(context.Background(), 9)
    require.NoError(t, err)
    require.Len(t, states, 3)

    assert.Equal(t, model.StatusAvailable, states[0].Status)
    assert.Nil(t, states[0].HolderID)
    assert.Equal(t, model.StatusHeld, states[1].Status)
    assert.Equal(t, uint64(4), *states[1].HolderID)
    assert.Equal(t, until, *states[1].HoldExpiry)
    assert.Equal(t, "B", states[2].Row)
    assert.Nil(t, states[2].HoldExpiry)
}

func TestWithinSeatTxCommits(t *testing.T) {
    db, mock := newMock(t)
    now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
        WithArgs(uint64(9), uint64(2)).
        WillReturnRows(sqlmock.NewRows(seatColumns).AddRow(20, 9, 2, "available", nil, nil, nil))
    mock.ExpectExec(regexp.QuoteMeta("SET status = ?, locked_by = ?, locked_until = ?, booked_at = ?")).
        WithArgs("booked", uint64(4), nil, now, uint64(20)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
        WithArgs(uint64(4), uint64(9), uint64(2), now).
        WillReturnResult(sqlmock.NewResult(77, 1))
    mock.ExpectCommit()

    b := &model.Booking{UserID: 4, ShowtimeID: 9, SeatID: 2, CreatedAt: now}
    err := NewLedger(db).WithinSeatTx(context.Background(), func(tx SeatTx) error {
        ss, err := tx.LockShowSeat(context.Background(), 9, 2)
        if err != nil {
            return err
        }
        assert.Equal(t, model.StatusAvailable, ss.Status)
        user := uint64(4)
        ss.Status = model.StatusBooked
        ss.HolderID = &user
        ss.BookedAt = &now
        if err := tx.UpdateShowSeat(context.Background(), ss); err != nil {
            return err
        }
        return tx.InsertBooking(context.Background(), b)
    })
    require.NoError(t, err)
    assert.Equal(t, uint64(77), b.ID)
}

func TestWithinSeatTxRollsBackOnError(t *testing.T) {
    db, mock := newMock(t)
    boom := errors.New("boom")

    mock.ExpectBegin()
    mock.ExpectRollback()

    err := NewLedger(db).WithinSeatTx(context.Background(), func(SeatTx) error { return boom })
    assert.ErrorIs(t, err, boom)
}

func TestWithinSeatTxMissingRow(t *testing.T) {
    db, mock := newMock(t)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
        WithArgs(uint64(9), uint64(99)).
        WillReturnRows(sqlmock.NewRows(seatColumns))
    mock.ExpectRollback()

    err := NewLedger(db).WithinSeatTx(context.Background(), func(tx SeatTx) error {
        _, err := tx.LockShowSeat(context.Background(), 9, 99)
        return err
    })
    assert.ErrorIs(t, err, ErrShowSeatNotFound)
}

func TestDuplicateBookingIsMapped(t *testing.T) {
    db, mock := newMock(t)
    now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
        WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '9-2' for key 'uq_booking_showtime_seat'"})
    mock.ExpectRollback()

    err := NewLedger(db).WithinSeatTx(context.Background(), func(tx SeatTx) error {
        return tx.InsertBooking(context.Background(), &model.Booking{UserID: 4, ShowtimeID: 9, SeatID: 2, CreatedAt: now})
    })
    assert.ErrorIs(t, err, ErrDuplicateBooking)
}

func TestOtherMySQLErrorsPassThrough(t *testing.T) {
    assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213}))
    assert.False(t, isDuplicateKey(errors.New("Duplicate entry")))
    assert.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062}))
}
