package repository

import (
    "context"
    "database/sql"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
)

func TestShowtimeDetail(t *testing.T) {
    db, mock := newMock(t)
    start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

    mock.ExpectQuery(regexp.QuoteMeta("JOIN movies m ON m.id = st.movie_id")).
        WithArgs(uint64(5)).
        WillReturnRows(sqlmock.NewRows([]string{"id", "hid", "hname", "vid", "vname", "mid", "title", "starts_at", "ends_at"}).
            AddRow(5, 2, "Hall 1", 1, "Metro Cineplex", 3, "Release Night", start, start.Add(2*time.Hour)))

    d, err := NewCatalogRepo(db).ShowtimeDetail(context.Background(), 5)
    require.NoError(t, err)
    assert.Equal(t, "Hall 1", d.HallName)
    assert.Equal(t, "Metro Cineplex", d.VenueName)
    assert.Equal(t, "Release Night", d.MovieTitle)
    assert.Equal(t, start, d.StartsAt)
}

func TestShowtimeDetailNotFound(t *testing.T) {
    db, mock := newMock(t)

    mock.ExpectQuery(regexp.QuoteMeta("FROM showtimes st")).
        WithArgs(uint64(404)).
        WillReturnError(sql.ErrNoRows)

    _, err := NewCatalogRepo(db).ShowtimeDetail(context.Background(), 404)
    assert.ErrorIs(t, err, ErrShowtimeNotFound)
}

func TestExistenceChecks(t *testing.T) {
    db, mock := newMock(t)
    repo := NewCatalogRepo(db)
    ctx := context.Background()

    mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM showtimes WHERE id = ?")).
        WithArgs(uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM show_seats WHERE showtime_id = ? AND seat_id = ?")).
        WithArgs(uint64(1), uint64(77)).
        WillReturnRows(sqlmock.NewRows([]string{"1"}))

    ok, err := repo.ShowtimeExists(ctx, 1)
    require.NoError(t, err)
    assert.True(t, ok)

    ok, err = repo.HasSeat(ctx, 1, 77)
    require.NoError(t, err)
    assert.False(t, ok)
}

func TestEnsureVenue(t *testing.T) {
    db, mock := newMock(t)
    repo := NewCatalogRepo(db)
    ctx := context.Background()

    // first call creates, second call finds
    mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM venues")).
        WithArgs("Metro Cineplex", "Metro City").
        WillReturnRows(sqlmock.NewRows([]string{"id"}))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO venues (name, city)")).
        WithArgs("Metro Cineplex", "Metro City").
        WillReturnResult(sqlmock.NewResult(11, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM venues")).
        WithArgs("Metro Cineplex", "Metro City").
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

    id, err := repo.EnsureVenue(ctx, "Metro Cineplex", "Metro City")
    require.NoError(t, err)
    assert.Equal(t, uint64(11), id)

    id, err = repo.EnsureVenue(ctx, "Metro Cineplex", "Metro City")
    require.NoError(t, err)
    assert.Equal(t, uint64(11), id)
}

func TestScheduleShowtime(t *testing.T) {
    db, mock := newMock(t)
    start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO showtimes")).
        WithArgs(uint64(3), uint64(2), start, start.Add(2*time.Hour)).
        WillReturnResult(sqlmock.NewResult(8, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO show_seats (showtime_id, seat_id, status)")).
        WithArgs(uint64(8), uint64(2)).
        WillReturnResult(sqlmock.NewResult(0, 40))
    mock.ExpectCommit()

    st := &model.Showtime{MovieID: 3, HallID: 2, StartsAt: start, EndsAt: start.Add(2 * time.Hour)}
    require.NoError(t, NewCatalogRepo(db).ScheduleShowtime(context.Background(), st))
    assert.Equal(t, uint64(8), st.ID)
}

func TestScheduleShowtimeRollsBack(t *testing.T) {
    db, mock := newMock(t)
    start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO showtimes")).
        WillReturnResult(sqlmock.NewResult(8, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO show_seats")).
        WillReturnError(sql.ErrConnDone)
    mock.ExpectRollback()

    st := &model.Showtime{MovieID: 3, HallID: 2, StartsAt: start, EndsAt: start.Add(2 * time.Hour)}
    err := NewCatalogRepo(db).ScheduleShowtime(context.Background(), st)
    assert.ErrorIs(t, err, sql.ErrConnDone)
    assert.Zero(t, st.ID)
}

func TestUserRepo(t *testing.T) {
    db, mock := newMock(t)
    repo := NewUserRepo(db)

    mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email=?")).
        WithArgs("demo@example.com").
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE id=?")).
        WithArgs(uint64(4)).
        WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

    id, err := repo.EnsureUser(context.Background(), "  Demo@Example.com ")
    require.NoError(t, err)
    assert.Equal(t, uint64(4), id)

    ok, err := repo.UserExists(context.Background(), id)
    require.NoError(t, err)
    assert.True(t, ok)
}

func TestMemoryStoreScheduleAndSeed(t *testing.T) {
    s := NewMemoryStore()
    ctx := context.Background()

    venue, _ := s.EnsureVenue(ctx, "Metro Cineplex", "Metro City")
    again, _ := s.EnsureVenue(ctx, "Metro Cineplex", "Metro City")
    assert.Equal(t, venue, again)

    hall, _ := s.EnsureHall(ctx, venue, "Hall 1")
    seat, _ := s.EnsureSeat(ctx, hall, "A", 1)
    movie, _ := s.EnsureMovie(ctx, "Release Night", 120)
    start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

    _, found, err := s.FindUpcomingShowtime(ctx, movie, hall, start.Add(-time.Hour))
    require.NoError(t, err)
    assert.False(t, found)

    st := &model.Showtime{MovieID: movie, HallID: hall, StartsAt: start, EndsAt: start.Add(2 * time.Hour)}
    require.NoError(t, s.ScheduleShowtime(ctx, st))

    id, found, err := s.FindUpcomingShowtime(ctx, movie, hall, start.Add(-time.Hour))
    require.NoError(t, err)
    assert.True(t, found)
    assert.Equal(t, st.ID, id)

    ok, _ := s.HasSeat(ctx, st.ID, seat)
    assert.True(t, ok)
    ss, ok := s.ShowSeat(st.ID, seat)
    require.True(t, ok)
    assert.Equal(t, model.StatusAvailable, ss.Status)

    _, err = s.ShowtimeDetail(ctx, st.ID+1000)
    assert.ErrorIs(t, err, ErrShowtimeNotFound)
}

func TestMemoryStoreUncommittedWritesAreDiscarded(t *testing.T) {
    s := NewMemoryStore()
    ctx := context.Background()
    hall, _ := s.EnsureHall(ctx, 1, "Hall 1")
    seat, _ := s.EnsureSeat(ctx, hall, "A", 1)
    st := &model.Showtime{HallID: hall}
    require.NoError(t, s.ScheduleShowtime(ctx, st))

    user := uint64(1)
    err := s.WithinSeatTx(ctx, func(tx SeatTx) error {
        ss, err := tx.LockShowSeat(ctx, st.ID, seat)
        require.NoError(t, err)
        ss.Status = model.StatusHeld
        ss.HolderID = &user
        require.NoError(t, tx.UpdateShowSeat(ctx, ss))
        return sql.ErrTxDone
    })
    assert.ErrorIs(t, err, sql.ErrTxDone)

    ss, _ := s.ShowSeat(st.ID, seat)
    assert.Equal(t, model.StatusAvailable, ss.Status)

    // the row lock was released with the failed transaction
    require.NoError(t, s.WithinSeatTx(ctx, func(tx SeatTx) error {
        _, err := tx.LockShowSeat(ctx, st.ID, seat)
        return err
    }))
}
