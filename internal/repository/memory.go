package repository

import (
    "context"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
)

type seatKey struct {
    showtimeID uint64
    seatID     uint64
}

// memRow pairs a committed show seat with the mutex that plays the role of
// its row lock.  The lock is held from LockShowSeat until the owning
// transaction ends; the committed value itself is guarded by
// MemoryStore.mu.
type memRow struct {
    lock sync.Mutex
    seat model.ShowSeat
}

// MemoryStore is an in-process implementation of the catalog, identity
// lookups and seat ledger.  It serializes operations per (showtime, seat)
// the same way the MySQL ledger does with row locks, so unrelated seats
// never block each other.
type MemoryStore struct {
    mu        sync.RWMutex
    nextID    uint64
    venues    map[uint64]model.Venue
    halls     map[uint64]model.Hall
    seats     map[uint64]model.Seat
    movies    map[uint64]model.Movie
    showtimes map[uint64]model.Showtime
    users     map[uint64]model.User
    showSeats map[seatKey]*memRow
    bookings  map[seatKey]model.Booking
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{
        venues:    make(map[uint64]model.Venue),
        halls:     make(map[uint64]model.Hall),
        seats:     make(map[uint64]model.Seat),
        movies:    make(map[uint64]model.Movie),
        showtimes: make(map[uint64]model.Showtime),
        users:     make(map[uint64]model.User),
        showSeats: make(map[seatKey]*memRow),
        bookings:  make(map[seatKey]model.Booking),
    }
}

func (s *MemoryStore) id() uint64 {
    s.nextID++
    return s.nextID
}

// EnsureVenue implements the catalog seeding contract.
func (s *MemoryStore) EnsureVenue(_ context.Context, name, city string) (uint64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, v := range s.venues {
        if v.Name == name && v.City == city {
            return v.ID, nil
        }
    }
    v := model.Venue{ID: s.id(), Name: name, City: city}
    s.venues[v.ID] = v
    return v.ID, nil
}

// EnsureHall implements the catalog seeding contract.
func (s *MemoryStore) EnsureHall(_ context.Context, venueID uint64, name string) (uint64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, h := range s.halls {
        if h.VenueID == venueID && h.Name == name {
            return h.ID, nil
        }
    }
    h := model.Hall{ID: s.id(), VenueID: venueID, Name: name}
    s.halls[h.ID] = h
    return h.ID, nil
}

// EnsureSeat implements the catalog seeding contract.
func (s *MemoryStore) EnsureSeat(_ context.Context, hallID uint64, row string, number uint32) (uint64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, se := range s.seats {
        if se.HallID == hallID && se.Row == row && se.Number == number {
            return se.ID, nil
        }
    }
    se := model.Seat{ID: s.id(), HallID: hallID, Row: row, Number: number}
    s.seats[se.ID] = se
    return se.ID, nil
}

// EnsureMovie implements the catalog seeding contract.
func (s *MemoryStore) EnsureMovie(_ context.Context, title string, durationMinutes uint32) (uint64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, m := range s.movies {
        if m.Title == title && m.DurationMinutes == durationMinutes {
            return m.ID, nil
        }
    }
    m := model.Movie{ID: s.id(), Title: title, DurationMinutes: durationMinutes}
    s.movies[m.ID] = m
    return m.ID, nil
}

// EnsureUser implements the identity seeding contract.
func (s *MemoryStore) EnsureUser(_ context.Context, email string) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, u := range s.users {
        if u.Email == email {
            return u.ID, nil
        }
    }
    u := model.User{ID: s.id(), Email: email}
    s.users[u.ID] = u
    return u.ID, nil
}

// FindUpcomingShowtime returns the earliest showtime of the movie in the
// hall starting after the given instant.
func (s *MemoryStore) FindUpcomingShowtime(_ context.Context, movieID, hallID uint64, after time.Time) (uint64, bool, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    var best *model.Showtime
    for _, st := range s.showtimes {
        st := st
        if st.MovieID != movieID || st.HallID != hallID || !st.StartsAt.After(after) {
            continue
        }
        if best == nil || st.StartsAt.Before(best.StartsAt) {
            best = &st
        }
    }
    if best == nil {
        return 0, false, nil
    }
    return best.ID, true, nil
}

// ScheduleShowtime stores st and creates an available ShowSeat for every
// seat of its hall.  On success st.ID is set.
func (s *MemoryStore) ScheduleShowtime(_ context.Context, st *model.Showtime) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    st.ID = s.id()
    st.StartsAt = st.StartsAt.UTC()
    st.EndsAt = st.EndsAt.UTC()
    s.showtimes[st.ID] = *st
    for _, se := range s.seats {
        if se.HallID != st.HallID {
            continue
        }
        s.showSeats[seatKey{st.ID, se.ID}] = &memRow{seat: model.ShowSeat{
            ID:         s.id(),
            ShowtimeID: st.ID,
            SeatID:     se.ID,
            Status:     model.StatusAvailable,
        }}
    }
    return nil
}

// ShowtimeExists reports whether the showtime exists.
func (s *MemoryStore) ShowtimeExists(_ context.Context, id uint64) (bool, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    _, ok := s.showtimes[id]
    return ok, nil
}

// HasSeat reports whether the seat is part of the showtime's seat set.
func (s *MemoryStore) HasSeat(_ context.Context, showtimeID, seatID uint64) (bool, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    _, ok := s.showSeats[seatKey{showtimeID, seatID}]
    return ok, nil
}

// ShowtimeDetail returns the showtime joined with hall, venue and movie
// names, or ErrShowtimeNotFound.
func (s *MemoryStore) ShowtimeDetail(_ context.Context, id uint64) (*model.ShowtimeDetail, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    st, ok := s.showtimes[id]
    if !ok {
        return nil, ErrShowtimeNotFound
    }
    hall := s.halls[st.HallID]
    venue := s.venues[hall.VenueID]
    movie := s.movies[st.MovieID]
    return &model.ShowtimeDetail{
        ID:         st.ID,
        HallID:     hall.ID,
        HallName:   hall.Name,
        VenueID:    venue.ID,
        VenueName:  venue.Name,
        MovieID:    movie.ID,
        MovieTitle: movie.Title,
        StartsAt:   st.StartsAt,
        EndsAt:     st.EndsAt,
    }, nil
}

// UserExists reports whether the user exists.
func (s *MemoryStore) UserExists(_ context.Context, id uint64) (bool, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    _, ok := s.users[id]
    return ok, nil
}

// SweepExpired releases stale holds of one showtime.  Like the SQL
// version it does not take row locks.
func (s *MemoryStore) SweepExpired(_ context.Context, showtimeID uint64, now time.Time) (int64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var n int64
    for k, row := range s.showSeats {
        if k.showtimeID == showtimeID && row.seat.Expired(now) {
            row.seat.Release()
            n++
        }
    }
    return n, nil
}

// SweepAllExpired releases stale holds of every showtime.
func (s *MemoryStore) SweepAllExpired(_ context.Context, now time.Time) (int64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var n int64
    for _, row := range s.showSeats {
        if row.seat.Expired(now) {
            row.seat.Release()
            n++
        }
    }
    return n, nil
}

// ListSeatStates returns the committed seat states of a showtime ordered by
// row label then seat number.
func (s *MemoryStore) ListSeatStates(_ context.Context, showtimeID uint64) ([]model.SeatState, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]model.SeatState, 0)
    for k, row := range s.showSeats {
        if k.showtimeID != showtimeID {
            continue
        }
        se := s.seats[k.seatID]
        out = append(out, model.SeatState{
            SeatID:     se.ID,
            Row:        se.Row,
            Number:     se.Number,
            Status:     row.seat.Status,
            HolderID:   copyUint64(row.seat.HolderID),
            HoldExpiry: copyTime(row.seat.HoldExpiry),
        })
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Row != out[j].Row {
            return out[i].Row < out[j].Row
        }
        return out[i].Number < out[j].Number
    })
    return out, nil
}

// Bookings returns a copy of every booking, ordered by ID.
func (s *MemoryStore) Bookings() []model.Booking {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]model.Booking, 0, len(s.bookings))
    for _, b := range s.bookings {
        out = append(out, b)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}

// ShowSeat returns a copy of the committed show seat for the pair.
func (s *MemoryStore) ShowSeat(showtimeID, seatID uint64) (model.ShowSeat, bool) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    row, ok := s.showSeats[seatKey{showtimeID, seatID}]
    if !ok {
        return model.ShowSeat{}, false
    }
    return cloneShowSeat(row.seat), true
}

// WithinSeatTx runs fn with a transaction whose writes become visible only
// when fn returns nil.  Row locks taken through LockShowSeat are released
// when WithinSeatTx returns.
func (s *MemoryStore) WithinSeatTx(ctx context.Context, fn func(SeatTx) error) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    tx := &memTx{store: s, writes: make(map[seatKey]model.ShowSeat)}
    defer tx.release()
    if err := fn(tx); err != nil {
        return err
    }
    return tx.commit()
}

type memTx struct {
    store    *MemoryStore
    locked   []*memRow
    writes   map[seatKey]model.ShowSeat
    bookings []*model.Booking
}

func (t *memTx) LockShowSeat(ctx context.Context, showtimeID, seatID uint64) (*model.ShowSeat, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    k := seatKey{showtimeID, seatID}
    t.store.mu.RLock()
    row, ok := t.store.showSeats[k]
    t.store.mu.RUnlock()
    if !ok {
        return nil, ErrShowSeatNotFound
    }
    if !t.holds(row) {
        row.lock.Lock()
        t.locked = append(t.locked, row)
    }
    if w, ok := t.writes[k]; ok {
        ss := cloneShowSeat(w)
        return &ss, nil
    }
    t.store.mu.RLock()
    ss := cloneShowSeat(row.seat)
    t.store.mu.RUnlock()
    return &ss, nil
}

func (t *memTx) UpdateShowSeat(_ context.Context, ss *model.ShowSeat) error {
    k := seatKey{ss.ShowtimeID, ss.SeatID}
    t.store.mu.RLock()
    row, ok := t.store.showSeats[k]
    t.store.mu.RUnlock()
    if !ok {
        return ErrShowSeatNotFound
    }
    if !t.holds(row) {
        // writes are only legal on rows locked by this transaction
        row.lock.Lock()
        t.locked = append(t.locked, row)
    }
    t.writes[k] = cloneShowSeat(*ss)
    return nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
    k := seatKey{b.ShowtimeID, b.SeatID}
    t.store.mu.RLock()
    _, dup := t.store.bookings[k]
    t.store.mu.RUnlock()
    if dup {
        return ErrDuplicateBooking
    }
    for _, pending := range t.bookings {
        if pending.ShowtimeID == b.ShowtimeID && pending.SeatID == b.SeatID {
            return ErrDuplicateBooking
        }
    }
    t.bookings = append(t.bookings, b)
    return nil
}

func (t *memTx) holds(row *memRow) bool {
    for _, r := range t.locked {
        if r == row {
            return true
        }
    }
    return false
}

// commit applies staged writes atomically.  The booking uniqueness check
// is repeated under the write lock so that the store enforces it even for
// transactions that skipped LockShowSeat.
func (t *memTx) commit() error {
    s := t.store
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, b := range t.bookings {
        if _, dup := s.bookings[seatKey{b.ShowtimeID, b.SeatID}]; dup {
            return ErrDuplicateBooking
        }
    }
    for k, w := range t.writes {
        s.showSeats[k].seat = w
    }
    for _, b := range t.bookings {
        b.ID = s.id()
        s.bookings[seatKey{b.ShowtimeID, b.SeatID}] = *b
    }
    return nil
}

func (t *memTx) release() {
    for _, row := range t.locked {
        row.lock.Unlock()
    }
    t.locked = nil
}

func cloneShowSeat(ss model.ShowSeat) model.ShowSeat {
    ss.HolderID = copyUint64(ss.HolderID)
    ss.HoldExpiry = copyTime(ss.HoldExpiry)
    ss.BookedAt = copyTime(ss.BookedAt)
    return ss
}

func copyUint64(p *uint64) *uint64 {
    if p == nil {
        return nil
    }
    v := *p
    return &v
}

func copyTime(p *time.Time) *time.Time {
    if p == nil {
        return nil
    }
    v := *p
    return &v
}
