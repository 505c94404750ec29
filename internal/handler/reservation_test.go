package handler

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "github.com/sirupsen/logrus/hooks/test"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
    "github.com/iliyamo/showtime-seat-reservation/internal/queue"
    "github.com/iliyamo/showtime-seat-reservation/internal/repository"
    "github.com/iliyamo/showtime-seat-reservation/internal/reservation"
    "github.com/iliyamo/showtime-seat-reservation/internal/seed"
)

type recordingPublisher struct {
    events chan queue.BookingConfirmedEvent
    err    error
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
    p.events <- ev
    return p.err
}

type env struct {
    e     *echo.Echo
    store *repository.MemoryStore
    demo  *seed.Result
    other uint64
    pub   *recordingPublisher
    nowMu sync.Mutex
    now   time.Time
}

func (v *env) clock() time.Time {
    v.nowMu.Lock()
    defer v.nowMu.Unlock()
    return v.now
}

func (v *env) advance(d time.Duration) {
    v.nowMu.Lock()
    defer v.nowMu.Unlock()
    v.now = v.now.Add(d)
}

func newEnv(t *testing.T) *env {
    t.Helper()
    ctx := context.Background()
    v := &env{
        store: repository.NewMemoryStore(),
        now:   time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
        pub:   &recordingPublisher{events: make(chan queue.BookingConfirmedEvent, 16)},
    }
    demo, err := seed.Demo(ctx, v.store, v.store, v.now)
    require.NoError(t, err)
    v.demo = demo
    v.other, err = v.store.EnsureUser(ctx, "other@example.com")
    require.NoError(t, err)

    log, _ := test.NewNullLogger()
    log.SetLevel(logrus.DebugLevel)
    engine := reservation.NewEngine(v.store, v.store, v.store, 5*time.Minute,
        reservation.WithClock(v.clock), reservation.WithLogger(log))
    h := NewReservationHandler(engine, v.pub, log)

    v.e = echo.New()
    v.e.Validator = NewRequestValidator()
    v.e.GET("/healthz", Health)
    v.e.GET("/v1/hall-layout/:show_id", h.HallLayout)
    v.e.GET("/v1/showtimes/:id", h.ShowtimeDetail)
    v.e.POST("/v1/hold-seat", h.HoldSeat)
    v.e.POST("/v1/book-seat", h.BookSeat)
    return v
}

func (v *env) do(method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    v.e.ServeHTTP(rec, req)
    var out map[string]interface{}
    _ = json.Unmarshal(rec.Body.Bytes(), &out)
    return rec, out
}

func (v *env) seatBody(user uint64, label string) string {
    return fmt.Sprintf(`{"user_id":%d,"seat_id":%d,"show_id":%d}`, user, v.demo.Seats[label], v.demo.ShowtimeID)
}

func TestHealth(t *testing.T) {
    v := newEnv(t)
    rec, _ := v.do(http.MethodGet, "/healthz", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", rec.Body.String())
}

func TestHallLayout(t *testing.T) {
    v := newEnv(t)
    rec, _ := v.do(http.MethodPost, "/v1/hold-seat", v.seatBody(v.demo.UserID, "A2"))
    require.Equal(t, http.StatusOK, rec.Code)

    rec, body := v.do(http.MethodGet, fmt.Sprintf("/v1/hall-layout/%d", v.demo.ShowtimeID), "")
    require.Equal(t, http.StatusOK, rec.Code)

    assert.EqualValues(t, v.demo.ShowtimeID, body["show_id"])
    assert.Equal(t, seed.HallName, body["hall_name"])
    assert.Equal(t, seed.VenueName, body["venue_name"])
    assert.Equal(t, seed.MovieTitle, body["movie_title"])
    assert.Equal(t, "2026-03-02T18:00:00Z", body["starts_at"])

    seats := body["seats"].([]interface{})
    require.Len(t, seats, 40)
    first := seats[0].(map[string]interface{})
    assert.Equal(t, "A", first["row"])
    assert.EqualValues(t, 1, first["number"])
    assert.Equal(t, "available", first["status"])
    assert.Nil(t, first["locked_by"])
    assert.Nil(t, first["locked_until"])

    held := seats[1].(map[string]interface{})
    assert.EqualValues(t, v.demo.Seats["A2"], held["id"])
    assert.Equal(t, "held", held["status"])
    assert.EqualValues(t, v.demo.UserID, held["locked_by"])
    assert.Equal(t, "2026-03-01T18:05:00Z", held["locked_until"])

    last := seats[39].(map[string]interface{})
    assert.Equal(t, "D", last["row"])
    assert.EqualValues(t, 10, last["number"])
}

func TestHallLayoutNotFound(t *testing.T) {
    v := newEnv(t)
    for _, path := range []string{"/v1/hall-layout/999999", "/v1/hall-layout/abc", "/v1/showtimes/999999"} {
        rec, body := v.do(http.MethodGet, path, "")
        assert.Equal(t, http.StatusNotFound, rec.Code, path)
        assert.Equal(t, "Showtime not found.", body["detail"], path)
    }
}

func TestShowtimeDetail(t *testing.T) {
    v := newEnv(t)
    rec, body := v.do(http.MethodGet, fmt.Sprintf("/v1/showtimes/%d", v.demo.ShowtimeID), "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.EqualValues(t, v.demo.HallID, body["hall_id"])
    assert.Equal(t, seed.MovieTitle, body["movie_title"])
    assert.Equal(t, "2026-03-02T20:00:00Z", body["ends_at"])
    assert.NotContains(t, body, "seats")
}

func TestHoldAndBook(t *testing.T) {
    v := newEnv(t)

    rec, body := v.do(http.MethodPost, "/v1/hold-seat", v.seatBody(v.demo.UserID, "B3"))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "Seat held.", body["detail"])

    rec, body = v.do(http.MethodPost, "/v1/hold-seat", v.seatBody(v.other, "B3"))
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Equal(t, reservation.ReasonHeldByOther, body["detail"])

    rec, body = v.do(http.MethodPost, "/v1/book-seat", v.seatBody(v.demo.UserID, "B3"))
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.Equal(t, "Booking confirmed.", body["detail"])

    rec, body = v.do(http.MethodPost, "/v1/book-seat", v.seatBody(v.demo.UserID, "B3"))
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Equal(t, reservation.ReasonAlreadyBooked, body["detail"])

    select {
    case ev := <-v.pub.events:
        assert.Equal(t, v.demo.UserID, ev.UserID)
        assert.Equal(t, v.demo.Seats["B3"], ev.SeatID)
        assert.Equal(t, seed.HallName, ev.HallName)
        assert.NotZero(t, ev.BookingID)
    case <-time.After(2 * time.Second):
        t.Fatal("booking event not published")
    }
    assert.Len(t, v.store.Bookings(), 1)
}

func TestExpiredHoldCanBeBookedByAnotherUser(t *testing.T) {
    v := newEnv(t)

    rec, _ := v.do(http.MethodPost, "/v1/hold-seat", v.seatBody(v.demo.UserID, "C1"))
    require.Equal(t, http.StatusOK, rec.Code)

    v.advance(100 * time.Second)
    rec, _ = v.do(http.MethodPost, "/v1/book-seat", v.seatBody(v.other, "C1"))
    assert.Equal(t, http.StatusConflict, rec.Code)

    v.advance(301 * time.Second)
    rec, _ = v.do(http.MethodPost, "/v1/book-seat", v.seatBody(v.other, "C1"))
    assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestValidationErrors(t *testing.T) {
    v := newEnv(t)
    cases := []struct {
        name  string
        body  string
        field string
    }{
        {"missing fields", `{"user_id":1}`, "seat_id"},
        {"wrong type", `{"user_id":"me","seat_id":1,"show_id":1}`, "user_id"},
        {"negative id", `{"user_id":-1,"seat_id":1,"show_id":1}`, "user_id"},
        {"malformed", `{"user_id":`, "non_field_errors"},
        {"unknown user", v.seatBody(999999, "A1"), "user_id"},
        {"unknown show", fmt.Sprintf(`{"user_id":%d,"seat_id":%d,"show_id":999999}`, v.demo.UserID, v.demo.Seats["A1"]), "show_id"},
        {"foreign seat", fmt.Sprintf(`{"user_id":%d,"seat_id":999999,"show_id":%d}`, v.demo.UserID, v.demo.ShowtimeID), "seat_id"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            for _, path := range []string{"/v1/hold-seat", "/v1/book-seat"} {
                rec, body := v.do(http.MethodPost, path, tc.body)
                require.Equal(t, http.StatusBadRequest, rec.Code, path)
                assert.Equal(t, "Invalid request.", body["detail"])
                errs, ok := body["errors"].(map[string]interface{})
                require.True(t, ok, rec.Body.String())
                assert.Contains(t, errs, tc.field)
            }
        })
    }
    assert.Empty(t, v.store.Bookings())
}

func TestConcurrentBookingsOneWins(t *testing.T) {
    v := newEnv(t)
    const n = 16
    codes := make(chan int, n)
    var wg sync.WaitGroup
    for i := 0; i < n; i++ {
        user := v.demo.UserID
        if i%2 == 1 {
            user = v.other
        }
        wg.Add(1)
        go func(user uint64) {
            defer wg.Done()
            rec, _ := v.do(http.MethodPost, "/v1/book-seat", v.seatBody(user, "D5"))
            codes <- rec.Code
        }(user)
    }
    wg.Wait()
    close(codes)

    created := 0
    for code := range codes {
        switch code {
        case http.StatusCreated:
            created++
        case http.StatusConflict:
        default:
            t.Errorf("unexpected status %d", code)
        }
    }
    assert.Equal(t, 1, created)
    assert.Len(t, v.store.Bookings(), 1)
}

type failingEngine struct{ err error }

func (f failingEngine) Layout(context.Context, uint64) (*reservation.LayoutView, error) {
    return nil, f.err
}
func (f failingEngine) Showtime(context.Context, uint64) (*model.ShowtimeDetail, error) {
    return nil, f.err
}
func (f failingEngine) Hold(context.Context, reservation.SeatRequest) (*model.ShowSeat, error) {
    return nil, f.err
}
func (f failingEngine) Book(context.Context, reservation.SeatRequest) (*model.Booking, error) {
    return nil, f.err
}

func TestInternalErrorsAreHidden(t *testing.T) {
    log, hook := test.NewNullLogger()
    h := NewReservationHandler(failingEngine{errors.New("dial tcp 10.0.0.5:3306: connection refused")}, nil, log)
    e := echo.New()
    e.Validator = NewRequestValidator()
    e.POST("/v1/hold-seat", h.HoldSeat)
    e.GET("/v1/hall-layout/:show_id", h.HallLayout)

    for _, req := range []*http.Request{
        httptest.NewRequest(http.MethodPost, "/v1/hold-seat", strings.NewReader(`{"user_id":1,"seat_id":1,"show_id":1}`)),
        httptest.NewRequest(http.MethodGet, "/v1/hall-layout/1", nil),
    } {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        assert.Equal(t, http.StatusInternalServerError, rec.Code)
        assert.JSONEq(t, `{"detail":"Internal server error."}`, rec.Body.String())
        assert.NotContains(t, rec.Body.String(), "10.0.0.5")
    }
    require.NotNil(t, hook.LastEntry())
    assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestPublishFailureDoesNotAffectBooking(t *testing.T) {
    v := newEnv(t)
    v.pub.err = errors.New("broker down")

    rec, _ := v.do(http.MethodPost, "/v1/book-seat", v.seatBody(v.demo.UserID, "A9"))
    assert.Equal(t, http.StatusCreated, rec.Code)
    select {
    case <-v.pub.events:
    case <-time.After(2 * time.Second):
        t.Fatal("publisher not called")
    }
    assert.Len(t, v.store.Bookings(), 1)
}
