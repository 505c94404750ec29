package handler

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/showtime-seat-reservation/internal/model"
    "github.com/iliyamo/showtime-seat-reservation/internal/queue"
    "github.com/iliyamo/showtime-seat-reservation/internal/reservation"
)

// Reservations is the engine surface the HTTP layer needs.
type Reservations interface {
    Layout(ctx context.Context, showtimeID uint64) (*reservation.LayoutView, error)
    Showtime(ctx context.Context, showtimeID uint64) (*model.ShowtimeDetail, error)
    Hold(ctx context.Context, req reservation.SeatRequest) (*model.ShowSeat, error)
    Book(ctx context.Context, req reservation.SeatRequest) (*model.Booking, error)
}

// BookingPublisher announces committed bookings.
type BookingPublisher interface {
    PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
}

// publishTimeout bounds the background publish after a booking.
const publishTimeout = 5 * time.Second

// ReservationHandler serves the layout, hold and book endpoints.
type ReservationHandler struct {
    engine    Reservations
    publisher BookingPublisher
    log       *logrus.Logger
}

// NewReservationHandler wires the handler.  publisher may be nil, in which
// case no booking events are emitted.
func NewReservationHandler(engine Reservations, publisher BookingPublisher, log *logrus.Logger) *ReservationHandler {
    if engine == nil {
        panic("nil engine passed to NewReservationHandler")
    }
    return &ReservationHandler{engine: engine, publisher: publisher, log: log}
}

// seatRequest is the body of POST /v1/hold-seat and /v1/book-seat.
type seatRequest struct {
    UserID uint64 `json:"user_id" validate:"required"`
    SeatID uint64 `json:"seat_id" validate:"required"`
    ShowID uint64 `json:"show_id" validate:"required"`
}

type seatView struct {
    ID          uint64           `json:"id"`
    Row         string           `json:"row"`
    Number      uint32           `json:"number"`
    Status      model.SeatStatus `json:"status"`
    LockedBy    *uint64          `json:"locked_by"`
    LockedUntil *time.Time       `json:"locked_until"`
}

type layoutView struct {
    ShowID     uint64     `json:"show_id"`
    HallName   string     `json:"hall_name"`
    VenueName  string     `json:"venue_name"`
    MovieTitle string     `json:"movie_title"`
    StartsAt   time.Time  `json:"starts_at"`
    Seats      []seatView `json:"seats"`
}

type showtimeView struct {
    ID         uint64    `json:"id"`
    HallID     uint64    `json:"hall_id"`
    HallName   string    `json:"hall_name"`
    VenueID    uint64    `json:"venue_id"`
    VenueName  string    `json:"venue_name"`
    MovieID    uint64    `json:"movie_id"`
    MovieTitle string    `json:"movie_title"`
    StartsAt   time.Time `json:"starts_at"`
    EndsAt     time.Time `json:"ends_at"`
}

// HallLayout handles GET /v1/hall-layout/:show_id.  Expired holds are
// released before the seats are read.
func (h *ReservationHandler) HallLayout(c echo.Context) error {
    id, ok := pathID(c, "show_id")
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"detail": "Showtime not found."})
    }
    view, err := h.engine.Layout(c.Request().Context(), id)
    if err != nil {
        return h.fail(c, err)
    }
    out := layoutView{
        ShowID:     view.Showtime.ID,
        HallName:   view.Showtime.HallName,
        VenueName:  view.Showtime.VenueName,
        MovieTitle: view.Showtime.MovieTitle,
        StartsAt:   view.Showtime.StartsAt,
        Seats:      make([]seatView, 0, len(view.Seats)),
    }
    for _, s := range view.Seats {
        out.Seats = append(out.Seats, seatView{
            ID:          s.SeatID,
            Row:         s.Row,
            Number:      s.Number,
            Status:      s.Status,
            LockedBy:    s.HolderID,
            LockedUntil: s.HoldExpiry,
        })
    }
    return c.JSON(http.StatusOK, out)
}

// ShowtimeDetail handles GET /v1/showtimes/:id.  It carries no seat state
// and is safe to cache.
func (h *ReservationHandler) ShowtimeDetail(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"detail": "Showtime not found."})
    }
    d, err := h.engine.Showtime(c.Request().Context(), id)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, showtimeView{
        ID:         d.ID,
        HallID:     d.HallID,
        HallName:   d.HallName,
        VenueID:    d.VenueID,
        VenueName:  d.VenueName,
        MovieID:    d.MovieID,
        MovieTitle: d.MovieTitle,
        StartsAt:   d.StartsAt,
        EndsAt:     d.EndsAt,
    })
}

// HoldSeat handles POST /v1/hold-seat.
func (h *ReservationHandler) HoldSeat(c echo.Context) error {
    req, err := bindSeatRequest(c)
    if err != nil {
        return h.fail(c, err)
    }
    if _, err := h.engine.Hold(c.Request().Context(), req); err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"detail": "Seat held."})
}

// BookSeat handles POST /v1/book-seat.  After the booking commits a
// booking.confirmed event is published in the background; a publish
// failure is logged and never affects the response.
func (h *ReservationHandler) BookSeat(c echo.Context) error {
    req, err := bindSeatRequest(c)
    if err != nil {
        return h.fail(c, err)
    }
    ctx := c.Request().Context()
    booking, err := h.engine.Book(ctx, req)
    if err != nil {
        return h.fail(c, err)
    }
    if h.publisher != nil {
        go h.announce(context.WithoutCancel(ctx), booking)
    }
    return c.JSON(http.StatusCreated, echo.Map{"detail": "Booking confirmed."})
}

func (h *ReservationHandler) announce(ctx context.Context, b *model.Booking) {
    ctx, cancel := context.WithTimeout(ctx, publishTimeout)
    defer cancel()
    detail, err := h.engine.Showtime(ctx, b.ShowtimeID)
    if err != nil {
        h.log.WithContext(ctx).WithError(err).Warn("booking event: showtime lookup failed")
    }
    if err := h.publisher.PublishBookingConfirmed(ctx, queue.NewBookingConfirmed(b, detail)); err != nil {
        h.log.WithContext(ctx).WithError(err).WithField("booking_id", b.ID).Warn("booking event not published")
    }
}

// bindSeatRequest decodes and validates the JSON body.  Decoding and
// validation failures both come back as *reservation.ValidationError.
func bindSeatRequest(c echo.Context) (reservation.SeatRequest, error) {
    var body seatRequest
    if err := c.Bind(&body); err != nil {
        var ute *json.UnmarshalTypeError
        if errors.As(err, &ute) && ute.Field != "" {
            return reservation.SeatRequest{}, &reservation.ValidationError{Fields: map[string]string{ute.Field: "A valid integer is required."}}
        }
        return reservation.SeatRequest{}, &reservation.ValidationError{Fields: map[string]string{"non_field_errors": "Malformed request body."}}
    }
    if err := c.Validate(&body); err != nil {
        if fields := fieldErrors(err); fields != nil {
            return reservation.SeatRequest{}, &reservation.ValidationError{Fields: fields}
        }
        return reservation.SeatRequest{}, err
    }
    return reservation.SeatRequest{ShowtimeID: body.ShowID, SeatID: body.SeatID, UserID: body.UserID}, nil
}

// fail maps engine errors onto HTTP responses.
func (h *ReservationHandler) fail(c echo.Context, err error) error {
    var (
        ve *reservation.ValidationError
        ce *reservation.ConflictError
    )
    switch {
    case errors.As(err, &ve):
        return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid request.", "errors": ve.Fields})
    case errors.As(err, &ce):
        return c.JSON(http.StatusConflict, echo.Map{"detail": ce.Reason})
    case errors.Is(err, reservation.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"detail": "Showtime not found."})
    }
    h.log.WithContext(c.Request().Context()).
        WithError(err).
        WithField("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
        Error("request failed")
    return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "Internal server error."})
}

func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}
