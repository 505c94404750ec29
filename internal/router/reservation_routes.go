package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-seat-reservation/internal/handler"
)

// RegisterReservations registers the layout, hold and book endpoints under
// /v1.  limiter guards the two mutating routes; cache fronts only the
// showtime metadata route since a layout read must sweep expired holds
// every time.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, limiter, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/hall-layout/:show_id", h.HallLayout)
	g.GET("/showtimes/:id", h.ShowtimeDetail, cache)
	g.POST("/hold-seat", h.HoldSeat, limiter)
	g.POST("/book-seat", h.BookSeat, limiter)
}
