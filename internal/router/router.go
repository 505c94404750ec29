package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-seat-reservation/internal/handler"
	"github.com/iliyamo/showtime-seat-reservation/internal/middleware"
)

// New returns an Echo instance with the global middleware chain installed:
// panic recovery, request ids, optional bearer identity and one log entry
// per request.
func New(log *logrus.Logger, jwtSecret string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Identity(jwtSecret))
	e.Use(middleware.RequestLogger(log))
	return e
}

// RegisterRoutes registers routes that do not touch reservation state.
// Load balancers and monitoring systems poll /healthz.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}
