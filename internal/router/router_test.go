package router

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-seat-reservation/internal/handler"
	"github.com/iliyamo/showtime-seat-reservation/internal/repository"
	"github.com/iliyamo/showtime-seat-reservation/internal/reservation"
	"github.com/iliyamo/showtime-seat-reservation/internal/seed"
)

func TestRoutes(t *testing.T) {
	log, hook := test.NewNullLogger()
	store := repository.NewMemoryStore()
	demo, err := seed.Demo(context.Background(), store, store, time.Now())
	require.NoError(t, err)

	engine := reservation.NewEngine(store, store, store, time.Minute, reservation.WithLogger(log))

	var limited, cached []string
	tag := func(into *[]string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				*into = append(*into, c.Path())
				return next(c)
			}
		}
	}

	e := New(log, "")
	RegisterRoutes(e)
	RegisterReservations(e, handler.NewReservationHandler(engine, nil, log), tag(&limited), tag(&cached))

	body := fmt.Sprintf(`{"user_id":%d,"seat_id":%d,"show_id":%d}`, demo.UserID, demo.Seats["A1"], demo.ShowtimeID)
	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, fmt.Sprintf("/v1/hall-layout/%d", demo.ShowtimeID), "", http.StatusOK},
		{http.MethodGet, fmt.Sprintf("/v1/showtimes/%d", demo.ShowtimeID), "", http.StatusOK},
		{http.MethodPost, "/v1/hold-seat", body, http.StatusOK},
		{http.MethodPost, "/v1/book-seat", body, http.StatusCreated},
		{http.MethodGet, "/v1/hold-seat", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
		assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36, "request id is a uuid")
	}

	assert.Equal(t, []string{"/v1/hold-seat", "/v1/book-seat"}, limited)
	assert.Equal(t, []string{"/v1/showtimes/:id"}, cached)
	assert.NotEmpty(t, hook.AllEntries())
}
