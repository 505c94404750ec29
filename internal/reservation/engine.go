// Package reservation implements the seat reservation state machine for
// showtimes.  Every ShowSeat moves available -> held -> booked; a held
// seat returns to available when its hold expires and booked is terminal.
//
// Expiry is lazy: each Layout, Hold and Book call first sweeps stale holds
// of the target showtime.  Hold and Book then lock the single ShowSeat row
// they touch, so requests for different seats never block each other.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-seat-reservation/internal/model"
	"github.com/iliyamo/showtime-seat-reservation/internal/repository"
)

// Catalog answers existence questions about showtimes and their seats.
type Catalog interface {
	ShowtimeExists(ctx context.Context, id uint64) (bool, error)
	HasSeat(ctx context.Context, showtimeID, seatID uint64) (bool, error)
	ShowtimeDetail(ctx context.Context, id uint64) (*model.ShowtimeDetail, error)
}

// Users answers identity lookups.
type Users interface {
	UserExists(ctx context.Context, id uint64) (bool, error)
}

// Ledger persists show seats and bookings.
type Ledger interface {
	SweepExpired(ctx context.Context, showtimeID uint64, now time.Time) (int64, error)
	SweepAllExpired(ctx context.Context, now time.Time) (int64, error)
	ListSeatStates(ctx context.Context, showtimeID uint64) ([]model.SeatState, error)
	WithinSeatTx(ctx context.Context, fn func(repository.SeatTx) error) error
}

// SeatRequest identifies the seat, showtime and acting user of a hold or
// book call.
type SeatRequest struct {
	ShowtimeID uint64
	SeatID     uint64
	UserID     uint64
}

// Engine enforces the hold and book transitions.
type Engine struct {
	catalog      Catalog
	users        Users
	ledger       Ledger
	holdDuration time.Duration
	now          func() time.Time
	log          *logrus.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.  Tests use it to move past hold expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used for sweep and transition entries.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine returns an Engine granting holds of holdDuration.
func NewEngine(catalog Catalog, users Users, ledger Ledger, holdDuration time.Duration, opts ...Option) *Engine {
	if catalog == nil || users == nil || ledger == nil {
		panic("nil dependency passed to reservation.NewEngine")
	}
	e := &Engine{
		catalog:      catalog,
		users:        users,
		ledger:       ledger,
		holdDuration: holdDuration,
		now:          time.Now,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HoldDuration is the lifetime granted to new and refreshed holds.
func (e *Engine) HoldDuration() time.Duration { return e.holdDuration }

func (e *Engine) clock() time.Time { return e.now().UTC() }

// Hold places or refreshes a hold on the seat for req.UserID.  A seat held
// by the same user gets a fresh expiry; a seat booked by anyone, or held by
// another user whose hold is still active, yields a ConflictError.
func (e *Engine) Hold(ctx context.Context, req SeatRequest) (*model.ShowSeat, error) {
	if err := e.validate(ctx, req); err != nil {
		return nil, err
	}
	if _, err := e.Sweep(ctx, req.ShowtimeID); err != nil {
		return nil, err
	}
	var held *model.ShowSeat
	err := e.ledger.WithinSeatTx(ctx, func(tx repository.SeatTx) error {
		ss, err := tx.LockShowSeat(ctx, req.ShowtimeID, req.SeatID)
		if err != nil {
			return err
		}
		now := e.clock()
		if err := checkTransition(ss, req.UserID, now); err != nil {
			return err
		}
		expiry := now.Add(e.holdDuration)
		user := req.UserID
		ss.Status = model.StatusHeld
		ss.HolderID = &user
		ss.HoldExpiry = &expiry
		if err := tx.UpdateShowSeat(ctx, ss); err != nil {
			return err
		}
		held = ss
		return nil
	})
	if err != nil {
		return nil, e.outcome(ctx, "hold", req, err, ReasonUnavailable)
	}
	e.entry(ctx, req).WithField("locked_until", *held.HoldExpiry).Info("seat held")
	return held, nil
}

// Book books the seat for req.UserID, with or without a prior hold, and
// records a Booking in the same transaction.  A duplicate booking detected
// by storage is reported as the same ConflictError as an already booked seat.
func (e *Engine) Book(ctx context.Context, req SeatRequest) (*model.Booking, error) {
	if err := e.validate(ctx, req); err != nil {
		return nil, err
	}
	if _, err := e.Sweep(ctx, req.ShowtimeID); err != nil {
		return nil, err
	}
	var booking *model.Booking
	err := e.ledger.WithinSeatTx(ctx, func(tx repository.SeatTx) error {
		ss, err := tx.LockShowSeat(ctx, req.ShowtimeID, req.SeatID)
		if err != nil {
			return err
		}
		now := e.clock()
		if err := checkTransition(ss, req.UserID, now); err != nil {
			return err
		}
		user := req.UserID
		ss.Status = model.StatusBooked
		ss.HolderID = &user
		ss.HoldExpiry = nil
		ss.BookedAt = &now
		if err := tx.UpdateShowSeat(ctx, ss); err != nil {
			return err
		}
		b := &model.Booking{UserID: user, ShowtimeID: req.ShowtimeID, SeatID: req.SeatID, CreatedAt: now}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, e.outcome(ctx, "book", req, err, ReasonAlreadyBooked)
	}
	e.entry(ctx, req).WithField("booking_id", booking.ID).Info("seat booked")
	return booking, nil
}

// checkTransition rejects hold and book attempts on a booked seat or on a
// seat actively held by someone else.  An expired hold that survived the
// sweep counts as available.
func checkTransition(ss *model.ShowSeat, userID uint64, now time.Time) error {
	if ss.Status == model.StatusBooked {
		return conflict(ReasonAlreadyBooked)
	}
	if ss.ActiveHold(now) && !ss.HeldBy(userID) {
		return conflict(ReasonHeldByOther)
	}
	return nil
}

// validate resolves the user, showtime and seat in that order and reports
// the first one that does not exist.
func (e *Engine) validate(ctx context.Context, req SeatRequest) error {
	ok, err := e.users.UserExists(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("lookup user %d: %w", req.UserID, err)
	}
	if !ok {
		return invalid("user_id", "User not found.")
	}
	ok, err = e.catalog.ShowtimeExists(ctx, req.ShowtimeID)
	if err != nil {
		return fmt.Errorf("lookup showtime %d: %w", req.ShowtimeID, err)
	}
	if !ok {
		return invalid("show_id", "Showtime not found.")
	}
	ok, err = e.catalog.HasSeat(ctx, req.ShowtimeID, req.SeatID)
	if err != nil {
		return fmt.Errorf("lookup seat %d: %w", req.SeatID, err)
	}
	if !ok {
		return invalid("seat_id", "Seat not part of this showtime.")
	}
	return nil
}

// outcome maps a failed transaction to the error returned to callers.
// Conflicts pass through, a storage uniqueness violation becomes a
// conflict with dupReason and anything else is wrapped as unexpected.
func (e *Engine) outcome(ctx context.Context, op string, req SeatRequest, err error, dupReason string) error {
	var ce *ConflictError
	switch {
	case errors.As(err, &ce):
		e.entry(ctx, req).WithField("reason", ce.Reason).Info(op + " rejected")
		return err
	case errors.Is(err, repository.ErrDuplicateBooking):
		e.entry(ctx, req).Warn(op + " lost a race at commit")
		return conflict(dupReason)
	case errors.Is(err, repository.ErrShowSeatNotFound):
		return invalid("seat_id", "Seat not part of this showtime.")
	}
	return fmt.Errorf("%s seat %d of showtime %d: %w", op, req.SeatID, req.ShowtimeID, err)
}

func (e *Engine) entry(ctx context.Context, req SeatRequest) *logrus.Entry {
	return e.log.WithContext(ctx).WithFields(logrus.Fields{
		"show_id": req.ShowtimeID,
		"seat_id": req.SeatID,
		"user_id": req.UserID,
	})
}
