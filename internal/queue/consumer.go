package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// DefaultLogPath is where confirmed bookings are appended.
const DefaultLogPath = "logs/booking.log"

// BookingConsumer listens on the booking.confirmed queue and appends one
// line per event to a log file.
type BookingConsumer struct {
    url     string
    logPath string
    log     *logrus.Logger
}

// NewBookingConsumer returns a consumer for the broker at url.  An empty
// logPath selects DefaultLogPath.
func NewBookingConsumer(url, logPath string, log *logrus.Logger) *BookingConsumer {
    if logPath == "" {
        logPath = DefaultLogPath
    }
    return &BookingConsumer{url: url, logPath: logPath, log: log}
}

// Run connects to the broker and consumes until ctx is cancelled.  Dial
// failures and dropped connections are retried with exponential backoff
// capped at 30s; a message that cannot be handled is rejected without
// requeue so it cannot wedge the loop.
func (c *BookingConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.WithError(err).Warnf("booking consumer: dial failed, retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.WithError(err).Warn("booking consumer: consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *BookingConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.WithError(err).Warn("booking consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, BookingConfirmedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.Handle(d.Body); err != nil {
            c.log.WithError(err).Error("booking consumer: handle message failed")
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// Handle decodes one message body and appends it to the booking log.
func (c *BookingConsumer) Handle(body []byte) error {
    var ev BookingConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders ev as a single human readable log line.
func FormatLine(ev BookingConfirmedEvent) string {
    return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | user_id=%d | show_id=%d | seat_id=%d | venue=%q | hall=%q | movie=%q | starts_at=%s\n",
        ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.ShowID, ev.SeatID, ev.VenueName, ev.HallName, ev.MovieTitle, ev.StartsAt)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
