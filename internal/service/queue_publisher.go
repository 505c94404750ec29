// Package service holds outbound integrations used by the HTTP layer.
// Publish errors are logged and returned so callers can ignore them
// without interrupting the request flow.
package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/showtime-seat-reservation/internal/queue"
)

// BookingPublisher sends booking.confirmed events to RabbitMQ.
type BookingPublisher struct {
    url string
    log *logrus.Logger
}

// NewBookingPublisher returns a publisher for the broker at url.
func NewBookingPublisher(url string, log *logrus.Logger) *BookingPublisher {
    return &BookingPublisher{url: url, log: log}
}

// PublishBookingConfirmed publishes event to the booking.confirmed queue
// as a persistent JSON message.  Each call dials its own connection;
// bookings are rare enough that pooling is not worth the reconnect logic.
func (p *BookingPublisher) PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error {
    entry := p.log.WithContext(ctx).WithField("booking_id", event.BookingID)

    conn, err := amqp.Dial(p.url)
    if err != nil {
        entry.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        entry.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(queue.BookingConfirmedQueue, true, false, false, false, nil); err != nil {
        entry.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        entry.WithError(err).Warn("rabbitmq: marshal event failed")
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue.BookingConfirmedQueue, false, false, pub); err != nil {
        entry.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    entry.Debug("booking.confirmed published")
    return nil
}
