// Package events publishes booking lifecycle notifications to Kafka. Delivery
// is best effort: publishing happens after the state change is committed and a
// broker outage never rolls back or blocks a booking operation.
package events

//go:generate go run go.uber.org/mock/mockgen -source=./publisher.go -destination=./mocks/publisher_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"carhive/config"
	"carhive/infras/kafka"
)

// BookingEvent is the notification payload emitted on every booking state
// change. Consumers key on BookingID for per-booking ordering.
type BookingEvent struct {
	BookingID   string    `json:"booking_id"`
	VehicleID   string    `json:"vehicle_id"`
	VehicleName string    `json:"vehicle_name,omitempty"`
	RenterID    string    `json:"renter_id"`
	Status      string    `json:"status"`
	TotalAmount int64     `json:"total_amount"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishBookingEvent(ctx context.Context, event BookingEvent) error
}

type publisherImpl struct {
	client kafka.Client
	cfg    *config.Config
}

func NewPublisher(client kafka.Client, cfg *config.Config) Publisher {
	return &publisherImpl{
		client: client,
		cfg:    cfg,
	}
}

func (p *publisherImpl) PublishBookingEvent(ctx context.Context, event BookingEvent) error {
	err := p.client.SendMessages(ctx, p.cfg.Kafka.Topics.BookingEvents, kafka.Message{
		Key:   event.BookingID,
		Value: event,
	})
	if err != nil {
		log.Error().Err(err).Str("bookingID", event.BookingID).Msg("failed to publish booking event")

		return fmt.Errorf("failed to publish booking event: %w", err)
	}

	return nil
}
