package broker

import (
	"context"

	"airline/pkg/envelope"
	"airline/pkg/models"
)

const headquartersService = "headquarters"

// Publisher is the part of Broker the flight publisher needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, env envelope.Envelope) error
}

// FlightPublisher announces new flights on a Redis channel.
type FlightPublisher struct {
	pub     Publisher
	channel string
}

func NewFlightPublisher(pub Publisher, channel string) *FlightPublisher {
	return &FlightPublisher{pub: pub, channel: channel}
}

func (p *FlightPublisher) PublishFlightCreated(ctx context.Context, flight models.Flight) error {
	env, err := envelope.NewEvent(envelope.ActionFlightCreated, headquartersService, models.NewFlightCreatedEvent(flight))
	if err != nil {
		return err
	}
	return p.pub.Publish(ctx, p.channel, env)
}
