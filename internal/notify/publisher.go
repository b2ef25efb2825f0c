package notify

import (
	"context"

	"courtside/pkg/kafka"
)

// Publisher pushes domain events to the event stream.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) Publisher {
	return &kafkaPublisher{producer: producer, source: source}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := kafka.NewMessage(event.ReservationID, event.Type, p.source, event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}
