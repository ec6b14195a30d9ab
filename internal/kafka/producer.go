package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skyfare/internal/events"
	"skyfare/internal/logging"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

func NewProducer(brokers []string, topic string, logger *zerolog.Logger) *Producer {
	l := logging.Component(logger, "kafka")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, log: l}
}

func (p *Producer) Publish(ctx context.Context, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	p.log.Debug().Str("key", key).Msg("published event to kafka")
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

type envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Relay subscribes the producer to every event type on the bus. Delivery is
// best effort: a broker outage must not fail the booking flow that emitted
// the event.
func Relay(bus *events.EventBus, p *Producer) {
	handler := func(ev *events.Event) error {
		msg := envelope{ID: ev.ID, Type: ev.Type, Payload: ev.Payload, CreatedAt: ev.CreatedAt}
		if err := p.Publish(context.Background(), ev.Type, msg); err != nil {
			p.log.Warn().Err(err).Str("event_type", ev.Type).Msg("kafka relay failed")
		}
		return nil
	}
	for _, t := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingCancelled,
		events.EventSeatAssigned,
		events.EventSeatReleased,
	} {
		bus.Subscribe(t, handler)
	}
}
