package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"feedshop/internal/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const (
	TypeOrderFinalized = "order.finalized"
	TypeOrderEdited    = "order.edited"
)

type Event struct {
	ID         string             `json:"eventId"`
	Type       string             `json:"eventType"`
	OccurredAt time.Time          `json:"occurredAt"`
	InvoiceID  int64              `json:"invoiceId"`
	Total      string             `json:"total"`
	Lines      []domain.OrderLine `json:"lines"`
}

func NewOrderEvent(typ string, o domain.Order) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		InvoiceID:  o.InvoiceID,
		Total:      o.Total().StringFixed(2),
		Lines:      o.Lines,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by invoice id so every event for one
// order lands on the same partition. A breaker stops hammering a dead
// broker; while open, Publish fails fast.
type KafkaPublisher struct {
	w  messageWriter
	cb *gobreaker.CircuitBreaker[struct{}]
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	})
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		w: w,
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "kafka-orders",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		}),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.InvoiceID, 10)),
		Value: body,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(ev.Type)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}
	_, err = p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.w.WriteMessages(ctx, msg)
	})
	return err
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
