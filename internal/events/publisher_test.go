package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedshop/internal/domain"
)

type fakeWriter struct {
	msgs  []kafka.Message
	err   error
	calls int
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func sampleOrder() domain.Order {
	return domain.Order{
		InvoiceID: 1000,
		Timestamp: time.Now(),
		Lines: []domain.OrderLine{
			{ProductID: "1", Name: "Qora (Cow Feed)", UnitPrice: decimal.RequireFromString("25.00"), Quantity: 2},
			{ProductID: "2", Name: "Vushi (Protein Mix)", UnitPrice: decimal.RequireFromString("35.00"), Quantity: 1},
		},
	}
}

func TestKafkaPublisher_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w)

	require.NoError(t, p.Publish(context.Background(), NewOrderEvent(TypeOrderFinalized, sampleOrder())))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "1000", string(msg.Key))
	assert.Equal(t, "x-event-type", msg.Headers[0].Key)
	assert.Equal(t, TypeOrderFinalized, string(msg.Headers[0].Value))

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "85.00", ev.Total)
	assert.Len(t, ev.Lines, 2)
	assert.NotEmpty(t, ev.ID)
}

func TestKafkaPublisher_BreakerOpensAfterFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unreachable")}
	p := newKafkaPublisher(w)
	ev := NewOrderEvent(TypeOrderEdited, sampleOrder())

	for i := 0; i < 3; i++ {
		assert.Error(t, p.Publish(context.Background(), ev))
	}
	err := p.Publish(context.Background(), ev)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, w.calls, "open breaker must not reach the writer")
}
