package kafka

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder(t *testing.T) {
	at := time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC)
	msg, err := NewMessage().
		WithKey("car1").
		WithValue(map[string]string{"action": "hold.acquired"}).
		WithEventType("hold.acquired").
		WithSource("slots").
		WithTimestamp(at).
		BuildE()

	require.NoError(t, err)
	assert.Equal(t, "car1", msg.Key)
	assert.NotEmpty(t, msg.GetEventID())
	assert.Equal(t, "hold.acquired", msg.GetEventType())
	assert.Equal(t, "2025-12-05T10:00:00Z", msg.Headers[HeaderTimestamp])

	var decoded map[string]string
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, "hold.acquired", decoded["action"])
}

func TestMessageBuilder_EncodingError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(math.Inf(1)).BuildE()
	assert.Error(t, err)
}

func TestProducer_RejectsInvalidMessages(t *testing.T) {
	p := &Producer{topic: "slots"}

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "car1"}), ErrEmptyValue)

	p.closed = true
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "car1", Value: []byte("x")}), ErrProducerClosed)
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := &Producer{topic: "slots"}
	var order []string

	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "outer")
		return errors.New("stop")
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "inner")
		return next(ctx, msg)
	})

	err := p.Publish(context.Background(), Message{Key: "car1", Value: []byte("{}")})
	assert.EqualError(t, err, "stop")
	assert.Equal(t, []string{"outer"}, order)
}
