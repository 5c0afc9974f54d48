package kafka

import (
	"context"
	"errors"
	"testing"

	kafka_config "testdrive/pkg/kafka/config"
	"testdrive/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(context.Context, Message) error { return nil }

func TestNewConsumer_ReadsEveryPartitionWithoutGroup(t *testing.T) {
	cfg := kafka_config.FromEnv()
	cfg.Brokers = []string{"localhost:1"}

	var askedTopic string
	lookup := func(_ context.Context, _ []string, topic string) ([]int, error) {
		askedTopic = topic
		return []int{0, 1, 2}, nil
	}

	c, err := newConsumer(context.Background(), cfg, "slot-events", nopHandler, logger.Discard(), lookup)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "slot-events", askedTopic)
	require.Len(t, c.readers, 3)
	for i, reader := range c.readers {
		assert.Equal(t, i, reader.Config().Partition)
		assert.Empty(t, reader.Config().GroupID)
	}
}

func TestNewConsumer_LookupFailure(t *testing.T) {
	cfg := kafka_config.FromEnv()
	lookup := func(context.Context, []string, string) ([]int, error) {
		return nil, errors.New("connection refused")
	}

	_, err := newConsumer(context.Background(), cfg, "slot-events", nopHandler, logger.Discard(), lookup)
	assert.ErrorContains(t, err, "connection refused")

	empty := func(context.Context, []string, string) ([]int, error) { return nil, nil }
	_, err = newConsumer(context.Background(), cfg, "slot-events", nopHandler, logger.Discard(), empty)
	assert.ErrorContains(t, err, "no partitions")
}

func TestConsumer_MiddlewareWrapsHandler(t *testing.T) {
	var order []string
	c := &Consumer{handler: func(context.Context, Message) error {
		order = append(order, "handler")
		return nil
	}}
	c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		order = append(order, "outer")
		return next(ctx, msg)
	})
	c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		order = append(order, "inner")
		return next(ctx, msg)
	})

	require.NoError(t, c.processMessage(context.Background(), Message{Key: "car1"}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestConsumer_StartAfterClose(t *testing.T) {
	c := &Consumer{handler: nopHandler}
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Start(context.Background()), ErrConsumerClosed)
}
