package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kafka_config "testdrive/pkg/kafka/config"
	"testdrive/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const fetchBackoff = 1 * time.Second

// Consumer tails a topic without joining a consumer group. It reads every
// partition from the newest offset and never commits, so a stopped consumer
// leaves nothing behind on the broker.
type Consumer struct {
	readers    []*kafka.Reader
	topic      string
	handler    MessageHandler
	log        *logger.Logger
	middleware []ConsumerMiddleware
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

// PartitionLookup lists the partition ids of topic.
type PartitionLookup func(ctx context.Context, brokers []string, topic string) ([]int, error)

func NewConsumer(ctx context.Context, cfg *kafka_config.Config, topic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	return newConsumer(ctx, cfg, topic, handler, log, LookupPartitions)
}

func newConsumer(ctx context.Context, cfg *kafka_config.Config, topic string, handler MessageHandler, log *logger.Logger, lookup PartitionLookup) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	if log == nil {
		log = logger.Discard()
	}

	partitions, err := lookup(ctx, cfg.Brokers, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions of %s: %w", topic, err)
	}
	if len(partitions) == 0 {
		return nil, fmt.Errorf("topic %s has no partitions", topic)
	}

	consumer := &Consumer{
		topic:      topic,
		handler:    handler,
		log:        log,
		middleware: make([]ConsumerMiddleware, 0),
	}
	for _, partition := range partitions {
		errorLogger := kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error(fmt.Sprintf(msg, args...), "topic", topic, "partition", partition)
		})
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			Partition:   partition,
			MinBytes:    cfg.Consumer.MinBytes,
			MaxBytes:    cfg.Consumer.MaxBytes,
			MaxWait:     cfg.Consumer.MaxWait,
			Logger:      kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger: errorLogger,
		})
		consumer.readers = append(consumer.readers, reader)
		if err := reader.SetOffset(kafka.LastOffset); err != nil {
			_ = consumer.Close()
			return nil, fmt.Errorf("failed to seek partition %d: %w", partition, err)
		}
	}

	return consumer, nil
}

// LookupPartitions asks each broker in turn for the partitions of topic.
func LookupPartitions(ctx context.Context, brokers []string, topic string) ([]int, error) {
	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		partitions, err := conn.ReadPartitions(topic)
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}

		ids := make([]int, 0, len(partitions))
		for _, p := range partitions {
			ids = append(ids, p.ID)
		}
		return ids, nil
	}
	return nil, lastErr
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start reads every partition until ctx is cancelled. A handler error is
// logged and the message is skipped.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(len(c.readers))
	c.mu.RUnlock()

	for _, reader := range c.readers {
		go func(reader *kafka.Reader) {
			defer c.wg.Done()
			c.tail(ctx, reader)
		}(reader)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) tail(ctx context.Context, reader *kafka.Reader) {
	for {
		kafkaMsg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if c.isClosed() {
				return
			}
			c.log.Warn("Kafka read failed, backing off", "topic", c.topic, "partition", reader.Config().Partition, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchBackoff):
			}
			continue
		}

		msg := convertMessage(kafkaMsg)
		if err := c.processMessage(ctx, msg); err != nil {
			c.log.Warn("Kafka message skipped",
				"topic", c.topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"event_id", msg.GetEventID(),
				"error", err,
			)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg Message) error {
	c.mu.RLock()
	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}
	c.mu.RUnlock()

	return handler(ctx, msg)
}

func (c *Consumer) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func convertMessage(kafkaMsg kafka.Message) Message {
	msg := Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
	}
	for _, header := range kafkaMsg.Headers {
		msg.Headers[header.Key] = string(header.Value)
	}
	return msg
}

// Close stops the readers and waits for Start's goroutines to return.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var errs []error
	for _, reader := range c.readers {
		if err := reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.wg.Wait()
	return errors.Join(errs...)
}
