package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"testdrive/pkg/config"
	"testdrive/pkg/kafka"
	kafka_middleware "testdrive/pkg/kafka/middleware"
	"testdrive/pkg/logger"
	"testdrive/pkg/middleware"
	"testdrive/pkg/model"
)

const (
	source        = "slots"
	schemaVersion = "1"
	scheduleKey   = "schedule"
)

// Notifier broadcasts best-effort change signals. Delivery failures never
// reach the caller.
type Notifier interface {
	Notify(ctx context.Context, change model.SlotChange)
	Close() error
}

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// New returns a Kafka-backed notifier when Kafka is enabled and Nop otherwise.
func New(cfg *config.Config) (Notifier, error) {
	if !cfg.KafkaEnabled {
		return Nop{}, nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.SlotEventsTopic, cfg.SlotEventsDLQTopic, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot events producer: %w", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	return NewKafkaNotifier(producer, cfg.PublishTimeout, cfg.Log), nil
}

type KafkaNotifier struct {
	publisher Publisher
	timeout   time.Duration
	log       *logger.Logger
	wg        sync.WaitGroup
}

func NewKafkaNotifier(publisher Publisher, timeout time.Duration, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		timeout:   timeout,
		log:       log,
	}
}

// Notify publishes in the background, detached from ctx so a finished
// request does not cancel the send.
func (n *KafkaNotifier) Notify(ctx context.Context, change model.SlotChange) {
	key := change.ResourceID
	if key == "" {
		key = scheduleKey
	}

	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(change).
		WithEventType(string(change.Action)).
		WithSchemaVersion(schemaVersion).
		WithSource(source).
		WithCorrelationID(middleware.RequestID(ctx)).
		WithTimestamp(change.OccurredAt).
		BuildE()
	if err != nil {
		n.log.Warn("Failed to encode slot change", "action", change.Action, "error", err)
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		if err := n.publisher.Publish(pubCtx, msg); err != nil {
			n.log.Warn("Failed to publish slot change",
				"action", change.Action,
				"resource_id", change.ResourceID,
				"date", change.Date,
				"error", err,
			)
		}
	}()
}

// Close waits for in-flight publishes before closing the producer.
func (n *KafkaNotifier) Close() error {
	n.wg.Wait()
	return n.publisher.Close()
}

type Nop struct{}

func (Nop) Notify(context.Context, model.SlotChange) {}

func (Nop) Close() error { return nil }
