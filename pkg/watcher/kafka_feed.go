package watcher

import (
	"context"
	"fmt"

	"testdrive/pkg/kafka"
	kafka_config "testdrive/pkg/kafka/config"
	kafka_middleware "testdrive/pkg/kafka/middleware"
	"testdrive/pkg/logger"
	"testdrive/pkg/model"
)

// KafkaFeed follows the slot events topic from its newest offset. It joins no
// consumer group, so every watcher sees every event and leaves nothing on the
// broker when it stops.
type KafkaFeed struct {
	cfg   *kafka_config.Config
	topic string
	log   *logger.Logger
}

func NewKafkaFeed(cfg *kafka_config.Config, topic string, log *logger.Logger) *KafkaFeed {
	return &KafkaFeed{
		cfg:   cfg,
		topic: topic,
		log:   log,
	}
}

func (f *KafkaFeed) Run(ctx context.Context, resourceID, date string, notify func(model.SlotChange)) error {
	consumer, err := kafka.NewConsumer(ctx, f.cfg, f.topic, changeHandler(resourceID, date, notify, f.log), f.log)
	if err != nil {
		return fmt.Errorf("failed to create change feed consumer: %w", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(f.log))
	defer func() {
		if err := consumer.Close(); err != nil {
			f.log.Warn("Failed to close change feed consumer", "error", err)
		}
	}()

	f.log.Info("Following slot change feed", "topic", f.topic)
	return consumer.Start(ctx)
}

// changeHandler never fails a message: a signal that cannot be read is
// dropped and the next poll covers it.
func changeHandler(resourceID, date string, notify func(model.SlotChange), log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var change model.SlotChange
		if err := msg.DecodeValue(&change); err != nil {
			log.Warn("Ignoring unreadable slot change", "offset", msg.Offset, "error", err)
			return nil
		}
		if change.Affects(resourceID, date) {
			notify(change)
		}
		return nil
	}
}
