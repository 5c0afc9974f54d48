package kafka_config

const (
	EnvKafkaBrokers = "KAFKA_BROKERS"

	// Notifier side.
	EnvProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvProducerAsync        = "KAFKA_PRODUCER_ASYNC"

	// Watcher side.
	EnvConsumerMaxBytes = "KAFKA_CONSUMER_MAX_BYTES"
	EnvConsumerMaxWait  = "KAFKA_CONSUMER_MAX_WAIT"
)
