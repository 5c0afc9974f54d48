package kafka_config

import "time"

const (
	DefaultBrokers = "localhost:9092"

	// Slot changes are small and latency matters more than batching.
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = 1
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	// Change-feed readers only care about what happens after they start.
	DefaultConsumerMinBytes = 1
	DefaultConsumerMaxBytes = 1 << 20
	DefaultConsumerMaxWait  = 250 * time.Millisecond
)

var compressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}
