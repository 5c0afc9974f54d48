package kafka_config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Brokers  []string
	Producer ProducerConfig
	Consumer ConsumerConfig
}

// ProducerConfig tunes the writer the notifier publishes slot changes with.
type ProducerConfig struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	Compression  string // none, gzip, snappy, lz4, zstd
	Async        bool
}

// ConsumerConfig tunes the partition readers behind watcher change feeds.
type ConsumerConfig struct {
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration
}

// FromEnv reads the Kafka settings. Callers validate.
func FromEnv() *Config {
	return &Config{
		Brokers: splitBrokers(getEnvStr(EnvKafkaBrokers, DefaultBrokers)),
		Producer: ProducerConfig{
			MaxAttempts:  getEnvInt(EnvProducerMaxAttempts, DefaultProducerMaxAttempts),
			BatchTimeout: getEnvDuration(EnvProducerBatchTimeout, DefaultProducerBatchTimeout),
			RequireAcks:  getEnvInt(EnvProducerRequireAcks, DefaultProducerRequireAcks),
			Compression:  strings.ToLower(getEnvStr(EnvProducerCompression, DefaultProducerCompression)),
			Async:        getEnvBool(EnvProducerAsync, DefaultProducerAsync),
		},
		Consumer: ConsumerConfig{
			MinBytes: DefaultConsumerMinBytes,
			MaxBytes: getEnvInt(EnvConsumerMaxBytes, DefaultConsumerMaxBytes),
			MaxWait:  getEnvDuration(EnvConsumerMaxWait, DefaultConsumerMaxWait),
		},
	}
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func (cfg *Config) Validate() error {
	var errors []string
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}

	p := cfg.Producer
	if p.MaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("Producer.MaxAttempts must be positive, got: %d", p.MaxAttempts))
	}
	positive("Producer.BatchTimeout", p.BatchTimeout)
	if !slices.Contains(compressions, p.Compression) {
		errors = append(errors, fmt.Sprintf("Producer.Compression must be one of %v, got: %s", compressions, p.Compression))
	}
	if p.RequireAcks < -1 || p.RequireAcks > 1 {
		errors = append(errors, fmt.Sprintf("Producer.RequireAcks must be -1, 0, or 1, got: %d", p.RequireAcks))
	}

	c := cfg.Consumer
	if c.MinBytes <= 0 || c.MaxBytes < c.MinBytes {
		errors = append(errors, fmt.Sprintf("Consumer.MaxBytes (%d) must be >= MinBytes (%d) > 0", c.MaxBytes, c.MinBytes))
	}
	positive("Consumer.MaxWait", c.MaxWait)

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}
	return nil
}

func (cfg *Config) LogConfiguration(logFunc func(msg string, args ...any)) {
	if logFunc == nil {
		return
	}

	logFunc("Kafka configuration loaded successfully",
		"brokers", cfg.Brokers,
		"producer_max_attempts", cfg.Producer.MaxAttempts,
		"producer_require_acks", cfg.Producer.RequireAcks,
		"producer_compression", cfg.Producer.Compression,
		"producer_async", cfg.Producer.Async,
		"consumer_max_bytes", cfg.Consumer.MaxBytes,
		"consumer_max_wait", cfg.Consumer.MaxWait,
	)
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
