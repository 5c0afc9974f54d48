package kafka_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " kafka-1:9092, ,kafka-2:9092 ")

	cfg := FromEnv()

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	assert.Equal(t, DefaultProducerCompression, cfg.Producer.Compression)
	assert.Equal(t, DefaultConsumerMaxBytes, cfg.Consumer.MaxBytes)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvProducerCompression, "ZSTD")
	t.Setenv(EnvProducerRequireAcks, "-1")
	t.Setenv(EnvConsumerMaxWait, "1s")
	t.Setenv(EnvConsumerMaxBytes, "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, "zstd", cfg.Producer.Compression)
	assert.Equal(t, -1, cfg.Producer.RequireAcks)
	assert.Equal(t, time.Second, cfg.Consumer.MaxWait)
	assert.Equal(t, DefaultConsumerMaxBytes, cfg.Consumer.MaxBytes)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "no brokers", mutate: func(c *Config) { c.Brokers = nil }, wantErr: "broker"},
		{name: "unknown compression", mutate: func(c *Config) { c.Producer.Compression = "brotli" }, wantErr: "Producer.Compression"},
		{name: "bad acks", mutate: func(c *Config) { c.Producer.RequireAcks = 2 }, wantErr: "Producer.RequireAcks"},
		{name: "max bytes below min", mutate: func(c *Config) { c.Consumer.MaxBytes = 0 }, wantErr: "Consumer.MaxBytes"},
		{name: "no max wait", mutate: func(c *Config) { c.Consumer.MaxWait = 0 }, wantErr: "Consumer.MaxWait"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
