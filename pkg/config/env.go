package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPostgresDSN        = "POSTGRES_DSN"
	EnvPostgresMaxRetries = "POSTGRES_MAX_RETRIES"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvHoldStore    = "HOLD_STORE"
	EnvBookingStore = "BOOKING_STORE"

	EnvHoldDuration  = "HOLD_DURATION"
	EnvSweepInterval = "SWEEP_INTERVAL"

	EnvKafkaEnabled       = "KAFKA_ENABLED"
	EnvSlotEventsTopic    = "SLOT_EVENTS_TOPIC"
	EnvSlotEventsDLQTopic = "SLOT_EVENTS_DLQ_TOPIC"
	EnvPublishTimeout     = "PUBLISH_TIMEOUT"

	EnvMigrateOnStart = "MIGRATE_ON_START"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
