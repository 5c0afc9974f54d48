package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"testdrive/pkg/client"
	kafka_config "testdrive/pkg/kafka/config"
	"testdrive/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN        string
	PostgresMaxRetries int

	Port string

	HoldStore    string
	BookingStore string

	HoldDuration  time.Duration
	SweepInterval time.Duration

	KafkaEnabled       bool
	SlotEventsTopic    string
	SlotEventsDLQTopic string
	PublishTimeout     time.Duration
	Kafka              *kafka_config.Config

	MigrateOnStart bool

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the environment (and a .env file when present), validates it and
// exits the process on invalid configuration.
func Load(serviceName string) *Config {
	envFileErr := godotenv.Load()

	cfg := FromEnv(serviceName)
	if envFileErr == nil {
		cfg.Log.Debug("Loaded environment from .env file")
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func FromEnv(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		PostgresDSN:        getEnvStr(EnvPostgresDSN, DefaultPostgresDSN),
		PostgresMaxRetries: getEnvNum(EnvPostgresMaxRetries, DefaultPostgresMaxRetries),

		Port: getEnvStr(EnvPort, DefaultPort),

		HoldStore:    strings.ToLower(getEnvStr(EnvHoldStore, DefaultHoldStore)),
		BookingStore: strings.ToLower(getEnvStr(EnvBookingStore, DefaultBookingStore)),

		HoldDuration:  getEnvDuration(EnvHoldDuration, DefaultHoldDuration),
		SweepInterval: getEnvDuration(EnvSweepInterval, DefaultSweepInterval),

		KafkaEnabled:       getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		SlotEventsTopic:    getEnvStr(EnvSlotEventsTopic, DefaultSlotEventsTopic),
		SlotEventsDLQTopic: getEnvStr(EnvSlotEventsDLQTopic, DefaultSlotEventsDLQTopic),
		PublishTimeout:     getEnvDuration(EnvPublishTimeout, DefaultPublishTimeout),

		MigrateOnStart: getEnvBool(EnvMigrateOnStart, DefaultMigrateOnStart),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if cfg.KafkaEnabled {
		cfg.Kafka = kafka_config.FromEnv()
	}
	return cfg
}

// UsesStore reports whether any store is backed by the given driver.
func (cfg *Config) UsesStore(driver string) bool {
	return cfg.HoldStore == driver || cfg.BookingStore == driver
}

// SetStores opens a connection for every driver the configured stores need.
// Schedules always live in Mongo unless everything runs in memory.
func (cfg *Config) SetStores() {
	if cfg.ScheduleStore() == StoreMongo {
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
	}
	if cfg.HoldStore == StoreRedis {
		cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	if cfg.BookingStore == StorePostgres {
		cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN, cfg.PostgresMaxRetries)
	}
}

// ScheduleStore reports where the schedule document lives. It follows the
// other stores into memory only when both of them run there.
func (cfg *Config) ScheduleStore() string {
	if cfg.HoldStore == StoreMemory && cfg.BookingStore == StoreMemory {
		return StoreMemory
	}
	return StoreMongo
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.HoldStore {
	case StoreMongo, StoreRedis, StoreMemory:
	default:
		errors = append(errors, fmt.Sprintf("HoldStore must be one of [mongo, redis, memory], got: %s", cfg.HoldStore))
	}
	switch cfg.BookingStore {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		errors = append(errors, fmt.Sprintf("BookingStore must be one of [mongo, postgres, memory], got: %s", cfg.BookingStore))
	}

	if cfg.ScheduleStore() == StoreMongo {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}

	if cfg.HoldStore == StoreRedis {
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when HoldStore is redis")
		}
		if cfg.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
		}
	}

	if cfg.BookingStore == StorePostgres {
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresDSN) {
			errors = append(errors, fmt.Sprintf("PostgresDSN must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresDSN)))
		}
		if cfg.PostgresMaxRetries <= 0 {
			errors = append(errors, fmt.Sprintf("PostgresMaxRetries must be positive, got: %d", cfg.PostgresMaxRetries))
		}
	}

	if cfg.HoldDuration <= 0 {
		errors = append(errors, fmt.Sprintf("HoldDuration must be positive, got: %s", cfg.HoldDuration))
	}
	if cfg.SweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("SweepInterval must be positive, got: %s", cfg.SweepInterval))
	}

	if cfg.KafkaEnabled {
		if cfg.SlotEventsTopic == "" {
			errors = append(errors, "SlotEventsTopic cannot be empty when Kafka is enabled")
		}
		if cfg.PublishTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("PublishTimeout must be positive, got: %s", cfg.PublishTimeout))
		}
		if cfg.Kafka != nil {
			if err := cfg.Kafka.Validate(); err != nil {
				errors = append(errors, fmt.Sprintf("Kafka: %s", strings.TrimSpace(err.Error())))
			}
		}
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"postgres_dsn", redactURI(cfg.PostgresDSN),
		"port", cfg.Port,
		"hold_store", cfg.HoldStore,
		"booking_store", cfg.BookingStore,
		"hold_duration", cfg.HoldDuration,
		"sweep_interval", cfg.SweepInterval,
		"kafka_enabled", cfg.KafkaEnabled,
		"slot_events_topic", cfg.SlotEventsTopic,
		"migrate_on_start", cfg.MigrateOnStart,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

var credentialRegex = regexp.MustCompile(`^([a-z+]+://)[^:/@]+:[^@]+@`)

func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
