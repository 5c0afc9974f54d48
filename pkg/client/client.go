package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"testdrive/pkg/logger"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	postgresRetryDelay = 2 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// Client holds the store connections a service was configured with. Unused
// drivers stay nil.
type Client struct {
	Mongo    *mongo.Client
	Redis    *redis.Client
	Postgres *sql.DB
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

func (c *Client) SetRedis(log *logger.Logger, addr, password string, db int) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", "error", err, "addr", addr)
	}

	log.Info("Successfully connected to Redis", "addr", addr, "db", db)
	c.Redis = client
}

// SetPostgres retries while the database comes up, which is common when the
// service and the database start together.
func (c *Client) SetPostgres(log *logger.Logger, dsn string, maxRetries int) {
	db, err := ConnectPostgres(log, dsn, maxRetries, postgresRetryDelay)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}
	c.Postgres = db
}

func ConnectPostgres(log *logger.Logger, dsn string, maxRetries int, delay time.Duration) (*sql.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = db.PingContext(ctx)
			cancel()
			if err == nil {
				db.SetMaxOpenConns(25)
				db.SetMaxIdleConns(25)
				db.SetConnMaxLifetime(5 * time.Minute)
				log.Info("Successfully connected to PostgreSQL", "attempt", attempt)
				return db, nil
			}
			_ = db.Close()
		}

		lastErr = err
		log.Warn("PostgreSQL not ready yet", "attempt", attempt, "max_retries", maxRetries, "error", err)
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", maxRetries, lastErr)
}

// Ping checks every configured connection and reports failures by store name.
func (c *Client) Ping(ctx context.Context) map[string]error {
	results := make(map[string]error)
	if c.Mongo != nil {
		results["mongo"] = c.Mongo.Ping(ctx, nil)
	}
	if c.Redis != nil {
		results["redis"] = c.Redis.Ping(ctx).Err()
	}
	if c.Postgres != nil {
		results["postgres"] = c.Postgres.PingContext(ctx)
	}
	return results
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			log.Error("Failed to close PostgreSQL pool", "error", err)
		}
	}
	log.Info("Store connections closed")
}
