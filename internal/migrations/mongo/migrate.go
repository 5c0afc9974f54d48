package mongo

import (
	"context"
	"fmt"

	"testdrive/internal/migrations/mongo/validators"
	"testdrive/internal/slots/repository"
	"testdrive/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BookingsSlotIndexName is the unique index that rejects a second booking of
// the same slot.
const BookingsSlotIndexName = "bookings_slot_unique"

var (
	// A zero TTL removes a hold once expires_at has passed. The TTL monitor
	// runs about once a minute; reads filter on expires_at regardless.
	HoldsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("holds_expiry_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetName("holds_session"),
		},
		{
			Keys: bson.D{
				{Key: "resource_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetName("holds_grid"),
		},
	}

	BookingsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "resource_id", Value: 1},
				{Key: "date", Value: 1},
				{Key: "time_label", Value: 1},
			},
			Options: options.Index().SetName(BookingsSlotIndexName).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "registration_id", Value: 1}},
			Options: options.Index().SetName("bookings_registration"),
		},
		{
			Keys: bson.D{
				{Key: "created_at", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("bookings_created"),
		},
	}
)

type collectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func collections() []collectionDef {
	return []collectionDef{
		{
			Name:      repository.HoldsCollectionName,
			Indexes:   HoldsIndexes,
			Validator: validators.HoldValidator,
		},
		{
			Name:      repository.BookingsCollectionName,
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		{
			Name:      repository.SchedulesCollectionName,
			Validator: validators.ScheduleValidator,
		},
	}
}

// RunMigration is idempotent: existing collections get their validator
// refreshed and missing indexes created.
func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("Mongo migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}

type indexLister interface {
	ListSpecifications(ctx context.Context, opts ...*options.ListIndexesOptions) ([]*mongo.IndexSpecification, error)
}

// VerifyBookingIndexes fails when the unique slot index is absent, which is
// the case until RunMigration has run against db.
func VerifyBookingIndexes(ctx context.Context, db *mongo.Database) error {
	return verifyUniqueIndex(ctx, db.Collection(repository.BookingsCollectionName).Indexes(), BookingsSlotIndexName)
}

func verifyUniqueIndex(ctx context.Context, lister indexLister, name string) error {
	specs, err := lister.ListSpecifications(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}
	for _, spec := range specs {
		if spec.Name != name {
			continue
		}
		if spec.Unique == nil || !*spec.Unique {
			return fmt.Errorf("index %s is not unique", name)
		}
		return nil
	}
	return fmt.Errorf("index %s is missing", name)
}
