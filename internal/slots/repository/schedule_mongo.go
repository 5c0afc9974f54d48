package repository

import (
	"context"
	"errors"
	"fmt"

	slotserrors "testdrive/internal/slots/errors"
	"testdrive/pkg/config"
	mongodb "testdrive/pkg/db/mongo"
	"testdrive/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SchedulesCollectionName = "Schedules"

type mongoScheduleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoScheduleRepository(cfg *config.Config) ScheduleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoScheduleRepository{
		cfg:        cfg,
		collection: db.Collection(SchedulesCollectionName),
	}
}

func (r *mongoScheduleRepository) Get(ctx context.Context, id string) (*model.Schedule, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var schedule model.Schedule
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&schedule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to find schedule: %w", err)
	}
	return &schedule, nil
}

func (r *mongoScheduleRepository) Save(ctx context.Context, schedule *model.Schedule) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	schedule.UpdatedAt = mongodb.StoredTime(schedule.UpdatedAt)

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": schedule.ID}, schedule, opts); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}
