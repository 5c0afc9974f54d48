package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "testdrive/internal/slots/errors"
	"testdrive/pkg/config"
	mongodb "testdrive/pkg/db/mongo"
	"testdrive/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const HoldsCollectionName = "Holds"

type mongoHoldRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

// NewMongoHoldRepository stores one document per slot key with the key's
// composite id as _id, so the primary index enforces hold uniqueness.
func NewMongoHoldRepository(cfg *config.Config) HoldRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoHoldRepository{
		cfg:        cfg,
		collection: db.Collection(HoldsCollectionName),
	}
}

func (r *mongoHoldRepository) Insert(ctx context.Context, hold *model.Hold) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	hold.ID = hold.SlotKey.ID()
	hold.CreatedAt = mongodb.StoredTime(hold.CreatedAt)
	hold.ExpiresAt = mongodb.StoredTime(hold.ExpiresAt)

	if _, err := r.collection.InsertOne(ctx, hold); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return slotserrors.ErrHoldExists
		}
		return fmt.Errorf("failed to insert hold: %w", err)
	}
	return nil
}

func (r *mongoHoldRepository) Find(ctx context.Context, key model.SlotKey) (*model.Hold, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var hold model.Hold
	err := r.collection.FindOne(ctx, bson.M{"_id": key.ID()}).Decode(&hold)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find hold: %w", err)
	}
	return &hold, nil
}

func (r *mongoHoldRepository) Refresh(ctx context.Context, hold *model.Hold) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	hold.ID = hold.SlotKey.ID()
	hold.CreatedAt = mongodb.StoredTime(hold.CreatedAt)
	hold.ExpiresAt = mongodb.StoredTime(hold.ExpiresAt)

	filter := bson.M{"_id": hold.ID, "session_id": hold.SessionID}
	update := bson.M{
		"$set": bson.M{
			"created_at": hold.CreatedAt,
			"expires_at": hold.ExpiresAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to refresh hold: %w", err)
	}
	if result.MatchedCount == 0 {
		return slotserrors.ErrNotFound
	}
	return nil
}

func (r *mongoHoldRepository) Delete(ctx context.Context, key model.SlotKey, sessionID string) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": key.ID(), "session_id": sessionID})
	if err != nil {
		return false, fmt.Errorf("failed to delete hold: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoHoldRepository) DeleteSuperseded(ctx context.Context, key model.SlotKey, newer *model.Hold) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id := key.ID()
	createdAt := mongodb.StoredTime(newer.CreatedAt)
	older := bson.A{bson.M{"created_at": bson.M{"$lt": createdAt}}}
	if id < newer.SlotKey.ID() {
		older = append(older, bson.M{"created_at": createdAt})
	}

	filter := bson.M{
		"_id":        id,
		"session_id": newer.SessionID,
		"$or":        older,
	}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete superseded hold: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoHoldRepository) DeleteIfExpired(ctx context.Context, key model.SlotKey, now time.Time) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":        key.ID(),
		"expires_at": bson.M{"$lte": mongodb.StoredTime(now)},
	}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete expired hold: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoHoldRepository) DeleteBySession(ctx context.Context, sessionID string) ([]model.SlotKey, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"session_id": sessionID}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find session holds: %w", err)
	}
	defer cursor.Close(ctx)

	var holds []*model.Hold
	if err = cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("failed to decode session holds: %w", err)
	}
	if len(holds) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(holds))
	keys := make([]model.SlotKey, 0, len(holds))
	for _, h := range holds {
		ids = append(ids, h.ID)
		keys = append(keys, h.SlotKey)
	}

	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}, "session_id": sessionID}); err != nil {
		return nil, fmt.Errorf("failed to delete session holds: %w", err)
	}
	return keys, nil
}

func (r *mongoHoldRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": mongodb.StoredTime(now)}})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired holds: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoHoldRepository) FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Hold, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"resource_id": resourceID, "date": date})
	if err != nil {
		return nil, fmt.Errorf("failed to find holds: %w", err)
	}
	defer cursor.Close(ctx)

	holds := make([]*model.Hold, 0)
	if err = cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("failed to decode holds: %w", err)
	}
	return holds, nil
}
