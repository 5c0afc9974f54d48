package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	slotserrors "testdrive/internal/slots/errors"
	"testdrive/pkg/model"

	"github.com/redis/go-redis/v9"
)

const (
	holdKeyPrefix    = "hold:"
	sessionKeyPrefix = "hold:session:"
	gridKeyPrefix    = "hold:grid:"
)

// refreshScript rewrites a hold only while ARGV[1] owns it.
var refreshScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return 0 end
if cjson.decode(v)['session_id'] ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// releaseScript deletes a hold only while ARGV[1] owns it and returns the
// deleted payload.
var releaseScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return false end
if cjson.decode(v)['session_id'] ~= ARGV[1] then return false end
redis.call('DEL', KEYS[1])
return v
`)

// supersedeScript deletes a hold only while ARGV[1] owns it and it precedes
// the newer hold created at ARGV[2] (unix millis). ARGV[3] is 1 when the key
// wins ties against the newer hold's id.
var supersedeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return false end
local h = cjson.decode(v)
if h['session_id'] ~= ARGV[1] then return false end
local created = tonumber(h['created_at'])
local newer = tonumber(ARGV[2])
if created > newer then return false end
if created == newer and ARGV[3] ~= '1' then return false end
redis.call('DEL', KEYS[1])
return v
`)

// expireScript deletes a hold only when its expires_at (unix millis) is at or
// before ARGV[1].
var expireScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return 0 end
if tonumber(cjson.decode(v)['expires_at']) > tonumber(ARGV[1]) then return 0 end
return redis.call('DEL', KEYS[1])
`)

type redisHold struct {
	ResourceID string `json:"resource_id"`
	Date       string `json:"date"`
	TimeLabel  string `json:"time_label"`
	SessionID  string `json:"session_id"`
	CreatedAt  int64  `json:"created_at"`
	ExpiresAt  int64  `json:"expires_at"`
}

func toRedisHold(h *model.Hold) redisHold {
	return redisHold{
		ResourceID: h.ResourceID,
		Date:       h.Date,
		TimeLabel:  h.TimeLabel,
		SessionID:  h.SessionID,
		CreatedAt:  h.CreatedAt.UnixMilli(),
		ExpiresAt:  h.ExpiresAt.UnixMilli(),
	}
}

func (rh redisHold) toModel() *model.Hold {
	key := model.SlotKey{ResourceID: rh.ResourceID, Date: rh.Date, TimeLabel: rh.TimeLabel}
	return &model.Hold{
		ID:        key.ID(),
		SlotKey:   key,
		SessionID: rh.SessionID,
		CreatedAt: time.UnixMilli(rh.CreatedAt).UTC(),
		ExpiresAt: time.UnixMilli(rh.ExpiresAt).UTC(),
	}
}

type redisHoldRepository struct {
	client *redis.Client
}

// NewRedisHoldRepository keeps each hold under its own key with a native
// expiry. Two sets index holds by session and by resource/date.
func NewRedisHoldRepository(client *redis.Client) HoldRepository {
	return &redisHoldRepository{client: client}
}

func holdKey(key model.SlotKey) string {
	return holdKeyPrefix + key.ID()
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func gridKey(resourceID, date string) string {
	return gridKeyPrefix + resourceID + "|" + date
}

func holdTTL(h *model.Hold) time.Duration {
	ttl := h.ExpiresAt.Sub(h.CreatedAt)
	if ttl < time.Millisecond {
		return time.Millisecond
	}
	return ttl
}

func (r *redisHoldRepository) Insert(ctx context.Context, hold *model.Hold) error {
	hold.ID = hold.SlotKey.ID()
	payload, err := json.Marshal(toRedisHold(hold))
	if err != nil {
		return fmt.Errorf("failed to encode hold: %w", err)
	}

	ttl := holdTTL(hold)
	ok, err := r.client.SetNX(ctx, holdKey(hold.SlotKey), string(payload), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to insert hold: %w", err)
	}
	if !ok {
		return slotserrors.ErrHoldExists
	}
	return r.index(ctx, hold, ttl)
}

func (r *redisHoldRepository) index(ctx context.Context, hold *model.Hold, ttl time.Duration) error {
	for _, set := range []string{sessionKey(hold.SessionID), gridKey(hold.ResourceID, hold.Date)} {
		if err := r.client.SAdd(ctx, set, hold.ID).Err(); err != nil {
			return fmt.Errorf("failed to index hold: %w", err)
		}
		if err := r.client.Expire(ctx, set, ttl).Err(); err != nil {
			return fmt.Errorf("failed to index hold: %w", err)
		}
	}
	return nil
}

func (r *redisHoldRepository) unindex(ctx context.Context, hold *model.Hold) error {
	if err := r.client.SRem(ctx, sessionKey(hold.SessionID), hold.ID).Err(); err != nil {
		return fmt.Errorf("failed to unindex hold: %w", err)
	}
	if err := r.client.SRem(ctx, gridKey(hold.ResourceID, hold.Date), hold.ID).Err(); err != nil {
		return fmt.Errorf("failed to unindex hold: %w", err)
	}
	return nil
}

func (r *redisHoldRepository) Find(ctx context.Context, key model.SlotKey) (*model.Hold, error) {
	payload, err := r.client.Get(ctx, holdKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find hold: %w", err)
	}
	return decodeRedisHold(payload)
}

func decodeRedisHold(payload string) (*model.Hold, error) {
	var rh redisHold
	if err := json.Unmarshal([]byte(payload), &rh); err != nil {
		return nil, fmt.Errorf("failed to decode hold: %w", err)
	}
	return rh.toModel(), nil
}

func (r *redisHoldRepository) Refresh(ctx context.Context, hold *model.Hold) error {
	hold.ID = hold.SlotKey.ID()
	payload, err := json.Marshal(toRedisHold(hold))
	if err != nil {
		return fmt.Errorf("failed to encode hold: %w", err)
	}

	ttl := holdTTL(hold)
	ttlMillis := strconv.FormatInt(ttl.Milliseconds(), 10)
	updated, err := refreshScript.Run(ctx, r.client, []string{holdKey(hold.SlotKey)}, hold.SessionID, string(payload), ttlMillis).Int()
	if err != nil {
		return fmt.Errorf("failed to refresh hold: %w", err)
	}
	if updated == 0 {
		return slotserrors.ErrNotFound
	}
	return r.index(ctx, hold, ttl)
}

func (r *redisHoldRepository) Delete(ctx context.Context, key model.SlotKey, sessionID string) (bool, error) {
	payload, err := releaseScript.Run(ctx, r.client, []string{holdKey(key)}, sessionID).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete hold: %w", err)
	}

	hold, err := decodeRedisHold(payload)
	if err != nil {
		return true, err
	}
	return true, r.unindex(ctx, hold)
}

func (r *redisHoldRepository) DeleteSuperseded(ctx context.Context, key model.SlotKey, newer *model.Hold) (bool, error) {
	tieBreak := "0"
	if key.ID() < newer.SlotKey.ID() {
		tieBreak = "1"
	}
	createdAt := strconv.FormatInt(newer.CreatedAt.UnixMilli(), 10)

	payload, err := supersedeScript.Run(ctx, r.client, []string{holdKey(key)}, newer.SessionID, createdAt, tieBreak).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete superseded hold: %w", err)
	}

	hold, err := decodeRedisHold(payload)
	if err != nil {
		return true, err
	}
	return true, r.unindex(ctx, hold)
}

func (r *redisHoldRepository) DeleteIfExpired(ctx context.Context, key model.SlotKey, now time.Time) (bool, error) {
	deleted, err := expireScript.Run(ctx, r.client, []string{holdKey(key)}, strconv.FormatInt(now.UnixMilli(), 10)).Int()
	if err != nil {
		return false, fmt.Errorf("failed to delete expired hold: %w", err)
	}
	return deleted > 0, nil
}

func (r *redisHoldRepository) DeleteBySession(ctx context.Context, sessionID string) ([]model.SlotKey, error) {
	ids, err := r.client.SMembers(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list session holds: %w", err)
	}

	var released []model.SlotKey
	for _, id := range ids {
		payload, err := releaseScript.Run(ctx, r.client, []string{holdKeyPrefix + id}, sessionID).Text()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return released, fmt.Errorf("failed to delete session hold: %w", err)
		}
		hold, err := decodeRedisHold(payload)
		if err != nil {
			return released, err
		}
		if err := r.client.SRem(ctx, gridKey(hold.ResourceID, hold.Date), hold.ID).Err(); err != nil {
			return released, fmt.Errorf("failed to unindex hold: %w", err)
		}
		released = append(released, hold.SlotKey)
	}

	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return released, fmt.Errorf("failed to clear session index: %w", err)
	}
	return released, nil
}

// DeleteExpired is a no-op: Redis evicts expired holds itself.
func (r *redisHoldRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *redisHoldRepository) FindByResourceAndDate(ctx context.Context, resourceID, date string) ([]*model.Hold, error) {
	grid := gridKey(resourceID, date)
	ids, err := r.client.SMembers(ctx, grid).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list holds: %w", err)
	}

	holds := make([]*model.Hold, 0, len(ids))
	if len(ids) == 0 {
		return holds, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = holdKeyPrefix + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load holds: %w", err)
	}

	var stale []any
	for i, v := range values {
		payload, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		hold, err := decodeRedisHold(payload)
		if err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, grid, stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune hold index: %w", err)
		}
	}
	return holds, nil
}
