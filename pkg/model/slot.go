package model

import (
	"fmt"
	"strings"
	"time"
)

const slotKeySeparator = "|"

// SlotKey identifies one bookable unit: a resource on a date at a time label.
type SlotKey struct {
	ResourceID string `json:"resource_id" bson:"resource_id" validate:"required,max=100"`
	Date       string `json:"date" bson:"date" validate:"required,slotdate"`
	TimeLabel  string `json:"time_label" bson:"time_label" validate:"required,timelabel"`
}

func (k SlotKey) ID() string {
	return strings.Join([]string{k.ResourceID, k.Date, k.TimeLabel}, slotKeySeparator)
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s on %s at %s", k.ResourceID, k.Date, k.TimeLabel)
}

func (k SlotKey) IsZero() bool {
	return k.ResourceID == "" && k.Date == "" && k.TimeLabel == ""
}

// Hold is a short-lived, session-owned soft reservation of a slot.
type Hold struct {
	ID        string    `json:"id" bson:"_id"`
	SlotKey   `bson:",inline"`
	SessionID string    `json:"session_id" bson:"session_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

func NewHold(key SlotKey, sessionID string, now time.Time, ttl time.Duration) *Hold {
	return &Hold{
		ID:        key.ID(),
		SlotKey:   key,
		SessionID: sessionID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (h *Hold) IsLive(now time.Time) bool {
	return h.ExpiresAt.After(now)
}

func (h *Hold) OwnedBy(sessionID string) bool {
	return h.SessionID == sessionID
}

// Precedes orders two holds by creation millisecond, then by id, so of two
// distinct holds exactly one precedes the other. Stores keep millisecond
// precision, so finer differences are ignored.
func (h *Hold) Precedes(other *Hold) bool {
	a, b := h.CreatedAt.UnixMilli(), other.CreatedAt.UnixMilli()
	if a != b {
		return a < b
	}
	return h.SlotKey.ID() < other.SlotKey.ID()
}
