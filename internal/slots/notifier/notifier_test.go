package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"testdrive/pkg/config"
	"testdrive/pkg/kafka"
	"testdrive/pkg/logger"
	"testdrive/pkg/middleware"
	"testdrive/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
	deadline bool
}

func (p *fakePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, p.deadline = ctx.Deadline()
	p.messages = append(p.messages, msg)
	return p.err
}

func (p *fakePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestKafkaNotifier_PublishesChange(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, time.Second, logger.Discard())

	at := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	n.Notify(ctx, model.SlotChange{
		Kind:       model.ChangeKindHold,
		Action:     model.ActionHoldAcquired,
		ResourceID: "car1",
		Date:       "2025-12-05",
		TimeLabel:  "10:00 AM",
		OccurredAt: at,
	})
	require.NoError(t, n.Close())

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "car1", msg.Key)
	assert.Equal(t, string(model.ActionHoldAcquired), msg.GetEventType())
	assert.Equal(t, source, msg.Headers[kafka.HeaderSource])
	assert.Equal(t, "req-42", msg.GetCorrelationID())
	assert.True(t, pub.deadline, "publish must be bounded")
	assert.True(t, pub.closed)

	var change model.SlotChange
	require.NoError(t, json.Unmarshal(msg.Value, &change))
	assert.Equal(t, "10:00 AM", change.TimeLabel)
}

func TestKafkaNotifier_ScheduleChangesUseFixedKey(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, time.Second, logger.Discard())

	n.Notify(context.Background(), model.SlotChange{Kind: model.ChangeKindSchedule, Action: model.ActionScheduleUpdated})
	require.NoError(t, n.Close())

	require.Len(t, pub.messages, 1)
	assert.Equal(t, scheduleKey, pub.messages[0].Key)
}

func TestKafkaNotifier_FailuresAreSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	n := NewKafkaNotifier(pub, time.Second, logger.Discard())

	n.Notify(context.Background(), model.SlotChange{Action: model.ActionHoldReleased, ResourceID: "car1"})
	assert.NoError(t, n.Close())
}

func TestKafkaNotifier_DetachedFromRequestContext(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, time.Second, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, model.SlotChange{Action: model.ActionBookingCreated, ResourceID: "car1"})
	require.NoError(t, n.Close())

	assert.Len(t, pub.messages, 1)
}

func TestNew_DisabledKafkaIsNop(t *testing.T) {
	n, err := New(&config.Config{KafkaEnabled: false, Log: logger.Discard()})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, n)
	assert.NoError(t, n.Close())
}
