package watcher

import (
	"context"
	"errors"
	"time"

	"testdrive/pkg/logger"
	"testdrive/pkg/model"
)

const (
	TriggerInitial = "initial"
	TriggerPoll    = "poll"
	TriggerChange  = "change"
)

// StatusSource is satisfied by client.SlotsClient.
type StatusSource interface {
	GetSlotStatus(ctx context.Context, resourceID, date string) (*model.SlotStatus, error)
}

// Feed delivers change signals for one grid until ctx is done. Signals only
// trigger a re-query; they are never applied as state.
type Feed interface {
	Run(ctx context.Context, resourceID, date string, notify func(model.SlotChange)) error
}

type Snapshot struct {
	Status  *model.SlotStatus
	Err     error
	Trigger string
	At      time.Time
}

// Watcher keeps one resource/date view fresh from two independent triggers.
// The poll alone keeps the view correct; the feed only makes it faster.
type Watcher struct {
	source     StatusSource
	resourceID string
	date       string
	interval   time.Duration
	feed       Feed
	log        *logger.Logger

	// labels seen in the last good status, used to build a closed view
	labels []string
}

type Option func(w *Watcher)

func WithFeed(feed Feed) Option {
	return func(w *Watcher) { w.feed = feed }
}

func New(source StatusSource, resourceID, date string, interval time.Duration, log *logger.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		source:     source,
		resourceID: resourceID,
		date:       date,
		interval:   interval,
		log:        log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run emits a snapshot immediately and then on every trigger until ctx is
// cancelled. Refreshes are serialized; change signals that arrive during a
// refresh collapse into one.
func (w *Watcher) Run(ctx context.Context, emit func(Snapshot)) error {
	kick := make(chan struct{}, 1)
	if w.feed != nil {
		go w.runFeed(ctx, kick)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refresh(ctx, TriggerInitial, emit)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.refresh(ctx, TriggerPoll, emit)
		case <-kick:
			w.refresh(ctx, TriggerChange, emit)
		}
	}
}

func (w *Watcher) runFeed(ctx context.Context, kick chan<- struct{}) {
	err := w.feed.Run(ctx, w.resourceID, w.date, func(change model.SlotChange) {
		if !change.Affects(w.resourceID, w.date) {
			return
		}
		select {
		case kick <- struct{}{}:
		default:
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		w.log.Warn("Change feed stopped, continuing with polling only", "error", err)
	}
}

func (w *Watcher) refresh(ctx context.Context, trigger string, emit func(Snapshot)) {
	status, err := w.source.GetSlotStatus(ctx, w.resourceID, w.date)
	if ctx.Err() != nil {
		return
	}
	switch {
	case err != nil:
		w.log.Warn("Slot status refresh failed", "trigger", trigger, "error", err)
		if status == nil {
			status = model.ClosedSlotStatus(w.resourceID, w.date, w.labels, time.Now().UTC())
		}
	case status != nil:
		w.labels = status.Labels()
	}
	emit(Snapshot{Status: status, Err: err, Trigger: trigger, At: time.Now().UTC()})
}
