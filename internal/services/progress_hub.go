package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

const (
	EventModuleUpdated  = "module.updated"
	EventModuleFinished = "module.finished"
	EventGuideUpdated   = "guide.updated"

	progressChannelPrefix = "progress:user:"

	subscribeRetryInitial = time.Second
	subscribeRetryMax     = 30 * time.Second
)

// ProgressEvent is broadcast over Redis and WebSocket after a progress write so
// other tabs and devices can reconcile without polling.
type ProgressEvent struct {
	Type                string     `json:"type"`
	UserID              uuid.UUID  `json:"userId"`
	ModuleID            *uuid.UUID `json:"moduleId,omitempty"`
	WeekNumber          int        `json:"weekNumber,omitempty"`
	GuideType           string     `json:"guideType,omitempty"`
	Version             int64      `json:"version"`
	ActivitiesCompleted int        `json:"activitiesCompleted,omitempty"`
	MinutesCompleted    int        `json:"minutesCompleted,omitempty"`
	Timestamp           time.Time  `json:"timestamp"`
}

// ModuleEvent builds the event for a stored module.
func ModuleEvent(typ string, m models.AnxietyModule) ProgressEvent {
	id := m.ID
	return ProgressEvent{
		Type:                typ,
		UserID:              m.UserID,
		ModuleID:            &id,
		WeekNumber:          m.WeekNumber,
		Version:             m.Version,
		ActivitiesCompleted: m.ActivitiesCompleted,
		MinutesCompleted:    m.MinutesCompleted,
		Timestamp:           time.Now().UTC(),
	}
}

// Publisher is what write paths depend on.
type Publisher interface {
	Publish(ctx context.Context, evt ProgressEvent) error
}

// ProgressHub fans out events to local WebSocket subscribers. With a Redis
// client, events go through Pub/Sub so every instance sees them; without one
// they are delivered locally only.
type ProgressHub struct {
	rdb *redis.Client
	log *logger.Logger

	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan ProgressEvent]struct{}

	started      sync.Once
	retryInitial time.Duration
}

func NewProgressHub(rdb *redis.Client, log *logger.Logger) *ProgressHub {
	return &ProgressHub{
		rdb:          rdb,
		log:          log,
		subs:         make(map[uuid.UUID]map[chan ProgressEvent]struct{}),
		retryInitial: subscribeRetryInitial,
	}
}

// Subscribe registers a listener for userID. The returned func must be called
// to release it.
func (h *ProgressHub) Subscribe(userID uuid.UUID) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan ProgressEvent]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends evt to every instance (or only locally without Redis).
func (h *ProgressHub) Publish(ctx context.Context, evt ProgressEvent) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if h.rdb == nil {
		h.fanOut(evt)
		return nil
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, progressChannelPrefix+evt.UserID.String(), data).Err()
}

// fanOut is best-effort: a subscriber whose buffer is full misses the event
// and reconciles on its next fetch.
func (h *ProgressHub) fanOut(evt ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[evt.UserID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Start launches the shared Redis listener once per instance.
func (h *ProgressHub) Start(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	h.started.Do(func() {
		go h.run(ctx)
	})
}

func (h *ProgressHub) run(ctx context.Context) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = h.retryInitial
	retry.MaxInterval = subscribeRetryMax

	for ctx.Err() == nil {
		received, err := h.listen(ctx)
		if err == nil {
			return
		}
		if received {
			retry.Reset()
		}
		wait := retry.NextBackOff()
		h.log.Warn("progress subscriber error", "error", err, "retry_in", wait.String())

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// listen consumes the pattern subscription until it fails. It returns nil once
// ctx is done; received reports whether any message arrived first.
func (h *ProgressHub) listen(ctx context.Context) (received bool, err error) {
	pubsub := h.rdb.PSubscribe(ctx, progressChannelPrefix+"*")
	defer pubsub.Close()

	h.log.Info("progress subscriber started", "pattern", progressChannelPrefix+"*")
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return received, nil
			}
			return received, err
		}
		received = true

		var evt ProgressEvent
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			h.log.Warn("bad progress event", "error", err)
			continue
		}
		h.fanOut(evt)
	}
}
