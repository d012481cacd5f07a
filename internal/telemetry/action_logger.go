// Package telemetry reports user actions to the backend without blocking the caller.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sparklab/internal/domain"
	"sparklab/internal/logger"
)

// Event is the body posted for one action.
type Event struct {
	Action     string            `json:"action"`
	Section    string            `json:"section"`
	Data       any               `json:"data"`
	DeviceInfo domain.DeviceInfo `json:"deviceInfo"`
}

// Sender delivers an event for an activity and user.
type Sender interface {
	SendAction(ctx context.Context, activityID, userID string, ev Event) error
}

// SectionSource supplies the section an action happened in.
type SectionSource interface {
	CurrentSection() string
}

// Config controls queueing and retries.
type Config struct {
	QueueSize       int
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	DeviceInfo      domain.DeviceInfo
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 200 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 5 * time.Second
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = 30 * time.Second
	}
	return c
}

// ActionLogger queues actions and delivers them from a single worker.
// Events that do not fit in the queue are dropped.
type ActionLogger struct {
	sender     Sender
	activityID string
	userID     string
	section    SectionSource
	cfg        Config
	log        *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}

	dropped   atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

// NewActionLogger starts the delivery worker. section may be nil.
func NewActionLogger(sender Sender, activityID, userID string, section SectionSource, cfg Config, log *logger.Logger) *ActionLogger {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &ActionLogger{
		sender:     sender,
		activityID: activityID,
		userID:     userID,
		section:    section,
		cfg:        cfg,
		log:        log.With("component", "action_logger", "activityId", activityID, "userId", userID),
		ctx:        ctx,
		cancel:     cancel,
		queue:      make(chan Event, cfg.QueueSize),
		done:       make(chan struct{}),
	}
	go l.run()
	return l
}

// Log enqueues an action. It never blocks and reports whether the event was accepted.
func (l *ActionLogger) Log(action string, payload any) bool {
	ev := Event{
		Action:     action,
		Data:       payload,
		DeviceInfo: l.cfg.DeviceInfo,
	}
	if l.section != nil {
		ev.Section = l.section.CurrentSection()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return false
	}
	select {
	case l.queue <- ev:
		return true
	default:
		l.dropped.Add(1)
		l.log.Warn("action queue full, dropping event", "action", action)
		return false
	}
}

// Dropped counts events rejected because the queue was full or closed.
func (l *ActionLogger) Dropped() int64 { return l.dropped.Load() }

// Delivered counts events the backend accepted.
func (l *ActionLogger) Delivered() int64 { return l.delivered.Load() }

// Failed counts events given up on after retries.
func (l *ActionLogger) Failed() int64 { return l.failed.Load() }

// Close stops intake and waits for queued events to drain. If ctx expires first,
// in-flight delivery is aborted and the remaining events are lost.
func (l *ActionLogger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		l.cancel()
		return nil
	case <-ctx.Done():
		l.cancel()
		<-l.done
		return ctx.Err()
	}
}

func (l *ActionLogger) run() {
	defer close(l.done)
	for ev := range l.queue {
		if l.ctx.Err() != nil {
			l.failed.Add(1)
			continue
		}
		if err := l.deliver(ev); err != nil {
			l.failed.Add(1)
			l.log.Error("saving user action failed", "action", ev.Action, "error", err)
			continue
		}
		l.delivered.Add(1)
	}
}

func (l *ActionLogger) deliver(ev Event) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = l.cfg.InitialInterval
	eb.MaxInterval = l.cfg.MaxInterval
	eb.MaxElapsedTime = l.cfg.MaxElapsed
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, l.cfg.MaxRetries), l.ctx)

	return backoff.Retry(func() error {
		err := l.sender.SendAction(l.ctx, l.activityID, l.userID, ev)
		if err == nil {
			return nil
		}
		var r interface{ Retryable() bool }
		if errors.As(err, &r) && !r.Retryable() {
			return backoff.Permanent(err)
		}
		l.log.Debug("retrying user action", "action", ev.Action, "error", err)
		return err
	}, policy)
}
