package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	events   []Event
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeSender) SendAction(ctx context.Context, activityID, userID string, ev Event) error {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type statusErr struct{ code int }

func (e statusErr) Error() string   { return "status error" }
func (e statusErr) Retryable() bool { return e.code >= 500 }

type fixedSection string

func (s fixedSection) CurrentSection() string { return string(s) }

func fastConfig() Config {
	return Config{
		QueueSize:       4,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsed:      time.Second,
	}
}

func TestLogDeliversWithSection(t *testing.T) {
	sender := &fakeSender{}
	l := NewActionLogger(sender, "circuit", "STUDENT001", fixedSection("puzzle"), fastConfig(), nil)

	if !l.Log("AUDIO_INSTRUCTION", map[string]string{"text": "hello"}) {
		t.Fatalf("expected event to be accepted")
	}
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(sender.events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(sender.events))
	}
	if sender.events[0].Section != "puzzle" || sender.events[0].Action != "AUDIO_INSTRUCTION" {
		t.Fatalf("unexpected event %+v", sender.events[0])
	}
	if l.Delivered() != 1 {
		t.Fatalf("expected delivered=1, got %d", l.Delivered())
	}
}

func TestLogRetriesTransientFailures(t *testing.T) {
	sender := &fakeSender{failures: 2, err: statusErr{code: 503}}
	l := NewActionLogger(sender, "circuit", "STUDENT001", nil, fastConfig(), nil)

	l.Log("SUCCESS_FEEDBACK", nil)
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if sender.calls != 3 || len(sender.events) != 1 {
		t.Fatalf("expected 3 attempts and 1 delivery, got calls=%d delivered=%d", sender.calls, len(sender.events))
	}
}

func TestLogDoesNotRetryPermanentFailures(t *testing.T) {
	sender := &fakeSender{failures: 5, err: statusErr{code: 400}}
	l := NewActionLogger(sender, "circuit", "STUDENT001", nil, fastConfig(), nil)

	l.Log("SUCCESS_FEEDBACK", nil)
	_ = l.Close(context.Background())

	if sender.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", sender.calls)
	}
	if l.Failed() != 1 {
		t.Fatalf("expected failed=1, got %d", l.Failed())
	}
}

func TestLogGivesUpAfterMaxRetries(t *testing.T) {
	sender := &fakeSender{failures: 100, err: errors.New("connection refused")}
	l := NewActionLogger(sender, "circuit", "STUDENT001", nil, fastConfig(), nil)

	l.Log("SUCCESS_FEEDBACK", nil)
	_ = l.Close(context.Background())

	if sender.calls != 4 {
		t.Fatalf("expected 1 attempt + 3 retries, got %d", sender.calls)
	}
}

func TestLogDropsWhenQueueFull(t *testing.T) {
	sender := &fakeSender{started: make(chan struct{}, 1), release: make(chan struct{})}
	cfg := fastConfig()
	cfg.QueueSize = 1
	l := NewActionLogger(sender, "circuit", "STUDENT001", nil, cfg, nil)

	l.Log("first", nil)
	select {
	case <-sender.started:
	case <-time.After(time.Second):
		t.Fatalf("worker never picked up the first event")
	}

	if !l.Log("second", nil) {
		t.Fatalf("expected second event to be queued")
	}
	if l.Log("third", nil) {
		t.Fatalf("expected third event to be dropped")
	}
	if l.Dropped() != 1 {
		t.Fatalf("expected dropped=1, got %d", l.Dropped())
	}

	close(sender.release)
	_ = l.Close(context.Background())
	if len(sender.events) != 2 {
		t.Fatalf("expected 2 delivered events, got %d", len(sender.events))
	}
}

func TestLogAfterCloseIsDropped(t *testing.T) {
	l := NewActionLogger(&fakeSender{}, "circuit", "STUDENT001", nil, fastConfig(), nil)
	_ = l.Close(context.Background())

	if l.Log("late", nil) {
		t.Fatalf("expected event after close to be rejected")
	}
	if l.Dropped() != 1 {
		t.Fatalf("expected dropped=1, got %d", l.Dropped())
	}
}
