package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sparklab/internal/domain"
	"sparklab/internal/logger"
	"sparklab/internal/progress"
)

// Action names recorded by the service itself.
const ActionEmbeddedGameComplete = "EMBEDDED_GAME_COMPLETE"

// reservedSectionIDs collide with the fixed segments of the activity routes.
var reservedSectionIDs = map[string]struct{}{
	"action":   {},
	"progress": {},
	"embeds":   {},
}

// ActivityService contains the activity progress use cases.
type ActivityService struct {
	activities ActivityRepository
	progress   ProgressRepository
	actions    ActionRepository
	publisher  ActionPublisher
	maxAnswers int
	now        func() time.Time
	log        *logger.Logger
	locks      keyedMutex
}

// ActivityOption customizes an ActivityService.
type ActivityOption func(*ActivityService)

// WithPublisher forwards every recorded action to p.
func WithPublisher(p ActionPublisher) ActivityOption {
	return func(s *ActivityService) { s.publisher = p }
}

// WithMaxAnswers bounds the answer log of each session.
func WithMaxAnswers(n int) ActivityOption {
	return func(s *ActivityService) { s.maxAnswers = n }
}

// WithActivityClock is test-only for deterministic timestamps.
func WithActivityClock(now func() time.Time) ActivityOption {
	return func(s *ActivityService) { s.now = now }
}

func NewActivityService(activities ActivityRepository, store ProgressRepository, actions ActionRepository, log *logger.Logger, opts ...ActivityOption) *ActivityService {
	if log == nil {
		log = logger.Nop()
	}
	s := &ActivityService{
		activities: activities,
		progress:   store,
		actions:    actions,
		maxAnswers: progress.DefaultMaxAnswers,
		now:        time.Now,
		log:        log.With("component", "activity_service"),
		locks:      keyedMutex{locks: make(map[string]*refLock)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ActivityService) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	return s.activities.ListActivities(ctx)
}

func (s *ActivityService) Activity(ctx context.Context, id string) (domain.Activity, error) {
	return s.activities.GetActivity(ctx, id)
}

// CreateActivity adds a teacher-authored activity to the catalog.
func (s *ActivityService) CreateActivity(ctx context.Context, role domain.Role, createdBy string, activity domain.Activity) (domain.Activity, error) {
	if role != domain.RoleTeacher {
		return domain.Activity{}, domain.ErrForbidden
	}
	activity.ID = strings.TrimSpace(activity.ID)
	if activity.ID == "" || strings.TrimSpace(activity.Title) == "" {
		return domain.Activity{}, fmt.Errorf("%w: id and title are required", domain.ErrInvalidInput)
	}
	if len(activity.Sections) == 0 {
		activity.Sections = domain.DefaultSections()
	}
	seen := make(map[string]struct{}, len(activity.Sections))
	for _, sec := range activity.Sections {
		if sec.ID == "" {
			return domain.Activity{}, fmt.Errorf("%w: section id is required", domain.ErrInvalidInput)
		}
		if _, reserved := reservedSectionIDs[sec.ID]; reserved {
			return domain.Activity{}, fmt.Errorf("%w: section id %q is reserved", domain.ErrInvalidInput, sec.ID)
		}
		if _, dup := seen[sec.ID]; dup {
			return domain.Activity{}, fmt.Errorf("%w: duplicate section %q", domain.ErrInvalidInput, sec.ID)
		}
		if sec.Reward < 0 || sec.Score < 0 {
			return domain.Activity{}, fmt.Errorf("%w: section %q has a negative reward", domain.ErrInvalidInput, sec.ID)
		}
		seen[sec.ID] = struct{}{}
	}
	activity.CreatedBy = createdBy
	if err := s.activities.CreateActivity(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	s.log.Info("activity created", "activityId", activity.ID, "createdBy", createdBy)
	return activity, nil
}

// Progress returns the stored session, or a fresh one if the user has not started yet.
func (s *ActivityService) Progress(ctx context.Context, activityID, userID string) (domain.ActivitySession, error) {
	activity, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		return domain.ActivitySession{}, err
	}
	tracker, err := s.load(ctx, activity, userID)
	if err != nil {
		return domain.ActivitySession{}, err
	}
	return tracker.Snapshot(), nil
}

// Advance moves the user to another section.
func (s *ActivityService) Advance(ctx context.Context, activityID, userID, section string) (domain.ActivitySession, error) {
	return s.mutate(ctx, activityID, userID, func(t *progress.Tracker) error {
		return t.AdvanceSection(section)
	})
}

// CompleteSection applies a section completion. claimedStars is what the client believes the
// section is worth; the activity's own reward always wins.
func (s *ActivityService) CompleteSection(ctx context.Context, activityID, userID, section string, payload json.RawMessage, claimedStars *int) (domain.CompletionResult, error) {
	var result domain.CompletionResult
	_, err := s.mutate(ctx, activityID, userID, func(t *progress.Tracker) error {
		var err error
		result, err = t.Complete(section, payload)
		return err
	})
	if err != nil {
		return domain.CompletionResult{}, err
	}
	if claimedStars != nil && result.First && *claimedStars != result.StarsAwarded {
		s.log.Warn("client star claim ignored",
			"activityId", activityID, "userId", userID, "section", section,
			"claimed", *claimedStars, "awarded", result.StarsAwarded)
	}
	s.log.Info("section completed",
		"activityId", activityID, "userId", userID, "section", section,
		"first", result.First, "stars", result.StarsAwarded, "score", result.ScoreAwarded)
	return result, nil
}

// RecordAction stores a telemetry event and forwards it to the publisher, if any.
// Publishing is best effort.
func (s *ActivityService) RecordAction(ctx context.Context, record domain.ActionRecord) (domain.ActionRecord, error) {
	if strings.TrimSpace(record.Action) == "" {
		return domain.ActionRecord{}, fmt.Errorf("%w: action is required", domain.ErrInvalidInput)
	}
	if _, err := s.activities.GetActivity(ctx, record.ActivityID); err != nil {
		return domain.ActionRecord{}, err
	}
	record.ID = uuid.NewString()
	record.ReceivedAt = s.now()
	if err := s.actions.AppendAction(ctx, record); err != nil {
		return domain.ActionRecord{}, fmt.Errorf("append action: %w", err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAction(ctx, record); err != nil {
			s.log.Warn("publishing action failed", "action", record.Action, "error", err)
		}
	}
	return record, nil
}

// RecordEmbedResult appends an embedded game's result to the session and logs it as an action.
func (s *ActivityService) RecordEmbedResult(ctx context.Context, activityID, userID string, result domain.EmbeddedGameResult) (domain.ActivitySession, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return domain.ActivitySession{}, fmt.Errorf("marshal embed result: %w", err)
	}
	var section string
	session, err := s.mutate(ctx, activityID, userID, func(t *progress.Tracker) error {
		section = t.CurrentSection()
		return t.AppendAnswer(domain.AnswerRecord{
			Section: section,
			Kind:    domain.KindEmbeddedGame,
			Data:    data,
		})
	})
	if err != nil {
		return domain.ActivitySession{}, err
	}
	if _, err := s.RecordAction(ctx, domain.ActionRecord{
		ActivityID: activityID,
		UserID:     userID,
		Action:     ActionEmbeddedGameComplete,
		Section:    section,
		Data:       data,
	}); err != nil {
		s.log.Warn("recording embed action failed", "activityId", activityID, "userId", userID, "error", err)
	}
	return session, nil
}

// EmbedResults lists the embedded-game results stored in a session.
func (s *ActivityService) EmbedResults(ctx context.Context, activityID, userID string) ([]domain.EmbeddedGameResult, error) {
	session, err := s.Progress(ctx, activityID, userID)
	if err != nil {
		return nil, err
	}
	out := []domain.EmbeddedGameResult{}
	for _, a := range session.Answers {
		if a.Kind != domain.KindEmbeddedGame {
			continue
		}
		var r domain.EmbeddedGameResult
		if err := json.Unmarshal(a.Data, &r); err != nil {
			s.log.Warn("skipping unreadable embed result", "activityId", activityID, "userId", userID, "error", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// mutate serializes read-modify-write of one session.
func (s *ActivityService) mutate(ctx context.Context, activityID, userID string, fn func(*progress.Tracker) error) (domain.ActivitySession, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.ActivitySession{}, fmt.Errorf("%w: userId is required", domain.ErrInvalidInput)
	}
	activity, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		return domain.ActivitySession{}, err
	}

	unlock := s.locks.lock(activityID + "/" + userID)
	defer unlock()

	tracker, err := s.load(ctx, activity, userID)
	if err != nil {
		return domain.ActivitySession{}, err
	}
	if err := fn(tracker); err != nil {
		return domain.ActivitySession{}, err
	}
	session := tracker.Snapshot()
	if err := s.progress.SaveProgress(ctx, session); err != nil {
		return domain.ActivitySession{}, fmt.Errorf("save progress: %w", err)
	}
	return session, nil
}

func (s *ActivityService) load(ctx context.Context, activity domain.Activity, userID string) (*progress.Tracker, error) {
	opts := []progress.Option{progress.WithClock(s.now), progress.WithMaxAnswers(s.maxAnswers)}
	session, err := s.progress.LoadProgress(ctx, activity.ID, userID)
	if errors.Is(err, domain.ErrProgressNotFound) {
		return progress.New(activity, userID, opts...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return progress.Restore(activity, session, opts...), nil
}

// keyedMutex hands out one mutex per key and forgets it when no one holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
