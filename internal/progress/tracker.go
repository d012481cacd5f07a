// Package progress tracks a user's way through an activity's sections.
package progress

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sparklab/internal/domain"
	"sparklab/internal/scoring"
)

// DefaultMaxAnswers bounds the answer log of a single session.
const DefaultMaxAnswers = 256

// Tracker holds and mutates one ActivitySession. It is safe for concurrent use.
type Tracker struct {
	activity   domain.Activity
	maxAnswers int
	now        func() time.Time

	mu      sync.RWMutex
	session domain.ActivitySession
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock makes timestamps deterministic in tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithMaxAnswers overrides DefaultMaxAnswers. Values <= 0 are ignored.
func WithMaxAnswers(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxAnswers = n
		}
	}
}

// New starts a fresh session at the activity's first section.
func New(activity domain.Activity, userID string, opts ...Option) *Tracker {
	t := newTracker(activity, opts)
	t.session = domain.ActivitySession{
		ActivityID:        activity.ID,
		UserID:            userID,
		CurrentSection:    activity.FirstSection(),
		SectionCompletion: make(map[string]domain.Completion, len(activity.Sections)),
		Answers:           []domain.AnswerRecord{},
		UpdatedAt:         t.now(),
	}
	for _, s := range activity.Sections {
		t.session.SectionCompletion[s.ID] = domain.Completion{State: domain.Pending}
	}
	return t
}

// Restore resumes a previously saved session.
func Restore(activity domain.Activity, session domain.ActivitySession, opts ...Option) *Tracker {
	t := newTracker(activity, opts)
	t.session = copySession(session)
	if t.session.SectionCompletion == nil {
		t.session.SectionCompletion = make(map[string]domain.Completion, len(activity.Sections))
	}
	for _, s := range activity.Sections {
		if _, ok := t.session.SectionCompletion[s.ID]; !ok {
			t.session.SectionCompletion[s.ID] = domain.Completion{State: domain.Pending}
		}
	}
	if _, ok := activity.Section(t.session.CurrentSection); !ok {
		t.session.CurrentSection = activity.FirstSection()
	}
	if t.session.Answers == nil {
		t.session.Answers = []domain.AnswerRecord{}
	}
	return t
}

func newTracker(activity domain.Activity, opts []Option) *Tracker {
	t := &Tracker{
		activity:   activity,
		maxAnswers: DefaultMaxAnswers,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CurrentSection returns the section the user is on.
func (t *Tracker) CurrentSection() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.session.CurrentSection
}

// Activity returns the activity being tracked.
func (t *Tracker) Activity() domain.Activity {
	return t.activity
}

// Snapshot returns a deep copy of the session.
func (t *Tracker) Snapshot() domain.ActivitySession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copySession(t.session)
}

// AdvanceSection moves to any section of the activity, backwards or forwards.
func (t *Tracker) AdvanceSection(to string) error {
	if _, ok := t.activity.Section(to); !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownSection, to)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session.CurrentSection = to
	t.session.UpdatedAt = t.now()
	return nil
}

// MarkSectionComplete latches a section and adds reward to the stars on the first call only.
// It returns the stars actually awarded and whether this call did the latching.
func (t *Tracker) MarkSectionComplete(sectionID string, reward int) (int, bool, error) {
	if _, ok := t.activity.Section(sectionID); !ok {
		return 0, false, fmt.Errorf("%w: %q", domain.ErrUnknownSection, sectionID)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	awarded, first := t.latchLocked(sectionID, reward, 0)
	return awarded, first, nil
}

// AppendAnswer adds a record to the answer log.
func (t *Tracker) AppendAnswer(record domain.AnswerRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(record)
}

// Complete applies the activity's rules for a section: the section is latched, on first
// completion its stars and score are awarded, and the answer is logged while the log has room.
// Completing the current section moves the session on to the next one.
func (t *Tracker) Complete(sectionID string, payload json.RawMessage) (domain.CompletionResult, error) {
	section, ok := t.activity.Section(sectionID)
	if !ok {
		return domain.CompletionResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownSection, sectionID)
	}
	score, isCorrect := sectionScore(section, payload)

	t.mu.Lock()
	defer t.mu.Unlock()

	stars, first := t.latchLocked(sectionID, section.Reward, score)
	// A full answer log only loses the record; the latch and award above still hold.
	_ = t.appendLocked(domain.AnswerRecord{
		Section: sectionID,
		Kind:    domain.KindSection,
		Data:    payload,
	})
	awardedScore := 0
	if first {
		awardedScore = score
	}
	if t.session.CurrentSection == sectionID {
		if next, ok := t.nextSection(sectionID); ok {
			t.session.CurrentSection = next
		}
	}

	return domain.CompletionResult{
		Section:      sectionID,
		First:        first,
		StarsAwarded: stars,
		ScoreAwarded: awardedScore,
		IsCorrect:    isCorrect,
		Session:      copySession(t.session),
	}, nil
}

func (t *Tracker) latchLocked(sectionID string, reward, score int) (int, bool) {
	if t.session.SectionCompletion[sectionID].State == domain.Completed {
		return 0, false
	}
	if reward < 0 {
		reward = 0
	}
	now := t.now()
	t.session.SectionCompletion[sectionID] = domain.Completion{
		State:       domain.Completed,
		Reward:      reward,
		Score:       score,
		CompletedAt: now,
	}
	t.session.StarsEarned += reward
	t.session.FinalScore += score
	t.session.UpdatedAt = now
	return reward, true
}

func (t *Tracker) appendLocked(record domain.AnswerRecord) error {
	if len(t.session.Answers) >= t.maxAnswers {
		return domain.ErrAnswerLimit
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = t.now()
	}
	t.session.Answers = append(t.session.Answers, record)
	t.session.UpdatedAt = record.RecordedAt
	return nil
}

func (t *Tracker) nextSection(id string) (string, bool) {
	for i, s := range t.activity.Sections {
		if s.ID == id && i+1 < len(t.activity.Sections) {
			return t.activity.Sections[i+1].ID, true
		}
	}
	return "", false
}

type completionPayload struct {
	Score          *int   `json:"score"`
	Answer         string `json:"answer"`
	UserAnswer     string `json:"userAnswer"`
	SelectedAnswer string `json:"selectedAnswer"`
}

// sectionScore derives the score points a completion is worth.
func sectionScore(section domain.Section, payload json.RawMessage) (int, *bool) {
	var p completionPayload
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &p)
	}
	switch {
	case section.CorrectAnswer != "":
		answer := firstNonEmpty(p.UserAnswer, p.SelectedAnswer, p.Answer)
		correct := scoring.CheckAnswer(answer, section.CorrectAnswer)
		if correct {
			return section.Score, &correct
		}
		return 0, &correct
	case section.ScoreFromPayload:
		if p.Score != nil && *p.Score > 0 {
			return *p.Score, nil
		}
		return 0, nil
	default:
		return section.Score, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func copySession(s domain.ActivitySession) domain.ActivitySession {
	out := s
	out.SectionCompletion = make(map[string]domain.Completion, len(s.SectionCompletion))
	for k, v := range s.SectionCompletion {
		out.SectionCompletion[k] = v
	}
	out.Answers = append([]domain.AnswerRecord(nil), s.Answers...)
	if out.Answers == nil {
		out.Answers = []domain.AnswerRecord{}
	}
	return out
}
