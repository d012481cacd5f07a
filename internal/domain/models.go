package domain

import (
	"encoding/json"
	"time"
)

// Role distinguishes students from teachers.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
)

// User is a registered account. PasswordHash never leaves the service.
type User struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	UserName     string    `json:"userName"`
	Role         Role      `json:"role"`
	Age          int       `json:"age"`
	Photo        string    `json:"photo,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Section is one step in an activity's fixed sequence.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// Reward is the number of stars granted on first completion.
	Reward int `json:"reward"`
	// Score is the number of score points granted on first completion.
	Score int `json:"score"`
	// ScoreFromPayload takes the score from the completion payload's "score" field instead of Score.
	ScoreFromPayload bool `json:"scoreFromPayload,omitempty"`
	// CorrectAnswer makes Score conditional on the payload's answer matching it.
	CorrectAnswer string `json:"correctAnswer,omitempty"`
}

// Activity is a themed multi-section learning module.
type Activity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	Difficulty  string    `json:"difficulty"`
	Duration    string    `json:"duration"`
	Path        string    `json:"path"`
	Emoji       string    `json:"emoji"`
	Reward      string    `json:"reward"`
	Story       string    `json:"story"`
	VideoURL    string    `json:"videoUrl"`
	Sections    []Section `json:"sections"`
	CreatedBy   string    `json:"createdBy,omitempty"`
}

// Section looks up a section by ID.
func (a Activity) Section(id string) (Section, bool) {
	for _, s := range a.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// FirstSection returns the entry section, or "" for an activity without sections.
func (a Activity) FirstSection() string {
	if len(a.Sections) == 0 {
		return ""
	}
	return a.Sections[0].ID
}

// CompletionState is the latch state of a section.
type CompletionState string

const (
	Pending   CompletionState = "pending"
	Completed CompletionState = "completed"
)

// Completion records how a section was completed.
type Completion struct {
	State       CompletionState `json:"state"`
	Reward      int             `json:"reward"`
	Score       int             `json:"score"`
	CompletedAt time.Time       `json:"completedAt,omitempty"`
}

// AnswerRecord is one completion payload appended to a session.
type AnswerRecord struct {
	Section    string          `json:"section"`
	Kind       string          `json:"kind"`
	Data       json.RawMessage `json:"data,omitempty"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// Answer kinds.
const (
	KindSection      = "section"
	KindEmbeddedGame = "embedded_game"
)

// ActivitySession is the progress of one user through one activity.
type ActivitySession struct {
	ActivityID        string                `json:"activityId"`
	UserID            string                `json:"userId"`
	CurrentSection    string                `json:"currentSection"`
	SectionCompletion map[string]Completion `json:"sectionCompletion"`
	StarsEarned       int                   `json:"starsEarned"`
	Answers           []AnswerRecord        `json:"answers"`
	FinalScore        int                   `json:"finalScore"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// IsCompleted reports whether a section has been latched.
func (s ActivitySession) IsCompleted(section string) bool {
	return s.SectionCompletion[section].State == Completed
}

// CompletionResult summarizes a section completion for the caller.
type CompletionResult struct {
	Section      string          `json:"section"`
	First        bool            `json:"first"`
	StarsAwarded int             `json:"starsAwarded"`
	ScoreAwarded int             `json:"scoreAwarded"`
	IsCorrect    *bool           `json:"isCorrect,omitempty"`
	Session      ActivitySession `json:"session"`
}

// DeviceInfo is attached to every logged action.
type DeviceInfo struct {
	UserAgent string `json:"userAgent,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// ActionRecord is a telemetry event reported by a client.
type ActionRecord struct {
	ID         string          `json:"id"`
	ActivityID string          `json:"activityId"`
	UserID     string          `json:"userId"`
	Action     string          `json:"action"`
	Section    string          `json:"section"`
	Data       json.RawMessage `json:"data,omitempty"`
	DeviceInfo DeviceInfo      `json:"deviceInfo"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// Matching selects how quiz answers are compared.
type Matching string

const (
	MatchExact Matching = "exact"
	MatchFold  Matching = "fold"
)

// Question is a fixed quiz question.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	CorrectAnswer string   `json:"correctAnswer"`
	Options       []string `json:"options"`
}

// Quiz is a standalone fixed-question assessment.
type Quiz struct {
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Matching  Matching   `json:"matching"`
	Questions []Question `json:"questions"`
}

// Public strips correct answers so the quiz can be sent to players.
func (q Quiz) Public() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		out.Questions[i] = question
	}
	return out
}

// QuizResult is one persisted quiz attempt.
type QuizResult struct {
	ID            string    `json:"id"`
	QuizName      string    `json:"quizName"`
	User          string    `json:"user"`
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	TotalMarks    int       `json:"totalMarks"`
	QuestionCount int       `json:"questionCount,omitempty"`
	Date          time.Time `json:"date"`
}

// EmbeddedGameResult is reconstructed from a third-party game's completion message.
type EmbeddedGameResult struct {
	Nonce       string    `json:"nonce"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Timestamp   time.Time `json:"timestamp"`
	Score       *int      `json:"score,omitempty"`
	Total       *int      `json:"total,omitempty"`
	Completed   bool      `json:"completed"`
	TimeSpentMs *int64    `json:"timeSpent,omitempty"`
	Attempts    *int      `json:"attempts,omitempty"`
}
