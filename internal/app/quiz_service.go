package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sparklab/internal/domain"
	"sparklab/internal/logger"
	"sparklab/internal/scoring"
)

// QuizService contains the quiz use cases.
type QuizService struct {
	quizzes QuizRepository
	results ResultRepository
	feed    *ResultFeed
	now     func() time.Time
	log     *logger.Logger
}

func NewQuizService(quizzes QuizRepository, results ResultRepository, log *logger.Logger) *QuizService {
	if log == nil {
		log = logger.Nop()
	}
	return &QuizService{
		quizzes: quizzes,
		results: results,
		feed:    NewResultFeed(),
		now:     time.Now,
		log:     log.With("component", "quiz_service"),
	}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(quizzes QuizRepository, results ResultRepository, now func() time.Time) *QuizService {
	s := NewQuizService(quizzes, results, nil)
	s.now = now
	return s
}

// Taker identifies who submits a quiz.
type Taker struct {
	User     string `json:"user"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Submission is a full set of answers for one quiz.
type Submission struct {
	Taker
	Answers []string `json:"answers"`
}

// SubmitOutcome is returned after server-side scoring.
type SubmitOutcome struct {
	Marks         []int             `json:"marks"`
	TotalMarks    int               `json:"totalMarks"`
	Unanswered    []int             `json:"unanswered"`
	QuestionCount int               `json:"questionCount"`
	Percentage    float64           `json:"percentage"`
	Encouragement string            `json:"encouragement"`
	Result        domain.QuizResult `json:"result"`
}

// Quiz returns the quiz without its answers.
func (s *QuizService) Quiz(ctx context.Context, name string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, name)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz.Public(), nil
}

// Submit scores the answers and saves the attempt.
func (s *QuizService) Submit(ctx context.Context, name string, sub Submission) (SubmitOutcome, error) {
	if err := requireTaker(sub.Taker); err != nil {
		return SubmitOutcome{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, name)
	if err != nil {
		return SubmitOutcome{}, err
	}
	res := scoring.ScoreQuiz(quiz, sub.Answers)

	saved, err := s.SaveResult(ctx, domain.QuizResult{
		QuizName:      quiz.Name,
		User:          sub.User,
		UserID:        sub.UserID,
		Username:      sub.Username,
		Email:         sub.Email,
		TotalMarks:    res.Total,
		QuestionCount: len(quiz.Questions),
	})
	if err != nil {
		return SubmitOutcome{}, err
	}
	return SubmitOutcome{
		Marks:         res.Marks,
		TotalMarks:    res.Total,
		Unanswered:    res.Unanswered,
		QuestionCount: len(quiz.Questions),
		Percentage:    scoring.Percentage(res.Total, len(quiz.Questions)),
		Encouragement: scoring.Encouragement(res.Total, len(quiz.Questions)),
		Result:        saved,
	}, nil
}

// SaveResult stores a client-scored attempt and announces it on the feed.
func (s *QuizService) SaveResult(ctx context.Context, result domain.QuizResult) (domain.QuizResult, error) {
	if strings.TrimSpace(result.QuizName) == "" {
		return domain.QuizResult{}, fmt.Errorf("%w: quizName is required", domain.ErrInvalidInput)
	}
	if err := requireTaker(Taker{User: result.User, UserID: result.UserID, Username: result.Username, Email: result.Email}); err != nil {
		return domain.QuizResult{}, err
	}
	if result.TotalMarks < 0 {
		return domain.QuizResult{}, fmt.Errorf("%w: totalMarks must not be negative", domain.ErrInvalidInput)
	}
	result.ID = uuid.NewString()
	if result.Date.IsZero() {
		result.Date = s.now()
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		return domain.QuizResult{}, fmt.Errorf("save quiz result: %w", err)
	}
	s.log.Info("quiz result saved", "quiz", result.QuizName, "userId", result.UserID, "totalMarks", result.TotalMarks)
	s.feed.Publish(result)
	return result, nil
}

// Results lists saved attempts filtered by searchText.
func (s *QuizService) Results(ctx context.Context, searchText string) ([]domain.QuizResult, error) {
	return s.results.ListResults(ctx, strings.TrimSpace(searchText))
}

// Subscribe returns a channel that receives newly saved results.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context) (<-chan domain.QuizResult, func()) {
	return s.feed.Subscribe()
}

// Subscribers reports how many live feed subscriptions are open.
func (s *QuizService) Subscribers() int {
	return s.feed.Subscribers()
}

func requireTaker(t Taker) error {
	if strings.TrimSpace(t.UserID) == "" || strings.TrimSpace(t.Username) == "" {
		return fmt.Errorf("%w: please log in to submit quiz results", domain.ErrInvalidInput)
	}
	return nil
}

// ResultFeed fans saved quiz results out to dashboard subscribers.
type ResultFeed struct {
	mu          sync.Mutex
	subscribers map[chan domain.QuizResult]struct{}
}

func NewResultFeed() *ResultFeed {
	return &ResultFeed{subscribers: make(map[chan domain.QuizResult]struct{})}
}

func (f *ResultFeed) Subscribe() (<-chan domain.QuizResult, func()) {
	ch := make(chan domain.QuizResult, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish never blocks: a full subscriber loses its oldest pending result.
func (f *ResultFeed) Publish(result domain.QuizResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- result:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- result
		}
	}
}

// Subscribers reports the number of active subscriptions.
func (f *ResultFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
