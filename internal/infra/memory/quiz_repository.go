package memory

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sparklab/internal/domain"
)

// QuizLoader reads the quiz bank from its backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, name string) (domain.Quiz, error)
}

// QuizRepository is the in-process quiz bank. Quizzes are keyed by upper-cased name and
// kept for ttl plus up to 10% jitter. Unknown names are remembered for a tenth of ttl so
// a typo in a URL does not reach the loader on every request.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	loads  singleflight.Group

	jitterMu sync.Mutex
	jitter   *rand.Rand

	mu   sync.RWMutex
	bank map[string]bankEntry
}

type bankEntry struct {
	quiz      domain.Quiz
	missing   bool
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		jitter: rand.New(rand.NewSource(time.Now().UnixNano())),
		bank:   make(map[string]bankEntry),
	}
}

func quizKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// GetQuiz looks quizzes up case-insensitively by name.
func (r *QuizRepository) GetQuiz(ctx context.Context, name string) (domain.Quiz, error) {
	key := quizKey(name)
	if entry, ok := r.lookup(key); ok {
		return entry.result()
	}

	v, err, _ := r.loads.Do(key, func() (interface{}, error) {
		if entry, ok := r.lookup(key); ok {
			return entry, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, key)
		switch {
		case errors.Is(err, domain.ErrQuizNotFound):
			return r.store(key, bankEntry{missing: true}, r.ttl/10), nil
		case err != nil:
			return nil, err
		}
		return r.store(key, bankEntry{quiz: quiz}, r.expiry()), nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(bankEntry).result()
}

// Invalidate drops a quiz, or the memory of its absence, so the next read goes to the loader.
func (r *QuizRepository) Invalidate(name string) {
	r.mu.Lock()
	delete(r.bank, quizKey(name))
	r.mu.Unlock()
}

func (e bankEntry) result() (domain.Quiz, error) {
	if e.missing {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return e.quiz, nil
}

func (r *QuizRepository) lookup(key string) (bankEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.bank[key]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return bankEntry{}, false
	}
	return entry, true
}

func (r *QuizRepository) store(key string, entry bankEntry, keep time.Duration) bankEntry {
	entry.expiresAt = r.clock().Add(keep)
	r.mu.Lock()
	r.bank[key] = entry
	r.mu.Unlock()
	return entry
}

func (r *QuizRepository) expiry() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	spread := int64(r.ttl) / 10
	r.jitterMu.Lock()
	defer r.jitterMu.Unlock()
	return r.ttl + time.Duration(r.jitter.Int63n(spread+1))
}

// StaticQuizLoader serves a fixed quiz bank, normally domain.BuiltinQuizzes.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, name string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[name]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
