package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mcq-quiz-service/internal/domain"
)

// QuestionLoader reads and writes the question set in a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// QuestionRepository caches the question set with a TTL to avoid repeated
// backing store hits. Saves write through and refresh the cache.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu     sync.RWMutex
	cached []domain.Question
	expiry time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := r.fresh(r.clock()); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do("questions", func() (interface{}, error) {
		now := r.clock()
		if qs, ok := r.fresh(now); ok {
			return qs, nil
		}

		questions, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		r.store(questions, now)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return copyQuestions(result.([]domain.Question)), nil
}

func (r *QuestionRepository) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	if err := r.loader.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	r.store(copyQuestions(questions), r.clock())
	return nil
}

func (r *QuestionRepository) fresh(now time.Time) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached != nil && r.expiry.After(now) {
		return copyQuestions(r.cached), true
	}
	return nil, false
}

func (r *QuestionRepository) store(questions []domain.Question, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = questions
	r.expiry = now.Add(r.ttlWithJitter())
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a simple loader backed by a slice (useful for tests/demos).
type StaticQuestionLoader struct {
	mu        sync.Mutex
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyQuestions(l.questions), nil
}

func (l *StaticQuestionLoader) SaveQuestions(_ context.Context, questions []domain.Question) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.questions = copyQuestions(questions)
	return nil
}

func copyQuestions(questions []domain.Question) []domain.Question {
	if questions == nil {
		return nil
	}
	return append([]domain.Question(nil), questions...)
}
