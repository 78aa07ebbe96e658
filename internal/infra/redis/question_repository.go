package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mcq-quiz-service/internal/domain"
)

const questionsCacheKey = "quiz:questions:cache"

// QuestionLoader reads and writes the question set in the durable store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// QuestionRepository caches the question set in Redis as one JSON value and
// falls back to a loader on cache miss. Saves go to the loader first and then
// overwrite the cached copy.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := r.cached(ctx); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(questionsCacheKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := r.cached(ctx); ok {
			return qs, nil
		}

		questions, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		r.fill(ctx, questions)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	if err := r.loader.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	r.fill(ctx, questions)
	return nil
}

func (r *QuestionRepository) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := r.client.Get(ctx, questionsCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

// fill is best-effort: a failed cache write only costs a reload later.
func (r *QuestionRepository) fill(ctx context.Context, questions []domain.Question) {
	data, err := json.Marshal(questions)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, questionsCacheKey, data, r.ttlWithJitter()).Err()
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
