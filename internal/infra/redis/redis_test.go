package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/infra/memory"
)

func TestDocumentStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewDocumentStore(newClient(mr), "", time.Hour)
	ctx := context.Background()

	if _, err := store.Get(ctx, "quizState"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Put(ctx, "quizState", []byte(`{"inProgress":true}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("quiz:doc:quizState") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:doc:quizState"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
	data, err := store.Get(ctx, "quizState")
	if err != nil || string(data) != `{"inProgress":true}` {
		t.Fatalf("unexpected get %q (%v)", data, err)
	}

	if err := store.Delete(ctx, "quizState"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("quiz:doc:quizState") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(domain.DefaultQuestions())}
	repo := NewQuestionRepository(newClient(mr), loader, time.Minute)

	qs, err := repo.LoadQuestions(context.Background())
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if loader.calls != 1 || len(qs) != 5 {
		t.Fatalf("expected loader called once for 5 questions, got %d calls", loader.calls)
	}
	if !mr.Exists(questionsCacheKey) {
		t.Fatalf("expected cache key to be set")
	}

	// Second call should hit cache, loader not incremented.
	qs, _ = repo.LoadQuestions(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if text, _ := qs[0].Options.Text(qs[0].Answer); text == "" {
		t.Fatalf("expected options to survive the cache round trip")
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.LoadQuestions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestQuestionRepositorySaveOverwritesCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(domain.DefaultQuestions())}
	repo := NewQuestionRepository(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.LoadQuestions(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := repo.SaveQuestions(ctx, domain.DefaultQuestions()[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	qs, _ := repo.LoadQuestions(ctx)
	if len(qs) != 1 || loader.calls != 1 {
		t.Fatalf("expected refreshed cache with 1 question, got %d (calls %d)", len(qs), loader.calls)
	}
}

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
