package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/metrics"
)

// QuestionRepository loads and replaces the stored question set.
type QuestionRepository interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// QuestionBank serves the question set, falling back to the built-in
// defaults when the repository is unreachable or empty.
type QuestionBank struct {
	repo QuestionRepository
	log  *zap.Logger
}

func NewQuestionBank(repo QuestionRepository, log *zap.Logger) *QuestionBank {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionBank{repo: repo, log: log}
}

// Questions never fails: load errors degrade to the default set.
func (b *QuestionBank) Questions(ctx context.Context) ([]domain.Question, error) {
	questions, err := b.repo.LoadQuestions(ctx)
	if err != nil {
		metrics.QuestionFallbacks.Inc()
		b.log.Warn("question source unavailable, using defaults", zap.Error(err))
		return domain.DefaultQuestions(), nil
	}
	if len(questions) == 0 {
		metrics.QuestionFallbacks.Inc()
		b.log.Warn("question source empty, using defaults")
		return domain.DefaultQuestions(), nil
	}
	return questions, nil
}

// Replace validates and stores a new question set, returning its size.
func (b *QuestionBank) Replace(ctx context.Context, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, fmt.Errorf("%w: empty question set", domain.ErrInvalidQuestion)
	}
	if err := domain.ValidateQuestions(questions); err != nil {
		return 0, err
	}
	if err := b.repo.SaveQuestions(ctx, questions); err != nil {
		return 0, err
	}
	b.log.Info("questions saved", zap.Int("count", len(questions)))
	return len(questions), nil
}

// DocumentQuestions keeps the question set as a JSON array in a
// DocumentStore, seeding the defaults on first access.
type DocumentQuestions struct {
	store DocumentStore
	key   string
}

func NewDocumentQuestions(store DocumentStore) *DocumentQuestions {
	return &DocumentQuestions{store: store, key: KeyQuestions}
}

func (d *DocumentQuestions) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	data, err := d.store.Get(ctx, d.key)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		defaults := domain.DefaultQuestions()
		if err := d.SaveQuestions(ctx, defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return questions, nil
}

func (d *DocumentQuestions) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	if err := d.store.Put(ctx, d.key, data); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	return nil
}
