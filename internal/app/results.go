package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/metrics"
)

// ResultsStore is the durable log of completed attempts plus statistics
// derived from it, kept as one JSON document. Every read-modify-write cycle
// is serialized through mu, so concurrent requests in one process cannot
// lose each other's updates.
type ResultsStore struct {
	store    DocumentStore
	key      string
	log      *zap.Logger
	now      func() time.Time
	validate *validator.Validate
	info     func(ctx context.Context) domain.QuizInfo

	mu      sync.Mutex
	updates *fanout[domain.ResultsDocument]
}

// ResultsOption customises a ResultsStore.
type ResultsOption func(*ResultsStore)

// WithResultsClock is test-only for deterministic timestamps.
func WithResultsClock(now func() time.Time) ResultsOption {
	return func(s *ResultsStore) { s.now = now }
}

// WithQuizInfo sets how the quizInfo header of a fresh document is built.
func WithQuizInfo(fn func(ctx context.Context) domain.QuizInfo) ResultsOption {
	return func(s *ResultsStore) { s.info = fn }
}

func NewResultsStore(store DocumentStore, log *zap.Logger, opts ...ResultsOption) *ResultsStore {
	if log == nil {
		log = zap.NewNop()
	}
	s := &ResultsStore{
		store:    store,
		key:      KeyResults,
		log:      log,
		now:      time.Now,
		validate: validator.New(),
		updates:  newFanout[domain.ResultsDocument](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.info == nil {
		s.info = func(context.Context) domain.QuizInfo {
			return domain.QuizInfo{Title: "Java MCQ Quiz", TotalQuestions: len(domain.DefaultQuestions())}
		}
	}
	return s
}

// Read returns the full document, creating it on first access.
func (s *ResultsStore) Read(ctx context.Context) (domain.ResultsDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Append validates and adds a finished attempt, then recomputes statistics
// over the full record set.
func (s *ResultsStore) Append(ctx context.Context, record domain.ResultRecord) (domain.ResultsDocument, error) {
	if err := s.Validate(record); err != nil {
		return domain.ResultsDocument{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(ctx)
	if err != nil {
		return domain.ResultsDocument{}, err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	doc.Results = append(doc.Results, record)
	if err := s.commitLocked(ctx, &doc); err != nil {
		return domain.ResultsDocument{}, err
	}

	metrics.ResultsAppended.Inc()
	s.log.Info("result saved",
		zap.String("name", record.Name),
		zap.Int("score", record.Score),
		zap.Int("total", record.Total))
	return doc, nil
}

// Clear drops every record and zeroes the statistics.
func (s *ResultsStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	doc.Results = []domain.ResultRecord{}
	if err := s.commitLocked(ctx, &doc); err != nil {
		return err
	}
	s.log.Info("all results cleared")
	return nil
}

// Remove deletes the record with id and recomputes statistics from the
// remaining records.
func (s *ResultsStore) Remove(ctx context.Context, id domain.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	kept := make([]domain.ResultRecord, 0, len(doc.Results))
	for _, r := range doc.Results {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(doc.Results) {
		return domain.ErrResultNotFound
	}
	doc.Results = kept
	if err := s.commitLocked(ctx, &doc); err != nil {
		return err
	}
	metrics.ResultsRemoved.Inc()
	s.log.Info("result removed", zap.String("id", string(id)))
	return nil
}

// Subscribe streams the document after every mutation, starting with the
// current one. The caller must invoke the returned cancel function.
func (s *ResultsStore) Subscribe(ctx context.Context) (<-chan domain.ResultsDocument, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.updates.subscribe(doc)
	return ch, cancel, nil
}

// Close ends every subscription stream.
func (s *ResultsStore) Close() {
	s.updates.close()
}

// Submit lets the store act as an in-process ResultSink.
func (s *ResultsStore) Submit(ctx context.Context, record domain.ResultRecord) error {
	_, err := s.Append(ctx, record)
	return err
}

// Validate checks a record submitted from outside.
func (s *ResultsStore) Validate(record domain.ResultRecord) error {
	if err := s.validate.Struct(record); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidResult, err)
	}
	if len(record.Responses) > record.Total {
		return fmt.Errorf("%w: %d responses for %d questions", domain.ErrInvalidResult, len(record.Responses), record.Total)
	}
	return nil
}

func (s *ResultsStore) loadLocked(ctx context.Context) (domain.ResultsDocument, error) {
	data, err := s.store.Get(ctx, s.key)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		doc := s.emptyDocument(ctx)
		if err := s.writeLocked(ctx, doc); err != nil {
			return domain.ResultsDocument{}, err
		}
		return doc, nil
	}
	if err != nil {
		return domain.ResultsDocument{}, fmt.Errorf("read results: %w", err)
	}

	var doc domain.ResultsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("results document unreadable, reinitializing", zap.Error(err))
		doc = s.emptyDocument(ctx)
		if err := s.writeLocked(ctx, doc); err != nil {
			return domain.ResultsDocument{}, err
		}
		return doc, nil
	}
	if doc.Results == nil {
		doc.Results = []domain.ResultRecord{}
	}
	return doc, nil
}

// commitLocked recomputes statistics from scratch, stamps and writes doc.
func (s *ResultsStore) commitLocked(ctx context.Context, doc *domain.ResultsDocument) error {
	doc.Statistics = domain.ComputeStatistics(doc.Results)
	now := s.now().UTC()
	doc.LastUpdated = &now
	if err := s.writeLocked(ctx, *doc); err != nil {
		return err
	}
	s.updates.publish(*doc)
	return nil
}

func (s *ResultsStore) writeLocked(ctx context.Context, doc domain.ResultsDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := s.store.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

func (s *ResultsStore) emptyDocument(ctx context.Context) domain.ResultsDocument {
	info := s.info(ctx)
	if info.CreatedDate == "" {
		info.CreatedDate = s.now().Format("2006-01-02")
	}
	return domain.ResultsDocument{
		QuizInfo:   info,
		Statistics: domain.Statistics{},
		Results:    []domain.ResultRecord{},
	}
}
