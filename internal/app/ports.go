package app

import (
	"context"

	"mcq-quiz-service/internal/domain"
)

// DocumentStore is a durable key/value store of JSON documents (file, SQL,
// Redis, memory). Get returns domain.ErrDocumentNotFound for absent keys.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Timer runs one per-question countdown at a time.
type Timer interface {
	Start(seconds int, onTick func(remaining int), onExpire func())
	Cancel()
}

// ResultSink receives finished attempts. Submissions are fire-and-forget
// from the session's point of view.
type ResultSink interface {
	Submit(ctx context.Context, record domain.ResultRecord) error
}

// QuestionSource loads the ordered question set for a session.
type QuestionSource interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// Well-known document keys.
const (
	KeySessionState = "quizState"
	KeyResults      = "results"
	KeyQuestions    = "questions"
	KeySettings     = "settings"
)
