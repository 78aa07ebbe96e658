package memory

import (
	"context"
	"sync"

	"mcq-quiz-service/internal/domain"
)

// DocumentStore is an in-memory implementation of app.DocumentStore.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string][]byte),
	}
}

func (s *DocumentStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[key]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *DocumentStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]byte(nil), data...)
	return nil
}

func (s *DocumentStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}
