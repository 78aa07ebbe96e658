package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mcq-quiz-service/internal/domain"
)

// SessionPersistence keeps the single in-progress session snapshot under a
// well-known key. Writes are last-write-wins; reads are best-effort.
type SessionPersistence struct {
	store DocumentStore
	key   string
	log   *zap.Logger
}

func NewSessionPersistence(store DocumentStore, log *zap.Logger) *SessionPersistence {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionPersistence{store: store, key: KeySessionState, log: log}
}

// Save overwrites the stored snapshot.
func (p *SessionPersistence) Save(ctx context.Context, state domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := p.store.Put(ctx, p.key, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the saved snapshot. A missing or unreadable entry is reported
// as "no saved session" and never as an error.
func (p *SessionPersistence) Load(ctx context.Context) (domain.SessionState, bool) {
	data, err := p.store.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			p.log.Warn("could not read saved session", zap.Error(err))
		}
		return domain.SessionState{}, false
	}
	var state domain.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		p.log.Warn("discarding malformed saved session", zap.Error(err))
		return domain.SessionState{}, false
	}
	if !state.InProgress || len(state.Questions) == 0 {
		return domain.SessionState{}, false
	}
	return state, true
}

// Clear removes the snapshot.
func (p *SessionPersistence) Clear(ctx context.Context) error {
	if err := p.store.Delete(ctx, p.key); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
