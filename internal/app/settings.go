package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"mcq-quiz-service/internal/domain"
)

// DefaultSettings mirrors a ten minute quiz with the default countdown.
func DefaultSettings() domain.Settings {
	return domain.Settings{Duration: 10, TimePerQuestion: DefaultSecondsPerQuestion}
}

// SettingsService stores admin-tunable quiz settings.
type SettingsService struct {
	store    DocumentStore
	key      string
	defaults domain.Settings
	validate *validator.Validate
}

func NewSettingsService(store DocumentStore, defaults domain.Settings) *SettingsService {
	return &SettingsService{store: store, key: KeySettings, defaults: defaults, validate: validator.New()}
}

// Get returns the stored settings, or the defaults when none are stored or
// the stored copy is unreadable.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	data, err := s.store.Get(ctx, s.key)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	settings := s.defaults
	if err := json.Unmarshal(data, &settings); err != nil {
		return s.defaults, nil
	}
	return settings, nil
}

// Save validates and stores settings.
func (s *SettingsService) Save(ctx context.Context, settings domain.Settings) error {
	if err := s.validate.Struct(settings); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSettings, err)
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SecondsPerQuestion resolves the countdown: difficulty first, then the
// explicit per-question seconds, then the default.
func SecondsPerQuestion(settings domain.Settings) int {
	if s := settings.Difficulty.SecondsPerQuestion(); s > 0 {
		return s
	}
	if settings.TimePerQuestion > 0 {
		return settings.TimePerQuestion
	}
	return DefaultSecondsPerQuestion
}
