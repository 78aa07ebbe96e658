package domain

import (
	"fmt"
	"strings"
)

// Validate checks a question against the fixed label set.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: %q needs at least two options", ErrInvalidQuestion, q.Text)
	}
	seen := make(map[Label]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if !opt.Label.Valid() {
			return fmt.Errorf("%w: %q has unknown label %q", ErrInvalidQuestion, q.Text, opt.Label)
		}
		if _, dup := seen[opt.Label]; dup {
			return fmt.Errorf("%w: %q repeats label %q", ErrInvalidQuestion, q.Text, opt.Label)
		}
		seen[opt.Label] = struct{}{}
		if strings.TrimSpace(opt.Text) == "" {
			return fmt.Errorf("%w: %q option %s is empty", ErrInvalidQuestion, q.Text, opt.Label)
		}
	}
	if !q.Options.Has(q.Answer) {
		return fmt.Errorf("%w: %q answer %q is not an option", ErrInvalidQuestion, q.Text, q.Answer)
	}
	return nil
}

// ValidateQuestions validates every question of a set, reporting the first
// failure with its position.
func ValidateQuestions(questions []Question) error {
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}
