package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mcq-quiz-service/internal/domain"
)

// Client talks to a running quiz service. It doubles as the session's
// question source and result sink.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Questions fetches the question set. Callers fall back to defaults on error.
func (c *Client) Questions(ctx context.Context) ([]domain.Question, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/questions", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch questions: %s", resp.Status)
	}
	var questions []domain.Question
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// Settings fetches the quiz settings an admin stored on the server.
func (c *Client) Settings(ctx context.Context) (domain.Settings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/settings", nil)
	if err != nil {
		return domain.Settings{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("fetch settings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Settings{}, fmt.Errorf("fetch settings: %s", resp.Status)
	}
	var settings domain.Settings
	if err := json.NewDecoder(resp.Body).Decode(&settings); err != nil {
		return domain.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// Submit posts a finished attempt to the results store.
func (c *Client) Submit(ctx context.Context, record domain.ResultRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/results", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("submit result: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
