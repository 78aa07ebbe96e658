package app

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/metrics"
)

const (
	// DefaultSecondsPerQuestion is used when no duration is configured.
	DefaultSecondsPerQuestion = 30

	anonymousPlayer = "Anonymous"
	persistTimeout  = 2 * time.Second
	submitTimeout   = 10 * time.Second
)

// QuestionStatus is the per-question sub-state of an active session.
type QuestionStatus string

const (
	StatusUnanswered QuestionStatus = "unanswered"
	StatusAnswered   QuestionStatus = "answered"
	StatusLocked     QuestionStatus = "locked"
)

// SessionController drives one quiz attempt at a time. All mutation of the
// session state goes through its methods; timer callbacks are serialized
// with user operations by the same mutex.
type SessionController struct {
	timer   Timer
	persist *SessionPersistence
	sink    ResultSink
	log     *zap.Logger
	now     func() time.Time
	rnd     *rand.Rand
	newID   func() string

	seconds    int
	difficulty domain.Difficulty

	mu       sync.Mutex
	state    domain.SessionState
	result   *domain.ResultRecord
	timerGen uint64

	updates     *fanout[domain.SessionState]
	submissions sync.WaitGroup
}

// SessionOption customises a SessionController.
type SessionOption func(*SessionController)

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(c *SessionController) { c.now = now }
}

// WithRand fixes the shuffle source.
func WithRand(rnd *rand.Rand) SessionOption {
	return func(c *SessionController) { c.rnd = rnd }
}

// WithIDGenerator overrides result record ids.
func WithIDGenerator(fn func() string) SessionOption {
	return func(c *SessionController) { c.newID = fn }
}

// WithDifficulty sets the per-question countdown from a difficulty level.
// It takes precedence over the seconds passed to NewSessionController.
func WithDifficulty(d domain.Difficulty) SessionOption {
	return func(c *SessionController) {
		if s := d.SecondsPerQuestion(); s > 0 {
			c.seconds = s
			c.difficulty = d
		}
	}
}

// NewSessionController wires a controller. sink may be nil, in which case
// finished attempts are only kept locally.
func NewSessionController(timer Timer, persist *SessionPersistence, sink ResultSink, log *zap.Logger, secondsPerQuestion int, opts ...SessionOption) *SessionController {
	if log == nil {
		log = zap.NewNop()
	}
	if secondsPerQuestion <= 0 {
		secondsPerQuestion = DefaultSecondsPerQuestion
	}
	c := &SessionController{
		timer:   timer,
		persist: persist,
		sink:    sink,
		log:     log,
		now:     time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		newID:   newRecordID,
		seconds: secondsPerQuestion,
		state:   domain.SessionState{Phase: domain.PhaseNotStarted},
		updates: newFanout[domain.SessionState](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a new attempt over a shuffled copy of questions. The caller
// supplies a fallback set when its source is empty.
func (c *SessionController) Start(playerName string, questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	name := strings.TrimSpace(playerName)
	if name == "" {
		name = anonymousPlayer
	}
	c.state = domain.SessionState{
		Questions:  shuffle(c.rnd, questions),
		Responses:  make([]*domain.Response, len(questions)),
		PlayerName: name,
		InProgress: true,
		Phase:      domain.PhaseInProgress,
		Difficulty: c.difficulty,
		StartedAt:  c.now(),
	}
	c.result = nil
	c.startTimerLocked(c.seconds)
	c.persistLocked()
	c.publishLocked()

	metrics.SessionsStarted.Inc()
	c.log.Info("quiz session started", zap.String("player", name), zap.Int("questions", len(questions)))
	return nil
}

// Select sets the pending selection for the current question. Choosing the
// same label again is a no-op; a different label replaces it.
func (c *SessionController) Select(label domain.Label) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.InProgress {
		return domain.ErrSessionNotInProgress
	}
	if c.lockedLocked() {
		return domain.ErrQuestionLocked
	}
	label = domain.Label(strings.ToUpper(string(label)))
	if !c.state.Questions[c.state.CurrentIndex].Options.Has(label) {
		return domain.ErrInvalidLabel
	}
	if c.state.PendingSelection == label {
		return nil
	}
	c.state.PendingSelection = label
	c.persistLocked()
	c.publishLocked()
	return nil
}

// ConfirmAndAdvance freezes the current question and moves on, completing
// the session after the last question.
func (c *SessionController) ConfirmAndAdvance() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.InProgress {
		return domain.ErrSessionNotInProgress
	}
	idx := c.state.CurrentIndex
	if c.state.Responses[idx] == nil {
		if c.state.PendingSelection == "" {
			return domain.ErrNoSelection
		}
		c.freezeLocked(c.state.PendingSelection, false)
	}
	c.state.Score = domain.CountCorrect(c.state.Responses)
	c.stopTimerLocked()

	if idx == len(c.state.Questions)-1 {
		c.completeLocked()
		return nil
	}

	c.state.CurrentIndex++
	c.enterQuestionLocked()
	c.persistLocked()
	c.publishLocked()
	return nil
}

// GoBack re-enters the previous question read-only, with its frozen
// selection shown and no countdown running.
func (c *SessionController) GoBack() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.InProgress {
		return domain.ErrSessionNotInProgress
	}
	if c.state.CurrentIndex == 0 {
		return domain.ErrAtFirstQuestion
	}
	c.stopTimerLocked()
	c.state.CurrentIndex--
	c.enterQuestionLocked()
	c.persistLocked()
	c.publishLocked()
	return nil
}

// Resume restores a saved session verbatim. Resuming the same snapshot twice
// yields the same state. An unusable snapshot resets to NotStarted.
func (c *SessionController) Resume(saved domain.SessionState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.result = nil

	n := len(saved.Questions)
	if n == 0 || !saved.InProgress || saved.CurrentIndex < 0 || saved.CurrentIndex >= n || len(saved.Responses) > n {
		c.state = domain.SessionState{Phase: domain.PhaseNotStarted}
		c.publishLocked()
		return domain.ErrInvalidSnapshot
	}

	state := cloneState(saved)
	if len(state.Responses) < n {
		padded := make([]*domain.Response, n)
		copy(padded, state.Responses)
		state.Responses = padded
	}
	state.Phase = domain.PhaseInProgress
	state.Score = domain.CountCorrect(state.Responses)
	c.state = state

	if c.state.Responses[c.state.CurrentIndex] == nil {
		remaining := c.state.TimeRemaining
		if remaining <= 0 {
			remaining = c.seconds
		}
		c.startTimerLocked(remaining)
	}
	c.persistLocked()
	c.publishLocked()

	c.log.Info("quiz session resumed", zap.String("player", c.state.PlayerName), zap.Int("question", c.state.CurrentIndex+1))
	return nil
}

// Abandon drops the active session and its saved snapshot.
func (c *SessionController) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.clearPersistedLocked()
	c.state = domain.SessionState{Phase: domain.PhaseNotStarted}
	c.result = nil
	c.publishLocked()
}

// Snapshot returns a copy of the current state.
func (c *SessionController) Snapshot() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneState(c.state)
}

// Status reports the sub-state of the current question.
func (c *SessionController) Status() QuestionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.state.InProgress:
		return StatusUnanswered
	case c.lockedLocked():
		return StatusLocked
	case c.state.PendingSelection != "":
		return StatusAnswered
	}
	return StatusUnanswered
}

// CanAdvance reports whether ConfirmAndAdvance would move on.
func (c *SessionController) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.InProgress && (c.lockedLocked() || c.state.PendingSelection != "")
}

// Result returns the record of the completed attempt, if any.
func (c *SessionController) Result() (domain.ResultRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return domain.ResultRecord{}, false
	}
	return *c.result, true
}

// Subscribe returns a channel receiving the state after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *SessionController) Subscribe() (<-chan domain.SessionState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates.subscribe(cloneState(c.state))
}

// WaitSubmissions blocks until in-flight result submissions finish.
func (c *SessionController) WaitSubmissions() {
	c.submissions.Wait()
}

func (c *SessionController) handleTick(gen uint64, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.timerGen || !c.state.InProgress {
		return
	}
	c.state.TimeRemaining = remaining
	c.persistLocked()
	c.publishLocked()
}

// handleTimeout freezes the current question without advancing, so the
// player can still review it before moving on.
func (c *SessionController) handleTimeout(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.timerGen || !c.state.InProgress {
		return
	}
	if c.state.Responses[c.state.CurrentIndex] != nil {
		return
	}
	label := c.state.PendingSelection
	if label == "" {
		label = domain.Unanswered
	}
	c.freezeLocked(label, true)
	c.state.Score = domain.CountCorrect(c.state.Responses)
	c.state.TimeRemaining = 0
	c.stopTimerLocked()
	c.persistLocked()
	c.publishLocked()
}

func (c *SessionController) lockedLocked() bool {
	return c.state.Responses[c.state.CurrentIndex] != nil
}

func (c *SessionController) freezeLocked(label domain.Label, timedOut bool) {
	idx := c.state.CurrentIndex
	q := c.state.Questions[idx]
	c.state.Responses[idx] = &domain.Response{
		QuestionIndex: idx,
		Question:      q,
		SelectedLabel: label,
		CorrectLabel:  q.Answer,
		IsCorrect:     label == q.Answer,
		TimedOut:      timedOut,
	}
}

// enterQuestionLocked shows the question at CurrentIndex: read-only with its
// frozen selection if it was answered, otherwise fresh with a new countdown.
func (c *SessionController) enterQuestionLocked() {
	c.state.PendingSelection = ""
	if resp := c.state.Responses[c.state.CurrentIndex]; resp != nil {
		if resp.SelectedLabel != domain.Unanswered {
			c.state.PendingSelection = resp.SelectedLabel
		}
		c.state.TimeRemaining = 0
		return
	}
	c.startTimerLocked(c.seconds)
}

func (c *SessionController) completeLocked() {
	now := c.now()
	c.state.CurrentIndex = len(c.state.Questions)
	c.state.InProgress = false
	c.state.Phase = domain.PhaseCompleted
	c.state.PendingSelection = ""
	c.state.TimeRemaining = 0

	record := c.buildRecordLocked(now)
	c.result = &record
	c.clearPersistedLocked()
	c.publishLocked()

	metrics.SessionsCompleted.Inc()
	c.log.Info("quiz session completed",
		zap.String("player", record.Name),
		zap.Int("score", record.Score),
		zap.Int("total", record.Total))

	if c.sink == nil {
		return
	}
	c.submissions.Add(1)
	go func() {
		defer c.submissions.Done()
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		if err := c.sink.Submit(ctx, record); err != nil {
			metrics.SubmissionFailures.Inc()
			c.log.Warn("result submission failed", zap.String("id", string(record.ID)), zap.Error(err))
		}
	}()
}

func (c *SessionController) buildRecordLocked(now time.Time) domain.ResultRecord {
	total := len(c.state.Questions)
	summaries := make([]domain.ResponseSummary, 0, total)
	for i, resp := range c.state.Responses {
		q := c.state.Questions[i]
		summary := domain.ResponseSummary{
			Question:     q.Text,
			ChosenLabel:  domain.NotAnswered,
			CorrectLabel: string(q.Answer),
			Outcome:      domain.OutcomeWrong,
		}
		if resp != nil {
			if resp.SelectedLabel != domain.Unanswered && resp.SelectedLabel != "" {
				summary.ChosenLabel = string(resp.SelectedLabel)
			}
			if resp.IsCorrect {
				summary.Outcome = domain.OutcomeCorrect
			}
		}
		summaries = append(summaries, summary)
	}
	return domain.ResultRecord{
		ID:         domain.RecordID(c.newID()),
		Name:       c.state.PlayerName,
		Score:      c.state.Score,
		Total:      total,
		Percentage: domain.Percentage(c.state.Score, total),
		CreatedAt:  now.UTC(),
		Date:       now.Format("2006-01-02"),
		Time:       now.Format("15:04:05"),
		Responses:  summaries,
	}
}

func (c *SessionController) startTimerLocked(seconds int) {
	c.timerGen++
	gen := c.timerGen
	c.state.TimeRemaining = seconds
	c.timer.Start(seconds,
		func(remaining int) { c.handleTick(gen, remaining) },
		func() { c.handleTimeout(gen) },
	)
}

func (c *SessionController) stopTimerLocked() {
	c.timerGen++
	c.timer.Cancel()
}

func (c *SessionController) persistLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.persist.Save(ctx, c.state); err != nil {
		metrics.PersistFailures.Inc()
		c.log.Warn("could not persist session", zap.Error(err))
	}
}

func (c *SessionController) clearPersistedLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.persist.Clear(ctx); err != nil {
		metrics.PersistFailures.Inc()
		c.log.Warn("could not clear saved session", zap.Error(err))
	}
}

func (c *SessionController) publishLocked() {
	c.updates.publish(cloneState(c.state))
}

// shuffle returns a uniformly permuted copy of questions (Fisher–Yates).
func shuffle(rnd *rand.Rand, questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func cloneState(s domain.SessionState) domain.SessionState {
	out := s
	if s.Questions != nil {
		out.Questions = append([]domain.Question(nil), s.Questions...)
	}
	if s.Responses != nil {
		out.Responses = make([]*domain.Response, len(s.Responses))
		for i, r := range s.Responses {
			if r != nil {
				cp := *r
				out.Responses[i] = &cp
			}
		}
	}
	return out
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	return id.String()
}
