package app_test

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/infra/memory"
)

func TestStartShufflesAndPersists(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.ctrl.Start("  ", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	state := h.ctrl.Snapshot()
	if !state.InProgress || state.Phase != domain.PhaseInProgress {
		t.Fatalf("expected in-progress session, got %+v", state.Phase)
	}
	if state.PlayerName != "Anonymous" {
		t.Fatalf("expected anonymous player, got %q", state.PlayerName)
	}
	if len(state.Questions) != 5 || len(state.Responses) != 5 {
		t.Fatalf("expected 5 questions and response slots, got %d/%d", len(state.Questions), len(state.Responses))
	}
	seen := map[string]bool{}
	for _, q := range state.Questions {
		seen[q.Text] = true
	}
	for _, q := range domain.DefaultQuestions() {
		if !seen[q.Text] {
			t.Fatalf("shuffled set lost question %q", q.Text)
		}
	}
	if h.timer.starts != 1 || h.timer.seconds != 20 || state.TimeRemaining != 20 {
		t.Fatalf("expected one 20s countdown, got starts=%d seconds=%d remaining=%d", h.timer.starts, h.timer.seconds, state.TimeRemaining)
	}

	saved, ok := h.persist.Load(context.Background())
	if !ok || saved.PlayerName != "Anonymous" || len(saved.Questions) != 5 {
		t.Fatalf("expected persisted session, got ok=%v %+v", ok, saved.PlayerName)
	}
}

func TestStartRequiresQuestions(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.Start("Alice", nil); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if h.ctrl.Snapshot().Phase != domain.PhaseNotStarted {
		t.Fatalf("expected session to stay not started")
	}
}

func TestScoreIsRecomputedAfterEveryAdvance(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	pattern := []bool{true, false, true, true, false}
	for i, correct := range pattern {
		q := h.ctrl.Snapshot().Questions[i]
		label := wrongLabel(q)
		if correct {
			label = q.Answer
		}
		mustSelect(t, h.ctrl, label)
		if err := h.ctrl.ConfirmAndAdvance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		state := h.ctrl.Snapshot()
		if state.Score != domain.CountCorrect(state.Responses) {
			t.Fatalf("score %d drifted from recount %d", state.Score, domain.CountCorrect(state.Responses))
		}
	}
	if got := h.ctrl.Snapshot().Score; got != 3 {
		t.Fatalf("expected final score 3, got %d", got)
	}
}

func TestChangingSelectionRecordsOnlyTheFinalChoice(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	q := h.ctrl.Snapshot().Questions[0]

	mustSelect(t, h.ctrl, q.Answer)
	if h.ctrl.Status() != app.StatusAnswered || !h.ctrl.CanAdvance() {
		t.Fatalf("expected question answerable after selection")
	}
	mustSelect(t, h.ctrl, wrongLabel(q))
	mustSelect(t, h.ctrl, wrongLabel(q))
	if err := h.ctrl.ConfirmAndAdvance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	state := h.ctrl.Snapshot()
	resp := state.Responses[0]
	if resp == nil || resp.SelectedLabel != wrongLabel(q) || resp.IsCorrect {
		t.Fatalf("expected only final wrong selection recorded, got %+v", resp)
	}
	if state.Score != 0 {
		t.Fatalf("expected score 0, got %d", state.Score)
	}
	for i := 1; i < len(state.Responses); i++ {
		if state.Responses[i] != nil {
			t.Fatalf("unexpected response residue at %d", i)
		}
	}
	if state.PendingSelection != "" {
		t.Fatalf("expected fresh question without selection, got %q", state.PendingSelection)
	}
}

func TestSelectRejectsUnknownLabel(t *testing.T) {
	h := newHarness(t, nil)
	questions := []domain.Question{{
		Text:    "Two options",
		Options: domain.Options{{Label: domain.LabelA, Text: "yes"}, {Label: domain.LabelB, Text: "no"}},
		Answer:  domain.LabelA,
	}}
	if err := h.ctrl.Start("Alice", questions); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.ctrl.Select(domain.LabelD); !errors.Is(err, domain.ErrInvalidLabel) {
		t.Fatalf("expected invalid label, got %v", err)
	}
	if err := h.ctrl.ConfirmAndAdvance(); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected no selection, got %v", err)
	}
	if err := h.ctrl.Select("a"); err != nil {
		t.Fatalf("lower-case label should select: %v", err)
	}
	if got := h.ctrl.Snapshot().PendingSelection; got != domain.LabelA {
		t.Fatalf("expected A selected, got %q", got)
	}
}

func TestTimeoutWithoutSelectionLocksUnanswered(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	h.timer.expire()

	state := h.ctrl.Snapshot()
	resp := state.Responses[0]
	if resp == nil || resp.SelectedLabel != domain.Unanswered || resp.IsCorrect || !resp.TimedOut {
		t.Fatalf("expected unanswered timed-out response, got %+v", resp)
	}
	if state.CurrentIndex != 0 {
		t.Fatalf("timeout must not advance, index %d", state.CurrentIndex)
	}
	if h.ctrl.Status() != app.StatusLocked || !h.ctrl.CanAdvance() {
		t.Fatalf("expected locked question ready to advance")
	}
	if err := h.ctrl.Select(domain.LabelA); !errors.Is(err, domain.ErrQuestionLocked) {
		t.Fatalf("expected locked question, got %v", err)
	}
	if h.timer.running {
		t.Fatalf("expected timer stopped after timeout")
	}

	if err := h.ctrl.ConfirmAndAdvance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	state = h.ctrl.Snapshot()
	if state.CurrentIndex != 1 || state.Responses[0].SelectedLabel != domain.Unanswered {
		t.Fatalf("expected advance keeping unanswered response, got index %d", state.CurrentIndex)
	}
	if h.timer.starts != 2 {
		t.Fatalf("expected fresh countdown for next question, starts=%d", h.timer.starts)
	}
}

func TestTimeoutKeepsPendingSelection(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	q := h.ctrl.Snapshot().Questions[0]
	mustSelect(t, h.ctrl, q.Answer)

	h.timer.expire()

	state := h.ctrl.Snapshot()
	if resp := state.Responses[0]; resp == nil || resp.SelectedLabel != q.Answer || !resp.IsCorrect {
		t.Fatalf("expected pending selection frozen on timeout, got %+v", resp)
	}
	if state.Score != 1 {
		t.Fatalf("expected score 1, got %d", state.Score)
	}
}

func TestFiveQuestionScenario(t *testing.T) {
	sink := &recordingSink{}
	h := newHarness(t, sink)
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Q1 correct
	mustSelect(t, h.ctrl, h.ctrl.Snapshot().Questions[0].Answer)
	mustAdvance(t, h.ctrl)
	// Q2 times out with nothing selected
	h.timer.expire()
	mustAdvance(t, h.ctrl)
	// Q3..Q5 wrong
	for i := 2; i < 5; i++ {
		mustSelect(t, h.ctrl, wrongLabel(h.ctrl.Snapshot().Questions[i]))
		mustAdvance(t, h.ctrl)
	}

	state := h.ctrl.Snapshot()
	if state.Phase != domain.PhaseCompleted || state.InProgress || state.CurrentIndex != 5 {
		t.Fatalf("expected completed session, got phase=%s index=%d", state.Phase, state.CurrentIndex)
	}
	record, ok := h.ctrl.Result()
	if !ok {
		t.Fatalf("expected result record")
	}
	if record.Score != 1 || record.Total != 5 || record.Percentage != 20 {
		t.Fatalf("expected 1/5 (20%%), got %d/%d (%d%%)", record.Score, record.Total, record.Percentage)
	}
	if record.Responses[1].ChosenLabel != domain.NotAnswered || record.Responses[1].Outcome != domain.OutcomeWrong {
		t.Fatalf("expected second response not answered, got %+v", record.Responses[1])
	}
	if record.Responses[0].Outcome != domain.OutcomeCorrect {
		t.Fatalf("expected first response correct, got %+v", record.Responses[0])
	}
	if record.ID != "rec-1" || record.Name != "Alice" {
		t.Fatalf("unexpected record identity %q/%q", record.ID, record.Name)
	}

	h.ctrl.WaitSubmissions()
	if got := sink.all(); len(got) != 1 || got[0].ID != record.ID {
		t.Fatalf("expected one submitted record, got %d", len(got))
	}
	if _, ok := h.persist.Load(context.Background()); ok {
		t.Fatalf("expected saved session cleared on completion")
	}
	if err := h.ctrl.Select(domain.LabelA); !errors.Is(err, domain.ErrSessionNotInProgress) {
		t.Fatalf("expected completed session to reject selection, got %v", err)
	}
}

func TestGoBackShowsFrozenSelectionWithoutRestartingTimer(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.ctrl.GoBack(); !errors.Is(err, domain.ErrAtFirstQuestion) {
		t.Fatalf("expected first-question guard, got %v", err)
	}

	first := h.ctrl.Snapshot().Questions[0]
	chosen := wrongLabel(first)
	mustSelect(t, h.ctrl, chosen)
	mustAdvance(t, h.ctrl)
	if h.timer.starts != 2 {
		t.Fatalf("expected countdown for second question, starts=%d", h.timer.starts)
	}

	if err := h.ctrl.GoBack(); err != nil {
		t.Fatalf("go back: %v", err)
	}
	state := h.ctrl.Snapshot()
	if state.CurrentIndex != 0 || state.PendingSelection != chosen {
		t.Fatalf("expected first question showing %q, got index=%d selection=%q", chosen, state.CurrentIndex, state.PendingSelection)
	}
	if h.timer.starts != 2 || h.timer.running {
		t.Fatalf("timer must stay stopped on a revisited question (starts=%d running=%v)", h.timer.starts, h.timer.running)
	}
	if h.ctrl.Status() != app.StatusLocked {
		t.Fatalf("expected revisited question locked")
	}
	if err := h.ctrl.Select(first.Answer); !errors.Is(err, domain.ErrQuestionLocked) {
		t.Fatalf("expected locked revisit, got %v", err)
	}

	mustAdvance(t, h.ctrl)
	state = h.ctrl.Snapshot()
	if state.CurrentIndex != 1 || state.Responses[0].SelectedLabel != chosen {
		t.Fatalf("expected forward move keeping frozen answer, got %+v", state.Responses[0])
	}
	if h.timer.starts != 3 || !h.timer.running {
		t.Fatalf("expected fresh countdown on the unanswered question, starts=%d", h.timer.starts)
	}
}

func TestTickUpdatesRemainingAndStaleCallbacksAreIgnored(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.timer.tick(7)
	if got := h.ctrl.Snapshot().TimeRemaining; got != 7 {
		t.Fatalf("expected 7 seconds remaining, got %d", got)
	}
	saved, _ := h.persist.Load(context.Background())
	if saved.TimeRemaining != 7 {
		t.Fatalf("expected remaining time persisted, got %d", saved.TimeRemaining)
	}

	staleExpire := h.timer.onExpire
	mustSelect(t, h.ctrl, h.ctrl.Snapshot().Questions[0].Answer)
	mustAdvance(t, h.ctrl)

	staleExpire()
	if resp := h.ctrl.Snapshot().Responses[1]; resp != nil {
		t.Fatalf("stale expiry froze the next question: %+v", resp)
	}
}

func TestResumeIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustSelect(t, h.ctrl, h.ctrl.Snapshot().Questions[0].Answer)
	mustAdvance(t, h.ctrl)
	h.timer.tick(12)
	mustSelect(t, h.ctrl, wrongLabel(h.ctrl.Snapshot().Questions[1]))

	saved, ok := h.persist.Load(context.Background())
	if !ok {
		t.Fatalf("expected saved session")
	}

	resumed := newHarness(t, nil)
	if err := resumed.ctrl.Resume(saved); err != nil {
		t.Fatalf("resume: %v", err)
	}
	once := resumed.ctrl.Snapshot()
	if err := resumed.ctrl.Resume(saved); err != nil {
		t.Fatalf("resume twice: %v", err)
	}
	twice := resumed.ctrl.Snapshot()

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("resume not idempotent:\n%+v\n%+v", once, twice)
	}
	if once.CurrentIndex != 1 || once.Score != 1 || once.TimeRemaining != 12 || once.PendingSelection == "" {
		t.Fatalf("unexpected resumed state index=%d score=%d remaining=%d selection=%q",
			once.CurrentIndex, once.Score, once.TimeRemaining, once.PendingSelection)
	}
	if resumed.timer.seconds != 12 || !resumed.timer.running {
		t.Fatalf("expected countdown resumed at 12s, got %d", resumed.timer.seconds)
	}
}

func TestResumeRejectsUnusableSnapshots(t *testing.T) {
	h := newHarness(t, nil)
	cases := []domain.SessionState{
		{InProgress: true},
		{InProgress: false, Questions: domain.DefaultQuestions()},
		{InProgress: true, Questions: domain.DefaultQuestions(), CurrentIndex: 9},
	}
	for i, saved := range cases {
		if err := h.ctrl.Resume(saved); !errors.Is(err, domain.ErrInvalidSnapshot) {
			t.Fatalf("case %d: expected invalid snapshot, got %v", i, err)
		}
		if h.ctrl.Snapshot().Phase != domain.PhaseNotStarted {
			t.Fatalf("case %d: expected fallback to not started", i)
		}
	}
}

func TestOutOfTurnOperationsLeaveStateUntouched(t *testing.T) {
	h := newHarness(t, nil)
	before := h.ctrl.Snapshot()
	if err := h.ctrl.Select(domain.LabelA); !errors.Is(err, domain.ErrSessionNotInProgress) {
		t.Fatalf("select: expected not in progress, got %v", err)
	}
	if err := h.ctrl.ConfirmAndAdvance(); !errors.Is(err, domain.ErrSessionNotInProgress) {
		t.Fatalf("advance: expected not in progress, got %v", err)
	}
	if err := h.ctrl.GoBack(); !errors.Is(err, domain.ErrSessionNotInProgress) {
		t.Fatalf("back: expected not in progress, got %v", err)
	}
	if !reflect.DeepEqual(before, h.ctrl.Snapshot()) {
		t.Fatalf("state changed by out-of-turn calls")
	}
}

func TestSubmissionFailureStillCompletes(t *testing.T) {
	sink := &recordingSink{err: errors.New("server down")}
	h := newHarness(t, sink)
	questions := domain.DefaultQuestions()[:1]
	if err := h.ctrl.Start("Alice", questions); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustSelect(t, h.ctrl, questions[0].Answer)
	mustAdvance(t, h.ctrl)
	h.ctrl.WaitSubmissions()

	if h.ctrl.Snapshot().Phase != domain.PhaseCompleted {
		t.Fatalf("expected completion despite submission failure")
	}
	if record, ok := h.ctrl.Result(); !ok || record.Score != 1 || record.Percentage != 100 {
		t.Fatalf("expected local result 1/1, got %+v", record)
	}
}

func TestAbandonClearsSavedSession(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.ctrl.Abandon()
	if _, ok := h.persist.Load(context.Background()); ok {
		t.Fatalf("expected saved session removed")
	}
	if h.ctrl.Snapshot().Phase != domain.PhaseNotStarted || h.timer.running {
		t.Fatalf("expected idle controller after abandon")
	}
}

func TestSubscribeReceivesStateChanges(t *testing.T) {
	h := newHarness(t, nil)
	updates, cancel := h.ctrl.Subscribe()
	defer cancel()

	initial := <-updates
	if initial.Phase != domain.PhaseNotStarted {
		t.Fatalf("expected initial not-started snapshot, got %s", initial.Phase)
	}
	if err := h.ctrl.Start("Alice", domain.DefaultQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case update := <-updates:
		if update.Phase != domain.PhaseInProgress {
			t.Fatalf("expected in-progress update, got %s", update.Phase)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected update after start")
	}
}

type harness struct {
	ctrl    *app.SessionController
	timer   *fakeTimer
	persist *app.SessionPersistence
}

func newHarness(t *testing.T, sink app.ResultSink) *harness {
	t.Helper()
	timer := &fakeTimer{}
	persist := app.NewSessionPersistence(memory.NewDocumentStore(), nil)
	fixed := time.Date(2024, 11, 22, 10, 30, 0, 0, time.UTC)
	ids := 0
	ctrl := app.NewSessionController(timer, persist, sink, nil, 30,
		app.WithDifficulty(domain.DifficultyMedium),
		app.WithClock(func() time.Time { return fixed }),
		app.WithRand(rand.New(rand.NewSource(42))),
		app.WithIDGenerator(func() string {
			ids++
			return "rec-" + strconv.Itoa(ids)
		}),
	)
	return &harness{ctrl: ctrl, timer: timer, persist: persist}
}

func mustSelect(t *testing.T, ctrl *app.SessionController, label domain.Label) {
	t.Helper()
	if err := ctrl.Select(label); err != nil {
		t.Fatalf("select %s: %v", label, err)
	}
}

func mustAdvance(t *testing.T, ctrl *app.SessionController) {
	t.Helper()
	if err := ctrl.ConfirmAndAdvance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
}

func wrongLabel(q domain.Question) domain.Label {
	for _, opt := range q.Options {
		if opt.Label != q.Answer {
			return opt.Label
		}
	}
	return ""
}

// fakeTimer records countdowns and lets tests fire them synchronously.
type fakeTimer struct {
	mu       sync.Mutex
	starts   int
	seconds  int
	running  bool
	onTick   func(int)
	onExpire func()
}

func (f *fakeTimer) Start(seconds int, onTick func(int), onExpire func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.seconds = seconds
	f.running = true
	f.onTick = onTick
	f.onExpire = onExpire
}

func (f *fakeTimer) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeTimer) tick(remaining int) {
	f.mu.Lock()
	fn := f.onTick
	f.mu.Unlock()
	fn(remaining)
}

func (f *fakeTimer) expire() {
	f.mu.Lock()
	fn := f.onExpire
	f.running = false
	f.mu.Unlock()
	fn()
}

type recordingSink struct {
	mu      sync.Mutex
	err     error
	records []domain.ResultRecord
}

func (s *recordingSink) Submit(_ context.Context, record domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *recordingSink) all() []domain.ResultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ResultRecord(nil), s.records...)
}
