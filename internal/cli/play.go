package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/client"
	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/logging"
)

// NewPlayCmd runs a quiz in the terminal against a running server.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		serverURL  string
		difficulty string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.Client.ServerURL = serverURL
			}
			// console logging would interleave with the quiz, so only the file sink is used
			log := zap.NewNop()
			if cfg.Log.File != "" {
				if l, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}); err == nil {
					log = l
				}
			}
			defer log.Sync()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, closeStore, err := sessionStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			remote := client.New(cfg.Client.ServerURL)
			persist := app.NewSessionPersistence(store, log)
			settings := countdownSettings(ctx, remote, cfg, difficulty, log)
			ctrl := newController(app.NewCountdown(), persist, remote, log, settings)

			p := newPlayer(ctrl, persist, remote, cmd.InOrStdin(), cmd.OutOrStdout())
			return p.run(ctx)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "quiz service base URL (overrides config)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or hard (overrides server settings)")
	return cmd
}

type settingsSource interface {
	Settings(ctx context.Context) (domain.Settings, error)
}

// countdownSettings resolves the per-question budget: the --difficulty flag
// first, then the settings stored on the server, then the local quiz config
// when the server cannot be reached.
func countdownSettings(ctx context.Context, source settingsSource, cfg config.Config, flagDifficulty string, log *zap.Logger) domain.Settings {
	settings := domain.Settings{
		TimePerQuestion: cfg.Quiz.TimePerQuestion,
		Difficulty:      domain.Difficulty(cfg.Quiz.Difficulty),
	}
	if remote, err := source.Settings(ctx); err != nil {
		log.Warn("could not fetch quiz settings, using local config", zap.Error(err))
	} else {
		settings = remote
	}
	if flagDifficulty != "" {
		settings.Difficulty = domain.Difficulty(strings.ToLower(flagDifficulty))
	}
	return settings
}

func newController(timer app.Timer, persist *app.SessionPersistence, sink app.ResultSink, log *zap.Logger, settings domain.Settings) *app.SessionController {
	return app.NewSessionController(timer, persist, sink, log, app.SecondsPerQuestion(settings),
		app.WithDifficulty(settings.Difficulty))
}

// player drives a SessionController from line-based terminal input.
type player struct {
	ctrl    *app.SessionController
	persist *app.SessionPersistence
	source  app.QuestionSource
	lines   <-chan string
	out     io.Writer

	shown     int
	shownLock bool
}

func newPlayer(ctrl *app.SessionController, persist *app.SessionPersistence, source app.QuestionSource, in io.Reader, out io.Writer) *player {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return &player{ctrl: ctrl, persist: persist, source: source, lines: lines, out: out, shown: -1}
}

func (p *player) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resumed := false
	if saved, ok := p.persist.Load(ctx); ok {
		fmt.Fprintf(p.out, "Saved quiz found for %s at question %d of %d. Resume? [Y/n] ",
			saved.PlayerName, saved.CurrentIndex+1, len(saved.Questions))
		answer, _ := p.readLine()
		if !strings.EqualFold(answer, "n") {
			resumed = p.ctrl.Resume(saved) == nil
		} else {
			p.ctrl.Abandon()
		}
	}

	if !resumed {
		fmt.Fprint(p.out, "Enter your name: ")
		name, ok := p.readLine()
		if !ok {
			return nil
		}
		questions, err := p.source.Questions(ctx)
		if err != nil || len(questions) == 0 {
			fmt.Fprintln(p.out, "Could not load questions from the server, using the built-in set.")
			questions = domain.DefaultQuestions()
		}
		if err := p.ctrl.Start(name, questions); err != nil {
			return err
		}
	}
	fmt.Fprintln(p.out, "Commands: a-d select, n next, p previous, q save and quit, x abandon")

	updates, cancel := p.ctrl.Subscribe()
	defer cancel()

	p.render(p.ctrl.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state := <-updates:
			if state.Phase == domain.PhaseInProgress && state.CurrentIndex == p.shown && !p.shownLock {
				if resp := state.Responses[state.CurrentIndex]; resp != nil && resp.TimedOut {
					p.shownLock = true
					fmt.Fprintln(p.out, "Time's up! Press n to continue.")
				}
			}
		case line, ok := <-p.lines:
			if !ok {
				fmt.Fprintln(p.out, "\nProgress saved.")
				return nil
			}
			done, err := p.handle(line)
			if done || err != nil {
				return err
			}
		}
	}
}

func (p *player) handle(line string) (bool, error) {
	cmd := strings.ToLower(line)
	var err error
	switch cmd {
	case "":
		return false, nil
	case "a", "b", "c", "d":
		err = p.ctrl.Select(domain.Label(strings.ToUpper(cmd)))
	case "n":
		err = p.ctrl.ConfirmAndAdvance()
	case "p":
		err = p.ctrl.GoBack()
	case "q":
		fmt.Fprintln(p.out, "Progress saved. Run play again to resume.")
		return true, nil
	case "x":
		p.ctrl.Abandon()
		fmt.Fprintln(p.out, "Quiz abandoned.")
		return true, nil
	default:
		fmt.Fprintf(p.out, "Unknown command %q\n", line)
		return false, nil
	}
	if err != nil {
		fmt.Fprintf(p.out, "%s\n", describe(err))
		return false, nil
	}

	state := p.ctrl.Snapshot()
	if state.Phase == domain.PhaseCompleted {
		p.summary()
		return true, nil
	}
	if cmd == "n" || cmd == "p" {
		p.render(state)
	} else if p.ctrl.CanAdvance() {
		fmt.Fprintf(p.out, "Selected %s, press n to confirm\n", state.PendingSelection)
	}
	return false, nil
}

func (p *player) render(state domain.SessionState) {
	if !state.InProgress {
		return
	}
	idx := state.CurrentIndex
	q := state.Questions[idx]
	resp := state.Responses[idx]
	p.shown = idx
	p.shownLock = resp != nil

	fmt.Fprintf(p.out, "\nQuestion %d of %d", idx+1, len(state.Questions))
	if p.ctrl.Status() == app.StatusLocked {
		fmt.Fprint(p.out, "  (answered)")
	} else {
		fmt.Fprintf(p.out, "  (%ds)", state.TimeRemaining)
	}
	fmt.Fprintf(p.out, "\n%s\n", q.Text)
	for _, opt := range q.Options {
		marker := " "
		if opt.Label == state.PendingSelection {
			marker = "*"
		}
		fmt.Fprintf(p.out, " %s %s) %s\n", marker, opt.Label, opt.Text)
	}
}

func (p *player) summary() {
	record, ok := p.ctrl.Result()
	if !ok {
		return
	}
	title, message := domain.Grade(record.Percentage)
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, message)
	fmt.Fprintf(p.out, "%s scored %d/%d (%d%%)\n\n", record.Name, record.Score, record.Total, record.Percentage)
	for i, r := range record.Responses {
		fmt.Fprintf(p.out, "%d. %s\n   your answer: %s, correct: %s (%s)\n", i+1, r.Question, r.ChosenLabel, r.CorrectLabel, r.Outcome)
	}
	p.ctrl.WaitSubmissions()
}

func (p *player) readLine() (string, bool) {
	line, ok := <-p.lines
	return line, ok
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuestionLocked):
		return "This question is already answered."
	case errors.Is(err, domain.ErrNoSelection):
		return "Select an answer first."
	case errors.Is(err, domain.ErrAtFirstQuestion):
		return "Already at the first question."
	case errors.Is(err, domain.ErrInvalidLabel):
		return "That option does not exist."
	}
	return err.Error()
}
