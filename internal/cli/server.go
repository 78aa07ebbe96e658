package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/config"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/logging"
	"mcq-quiz-service/internal/metrics"
	transport "mcq-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	metrics.Init()

	bank := app.NewQuestionBank(questionRepository(b, cfg), log.Named("questions"))
	results := app.NewResultsStore(b.store, log.Named("results"),
		app.WithQuizInfo(func(ctx context.Context) domain.QuizInfo {
			questions, _ := bank.Questions(ctx)
			return domain.QuizInfo{Title: cfg.Quiz.Title, TotalQuestions: len(questions)}
		}),
	)
	defer results.Close()
	settings := app.NewSettingsService(b.store, domain.Settings{
		Duration:        app.DefaultSettings().Duration,
		TimePerQuestion: cfg.Quiz.TimePerQuestion,
		Difficulty:      domain.Difficulty(cfg.Quiz.Difficulty),
	})
	auth := app.NewAuthenticator(cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.PasswordHash)
	if cfg.Admin.Password == "" && cfg.Admin.PasswordHash == "" {
		log.Warn("admin password not configured, /login will reject every attempt")
	}

	handler := transport.NewHandler(results, bank, settings, auth, log.Named("http"))
	perSecond, burst := config.Rate(cfg.Admin.LoginRate, 5.0/60, 5)
	handler.SetLoginRate(perSecond, burst)
	wsHandler := transport.NewWSHandler(results, log.Named("ws"))

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(handler, wsHandler, transport.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Log:            log.Named("http"),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("addr", server.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	results.Close()
	return server.Shutdown(shutdownCtx)
}
