package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "endpoint"},
	)

	SessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_sessions_started_total",
		Help: "Quiz sessions started",
	})
	SessionsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_sessions_completed_total",
		Help: "Quiz sessions completed",
	})
	SubmissionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_result_submission_failures_total",
		Help: "Finished attempts that could not be submitted",
	})
	PersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_session_persist_failures_total",
		Help: "Session snapshot writes that failed",
	})
	ResultsAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_results_appended_total",
		Help: "Result records appended to the results store",
	})
	ResultsRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_results_removed_total",
		Help: "Result records removed from the results store",
	})
	QuestionFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quiz_question_fallbacks_total",
		Help: "Times the default question set was served",
	})
)

var initOnce sync.Once

// Init registers the collectors with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SessionsStarted,
			SessionsCompleted,
			SubmissionFailures,
			PersistFailures,
			ResultsAppended,
			ResultsRemoved,
			QuestionFallbacks,
		)
	})
}

// Middleware records request counts and latency per route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
