package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"mcq-quiz-service/internal/metrics"
)

// RouterOptions tunes cross-cutting router behaviour.
type RouterOptions struct {
	AllowedOrigins []string
	Log            *zap.Logger
}

// NewRouter mounts the API at the root and again under /api.
func NewRouter(h *Handler, ws *WSHandler, opts RouterOptions) http.Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	api := func(r chi.Router) {
		r.Get("/results", h.GetResults)
		r.Post("/results", h.PostResult)
		r.Delete("/results", h.DeleteResult)
		r.Post("/results/clear", h.ClearResults)

		r.Get("/questions", h.GetQuestions)
		r.Put("/questions", h.PutQuestions)

		r.Post("/login", h.Login)

		r.Get("/settings", h.GetSettings)
		r.Post("/settings", h.PostSettings)

		if ws != nil {
			r.Get("/ws/results", ws.ServeResults)
		}
	}
	r.Group(api)
	r.Route("/api", api)
	return r
}

// requestLogger logs one line per request through zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
