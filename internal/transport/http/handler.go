package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// Handler serves the REST surface over the results store, question bank,
// settings and admin login.
type Handler struct {
	results  *app.ResultsStore
	bank     *app.QuestionBank
	settings *app.SettingsService
	auth     *app.Authenticator
	log      *zap.Logger

	loginRate  rate.Limit
	loginBurst int
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
}

func NewHandler(results *app.ResultsStore, bank *app.QuestionBank, settings *app.SettingsService, auth *app.Authenticator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		results:    results,
		bank:       bank,
		settings:   settings,
		auth:       auth,
		log:        log,
		loginRate:  rate.Limit(5.0 / 60),
		loginBurst: 5,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// SetLoginRate configures per-client login throttling.
func (h *Handler) SetLoginRate(perSecond float64, burst int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loginRate = rate.Limit(perSecond)
	h.loginBurst = burst
	h.limiters = make(map[string]*rate.Limiter)
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	doc, err := h.results.Read(r.Context())
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to read results", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) PostResult(w http.ResponseWriter, r *http.Request) {
	var record domain.ResultRecord
	if err := decodeJSON(w, r, &record); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "Invalid result payload"})
		return
	}
	doc, err := h.results.Append(r.Context(), record)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidResult) {
			writeJSON(w, http.StatusBadRequest, statusResponse{Message: err.Error()})
			return
		}
		h.fail(w, http.StatusInternalServerError, "Failed to save result", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "Result saved successfully", Data: doc})
}

func (h *Handler) ClearResults(w http.ResponseWriter, r *http.Request) {
	if err := h.results.Clear(r.Context()); err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to clear results", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "All results cleared"})
}

func (h *Handler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "Missing result id"})
		return
	}
	err := h.results.Remove(r.Context(), domain.RecordID(id))
	if errors.Is(err, domain.ErrResultNotFound) {
		writeJSON(w, http.StatusNotFound, statusResponse{Message: "Result not found"})
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to delete result", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (h *Handler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	questions, _ := h.bank.Questions(r.Context())
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) PutQuestions(w http.ResponseWriter, r *http.Request) {
	var questions []domain.Question
	if err := decodeJSON(w, r, &questions); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "Invalid questions payload: " + err.Error()})
		return
	}
	n, err := h.bank.Replace(r.Context(), questions)
	if errors.Is(err, domain.ErrInvalidQuestion) {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: err.Error()})
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to save questions", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "Questions saved", Count: &n})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.limiter(clientIP(r)).Allow() {
		writeJSON(w, http.StatusTooManyRequests, statusResponse{Message: "Too many login attempts"})
		return
	}
	var creds domain.Credentials
	if err := decodeJSON(w, r, &creds); err != nil || creds.Username == "" || creds.Password == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "Username and password required"})
		return
	}
	if err := h.auth.Check(creds); err != nil {
		h.log.Warn("admin login rejected", zap.String("username", creds.Username), zap.String("client", clientIP(r)))
		writeJSON(w, http.StatusUnauthorized, statusResponse{Message: "Invalid credentials"})
		return
	}
	h.log.Info("admin login", zap.String("username", creds.Username))
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "Login successful"})
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) PostSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "Invalid settings payload"})
		return
	}
	if err := h.settings.Save(r.Context(), settings); err != nil {
		if errors.Is(err, domain.ErrInvalidSettings) {
			writeJSON(w, http.StatusBadRequest, statusResponse{Message: err.Error()})
			return
		}
		h.fail(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (h *Handler) limiter(key string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[key]
	if !ok {
		l = rate.NewLimiter(h.loginRate, h.loginBurst)
		h.limiters[key] = l
	}
	return l
}

func (h *Handler) fail(w http.ResponseWriter, status int, message string, err error) {
	h.log.Error(message, zap.Error(err))
	writeJSON(w, status, statusResponse{Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
