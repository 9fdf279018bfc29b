package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tradebench/tradebench/internal/engine"
	appI18n "github.com/tradebench/tradebench/internal/i18n"
	"github.com/tradebench/tradebench/internal/model"
	"github.com/tradebench/tradebench/internal/question"
	"github.com/tradebench/tradebench/internal/store"
)

// Config holds runtime server options set via CLI flags.
type Config struct {
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	DefaultLang   string // Fallback API language (en, fr)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	bank     *question.Bank
	sessions *engine.Registry
	config   Config
}

// New creates a new Handler.
func New(s *store.Store, b *question.Bank, cfg Config) *Handler {
	return &Handler{
		store:    s,
		bank:     b,
		sessions: engine.NewRegistry(),
		config:   cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/auth/register", h.handleRegister)
	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)
	r.Post("/api/auth/forgot-password/verify-email", h.handleVerifyEmail)
	r.Post("/api/auth/forgot-password/verify-answer", h.handleVerifyAnswer)
	r.Post("/api/auth/forgot-password/reset", h.handleResetPassword)

	r.Get("/api/questions", h.handleQuestions)
	r.Get("/api/study-guides", h.handleStudyGuides)
	r.Get("/api/meta/sections", h.handleSections)
	r.Get("/api/meta/modes", h.handleModes)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/api/auth/user", h.handleCurrentUser)
		r.Patch("/api/auth/user", h.handleUpdateUser)

		r.Get("/api/user-progress", h.handleGetProgress)
		r.Post("/api/user-progress", h.handleSaveProgress)
		r.Delete("/api/user-progress", h.handleDeleteProgress)

		r.Post("/api/quiz-sessions", h.handleStartQuiz)
		r.Get("/api/quiz-sessions/{sessionID}", h.handleQuizState)
		r.Post("/api/quiz-sessions/{sessionID}/answer", h.handleSelectAnswer)
		r.Post("/api/quiz-sessions/{sessionID}/confirm", h.handleConfirm)
		r.Post("/api/quiz-sessions/{sessionID}/bookmark", h.handleToggleBookmark)
		r.Post("/api/quiz-sessions/{sessionID}/exit", h.handleExitQuiz)
		r.Post("/api/quiz-sessions/{sessionID}/time-up", h.handleTimeUp)
	})
}

// SweepSessions drops completed and idle quiz sessions from the in-memory
// registry. Called periodically from main.
func (h *Handler) SweepSessions(maxIdle time.Duration) int {
	return h.sessions.Sweep(maxIdle)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondMessage writes a localized {"message": ...} body.
func respondMessage(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"message": appI18n.T(r.Context(), msgID)})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year")
	section := queryInt(r, "section")

	var questions []model.Question
	if year > 0 {
		questions = h.bank.Filter(year, section)
	} else {
		questions = h.bank.AllQuestions(section)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	respondJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleStudyGuides(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year")
	section := queryInt(r, "section")

	var guides []model.StudyGuide
	if year > 0 {
		guides = h.bank.FilterGuides(year, section)
	} else {
		guides = h.bank.AllGuides()
	}
	if guides == nil {
		guides = []model.StudyGuide{}
	}
	respondJSON(w, http.StatusOK, guides)
}

type sectionMeta struct {
	Section       int    `json:"section"`
	Name          string `json:"name"`
	ExamQuestions int    `json:"exam_questions"`
}

func (h *Handler) handleSections(w http.ResponseWriter, r *http.Request) {
	out := make([]sectionMeta, 0, model.NumSections)
	for s := 1; s <= model.NumSections; s++ {
		out = append(out, sectionMeta{
			Section:       s,
			Name:          appI18n.SectionName(r.Context(), s),
			ExamQuestions: engine.SectionQuota(s),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type modeMeta struct {
	Mode        model.Mode `json:"mode"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
}

func (h *Handler) handleModes(w http.ResponseWriter, r *http.Request) {
	out := make([]modeMeta, 0, len(model.Modes))
	for _, m := range model.Modes {
		out = append(out, modeMeta{
			Mode:        m,
			Title:       appI18n.ModeTitle(r.Context(), m),
			Description: appI18n.ModeDescription(r.Context(), m),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
