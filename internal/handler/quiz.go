package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tradebench/tradebench/internal/engine"
	"github.com/tradebench/tradebench/internal/model"
	"github.com/tradebench/tradebench/internal/progress"
	"github.com/tradebench/tradebench/internal/store"
)

const (
	// fullExamTimeLimit matches the real certification exam: 3 hours.
	fullExamTimeLimit = 3 * time.Hour
	// perQuestionTime is the exam's average time budget per question,
	// used to size timed-quiz countdowns.
	perQuestionTime = 108 * time.Second
)

// questionView is the client-facing question shape. The correct answer and
// explanation stay server-side until the answer is confirmed.
type questionView struct {
	ID           string           `json:"id"`
	Year         int              `json:"year"`
	Section      int              `json:"section"`
	SectionName  string           `json:"section_name"`
	Difficulty   model.Difficulty `json:"difficulty"`
	QuestionText string           `json:"question_text"`
	OptionA      string           `json:"option_a"`
	OptionB      string           `json:"option_b"`
	OptionC      string           `json:"option_c"`
	OptionD      string           `json:"option_d"`
}

func questionViewOf(q *model.Question) *questionView {
	if q == nil {
		return nil
	}
	return &questionView{
		ID:           q.ID,
		Year:         q.Year,
		Section:      q.Section,
		SectionName:  q.SectionName,
		Difficulty:   q.Difficulty,
		QuestionText: q.QuestionText,
		OptionA:      q.OptionA,
		OptionB:      q.OptionB,
		OptionC:      q.OptionC,
		OptionD:      q.OptionD,
	}
}

// sessionView is the answer-loop state returned by every session endpoint
// while the session is live.
type sessionView struct {
	SessionID        string        `json:"session_id"`
	Mode             model.Mode    `json:"mode"`
	Year             int           `json:"year"`
	State            engine.State  `json:"state"`
	Index            int           `json:"index"`
	TotalQuestions   int           `json:"total_questions"`
	Answered         int           `json:"answered"`
	PendingAnswer    string        `json:"pending_answer,omitempty"`
	RemainingSeconds int           `json:"remaining_seconds,omitempty"`
	Question         *questionView `json:"question,omitempty"`
	Bookmarked       bool          `json:"bookmarked,omitempty"`
	CorrectAnswer    string        `json:"correct_answer,omitempty"`
	Explanation      string        `json:"explanation,omitempty"`
	Reference        string        `json:"reference,omitempty"`
}

func (h *Handler) sessionViewOf(s *engine.Session) sessionView {
	q, index := s.Current()
	v := sessionView{
		SessionID:      s.ID,
		Mode:           s.Config.Mode,
		Year:           s.Year,
		State:          s.State(),
		Index:          index,
		TotalQuestions: s.Len(),
		Answered:       s.Answered(),
		PendingAnswer:  s.Pending(),
		Question:       questionViewOf(q),
	}
	if s.Config.TimeLimit > 0 {
		v.RemainingSeconds = int(s.Remaining().Seconds())
	}
	if q != nil {
		v.Bookmarked = s.IsBookmarked(q.ID)
		// The answer key is revealed only while the explanation is shown.
		if v.State == engine.StateExplaining {
			v.CorrectAnswer = q.CorrectAnswer
			v.Explanation = q.Explanation
			v.Reference = q.Reference
		}
	}
	return v
}

// finishedView is the terminal response once a session produced an Outcome.
type finishedView struct {
	SessionID string              `json:"session_id"`
	Status    model.OutcomeStatus `json:"status"`
	Result    model.QuizResult    `json:"result"`
	Saved     bool                `json:"saved"`
	Progress  *model.Progress     `json:"progress,omitempty"`
}

func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var body struct {
		Mode             string           `json:"mode"`
		Year             int              `json:"year"`
		Questions        int              `json:"questions"`
		Section          int              `json:"section"`
		Difficulty       model.Difficulty `json:"difficulty"`
		Timed            bool             `json:"timed"`
		TimeLimitSeconds int              `json:"time_limit_seconds"`
		Explanations     string           `json:"explanations"` // "immediate" or "end"
	}
	if err := decodeJSON(r, &body); err != nil {
		respondMessage(w, r, http.StatusBadRequest, "ErrUnknownMode")
		return
	}

	mode := model.Mode(body.Mode)
	if !mode.Valid() {
		respondMessage(w, r, http.StatusBadRequest, "ErrUnknownMode")
		return
	}

	year := body.Year
	if year < 1 || year > model.NumYears {
		year = user.SelectedYear
	}
	if year < 1 || year > model.NumYears {
		year = 1
	}

	pool := h.bank.Questions(year)

	// Progress informs weak-areas and bookmarked selection; a read failure
	// degrades those modes to empty rather than blocking the quiz.
	prog, err := h.store.GetProgress(user.ID, year)
	if err != nil {
		slog.Warn("failed to load progress for selection", "user_id", user.ID, "error", err)
		prog = nil
	}

	selected, err := engine.SelectQuestions(pool, mode, engine.Params{
		Count:      body.Questions,
		Section:    body.Section,
		Difficulty: body.Difficulty,
	}, prog)
	switch {
	case errors.Is(err, engine.ErrNoQuestions):
		respondMessage(w, r, http.StatusBadRequest, "ErrNoQuestions")
		return
	case errors.Is(err, engine.ErrUnknownMode):
		respondMessage(w, r, http.StatusBadRequest, "ErrUnknownMode")
		return
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var timeLimit time.Duration
	switch {
	case body.TimeLimitSeconds > 0:
		timeLimit = time.Duration(body.TimeLimitSeconds) * time.Second
	case mode == model.ModeFullExam:
		timeLimit = fullExamTimeLimit
	case mode == model.ModeTimed || body.Timed:
		timeLimit = time.Duration(len(selected)) * perQuestionTime
	}

	// The full exam and timed runs hold explanations until the end;
	// everything else reveals them as you go unless the client opts out.
	immediate := body.Explanations == "immediate"
	if body.Explanations == "" {
		immediate = mode != model.ModeFullExam && mode != model.ModeTimed
	}

	var bookmarks []string
	if prog != nil {
		bookmarks = prog.BookmarkedQuestions
	}

	s := engine.NewSession(selected, engine.Config{
		Mode:                  mode,
		ImmediateExplanations: immediate,
		TimeLimit:             timeLimit,
	}, bookmarks)
	s.UserID = user.ID
	s.Year = year
	h.sessions.Add(s)

	slog.Info("quiz session started",
		"session_id", s.ID, "user_id", user.ID, "mode", mode,
		"year", year, "questions", len(selected))
	respondJSON(w, http.StatusCreated, h.sessionViewOf(s))
}

// session resolves the URL's session id to a live session owned by the
// requesting user, writing a 404 otherwise.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *engine.Session {
	user := model.UserFromContext(r.Context())
	s := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if s == nil || s.UserID != user.ID {
		respondMessage(w, r, http.StatusNotFound, "ErrSessionNotFound")
		return nil
	}
	return s
}

func (h *Handler) handleQuizState(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if s.Expired() {
		h.forceTimeUp(w, r, s)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionViewOf(s))
}

func (h *Handler) handleSelectAnswer(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if s.Expired() {
		h.forceTimeUp(w, r, s)
		return
	}

	var body struct {
		Answer string `json:"answer"`
	}
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.SelectAnswer(body.Answer)
	respondJSON(w, http.StatusOK, h.sessionViewOf(s))
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	if s.Expired() {
		h.forceTimeUp(w, r, s)
		return
	}

	outcome := s.Confirm()
	if outcome == nil {
		respondJSON(w, http.StatusOK, h.sessionViewOf(s))
		return
	}
	h.finishSession(w, r, s, outcome)
}

func (h *Handler) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	var body struct {
		QuestionID string `json:"question_id"`
	}
	if err := decodeJSON(r, &body); err != nil || body.QuestionID == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	bookmarked := s.ToggleBookmark(body.QuestionID)
	respondJSON(w, http.StatusOK, map[string]any{
		"question_id": body.QuestionID,
		"bookmarked":  bookmarked,
	})
}

func (h *Handler) handleExitQuiz(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}

	outcome := s.Exit()
	if outcome == nil {
		// Nothing answered: discard without touching progress.
		h.sessions.Remove(s.ID)
		respondJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
		return
	}
	h.finishSession(w, r, s, outcome)
}

func (h *Handler) handleTimeUp(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	h.forceTimeUp(w, r, s)
}

func (h *Handler) forceTimeUp(w http.ResponseWriter, r *http.Request, s *engine.Session) {
	outcome := s.TimeUp()
	if outcome == nil {
		// Nothing was ever answered (or the session already finished):
		// drop it without touching progress.
		h.sessions.Remove(s.ID)
		respondJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
		return
	}
	h.finishSession(w, r, s, outcome)
}

// finishSession persists a terminal outcome and responds with the final
// result. The merge into stored progress retries on version conflicts; if
// every attempt loses the race the result is still returned with saved=false
// so the client can resubmit.
func (h *Handler) finishSession(w http.ResponseWriter, r *http.Request, s *engine.Session, outcome *model.Outcome) {
	defer h.sessions.Remove(s.ID)

	var saved *model.Progress
	for attempt := 0; attempt < upsertRetries; attempt++ {
		existing, err := h.store.GetProgress(s.UserID, s.Year)
		if err != nil {
			slog.Error("failed to get progress", "user_id", s.UserID, "error", err)
			break
		}
		if existing == nil {
			empty := model.EmptyProgress(s.UserID, s.Year)
			existing = &empty
		}
		merged := progress.Merge(existing, outcome.Result, s.Bookmarks(), time.Now())
		saved, err = h.store.UpsertProgress(merged)
		if errors.Is(err, store.ErrVersionConflict) {
			saved = nil
			continue
		}
		if err != nil {
			slog.Error("failed to save progress", "user_id", s.UserID, "error", err)
			saved = nil
		}
		break
	}

	if _, err := h.store.ArchiveSession(s.UserID, s.Year, s.QuestionIDs(), *outcome); err != nil {
		slog.Warn("failed to archive session", "session_id", s.ID, "error", err)
	}

	slog.Info("quiz session finished",
		"session_id", s.ID, "user_id", s.UserID, "status", outcome.Status,
		"score", outcome.Result.ScorePercentage, "saved", saved != nil)
	respondJSON(w, http.StatusOK, finishedView{
		SessionID: s.ID,
		Status:    outcome.Status,
		Result:    outcome.Result,
		Saved:     saved != nil,
		Progress:  saved,
	})
}
