package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tradebench/tradebench/internal/model"
	"github.com/tradebench/tradebench/internal/store"
)

// upsertRetries bounds the re-read/re-merge loop on optimistic write
// conflicts. Conflicts are rare (same user, two devices) so a small bound
// is plenty.
const upsertRetries = 3

func (h *Handler) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	year := queryInt(r, "year")
	if year < 1 || year > model.NumYears {
		respondMessage(w, r, http.StatusBadRequest, "ErrYearRequired")
		return
	}

	prog, err := h.store.GetProgress(user.ID, year)
	if err != nil {
		slog.Error("failed to get progress", "user_id", user.ID, "year", year, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if prog == nil {
		// Never a 404: a fresh user simply has an empty record.
		empty := model.EmptyProgress(user.ID, year)
		respondJSON(w, http.StatusOK, empty)
		return
	}
	respondJSON(w, http.StatusOK, prog)
}

// progressPatch is a partial overlay: only non-nil fields replace the stored
// value. Clients use it to sync bookmarks or restore a backup; quiz results
// flow through the session endpoints instead.
type progressPatch struct {
	Year                   int                       `json:"year"`
	TotalQuestionsAnswered *int                      `json:"total_questions_answered"`
	TotalCorrect           *int                      `json:"total_correct"`
	QuizzesCompleted       *int                      `json:"quizzes_completed"`
	FullExamsCompleted     *int                      `json:"full_exams_completed"`
	SectionStats           map[int]model.SectionStat `json:"section_stats"`
	WeakQuestions          []string                  `json:"weak_questions"`
	BookmarkedQuestions    []string                  `json:"bookmarked_questions"`
	BestScore              *int                      `json:"best_score"`
	StudyStreakDays        *int                      `json:"study_streak_days"`
	LastStudyDate          *string                   `json:"last_study_date"`
}

func applyPatch(p *model.Progress, patch progressPatch) {
	if patch.TotalQuestionsAnswered != nil {
		p.TotalQuestionsAnswered = *patch.TotalQuestionsAnswered
	}
	if patch.TotalCorrect != nil {
		p.TotalCorrect = *patch.TotalCorrect
	}
	if patch.QuizzesCompleted != nil {
		p.QuizzesCompleted = *patch.QuizzesCompleted
	}
	if patch.FullExamsCompleted != nil {
		p.FullExamsCompleted = *patch.FullExamsCompleted
	}
	if patch.SectionStats != nil {
		p.SectionStats = patch.SectionStats
	}
	if patch.WeakQuestions != nil {
		p.WeakQuestions = patch.WeakQuestions
	}
	if patch.BookmarkedQuestions != nil {
		p.BookmarkedQuestions = patch.BookmarkedQuestions
	}
	if patch.BestScore != nil {
		p.BestScore = *patch.BestScore
	}
	if patch.StudyStreakDays != nil {
		p.StudyStreakDays = *patch.StudyStreakDays
	}
	if patch.LastStudyDate != nil {
		p.LastStudyDate = *patch.LastStudyDate
	}
}

func (h *Handler) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var patch progressPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondMessage(w, r, http.StatusBadRequest, "ErrYearRequired")
		return
	}
	if patch.Year < 1 || patch.Year > model.NumYears {
		respondMessage(w, r, http.StatusBadRequest, "ErrYearRequired")
		return
	}

	for attempt := 0; attempt < upsertRetries; attempt++ {
		existing, err := h.store.GetProgress(user.ID, patch.Year)
		if err != nil {
			slog.Error("failed to get progress", "user_id", user.ID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		var next model.Progress
		if existing != nil {
			next = *existing
		} else {
			next = model.EmptyProgress(user.ID, patch.Year)
		}
		applyPatch(&next, patch)
		next.Version++

		saved, err := h.store.UpsertProgress(next)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			slog.Error("failed to save progress", "user_id", user.ID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, http.StatusOK, saved)
		return
	}

	http.Error(w, "conflict", http.StatusConflict)
}

func (h *Handler) handleDeleteProgress(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	year := queryInt(r, "year")
	var err error
	if year > 0 {
		err = h.store.DeleteProgress(user.ID, year)
	} else {
		err = h.store.DeleteAllProgress(user.ID)
	}
	if err != nil {
		slog.Error("failed to delete progress", "user_id", user.ID, "year", year, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	respondMessage(w, r, http.StatusOK, "MsgProgressReset")
}
