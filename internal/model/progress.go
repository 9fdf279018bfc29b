package model

import "time"

// SectionStat holds cumulative per-section counters. Both fields are
// monotonically non-decreasing across merges.
type SectionStat struct {
	Attempted int `json:"attempted"`
	Correct   int `json:"correct"`
}

// Progress is the durable per-(user, year) study record. It is mutated only
// by the progress aggregator and persisted as one row keyed by (user, year).
type Progress struct {
	ID                     int64               `json:"id"`
	UserID                 int64               `json:"user_id"`
	Year                   int                 `json:"year"`
	TotalQuestionsAnswered int                 `json:"total_questions_answered"`
	TotalCorrect           int                 `json:"total_correct"`
	QuizzesCompleted       int                 `json:"quizzes_completed"`
	FullExamsCompleted     int                 `json:"full_exams_completed"`
	SectionStats           map[int]SectionStat `json:"section_stats"`
	WeakQuestions          []string            `json:"weak_questions"`
	BookmarkedQuestions    []string            `json:"bookmarked_questions"`
	BestScore              int                 `json:"best_score"`
	StudyStreakDays        int                 `json:"study_streak_days"`
	LastStudyDate          string              `json:"last_study_date"` // YYYY-MM-DD, UTC
	Version                int64               `json:"version"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

// EmptyProgress returns a zeroed record for a user/year pair with no prior
// history. Maps and sets are initialized so callers never see nil.
func EmptyProgress(userID int64, year int) Progress {
	return Progress{
		UserID:              userID,
		Year:                year,
		SectionStats:        make(map[int]SectionStat),
		WeakQuestions:       []string{},
		BookmarkedQuestions: []string{},
	}
}

// IsWeak reports whether the question id is in the weak set.
func (p *Progress) IsWeak(questionID string) bool {
	for _, id := range p.WeakQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

// IsBookmarked reports whether the question id is bookmarked.
func (p *Progress) IsBookmarked(questionID string) bool {
	for _, id := range p.BookmarkedQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}
