package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tradebench/tradebench/internal/model"
)

// ErrVersionConflict is returned when an optimistic progress write loses a
// race with a concurrent writer. Callers re-read, re-merge, and retry.
var ErrVersionConflict = errors.New("progress version conflict")

const progressColumns = `id, user_id, year, total_questions_answered, total_correct,
	quizzes_completed, full_exams_completed, section_stats, weak_questions,
	bookmarked_questions, best_score, study_streak_days, last_study_date,
	version, created_at, updated_at`

// GetProgress returns the progress record for (user, year), or nil when no
// record exists yet.
func (s *Store) GetProgress(userID int64, year int) (*model.Progress, error) {
	var p model.Progress
	var sectionStats, weak, bookmarked []byte
	err := s.db.QueryRow(
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = ? AND year = ?`,
		userID, year,
	).Scan(&p.ID, &p.UserID, &p.Year, &p.TotalQuestionsAnswered, &p.TotalCorrect,
		&p.QuizzesCompleted, &p.FullExamsCompleted, &sectionStats, &weak,
		&bookmarked, &p.BestScore, &p.StudyStreakDays, &p.LastStudyDate,
		&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(sectionStats, &p.SectionStats); err != nil {
		return nil, fmt.Errorf("decode section_stats: %w", err)
	}
	if err := json.Unmarshal(weak, &p.WeakQuestions); err != nil {
		return nil, fmt.Errorf("decode weak_questions: %w", err)
	}
	if err := json.Unmarshal(bookmarked, &p.BookmarkedQuestions); err != nil {
		return nil, fmt.Errorf("decode bookmarked_questions: %w", err)
	}
	if p.SectionStats == nil {
		p.SectionStats = make(map[int]model.SectionStat)
	}
	return &p, nil
}

// UpsertProgress writes a merged progress record with an optimistic version
// guard: the write succeeds only when the stored version is exactly
// p.Version-1 (or no row exists and p.Version == 1). A guard miss returns
// ErrVersionConflict without modifying the row.
func (s *Store) UpsertProgress(p model.Progress) (*model.Progress, error) {
	sectionStats, err := json.Marshal(p.SectionStats)
	if err != nil {
		return nil, fmt.Errorf("encode section_stats: %w", err)
	}
	weak, err := json.Marshal(p.WeakQuestions)
	if err != nil {
		return nil, fmt.Errorf("encode weak_questions: %w", err)
	}
	bookmarked, err := json.Marshal(p.BookmarkedQuestions)
	if err != nil {
		return nil, fmt.Errorf("encode bookmarked_questions: %w", err)
	}

	now := time.Now()
	if p.Version == 1 {
		_, err := s.db.Exec(
			`INSERT INTO user_progress (user_id, year, total_questions_answered,
			 total_correct, quizzes_completed, full_exams_completed, section_stats,
			 weak_questions, bookmarked_questions, best_score, study_streak_days,
			 last_study_date, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.UserID, p.Year, p.TotalQuestionsAnswered, p.TotalCorrect,
			p.QuizzesCompleted, p.FullExamsCompleted, sectionStats, weak, bookmarked,
			p.BestScore, p.StudyStreakDays, p.LastStudyDate, p.Version, now, now,
		)
		if err != nil {
			// A unique-constraint failure means the row appeared between the
			// caller's read (nil) and this insert. Anything else is a real
			// store failure and must not look like a lost race.
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return nil, ErrVersionConflict
			}
			return nil, err
		}
		return s.GetProgress(p.UserID, p.Year)
	}

	res, err := s.db.Exec(
		`UPDATE user_progress SET
			total_questions_answered = ?,
			total_correct = ?,
			quizzes_completed = ?,
			full_exams_completed = ?,
			section_stats = ?,
			weak_questions = ?,
			bookmarked_questions = ?,
			best_score = ?,
			study_streak_days = ?,
			last_study_date = ?,
			version = ?,
			updated_at = ?
		 WHERE user_id = ? AND year = ? AND version = ?`,
		p.TotalQuestionsAnswered, p.TotalCorrect, p.QuizzesCompleted,
		p.FullExamsCompleted, sectionStats, weak, bookmarked, p.BestScore,
		p.StudyStreakDays, p.LastStudyDate, p.Version, now,
		p.UserID, p.Year, p.Version-1,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrVersionConflict
	}

	return s.GetProgress(p.UserID, p.Year)
}

// DeleteProgress removes the record for one (user, year) pair.
func (s *Store) DeleteProgress(userID int64, year int) error {
	_, err := s.db.Exec(
		`DELETE FROM user_progress WHERE user_id = ? AND year = ?`, userID, year,
	)
	return err
}

// DeleteAllProgress removes every progress record for a user.
func (s *Store) DeleteAllProgress(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM user_progress WHERE user_id = ?`, userID)
	return err
}

// ListProgress returns all progress records for a user, ordered by year.
func (s *Store) ListProgress(userID int64) ([]model.Progress, error) {
	return s.listProgress(
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = ? ORDER BY year`,
		userID,
	)
}

// ListAllProgress returns every progress record, ordered by user then year.
func (s *Store) ListAllProgress() ([]model.Progress, error) {
	return s.listProgress(
		`SELECT ` + progressColumns + ` FROM user_progress ORDER BY user_id, year`,
	)
}

func (s *Store) listProgress(query string, args ...any) ([]model.Progress, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Progress
	for rows.Next() {
		var p model.Progress
		var sectionStats, weak, bookmarked []byte
		if err := rows.Scan(&p.ID, &p.UserID, &p.Year, &p.TotalQuestionsAnswered,
			&p.TotalCorrect, &p.QuizzesCompleted, &p.FullExamsCompleted,
			&sectionStats, &weak, &bookmarked, &p.BestScore, &p.StudyStreakDays,
			&p.LastStudyDate, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(sectionStats, &p.SectionStats); err != nil {
			return nil, fmt.Errorf("decode section_stats: %w", err)
		}
		if err := json.Unmarshal(weak, &p.WeakQuestions); err != nil {
			return nil, fmt.Errorf("decode weak_questions: %w", err)
		}
		if err := json.Unmarshal(bookmarked, &p.BookmarkedQuestions); err != nil {
			return nil, fmt.Errorf("decode bookmarked_questions: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
