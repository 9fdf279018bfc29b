package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tradebench/tradebench/internal/model"
)

// ArchivedSession is one finished quiz session as stored in the
// quiz_sessions table.
type ArchivedSession struct {
	ID             int64                `json:"id"`
	UserID         int64                `json:"user_id"`
	Year           int                  `json:"year"`
	QuizMode       model.Mode           `json:"quiz_mode"`
	Status         model.OutcomeStatus  `json:"status"`
	QuestionIDs    []string             `json:"questions"`
	Answers        []model.AnswerRecord `json:"answers"`
	Score          int                  `json:"score"`
	TotalQuestions int                  `json:"total_questions"`
	TimeTaken      int                  `json:"time_taken"`
	CompletedAt    time.Time            `json:"completed_at"`
}

// ArchiveSession records a terminated quiz session. Archival is best-effort
// bookkeeping: callers treat a failure as soft.
func (s *Store) ArchiveSession(userID int64, year int, questionIDs []string, outcome model.Outcome) (int64, error) {
	questions, err := json.Marshal(questionIDs)
	if err != nil {
		return 0, fmt.Errorf("encode questions: %w", err)
	}
	answers, err := json.Marshal(outcome.Result.QuestionResults)
	if err != nil {
		return 0, fmt.Errorf("encode answers: %w", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO quiz_sessions (user_id, year, quiz_mode, status, questions,
		 answers, score, total_questions, time_taken, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, year, outcome.Result.Mode, outcome.Status, questions, answers,
		outcome.Result.ScorePercentage, outcome.Result.TotalQuestions,
		outcome.Result.TimeTakenSeconds, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListArchivedSessions returns all archived sessions, newest first.
func (s *Store) ListArchivedSessions() ([]ArchivedSession, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, year, quiz_mode, status, questions, answers, score,
		 total_questions, time_taken, completed_at
		 FROM quiz_sessions ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchivedSession
	for rows.Next() {
		var a ArchivedSession
		var questions, answers []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.Year, &a.QuizMode, &a.Status,
			&questions, &answers, &a.Score, &a.TotalQuestions, &a.TimeTaken,
			&a.CompletedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(questions, &a.QuestionIDs); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
