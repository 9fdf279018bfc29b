package engine

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tradebench/tradebench/internal/model"
)

// State is the answer-loop state of a session.
type State string

const (
	// StateAnswering means the current question is awaiting a confirmed answer.
	StateAnswering State = "answering"
	// StateExplaining means the explanation for the current question is shown;
	// the pending answer is locked until confirmed.
	StateExplaining State = "explaining"
	// StateComplete is terminal.
	StateComplete State = "complete"
)

// Config holds per-session options fixed at start.
type Config struct {
	Mode                  model.Mode
	ImmediateExplanations bool
	TimeLimit             time.Duration // > 0 enables the countdown deadline
}

// Session is the in-memory state of one quiz run. It walks a fixed question
// list strictly forward, one confirmed answer at a time, and emits exactly
// one Outcome on termination. All methods are safe for concurrent use.
type Session struct {
	ID     string
	UserID int64
	Year   int
	Config Config

	mu        sync.Mutex
	questions []model.Question
	state     State
	index     int
	pending   string
	explained bool
	answers   []model.AnswerRecord
	bookmarks map[string]bool
	startTime time.Time
	deadline  time.Time
	touched   time.Time
	now       func() time.Time
}

// NewSession creates a session over an already-selected question list.
// bookmarks seeds the in-session bookmark set from the stored progress.
func NewSession(questions []model.Question, cfg Config, bookmarks []string) *Session {
	s := &Session{
		Config:    cfg,
		questions: questions,
		state:     StateAnswering,
		bookmarks: make(map[string]bool, len(bookmarks)),
		now:       time.Now,
	}
	for _, id := range bookmarks {
		s.bookmarks[id] = true
	}
	s.startTime = s.now()
	s.touched = s.startTime
	if cfg.TimeLimit > 0 {
		s.deadline = s.startTime.Add(cfg.TimeLimit)
	}
	return s
}

// State returns the current answer-loop state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the question awaiting an answer and its zero-based index.
// It returns nil after completion.
func (s *Session) Current() (*model.Question, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return nil, s.index
	}
	q := s.questions[s.index]
	return &q, s.index
}

// Len returns the number of questions in the session.
func (s *Session) Len() int {
	return len(s.questions)
}

// Answered returns the number of confirmed answers so far.
func (s *Session) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Pending returns the currently selected (unconfirmed) answer letter.
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SelectAnswer records a pending selection for the current question.
// Re-selection before confirmation overwrites the previous value. Selection
// is rejected while the explanation is shown and after completion.
func (s *Session) SelectAnswer(letter string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()

	if s.state != StateAnswering {
		return false
	}
	switch letter {
	case "A", "B", "C", "D":
	default:
		return false
	}
	s.pending = letter
	return true
}

// Confirm advances the answer loop. Without a pending selection it is a
// no-op. With immediate explanations enabled, the first confirm on a
// question reveals the explanation; the second records the answer and
// advances. The returned Outcome is non-nil only when the session completed.
func (s *Session) Confirm() *model.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()

	if s.state == StateComplete || s.pending == "" {
		return nil
	}

	if s.state == StateAnswering && s.Config.ImmediateExplanations && !s.explained {
		s.state = StateExplaining
		s.explained = true
		return nil
	}

	q := s.questions[s.index]
	s.answers = append(s.answers, model.AnswerRecord{
		QuestionID: q.ID,
		UserAnswer: s.pending,
		Correct:    s.pending == q.CorrectAnswer,
		Section:    q.Section,
	})
	s.pending = ""
	s.explained = false

	if s.index+1 == len(s.questions) {
		s.state = StateComplete
		return s.outcomeLocked(model.OutcomeCompleted)
	}
	s.index++
	s.state = StateAnswering
	return nil
}

// Exit terminates the session early. Recorded answers are never lost: with
// at least one answer an aborted Outcome over the partial answers is
// returned. With none, the session is simply discarded (nil Outcome).
func (s *Session) Exit() *model.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateComplete {
		return nil
	}
	s.state = StateComplete
	s.pending = ""
	if len(s.answers) == 0 {
		return nil
	}
	return s.outcomeLocked(model.OutcomeAborted)
}

// TimeUp forces completion when the countdown fires, keeping whatever
// answers have accumulated and discarding any pending unconfirmed selection.
// Like Exit, a session with no confirmed answers is simply discarded
// (nil Outcome) rather than counted as a completed quiz.
func (s *Session) TimeUp() *model.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateComplete {
		return nil
	}
	s.state = StateComplete
	s.pending = ""
	if len(s.answers) == 0 {
		return nil
	}
	return s.outcomeLocked(model.OutcomeCompleted)
}

// Expired reports whether a timed session has passed its deadline.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.deadline.IsZero() && s.now().After(s.deadline)
}

// ToggleBookmark flips the bookmark state of a question id and returns the
// new state. Toggling twice restores the original set. Bookmarks are
// independent of the answer loop and are flushed together with the result.
func (s *Session) ToggleBookmark(questionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()

	if s.bookmarks[questionID] {
		delete(s.bookmarks, questionID)
		return false
	}
	s.bookmarks[questionID] = true
	return true
}

// IsBookmarked reports whether a question id is in the session bookmark set.
func (s *Session) IsBookmarked(questionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarks[questionID]
}

// Bookmarks returns the current bookmark set in sorted order.
func (s *Session) Bookmarks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.bookmarks))
	for id := range s.bookmarks {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// QuestionIDs returns the ids of the session's question list in order.
func (s *Session) QuestionIDs() []string {
	ids := make([]string, len(s.questions))
	for i, q := range s.questions {
		ids[i] = q.ID
	}
	return ids
}

// Remaining returns the time left on a timed session's countdown. It returns
// zero for untimed sessions and never goes negative.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deadline.IsZero() {
		return 0
	}
	d := s.deadline.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

// Touched returns the time of the last interaction with the session.
func (s *Session) Touched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// outcomeLocked builds the terminal Outcome over the recorded answers.
// Caller must hold s.mu.
func (s *Session) outcomeLocked(status model.OutcomeStatus) *model.Outcome {
	total := len(s.answers)
	correct := 0
	sectionScores := make(map[int]model.SectionScore)
	for _, a := range s.answers {
		sc := sectionScores[a.Section]
		sc.Attempted++
		if a.Correct {
			correct++
			sc.Correct++
		}
		sectionScores[a.Section] = sc
	}
	for section, sc := range sectionScores {
		sc.Percentage = float64(sc.Correct) / float64(sc.Attempted) * 100
		sectionScores[section] = sc
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}

	results := make([]model.AnswerRecord, total)
	copy(results, s.answers)

	return &model.Outcome{
		Status: status,
		Result: model.QuizResult{
			Mode:             s.Config.Mode,
			TotalQuestions:   total,
			CorrectAnswers:   correct,
			ScorePercentage:  score,
			TimeTakenSeconds: int(s.now().Sub(s.startTime).Seconds()),
			SectionScores:    sectionScores,
			QuestionResults:  results,
			Passed:           score >= model.PassThreshold,
		},
	}
}
