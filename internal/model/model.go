package model

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	// DifficultyMixed disables difficulty filtering when selecting questions.
	DifficultyMixed Difficulty = "mixed"
)

// NumYears is the number of apprenticeship years with question banks.
const NumYears = 4

// NumSections is the number of exam sections.
const NumSections = 5

// PassThreshold is the score percentage considered a pass on the real exam.
const PassThreshold = 70

// Question is a multiple-choice exam question. Questions are generated
// offline and read-only at runtime.
type Question struct {
	ID            string     `json:"id"`
	Year          int        `json:"year"`
	Section       int        `json:"section"`
	SectionName   string     `json:"section_name,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	QuestionText  string     `json:"question_text"`
	OptionA       string     `json:"option_a"`
	OptionB       string     `json:"option_b"`
	OptionC       string     `json:"option_c"`
	OptionD       string     `json:"option_d"`
	CorrectAnswer string     `json:"correct_answer"`
	Explanation   string     `json:"explanation"`
	Reference     string     `json:"reference,omitempty"`
}

// StudyGuide is a curriculum study guide entry for one exam section.
type StudyGuide struct {
	ID          string `json:"id"`
	Year        int    `json:"year"`
	Section     int    `json:"section"`
	SectionName string `json:"section_name,omitempty"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}

// Mode represents a quiz mode.
type Mode string

const (
	ModePractice     Mode = "practice"
	ModeTimed        Mode = "timed"
	ModeFullExam     Mode = "full_exam"
	ModeSectionFocus Mode = "section_focus"
	ModeQuickQuiz    Mode = "quick_quiz"
	ModeWeakAreas    Mode = "weak_areas"
	ModeBookmarked   Mode = "bookmarked"
	ModeCalculations Mode = "calculations"
)

// Modes lists all quiz modes in display order.
var Modes = []Mode{
	ModeFullExam,
	ModeSectionFocus,
	ModeQuickQuiz,
	ModeCalculations,
	ModeWeakAreas,
	ModeBookmarked,
	ModePractice,
	ModeTimed,
}

// Valid reports whether m is a known quiz mode.
func (m Mode) Valid() bool {
	switch m {
	case ModePractice, ModeTimed, ModeFullExam, ModeSectionFocus,
		ModeQuickQuiz, ModeWeakAreas, ModeBookmarked, ModeCalculations:
		return true
	}
	return false
}

// AnswerRecord is one answered question within a quiz session.
type AnswerRecord struct {
	QuestionID string `json:"question_id"`
	UserAnswer string `json:"user_answer"`
	Correct    bool   `json:"correct"`
	Section    int    `json:"section"`
}

// SectionScore holds per-section results for a single quiz.
type SectionScore struct {
	Attempted  int     `json:"attempted"`
	Correct    int     `json:"correct"`
	Percentage float64 `json:"percentage"`
}

// QuizResult is the aggregation over a completed or abandoned quiz session.
// It is produced once per session termination and folded into Progress.
type QuizResult struct {
	Mode             Mode                 `json:"mode"`
	TotalQuestions   int                  `json:"total_questions"`
	CorrectAnswers   int                  `json:"correct_answers"`
	ScorePercentage  int                  `json:"score_percentage"`
	TimeTakenSeconds int                  `json:"time_taken_seconds"`
	SectionScores    map[int]SectionScore `json:"section_scores"`
	QuestionResults  []AnswerRecord       `json:"question_results"`
	Passed           bool                 `json:"passed"`
}

// OutcomeStatus distinguishes how a quiz session terminated.
type OutcomeStatus string

const (
	// OutcomeCompleted means every question was answered (or the timer fired).
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeAborted means the user exited early with partial answers.
	OutcomeAborted OutcomeStatus = "aborted"
)

// Outcome is the terminal product of a quiz session. A result is always
// present: early exit still emits one over the partial answers.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Result QuizResult    `json:"result"`
}
