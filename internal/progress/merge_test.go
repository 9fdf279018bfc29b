package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebench/tradebench/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s+"T12:00:00Z")
	if err != nil {
		panic(err)
	}
	return t
}

func sampleResult() model.QuizResult {
	return model.QuizResult{
		Mode:            model.ModeQuickQuiz,
		TotalQuestions:  10,
		CorrectAnswers:  7,
		ScorePercentage: 70,
		SectionScores: map[int]model.SectionScore{
			1: {Attempted: 4, Correct: 3},
			5: {Attempted: 6, Correct: 4},
		},
		QuestionResults: []model.AnswerRecord{
			{QuestionID: "y1-s1-001", UserAnswer: "A", Correct: true, Section: 1},
			{QuestionID: "y1-s1-002", UserAnswer: "B", Correct: false, Section: 1},
			{QuestionID: "y1-s5-003", UserAnswer: "C", Correct: false, Section: 5},
		},
		Passed: true,
	}
}

func TestMergeIntoEmpty(t *testing.T) {
	now := day("2026-03-10")

	got := Merge(nil, sampleResult(), nil, now)

	assert.Equal(t, 10, got.TotalQuestionsAnswered)
	assert.Equal(t, 7, got.TotalCorrect)
	assert.Equal(t, 1, got.QuizzesCompleted)
	assert.Equal(t, 0, got.FullExamsCompleted)
	assert.Equal(t, 70, got.BestScore)
	assert.Equal(t, 1, got.StudyStreakDays)
	assert.Equal(t, "2026-03-10", got.LastStudyDate)
	assert.Equal(t, int64(1), got.Version)

	assert.Equal(t, model.SectionStat{Attempted: 4, Correct: 3}, got.SectionStats[1])
	assert.Equal(t, model.SectionStat{Attempted: 6, Correct: 4}, got.SectionStats[5])
	assert.Equal(t, []string{"y1-s1-002", "y1-s5-003"}, got.WeakQuestions)
	assert.NotNil(t, got.BookmarkedQuestions)
	assert.Empty(t, got.BookmarkedQuestions)
}

func TestMergeAdditiveCounters(t *testing.T) {
	now := day("2026-03-10")
	existing := model.EmptyProgress(1, 1)
	existing.TotalQuestionsAnswered = 50
	existing.TotalCorrect = 30
	existing.QuizzesCompleted = 5
	existing.FullExamsCompleted = 1
	existing.SectionStats = map[int]model.SectionStat{
		1: {Attempted: 20, Correct: 12},
		2: {Attempted: 30, Correct: 18},
	}
	existing.Version = 4

	got := Merge(&existing, sampleResult(), nil, now)

	assert.Equal(t, 60, got.TotalQuestionsAnswered)
	assert.Equal(t, 37, got.TotalCorrect)
	assert.Equal(t, 6, got.QuizzesCompleted)
	assert.Equal(t, 1, got.FullExamsCompleted)
	assert.Equal(t, int64(5), got.Version)

	// Section 1 accumulates, section 2 is untouched, section 5 appears.
	assert.Equal(t, model.SectionStat{Attempted: 24, Correct: 15}, got.SectionStats[1])
	assert.Equal(t, model.SectionStat{Attempted: 30, Correct: 18}, got.SectionStats[2])
	assert.Equal(t, model.SectionStat{Attempted: 6, Correct: 4}, got.SectionStats[5])

	// The input record is not mutated.
	assert.Equal(t, 50, existing.TotalQuestionsAnswered)
	assert.Equal(t, model.SectionStat{Attempted: 20, Correct: 12}, existing.SectionStats[1])
}

func TestMergeFullExamCounter(t *testing.T) {
	now := day("2026-03-10")
	result := sampleResult()
	result.Mode = model.ModeFullExam

	got := Merge(nil, result, nil, now)
	assert.Equal(t, 1, got.FullExamsCompleted)
	assert.Equal(t, 1, got.QuizzesCompleted)
}

func TestMergeWeakSetUnion(t *testing.T) {
	now := day("2026-03-10")
	existing := model.EmptyProgress(1, 1)
	existing.WeakQuestions = []string{"y1-s5-003", "y1-s2-009"}

	got := Merge(&existing, sampleResult(), nil, now)

	// Existing order preserved, new misses appended sorted, no duplicates.
	assert.Equal(t, []string{"y1-s5-003", "y1-s2-009", "y1-s1-002"}, got.WeakQuestions)
}

func TestMergeBookmarksReplaced(t *testing.T) {
	now := day("2026-03-10")
	existing := model.EmptyProgress(1, 1)
	existing.BookmarkedQuestions = []string{"old-1", "old-2"}

	got := Merge(&existing, sampleResult(), []string{"new-1"}, now)
	assert.Equal(t, []string{"new-1"}, got.BookmarkedQuestions)

	// Nil means the session ended with no bookmarks, not "keep the old set".
	got = Merge(&existing, sampleResult(), nil, now)
	assert.NotNil(t, got.BookmarkedQuestions)
	assert.Empty(t, got.BookmarkedQuestions)
}

func TestMergeBestScoreMonotonic(t *testing.T) {
	now := day("2026-03-10")
	existing := model.EmptyProgress(1, 1)
	existing.BestScore = 85

	// A lower score never lowers the best.
	got := Merge(&existing, sampleResult(), nil, now)
	assert.Equal(t, 85, got.BestScore)

	better := sampleResult()
	better.ScorePercentage = 92
	got = Merge(&existing, better, nil, now)
	assert.Equal(t, 92, got.BestScore)
}

func TestStreakLaws(t *testing.T) {
	tests := []struct {
		name       string
		lastDate   string
		streak     int
		now        time.Time
		wantStreak int
	}{
		{"first ever", "", 0, day("2026-03-10"), 1},
		{"same day", "2026-03-10", 3, day("2026-03-10"), 3},
		{"next day", "2026-03-09", 3, day("2026-03-10"), 4},
		{"two day gap", "2026-03-07", 9, day("2026-03-10"), 1},
		{"same day floor", "2026-03-10", 0, day("2026-03-10"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := model.EmptyProgress(1, 1)
			existing.LastStudyDate = tt.lastDate
			existing.StudyStreakDays = tt.streak

			got := Merge(&existing, sampleResult(), nil, tt.now)
			assert.Equal(t, tt.wantStreak, got.StudyStreakDays)
			assert.Equal(t, tt.now.UTC().Format("2006-01-02"), got.LastStudyDate)
		})
	}
}

func TestStreakUsesUTCDay(t *testing.T) {
	existing := model.EmptyProgress(1, 1)
	existing.LastStudyDate = "2026-03-09"
	existing.StudyStreakDays = 2

	// 23:30 local on the 9th in UTC-5 is already the 10th in UTC.
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, loc)

	got := Merge(&existing, sampleResult(), nil, now)
	require.Equal(t, "2026-03-10", got.LastStudyDate)
	assert.Equal(t, 3, got.StudyStreakDays)
}

func TestMergeTwoSessions(t *testing.T) {
	now := day("2026-03-10")

	first := model.QuizResult{
		Mode: model.ModePractice, TotalQuestions: 5, CorrectAnswers: 3,
		ScorePercentage: 60,
	}
	second := model.QuizResult{
		Mode: model.ModePractice, TotalQuestions: 5, CorrectAnswers: 4,
		ScorePercentage: 80,
	}

	p := Merge(nil, first, nil, now)
	assert.Equal(t, 5, p.TotalQuestionsAnswered)
	assert.Equal(t, 3, p.TotalCorrect)
	assert.Equal(t, 1, p.QuizzesCompleted)
	assert.Equal(t, 60, p.BestScore)

	p = Merge(&p, second, nil, now)
	assert.Equal(t, 10, p.TotalQuestionsAnswered)
	assert.Equal(t, 7, p.TotalCorrect)
	assert.Equal(t, 2, p.QuizzesCompleted)
	assert.Equal(t, 80, p.BestScore)
}

func TestMergeVersionIncrement(t *testing.T) {
	now := day("2026-03-10")

	got := Merge(nil, sampleResult(), nil, now)
	assert.Equal(t, int64(1), got.Version)

	second := Merge(&got, sampleResult(), nil, now)
	assert.Equal(t, int64(2), second.Version)
}
