package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebench/tradebench/internal/model"
)

// makePool builds n questions per section with the given difficulty.
func makePool(perSection int, difficulty model.Difficulty) []model.Question {
	var pool []model.Question
	for section := 1; section <= model.NumSections; section++ {
		for i := 0; i < perSection; i++ {
			pool = append(pool, model.Question{
				ID:            fmt.Sprintf("y1-s%d-%03d", section, i),
				Year:          1,
				Section:       section,
				Difficulty:    difficulty,
				CorrectAnswer: "A",
			})
		}
	}
	return pool
}

func sectionCounts(qs []model.Question) map[int]int {
	counts := make(map[int]int)
	for _, q := range qs {
		counts[q.Section]++
	}
	return counts
}

func TestSelectQuestionsCount(t *testing.T) {
	pool := makePool(20, model.DifficultyMedium)

	got, err := SelectQuestions(pool, model.ModePractice, Params{Count: 15}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 15)

	// Count larger than the pool returns everything.
	got, err = SelectQuestions(pool, model.ModePractice, Params{Count: 500}, nil)
	require.NoError(t, err)
	assert.Len(t, got, len(pool))

	// Count <= 0 means all.
	got, err = SelectQuestions(pool, model.ModePractice, Params{}, nil)
	require.NoError(t, err)
	assert.Len(t, got, len(pool))
}

func TestSelectQuestionsNoDuplicates(t *testing.T) {
	pool := makePool(10, model.DifficultyMedium)

	got, err := SelectQuestions(pool, model.ModeQuickQuiz, Params{Count: 30}, nil)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, q := range got {
		assert.False(t, seen[q.ID], "duplicate question %s", q.ID)
		seen[q.ID] = true
	}
}

func TestSelectQuestionsSectionFilter(t *testing.T) {
	pool := makePool(10, model.DifficultyMedium)

	got, err := SelectQuestions(pool, model.ModeSectionFocus, Params{Count: 5, Section: 3}, nil)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for _, q := range got {
		assert.Equal(t, 3, q.Section)
	}
}

func TestSelectQuestionsDifficultyFilter(t *testing.T) {
	pool := append(makePool(5, model.DifficultyEasy), makePool(5, model.DifficultyHard)...)

	got, err := SelectQuestions(pool, model.ModePractice, Params{Difficulty: model.DifficultyHard}, nil)
	require.NoError(t, err)
	require.Len(t, got, 5*model.NumSections)
	for _, q := range got {
		assert.Equal(t, model.DifficultyHard, q.Difficulty)
	}

	// Mixed difficulty means no filter.
	got, err = SelectQuestions(pool, model.ModePractice, Params{Difficulty: model.DifficultyMixed}, nil)
	require.NoError(t, err)
	assert.Len(t, got, len(pool))
}

func TestSelectQuestionsEmptyPool(t *testing.T) {
	_, err := SelectQuestions(nil, model.ModePractice, Params{Count: 10}, nil)
	assert.ErrorIs(t, err, ErrNoQuestions)

	// A filter that matches nothing is the same failure.
	pool := makePool(5, model.DifficultyEasy)
	_, err = SelectQuestions(pool, model.ModePractice, Params{Section: 99}, nil)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestSelectQuestionsUnknownMode(t *testing.T) {
	pool := makePool(5, model.DifficultyEasy)
	_, err := SelectQuestions(pool, model.Mode("speedrun"), Params{}, nil)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestFullExamStratified(t *testing.T) {
	// 40 per section = 200 total, enough to fill every quota.
	pool := makePool(40, model.DifficultyMedium)

	got, err := SelectQuestions(pool, model.ModeFullExam, Params{}, nil)
	require.NoError(t, err)
	require.Len(t, got, FullExamSize)

	counts := sectionCounts(got)
	for section := 1; section <= model.NumSections; section++ {
		assert.Equal(t, SectionQuota(section), counts[section], "section %d", section)
	}
}

func TestFullExamIgnoresFilters(t *testing.T) {
	pool := makePool(40, model.DifficultyMedium)

	// Section and difficulty params must not shrink the exam blueprint.
	got, err := SelectQuestions(pool, model.ModeFullExam,
		Params{Section: 2, Difficulty: model.DifficultyHard}, nil)
	require.NoError(t, err)
	assert.Len(t, got, FullExamSize)
}

func TestFullExamShortPool(t *testing.T) {
	// Under 100 questions total: fall back to a plain sample of everything.
	pool := makePool(10, model.DifficultyMedium) // 50 total

	got, err := SelectQuestions(pool, model.ModeFullExam, Params{}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 50)
}

func TestFullExamQuotaCapped(t *testing.T) {
	// Section 2 wants 38 but only has 20; the exam comes up short rather
	// than borrowing from other sections.
	var pool []model.Question
	for section := 1; section <= model.NumSections; section++ {
		n := 40
		if section == 2 {
			n = 20
		}
		for i := 0; i < n; i++ {
			pool = append(pool, model.Question{
				ID:      fmt.Sprintf("y1-s%d-%03d", section, i),
				Section: section,
			})
		}
	}

	got, err := SelectQuestions(pool, model.ModeFullExam, Params{}, nil)
	require.NoError(t, err)

	counts := sectionCounts(got)
	assert.Equal(t, 20, counts[2])
	assert.Len(t, got, FullExamSize-18)
}

func TestWeakAreasMode(t *testing.T) {
	pool := makePool(10, model.DifficultyMedium)
	prog := model.EmptyProgress(1, 1)
	prog.WeakQuestions = []string{"y1-s1-000", "y1-s4-002", "y1-s5-007"}

	got, err := SelectQuestions(pool, model.ModeWeakAreas, Params{}, &prog)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, q := range got {
		assert.True(t, prog.IsWeak(q.ID), "%s not in weak set", q.ID)
	}

	// Nil progress means an empty weak set.
	_, err = SelectQuestions(pool, model.ModeWeakAreas, Params{}, nil)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestBookmarkedMode(t *testing.T) {
	pool := makePool(10, model.DifficultyMedium)
	prog := model.EmptyProgress(1, 1)
	prog.BookmarkedQuestions = []string{"y1-s2-001", "y1-s3-005"}

	got, err := SelectQuestions(pool, model.ModeBookmarked, Params{}, &prog)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, q := range got {
		assert.True(t, prog.IsBookmarked(q.ID))
	}
}

func TestCalculationsModeForcesSection(t *testing.T) {
	pool := makePool(10, model.DifficultyMedium)

	// Even a contradictory section param is overridden.
	got, err := SelectQuestions(pool, model.ModeCalculations, Params{Count: 5, Section: 1}, nil)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for _, q := range got {
		assert.Equal(t, 5, q.Section)
	}
}
