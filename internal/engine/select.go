// Package engine implements the quiz session engine: question selection per
// mode and the sequential answer loop that produces a QuizResult.
package engine

import (
	"errors"
	"math/rand/v2"

	"github.com/tradebench/tradebench/internal/model"
)

// ErrNoQuestions is returned when the candidate pool is empty after
// filtering. It is a precondition failure: no session state exists yet.
var ErrNoQuestions = errors.New("no questions match the requested filters")

// ErrUnknownMode is returned for a mode the engine does not recognize.
var ErrUnknownMode = errors.New("unknown quiz mode")

// FullExamSize is the question count of a full practice exam.
const FullExamSize = 100

// fullExamQuotas is the fixed per-section question count of the real
// certification exam. The quotas sum to FullExamSize.
var fullExamQuotas = map[int]int{
	1: 10, // Workplace Safety and Rigging
	2: 38, // Tools, Equipment and Materials
	3: 19, // Metal Fabrication
	4: 13, // Drawings and Specifications
	5: 20, // Calculations and Science
}

// calculationsSection is the exam section targeted by the calculations mode.
const calculationsSection = 5

// SectionQuota returns the full-exam question quota for a section.
func SectionQuota(section int) int {
	return fullExamQuotas[section]
}

// Params carries the caller's session parameters.
type Params struct {
	Count      int              // requested question count; <= 0 means all
	Section    int              // restrict to one section; 0 means all
	Difficulty model.Difficulty // "" or mixed means all difficulties
}

// SelectQuestions applies the per-mode selection policy over a year-filtered
// candidate pool. progress may be nil for modes that do not consult it; the
// weak_areas and bookmarked modes treat nil progress as empty sets.
func SelectQuestions(pool []model.Question, mode model.Mode, p Params, progress *model.Progress) ([]model.Question, error) {
	var candidates []model.Question

	switch mode {
	case model.ModeFullExam:
		// The full exam mirrors the real blueprint: section and difficulty
		// filters do not apply.
		candidates = append(candidates, pool...)
		if len(candidates) == 0 {
			return nil, ErrNoQuestions
		}
		if len(candidates) >= FullExamSize {
			return stratify(candidates), nil
		}
		return sample(candidates, p.Count), nil

	case model.ModeWeakAreas:
		for _, q := range filterPool(pool, p) {
			if progress != nil && progress.IsWeak(q.ID) {
				candidates = append(candidates, q)
			}
		}

	case model.ModeBookmarked:
		for _, q := range filterPool(pool, p) {
			if progress != nil && progress.IsBookmarked(q.ID) {
				candidates = append(candidates, q)
			}
		}

	case model.ModeCalculations:
		forced := p
		forced.Section = calculationsSection
		candidates = filterPool(pool, forced)

	case model.ModePractice, model.ModeTimed, model.ModeSectionFocus, model.ModeQuickQuiz:
		candidates = filterPool(pool, p)

	default:
		return nil, ErrUnknownMode
	}

	if len(candidates) == 0 {
		return nil, ErrNoQuestions
	}
	return sample(candidates, p.Count), nil
}

func filterPool(pool []model.Question, p Params) []model.Question {
	var out []model.Question
	for _, q := range pool {
		if p.Section != 0 && q.Section != p.Section {
			continue
		}
		if p.Difficulty != "" && p.Difficulty != model.DifficultyMixed && q.Difficulty != p.Difficulty {
			continue
		}
		out = append(out, q)
	}
	return out
}

// sample returns a uniformly shuffled copy truncated to min(count, len).
func sample(pool []model.Question, count int) []model.Question {
	out := make([]model.Question, len(pool))
	copy(out, pool)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if count > 0 && count < len(out) {
		out = out[:count]
	}
	return out
}

// stratify draws the fixed per-section quota from each stratum (capped at the
// stratum size), shuffling within each stratum and then globally.
func stratify(pool []model.Question) []model.Question {
	bySection := make(map[int][]model.Question)
	for _, q := range pool {
		bySection[q.Section] = append(bySection[q.Section], q)
	}

	var out []model.Question
	for section := 1; section <= model.NumSections; section++ {
		stratum := bySection[section]
		rand.Shuffle(len(stratum), func(i, j int) {
			stratum[i], stratum[j] = stratum[j], stratum[i]
		})
		quota := fullExamQuotas[section]
		if quota > len(stratum) {
			quota = len(stratum)
		}
		out = append(out, stratum[:quota]...)
	}

	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
