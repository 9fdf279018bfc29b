// Package progress folds quiz results into the durable per-(user, year)
// Progress record: running totals, weak-question sets, bookmarks, and the
// study-streak counter.
package progress

import (
	"sort"
	"time"

	"github.com/tradebench/tradebench/internal/model"
)

// dateLayout is the stored day-granularity date format. All streak
// computation uses UTC calendar days, matching the dates the original data
// was recorded with.
const dateLayout = "2006-01-02"

// Merge folds one QuizResult into the existing Progress record. existing may
// be nil (no prior history). bookmarks replaces the stored bookmark set
// wholesale: the live session is its source of truth. The returned record
// carries Version = existing.Version + 1 for the store's optimistic write.
func Merge(existing *model.Progress, result model.QuizResult, bookmarks []string, now time.Time) model.Progress {
	var p model.Progress
	if existing != nil {
		p = *existing
	}

	p.TotalQuestionsAnswered += result.TotalQuestions
	p.TotalCorrect += result.CorrectAnswers
	p.QuizzesCompleted++
	if result.Mode == model.ModeFullExam {
		p.FullExamsCompleted++
	}

	// Per-section counters are strictly additive, never reset.
	stats := make(map[int]model.SectionStat, len(p.SectionStats)+len(result.SectionScores))
	for section, st := range p.SectionStats {
		stats[section] = st
	}
	for section, sc := range result.SectionScores {
		st := stats[section]
		st.Attempted += sc.Attempted
		st.Correct += sc.Correct
		stats[section] = st
	}
	p.SectionStats = stats

	p.WeakQuestions = mergeWeak(p.WeakQuestions, result.QuestionResults)

	if bookmarks == nil {
		bookmarks = []string{}
	}
	p.BookmarkedQuestions = bookmarks

	if result.ScorePercentage > p.BestScore {
		p.BestScore = result.ScorePercentage
	}

	p.StudyStreakDays, p.LastStudyDate = advanceStreak(p.StudyStreakDays, p.LastStudyDate, now)

	p.Version++
	return p
}

// mergeWeak unions the ids of incorrectly answered questions into the weak
// set, preserving existing order and deduplicating.
func mergeWeak(existing []string, results []model.AnswerRecord) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing))
	for _, id := range existing {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	var added []string
	for _, r := range results {
		if !r.Correct && !seen[r.QuestionID] {
			seen[r.QuestionID] = true
			added = append(added, r.QuestionID)
		}
	}
	sort.Strings(added)
	return append(out, added...)
}

// advanceStreak applies the streak law: same day leaves the streak
// unchanged, a study session on the next calendar day extends it, and a gap
// of two or more days (or no prior date) resets it to 1.
func advanceStreak(streak int, lastDate string, now time.Time) (int, string) {
	today := now.UTC().Format(dateLayout)
	yesterday := now.UTC().AddDate(0, 0, -1).Format(dateLayout)

	switch lastDate {
	case today:
		if streak < 1 {
			streak = 1
		}
	case yesterday:
		streak++
	default:
		streak = 1
	}
	return streak, today
}
