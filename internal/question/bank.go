// Package question loads the static question and study-guide banks from JSON
// files on disk. Files are read once per year and cached for the process
// lifetime; the banks are read-only at runtime.
package question

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tradebench/tradebench/internal/model"
)

// Bank serves questions and study guides from a data directory holding
// questions-y{N}.json and study-guides-y{N}.json files.
type Bank struct {
	dir string

	mu        sync.Mutex
	questions map[int][]model.Question
	guides    map[int][]model.StudyGuide
}

// New creates a Bank over the given data directory. Nothing is read until
// the first access for a year.
func New(dir string) *Bank {
	return &Bank{
		dir:       dir,
		questions: make(map[int][]model.Question),
		guides:    make(map[int][]model.StudyGuide),
	}
}

// questionsFile is the wrapper format some generated files use; a bare JSON
// array is also accepted.
type questionsFile struct {
	Questions []model.Question `json:"questions"`
}

type guidesFile struct {
	Guides []model.StudyGuide `json:"guides"`
}

// Questions returns all questions for a year. Any I/O or parse failure
// yields an empty slice: the bank never surfaces errors to callers.
func (b *Bank) Questions(year int) []model.Question {
	b.mu.Lock()
	defer b.mu.Unlock()

	if qs, ok := b.questions[year]; ok {
		return qs
	}

	path := filepath.Join(b.dir, fmt.Sprintf("questions-y%d.json", year))
	var qs []model.Question
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read questions file", "path", path, "error", err)
		}
		b.questions[year] = []model.Question{}
		return b.questions[year]
	}

	if err := json.Unmarshal(data, &qs); err != nil {
		var wrapped questionsFile
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			slog.Warn("failed to parse questions file", "path", path, "error", err)
			b.questions[year] = []model.Question{}
			return b.questions[year]
		}
		qs = wrapped.Questions
	}
	if qs == nil {
		qs = []model.Question{}
	}

	b.questions[year] = qs
	slog.Info("loaded questions", "year", year, "count", len(qs))
	return qs
}

// Filter returns questions for a year, optionally restricted to one section.
// Section 0 means no section filter.
func (b *Bank) Filter(year, section int) []model.Question {
	qs := b.Questions(year)
	if section == 0 {
		return qs
	}
	var out []model.Question
	for _, q := range qs {
		if q.Section == section {
			out = append(out, q)
		}
	}
	return out
}

// AllQuestions returns questions across every year, optionally restricted to
// one section.
func (b *Bank) AllQuestions(section int) []model.Question {
	var out []model.Question
	for year := 1; year <= model.NumYears; year++ {
		out = append(out, b.Filter(year, section)...)
	}
	return out
}

// Guides returns all study guides for a year, empty on any failure.
func (b *Bank) Guides(year int) []model.StudyGuide {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gs, ok := b.guides[year]; ok {
		return gs
	}

	path := filepath.Join(b.dir, fmt.Sprintf("study-guides-y%d.json", year))
	var gs []model.StudyGuide
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read study guides file", "path", path, "error", err)
		}
		b.guides[year] = []model.StudyGuide{}
		return b.guides[year]
	}

	if err := json.Unmarshal(data, &gs); err != nil {
		var wrapped guidesFile
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			slog.Warn("failed to parse study guides file", "path", path, "error", err)
			b.guides[year] = []model.StudyGuide{}
			return b.guides[year]
		}
		gs = wrapped.Guides
	}
	if gs == nil {
		gs = []model.StudyGuide{}
	}

	b.guides[year] = gs
	return gs
}

// FilterGuides returns study guides for a year, optionally restricted to one
// section. Section 0 means no filter.
func (b *Bank) FilterGuides(year, section int) []model.StudyGuide {
	gs := b.Guides(year)
	if section == 0 {
		return gs
	}
	var out []model.StudyGuide
	for _, g := range gs {
		if g.Section == section {
			out = append(out, g)
		}
	}
	return out
}

// AllGuides returns study guides across every year.
func (b *Bank) AllGuides() []model.StudyGuide {
	var out []model.StudyGuide
	for year := 1; year <= model.NumYears; year++ {
		out = append(out, b.Guides(year)...)
	}
	return out
}
