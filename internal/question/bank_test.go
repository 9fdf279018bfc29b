package question

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const bareArray = `[
	{"id": "y1-s1-001", "year": 1, "section": 1, "difficulty": "easy",
	 "question_text": "Q1", "option_a": "a", "option_b": "b", "option_c": "c",
	 "option_d": "d", "correct_answer": "A", "explanation": "e"},
	{"id": "y1-s5-001", "year": 1, "section": 5, "difficulty": "hard",
	 "question_text": "Q2", "option_a": "a", "option_b": "b", "option_c": "c",
	 "option_d": "d", "correct_answer": "C", "explanation": "e"}
]`

const wrappedObject = `{"questions": [
	{"id": "y2-s2-001", "year": 2, "section": 2, "difficulty": "medium",
	 "question_text": "Q3", "option_a": "a", "option_b": "b", "option_c": "c",
	 "option_d": "d", "correct_answer": "B", "explanation": "e"}
]}`

func TestQuestionsBareArray(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "questions-y1.json", bareArray)

	b := New(dir)
	qs := b.Questions(1)
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].ID != "y1-s1-001" {
		t.Errorf("expected id y1-s1-001, got %q", qs[0].ID)
	}
	if qs[1].CorrectAnswer != "C" {
		t.Errorf("expected correct answer C, got %q", qs[1].CorrectAnswer)
	}
}

func TestQuestionsWrappedObject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "questions-y2.json", wrappedObject)

	b := New(dir)
	qs := b.Questions(2)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	if qs[0].Section != 2 {
		t.Errorf("expected section 2, got %d", qs[0].Section)
	}
}

func TestQuestionsMissingFile(t *testing.T) {
	b := New(t.TempDir())

	qs := b.Questions(3)
	if qs == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(qs) != 0 {
		t.Errorf("expected 0 questions, got %d", len(qs))
	}
}

func TestQuestionsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "questions-y1.json", `{"oops": tru`)

	b := New(dir)
	if got := b.Questions(1); len(got) != 0 {
		t.Errorf("expected 0 questions from malformed file, got %d", len(got))
	}
}

func TestQuestionsCached(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "questions-y1.json", bareArray)

	b := New(dir)
	if got := b.Questions(1); len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}

	// Deleting the file after the first read must not matter.
	if err := os.Remove(filepath.Join(dir, "questions-y1.json")); err != nil {
		t.Fatal(err)
	}
	if got := b.Questions(1); len(got) != 2 {
		t.Errorf("expected cached questions to survive, got %d", len(got))
	}
}

func TestFilterBySection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "questions-y1.json", bareArray)

	b := New(dir)
	qs := b.Filter(1, 5)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question in section 5, got %d", len(qs))
	}
	if qs[0].ID != "y1-s5-001" {
		t.Errorf("expected y1-s5-001, got %q", qs[0].ID)
	}

	// Section 0 means no filter.
	if got := b.Filter(1, 0); len(got) != 2 {
		t.Errorf("expected 2 unfiltered questions, got %d", len(got))
	}
}

func TestAllQuestions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "questions-y1.json", bareArray)
	writeFile(t, dir, "questions-y2.json", wrappedObject)

	b := New(dir)
	if got := b.AllQuestions(0); len(got) != 3 {
		t.Errorf("expected 3 questions across years, got %d", len(got))
	}
	if got := b.AllQuestions(2); len(got) != 1 {
		t.Errorf("expected 1 section-2 question, got %d", len(got))
	}
}

func TestStudyGuides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "study-guides-y1.json", `[
		{"id": "g1", "year": 1, "section": 1, "title": "Rigging basics", "content": "..."},
		{"id": "g2", "year": 1, "section": 5, "title": "Pipe math", "content": "..."}
	]`)

	b := New(dir)
	gs := b.Guides(1)
	if len(gs) != 2 {
		t.Fatalf("expected 2 guides, got %d", len(gs))
	}

	gs = b.FilterGuides(1, 5)
	if len(gs) != 1 || gs[0].Title != "Pipe math" {
		t.Errorf("unexpected filtered guides: %+v", gs)
	}

	// Missing year returns empty, not nil.
	if got := b.Guides(4); got == nil || len(got) != 0 {
		t.Errorf("expected empty guides for missing year, got %v", got)
	}
}
