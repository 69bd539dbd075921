package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brightpath/courseplayer/internal/catalog"
)

const semesterOne = `
id: sem-1
chapters:
  - id: ch-1
    title: Foundations
    units:
      - id: unit-1
        title: Welcome
        video:
          id: vid-1
          questions:
            - id: q-1
              text: What is this course about?
              options: ["Faith", "Cooking"]
              correct_answer: Faith
      - id: unit-2
        title: History
        video:
          id: vid-2
`

const semesterTwo = `
id: sem-2
chapters:
  - id: ch-2
    title: Practice
    units:
      - id: unit-3
        title: Daily life
        video:
          id: vid-3
`

func writeCatalog(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"01-semester.yaml": semesterOne,
		"02-semester.yaml": semesterTwo,
	})

	cat, err := catalog.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cat.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	want := []string{"unit-1", "unit-2", "unit-3"}
	got := cat.UnitIDs()
	for i, id := range want {
		if got[i] != id {
			t.Errorf("UnitIDs()[%d] = %q, want %q", i, got[i], id)
		}
	}

	unit, ok := cat.Unit("unit-1")
	if !ok {
		t.Fatal("Unit(unit-1) not found")
	}
	if !unit.HasQuiz() {
		t.Error("unit-1 should have a quiz")
	}
	if unit.Video.Questions[0].CorrectAnswer != "Faith" {
		t.Errorf("CorrectAnswer = %q, want Faith", unit.Video.Questions[0].CorrectAnswer)
	}

	unit2, _ := cat.Unit("unit-2")
	if unit2.HasQuiz() {
		t.Error("unit-2 should not have a quiz")
	}

	if ch, _ := cat.UnitChapter("unit-3"); ch != "ch-2" {
		t.Errorf("UnitChapter(unit-3) = %q, want ch-2", ch)
	}
	if sem, _ := cat.UnitSemester("unit-1"); sem != "sem-1" {
		t.Errorf("UnitSemester(unit-1) = %q, want sem-1", sem)
	}
	if u, ok := cat.QuestionUnit("q-1"); !ok || u != "unit-1" {
		t.Errorf("QuestionUnit(q-1) = %q, %v, want unit-1", u, ok)
	}
}

func TestLoad_SkipsInvalidFiles(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"01-semester.yaml": semesterOne,
		// Question without a correct answer fails the schema.
		"02-broken.yaml": `
id: sem-bad
chapters:
  - id: ch-bad
    units:
      - id: unit-bad
        video:
          id: vid-bad
          questions:
            - id: q-bad
              options: ["a", "b"]
`,
		"03-not-yaml.yaml": "::: not yaml :::",
	})

	cat, err := catalog.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cat.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2 (broken files skipped)", got)
	}
	if _, ok := cat.Unit("unit-bad"); ok {
		t.Error("unit from invalid file should not load")
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	if _, err := catalog.Load(t.TempDir()); err == nil {
		t.Error("Load() should fail with no valid semester files")
	}
}

func TestPositionOf(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"01-semester.yaml": semesterOne,
		"02-semester.yaml": semesterTwo,
	})
	cat, err := catalog.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		unitID string
		want   int
		ok     bool
	}{
		{"unit-1", 0, true},
		{"unit-2", 1, true},
		{"unit-3", 2, true},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.unitID, func(t *testing.T) {
			got, ok := cat.PositionOf(tt.unitID)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("PositionOf(%q) = %d, %v, want %d, %v", tt.unitID, got, ok, tt.want, tt.ok)
			}
		})
	}
}
