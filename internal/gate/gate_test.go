package gate_test

import (
	"testing"
	"time"

	"github.com/brightpath/courseplayer/internal/catalog"
	"github.com/brightpath/courseplayer/internal/gate"
	"github.com/brightpath/courseplayer/internal/notify"
	"github.com/brightpath/courseplayer/internal/progress"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Semester{{
		ID: "sem-1",
		Chapters: []catalog.Chapter{{
			ID: "ch-1",
			Units: []catalog.Unit{
				{ID: "unit-a", Video: catalog.Video{ID: "vid-a", Questions: []catalog.Question{
					{ID: "q-1", Options: []string{"x", "y"}, CorrectAnswer: "x"},
				}}},
				{ID: "unit-b", Video: catalog.Video{ID: "vid-b"}},
			},
		}},
	}})
}

func completedUnitA() progress.RecordSet {
	set := progress.NewRecordSet()
	set.Video["unit-a"] = progress.VideoProgress{
		UserID: "u1", UnitID: "unit-a", Completed: true, LastUpdated: time.Now(),
	}
	set.Questions["q-1"] = progress.QuestionProgress{
		UserID: "u1", QuestionID: "q-1", UnitID: "unit-a", Attempts: 1, Correct: true,
	}
	return set
}

func TestCanNavigate_ChronologicalOff(t *testing.T) {
	e := gate.New(testCatalog(), gate.Config{Chronological: false})
	if !e.CanNavigate(t.Context(), gate.Forward, "unit-a", gate.SectionVideo, progress.NewRecordSet()) {
		t.Error("free navigation should permit any forward move")
	}
}

func TestCanNavigate_BackwardAlwaysPermitted(t *testing.T) {
	e := gate.New(testCatalog(), gate.Config{Chronological: true})
	if !e.CanNavigate(t.Context(), gate.Backward, "unit-b", gate.SectionVideo, progress.NewRecordSet()) {
		t.Error("backward navigation must never be gated")
	}
}

func TestCanNavigate_VideoIncompleteBlocks(t *testing.T) {
	notifier := notify.NewMemoryNotifier()
	e := gate.New(testCatalog(), gate.Config{Chronological: true, Notifier: notifier})

	set := progress.NewRecordSet()
	set.Video["unit-a"] = progress.VideoProgress{UserID: "u1", UnitID: "unit-a", CurrentTime: 30, Duration: 300}
	before := set.Clone()

	if e.CanNavigate(t.Context(), gate.Forward, "unit-a", gate.SectionVideo, set) {
		t.Error("unwatched video should block the move to the quiz")
	}
	if got := notifier.Sent(); len(got) != 1 || got[0].Level != notify.LevelInfo {
		t.Errorf("notifications = %+v, want one info toast", got)
	}
	if set.Video["unit-a"] != before.Video["unit-a"] || len(set.Questions) != 0 {
		t.Error("a rejected navigation must not mutate records")
	}
}

func TestCanNavigate_VideoCompletePermitsQuiz(t *testing.T) {
	e := gate.New(testCatalog(), gate.Config{Chronological: true})
	set := progress.NewRecordSet()
	set.Video["unit-a"] = progress.VideoProgress{UserID: "u1", UnitID: "unit-a", Completed: true}

	if !e.CanNavigate(t.Context(), gate.Forward, "unit-a", gate.SectionVideo, set) {
		t.Error("completed video should unlock the quiz section")
	}
}

func TestCanNavigate_QuizIncompleteBlocksUnitExit(t *testing.T) {
	notifier := notify.NewMemoryNotifier()
	e := gate.New(testCatalog(), gate.Config{Chronological: true, Notifier: notifier})

	set := progress.NewRecordSet()
	set.Video["unit-a"] = progress.VideoProgress{UserID: "u1", UnitID: "unit-a", Completed: true}

	if e.CanNavigate(t.Context(), gate.Forward, "unit-a", gate.SectionQuiz, set) {
		t.Error("unanswered quiz should block leaving the unit")
	}
	if len(notifier.Sent()) != 1 {
		t.Error("rejection should notify the user")
	}
}

func TestCanNavigate_CompleteUnitUnlocksNext(t *testing.T) {
	e := gate.New(testCatalog(), gate.Config{Chronological: true})
	if !e.CanNavigate(t.Context(), gate.Forward, "unit-a", gate.SectionQuiz, completedUnitA()) {
		t.Error("fully complete unit should unlock the next one")
	}
}

func TestCanNavigate_CompleteLastUnitPermitted(t *testing.T) {
	notifier := notify.NewMemoryNotifier()
	e := gate.New(testCatalog(), gate.Config{Chronological: true, Notifier: notifier})

	set := completedUnitA()
	set.Video["unit-b"] = progress.VideoProgress{UserID: "u1", UnitID: "unit-b", Completed: true}

	// The gate only checks completion; running off the end of the catalog
	// is the sequencer's terminal signal, not a rejection.
	if !e.CanNavigate(t.Context(), gate.Forward, "unit-b", gate.SectionVideo, set) {
		t.Error("forward from a complete last unit should be permitted")
	}
	if got := notifier.Sent(); len(got) != 0 {
		t.Errorf("notifications = %+v, want none", got)
	}
}
