package progress_test

import (
	"errors"
	"testing"
	"time"

	"github.com/brightpath/courseplayer/internal/progress"
)

func TestMemoryPersister_VideoUpsert(t *testing.T) {
	p := progress.NewMemoryPersister()
	ctx := t.Context()

	rec := progress.VideoProgress{UserID: "u1", UnitID: "unit-a", CurrentTime: 10, Duration: 300}
	if err := p.SaveVideo(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.CurrentTime = 20
	if err := p.SaveVideo(ctx, rec); err != nil {
		t.Fatal(err)
	}

	set, err := p.Fetch(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Video) != 1 {
		t.Fatalf("video records = %d, want 1 (upsert by key)", len(set.Video))
	}
	if set.Video["unit-a"].CurrentTime != 20 {
		t.Errorf("CurrentTime = %v, want 20", set.Video["unit-a"].CurrentTime)
	}

	rec.Completed = true
	if err := p.SaveVideo(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.Completed = false
	if err := p.SaveVideo(ctx, rec); err != nil {
		t.Fatal(err)
	}
	set, _ = p.Fetch(ctx, "u1")
	if !set.Video["unit-a"].Completed {
		t.Error("completed flag regressed on upsert")
	}
}

func TestMemoryPersister_QuestionAttempts(t *testing.T) {
	p := progress.NewMemoryPersister()
	ctx := t.Context()

	rec := progress.QuestionProgress{UserID: "u1", QuestionID: "q-1", UnitID: "unit-a"}
	for range 3 {
		if err := p.SaveQuestion(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	set, _ := p.Fetch(ctx, "u1")
	if got := set.Questions["q-1"].Attempts; got != 3 {
		t.Errorf("Attempts = %d, want 3 (persister owns the increment)", got)
	}
}

func TestMemoryPersister_UnitPartialUpdate(t *testing.T) {
	p := progress.NewMemoryPersister()
	ctx := t.Context()

	vc := true
	total := 4
	if err := p.SaveUnit(ctx, progress.UnitUpdate{
		UserID: "u1", UnitID: "unit-a", ChapterID: "ch-1",
		VideoCompleted: &vc, TotalQuestions: &total,
	}); err != nil {
		t.Fatal(err)
	}
	done := 10
	if err := p.SaveUnit(ctx, progress.UnitUpdate{
		UserID: "u1", UnitID: "unit-a", QuestionsCompleted: &done,
		LastUpdated: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	set, _ := p.Fetch(ctx, "u1")
	rec := set.Units["unit-a"]
	if !rec.VideoCompleted || rec.ChapterID != "ch-1" {
		t.Errorf("partial update dropped earlier fields: %+v", rec)
	}
	if rec.QuestionsCompleted != 4 {
		t.Errorf("QuestionsCompleted = %d, want 4 (capped at total)", rec.QuestionsCompleted)
	}
}

func TestMemoryPersister_Validation(t *testing.T) {
	p := progress.NewMemoryPersister()
	ctx := t.Context()

	checks := []error{
		p.SaveVideo(ctx, progress.VideoProgress{UnitID: "unit-a"}),
		p.SaveQuestion(ctx, progress.QuestionProgress{UserID: "u1"}),
		p.SaveUnit(ctx, progress.UnitUpdate{UserID: "u1"}),
		p.Reset(ctx, ""),
	}
	for i, err := range checks {
		if !errors.Is(err, progress.ErrValidation) {
			t.Errorf("check %d: error = %v, want ErrValidation", i, err)
		}
	}
	if _, err := p.Fetch(ctx, ""); !errors.Is(err, progress.ErrValidation) {
		t.Errorf("Fetch error = %v, want ErrValidation", err)
	}
}

func TestMemoryPersister_ResetAndUsers(t *testing.T) {
	p := progress.NewMemoryPersister()
	ctx := t.Context()

	p.SaveVideo(ctx, progress.VideoProgress{UserID: "bob", UnitID: "unit-a"})
	p.SaveQuestion(ctx, progress.QuestionProgress{UserID: "alice", QuestionID: "q-1"})

	users, err := p.Users(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Errorf("Users() = %v, want [alice bob]", users)
	}

	if err := p.Reset(ctx, "bob"); err != nil {
		t.Fatal(err)
	}
	set, _ := p.Fetch(ctx, "bob")
	if len(set.Video) != 0 {
		t.Error("bob's records should be gone after reset")
	}
	set, _ = p.Fetch(ctx, "alice")
	if len(set.Questions) != 1 {
		t.Error("reset must not touch other users")
	}
}
