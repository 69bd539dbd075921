package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryPersister is an in-memory Persister for tests and single-process
// deployments.
type MemoryPersister struct {
	mu    sync.RWMutex
	video map[string]map[string]VideoProgress    // userID -> unitID
	quest map[string]map[string]QuestionProgress // userID -> questionID
	units map[string]map[string]UnitProgress     // userID -> unitID
}

// NewMemoryPersister creates an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{
		video: make(map[string]map[string]VideoProgress),
		quest: make(map[string]map[string]QuestionProgress),
		units: make(map[string]map[string]UnitProgress),
	}
}

func (p *MemoryPersister) Fetch(_ context.Context, userID string) (RecordSet, error) {
	if userID == "" {
		return RecordSet{}, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	set := NewRecordSet()
	for k, v := range p.video[userID] {
		set.Video[k] = v
	}
	for k, v := range p.quest[userID] {
		set.Questions[k] = v
	}
	for k, v := range p.units[userID] {
		set.Units[k] = v
	}
	return set, nil
}

func (p *MemoryPersister) SaveVideo(_ context.Context, rec VideoProgress) error {
	if rec.UserID == "" || rec.UnitID == "" {
		return fmt.Errorf("%w: user_id and unit_id are required", ErrValidation)
	}
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.video[rec.UserID] == nil {
		p.video[rec.UserID] = make(map[string]VideoProgress)
	}
	if prev, ok := p.video[rec.UserID][rec.UnitID]; ok && prev.Completed {
		rec.Completed = true
	}
	p.video[rec.UserID][rec.UnitID] = rec
	return nil
}

func (p *MemoryPersister) SaveQuestion(_ context.Context, rec QuestionProgress) error {
	if rec.UserID == "" || rec.QuestionID == "" {
		return fmt.Errorf("%w: user_id and question_id are required", ErrValidation)
	}
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.quest[rec.UserID] == nil {
		p.quest[rec.UserID] = make(map[string]QuestionProgress)
	}
	prev := p.quest[rec.UserID][rec.QuestionID]
	rec.Attempts = prev.Attempts + 1
	p.quest[rec.UserID][rec.QuestionID] = rec
	return nil
}

func (p *MemoryPersister) SaveUnit(_ context.Context, upd UnitUpdate) error {
	if upd.UserID == "" || upd.UnitID == "" {
		return fmt.Errorf("%w: user_id and unit_id are required", ErrValidation)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.units[upd.UserID] == nil {
		p.units[upd.UserID] = make(map[string]UnitProgress)
	}
	rec, ok := p.units[upd.UserID][upd.UnitID]
	if !ok {
		rec = UnitProgress{UserID: upd.UserID, UnitID: upd.UnitID}
	}
	if upd.ChapterID != "" {
		rec.ChapterID = upd.ChapterID
	}
	if upd.VideoCompleted != nil {
		rec.VideoCompleted = *upd.VideoCompleted
	}
	if upd.TotalQuestions != nil {
		rec.TotalQuestions = *upd.TotalQuestions
	}
	if upd.QuestionsCompleted != nil {
		rec.QuestionsCompleted = *upd.QuestionsCompleted
		if rec.QuestionsCompleted > rec.TotalQuestions {
			rec.QuestionsCompleted = rec.TotalQuestions
		}
	}
	rec.LastUpdated = upd.LastUpdated
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = time.Now()
	}
	p.units[upd.UserID][upd.UnitID] = rec
	return nil
}

func (p *MemoryPersister) Reset(_ context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.video, userID)
	delete(p.quest, userID)
	delete(p.units, userID)
	return nil
}

// Users returns every user ID with at least one record, sorted.
func (p *MemoryPersister) Users(_ context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[string]bool)
	for id := range p.video {
		seen[id] = true
	}
	for id := range p.quest {
		seen[id] = true
	}
	for id := range p.units {
		seen[id] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
