// Package progress holds the per-user progress records and the client-side
// store that keeps them consistent with a remote persistence service.
package progress

import "time"

// VideoProgress tracks playback of a unit's video. One live record per
// (user, unit); later writes replace by key.
type VideoProgress struct {
	UserID      string    `json:"user_id"`
	UnitID      string    `json:"unit_id"`
	CurrentTime float64   `json:"current_time"` // seconds
	Duration    float64   `json:"duration"`     // seconds
	Completed   bool      `json:"completed"`
	LastUpdated time.Time `json:"last_updated"`
}

// QuestionProgress tracks answers to a single question. One live record per
// (user, question). Attempts only ever grows; Correct reflects the most
// recent answer.
type QuestionProgress struct {
	UserID      string    `json:"user_id"`
	QuestionID  string    `json:"question_id"`
	UnitID      string    `json:"unit_id"`
	ChapterID   string    `json:"chapter_id"`
	Attempts    int       `json:"attempts"`
	Correct     bool      `json:"correct"`
	LastUpdated time.Time `json:"last_updated"`
}

// UnitProgress is a derived per-unit completion summary. It duplicates what
// is computable from Video/QuestionProgress and is treated strictly as a
// cache: recomputable, never authoritative.
type UnitProgress struct {
	UserID             string    `json:"user_id"`
	UnitID             string    `json:"unit_id"`
	ChapterID          string    `json:"chapter_id"`
	VideoCompleted     bool      `json:"video_completed"`
	QuestionsCompleted int       `json:"questions_completed"`
	TotalQuestions     int       `json:"total_questions"`
	LastUpdated        time.Time `json:"last_updated"`
}

// FullyCompleted reports whether the unit's video is watched and its quiz
// (if any) entirely answered. A quiz-less unit has TotalQuestions 0 and the
// quiz term holds vacuously.
func (u UnitProgress) FullyCompleted() bool {
	return u.VideoCompleted && u.QuestionsCompleted >= u.TotalQuestions
}

// UnitUpdate is a partial upsert of a UnitProgress record. Nil fields keep
// the stored value.
type UnitUpdate struct {
	UserID             string    `json:"user_id"`
	UnitID             string    `json:"unit_id"`
	ChapterID          string    `json:"chapter_id,omitempty"`
	VideoCompleted     *bool     `json:"video_completed,omitempty"`
	QuestionsCompleted *int      `json:"questions_completed,omitempty"`
	TotalQuestions     *int      `json:"total_questions,omitempty"`
	LastUpdated        time.Time `json:"last_updated,omitempty"`
}

// RecordSet is a snapshot of one user's records, keyed by the records'
// natural keys (unit ID for video and unit records, question ID for
// question records).
type RecordSet struct {
	Video     map[string]VideoProgress
	Questions map[string]QuestionProgress
	Units     map[string]UnitProgress
}

// NewRecordSet returns an empty record set with all maps allocated.
func NewRecordSet() RecordSet {
	return RecordSet{
		Video:     make(map[string]VideoProgress),
		Questions: make(map[string]QuestionProgress),
		Units:     make(map[string]UnitProgress),
	}
}

// Clone returns a deep copy so callers can evaluate without holding locks.
func (s RecordSet) Clone() RecordSet {
	out := RecordSet{
		Video:     make(map[string]VideoProgress, len(s.Video)),
		Questions: make(map[string]QuestionProgress, len(s.Questions)),
		Units:     make(map[string]UnitProgress, len(s.Units)),
	}
	for k, v := range s.Video {
		out.Video[k] = v
	}
	for k, v := range s.Questions {
		out.Questions[k] = v
	}
	for k, v := range s.Units {
		out.Units[k] = v
	}
	return out
}

// HasUnitRecord reports whether the set holds any record touching the unit.
func (s RecordSet) HasUnitRecord(unitID string) bool {
	if _, ok := s.Video[unitID]; ok {
		return true
	}
	if _, ok := s.Units[unitID]; ok {
		return true
	}
	for _, q := range s.Questions {
		if q.UnitID == unitID {
			return true
		}
	}
	return false
}

// HasQuestionRecord reports whether any question record belongs to the unit.
func (s RecordSet) HasQuestionRecord(unitID string) bool {
	for _, q := range s.Questions {
		if q.UnitID == unitID {
			return true
		}
	}
	return false
}

// CorrectQuestions counts the unit's questions currently answered correctly.
func (s RecordSet) CorrectQuestions(unitID string) int {
	n := 0
	for _, q := range s.Questions {
		if q.UnitID == unitID && q.Correct {
			n++
		}
	}
	return n
}
