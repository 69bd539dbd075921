// Package push carries asynchronous progress updates between devices: the
// server publishes every confirmed write, clients merge what they receive
// into their local store under the last-write-wins rule.
package push

import (
	"encoding/json"
	"fmt"

	"github.com/brightpath/courseplayer/internal/progress"
)

// Update is the tagged union on the wire: exactly one of the record fields
// is set, named by Kind.
type Update struct {
	Kind     string                     `json:"kind"` // "video", "question" or "unit"
	UserID   string                     `json:"user_id"`
	Video    *progress.VideoProgress    `json:"video,omitempty"`
	Question *progress.QuestionProgress `json:"question,omitempty"`
	Unit     *progress.UnitProgress     `json:"unit,omitempty"`
}

const (
	KindVideo    = "video"
	KindQuestion = "question"
	KindUnit     = "unit"
)

// VideoUpdate wraps a video record.
func VideoUpdate(rec progress.VideoProgress) Update {
	return Update{Kind: KindVideo, UserID: rec.UserID, Video: &rec}
}

// QuestionUpdate wraps a question record.
func QuestionUpdate(rec progress.QuestionProgress) Update {
	return Update{Kind: KindQuestion, UserID: rec.UserID, Question: &rec}
}

// UnitUpdate wraps a unit record.
func UnitUpdate(rec progress.UnitProgress) Update {
	return Update{Kind: KindUnit, UserID: rec.UserID, Unit: &rec}
}

// Apply merges the update into a store by kind.
func (u Update) Apply(store Merger) error {
	switch u.Kind {
	case KindVideo:
		if u.Video == nil {
			return fmt.Errorf("video update missing record")
		}
		store.MergeVideo(*u.Video)
	case KindQuestion:
		if u.Question == nil {
			return fmt.Errorf("question update missing record")
		}
		store.MergeQuestion(*u.Question)
	case KindUnit:
		if u.Unit == nil {
			return fmt.Errorf("unit update missing record")
		}
		store.MergeUnit(*u.Unit)
	default:
		return fmt.Errorf("unknown update kind: %q", u.Kind)
	}
	return nil
}

// Decode parses a wire payload into an Update.
func Decode(data []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return Update{}, fmt.Errorf("decode push update: %w", err)
	}
	return u, nil
}
