package progress

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the wire form of a full progress fetch: the canonical
// three-table shape.
type Snapshot struct {
	VideoProgress    []VideoProgress    `json:"video_progress"`
	QuestionProgress []QuestionProgress `json:"question_progress"`
	UnitProgress     []UnitProgress     `json:"unit_progress"`
}

// ToRecordSet keys the snapshot's records by their natural keys.
func (s Snapshot) ToRecordSet() RecordSet {
	set := NewRecordSet()
	for _, v := range s.VideoProgress {
		set.Video[v.UnitID] = v
	}
	for _, q := range s.QuestionProgress {
		set.Questions[q.QuestionID] = q
	}
	for _, u := range s.UnitProgress {
		set.Units[u.UnitID] = u
	}
	return set
}

// SnapshotOf flattens a record set back into wire form.
func SnapshotOf(set RecordSet) Snapshot {
	snap := Snapshot{
		VideoProgress:    make([]VideoProgress, 0, len(set.Video)),
		QuestionProgress: make([]QuestionProgress, 0, len(set.Questions)),
		UnitProgress:     make([]UnitProgress, 0, len(set.Units)),
	}
	for _, v := range set.Video {
		snap.VideoProgress = append(snap.VideoProgress, v)
	}
	for _, q := range set.Questions {
		snap.QuestionProgress = append(snap.QuestionProgress, q)
	}
	for _, u := range set.Units {
		snap.UnitProgress = append(snap.UnitProgress, u)
	}
	return snap
}

// legacySnapshot is the historical flat shape: a map of unit ID to a bare
// completed flag, produced by the first generation of the player.
type legacySnapshot struct {
	CompletedUnits map[string]bool `json:"completed_units"`
}

// DecodeSnapshot normalizes either payload shape into a record set. The
// shape is detected by which top-level key is present; unknown shapes are a
// validation failure, never a guess.
func DecodeSnapshot(userID string, data []byte) (RecordSet, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return RecordSet{}, fmt.Errorf("%w: malformed progress payload: %v", ErrValidation, err)
	}

	if _, ok := probe["completed_units"]; ok {
		var legacy legacySnapshot
		if err := json.Unmarshal(data, &legacy); err != nil {
			return RecordSet{}, fmt.Errorf("%w: malformed legacy payload: %v", ErrValidation, err)
		}
		return legacy.toRecordSet(userID), nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return RecordSet{}, fmt.Errorf("%w: malformed progress payload: %v", ErrValidation, err)
	}
	return snap.ToRecordSet(), nil
}

// toRecordSet lifts the flat map into canonical records. A completed unit
// becomes a completed video record plus a unit summary with no quiz data;
// the evaluator honors such a summary as long as no question records exist
// to contradict it, so completion survives the payload migration.
func (l legacySnapshot) toRecordSet(userID string) RecordSet {
	set := NewRecordSet()
	now := time.Now()
	for unitID, done := range l.CompletedUnits {
		if !done {
			continue
		}
		set.Video[unitID] = VideoProgress{
			UserID:      userID,
			UnitID:      unitID,
			Completed:   true,
			LastUpdated: now,
		}
		set.Units[unitID] = UnitProgress{
			UserID:         userID,
			UnitID:         unitID,
			VideoCompleted: true,
			LastUpdated:    now,
		}
	}
	return set
}
