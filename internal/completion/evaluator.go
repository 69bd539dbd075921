// Package completion derives completion flags, chapter/semester percentages
// and the next actionable unit from raw progress records. Every function is
// total: missing or partial records evaluate to zero/incomplete, never to an
// error, so rendering and navigation are never blocked by bad data.
package completion

import (
	"math"

	"github.com/brightpath/courseplayer/internal/catalog"
	"github.com/brightpath/courseplayer/internal/progress"
)

// Point model: a completed video is worth 5 points, each correctly answered
// question 1 point, so quizzes never dominate video weight.
const (
	videoPoints    = 5
	questionPoints = 1
)

// IsUnitComplete reports whether the unit's video is watched and its quiz,
// if the catalog says it has one, fully answered.
func IsUnitComplete(cat *catalog.Catalog, set progress.RecordSet, unitID string) bool {
	unit, ok := cat.Unit(unitID)
	if !ok {
		return false
	}
	if !videoDone(set, unitID) {
		return false
	}
	if !unit.HasQuiz() {
		return true
	}
	return quizSatisfied(set, unit)
}

// quizSatisfied reports whether the unit's quiz counts as fully answered.
// Source question records win; when none exist for the unit, a unit summary
// claiming completion is trusted. That keeps units completed under the old
// player (bare completed-units payloads carry no question records) complete
// after normalization, while a summary contradicted by actual answers, or
// one rederived with the real question total, still evaluates incomplete.
func quizSatisfied(set progress.RecordSet, unit catalog.Unit) bool {
	if set.CorrectQuestions(unit.ID) >= len(unit.Video.Questions) {
		return true
	}
	if set.HasQuestionRecord(unit.ID) {
		return false
	}
	u, ok := set.Units[unit.ID]
	return ok && u.FullyCompleted()
}

// videoDone checks the source video record first and falls back to the
// derived unit summary, so legacy payloads without video records still
// evaluate.
func videoDone(set progress.RecordSet, unitID string) bool {
	if v, ok := set.Video[unitID]; ok && v.Completed {
		return true
	}
	if u, ok := set.Units[unitID]; ok && u.VideoCompleted {
		return true
	}
	return false
}

// unitPoints returns (earned, total) for one unit under the point model.
func unitPoints(set progress.RecordSet, unit catalog.Unit) (int, int) {
	total := videoPoints + questionPoints*len(unit.Video.Questions)
	earned := 0
	if videoDone(set, unit.ID) {
		earned += videoPoints
	}
	correct := set.CorrectQuestions(unit.ID)
	if correct > len(unit.Video.Questions) || quizSatisfied(set, unit) {
		correct = len(unit.Video.Questions)
	}
	earned += questionPoints * correct
	return earned, total
}

// ChapterPercentage returns the chapter's completion in whole percent,
// 0..100. A chapter with no points evaluates to 0.
func ChapterPercentage(cat *catalog.Catalog, set progress.RecordSet, chapterID string) int {
	ch, ok := cat.Chapter(chapterID)
	if !ok {
		return 0
	}
	earned, total := 0, 0
	for _, u := range ch.Units {
		e, t := unitPoints(set, u)
		earned += e
		total += t
	}
	return percent(earned, total)
}

// SemesterPercentage returns the semester's completion in whole percent,
// summing the point model across all its chapters.
func SemesterPercentage(cat *catalog.Catalog, set progress.RecordSet, semesterID string) int {
	earned, total := 0, 0
	for _, sem := range cat.Semesters() {
		if sem.ID != semesterID {
			continue
		}
		for _, ch := range sem.Chapters {
			for _, u := range ch.Units {
				e, t := unitPoints(set, u)
				earned += e
				total += t
			}
		}
	}
	return percent(earned, total)
}

func percent(earned, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(earned) / float64(total) * 100))
}

// NextActionableUnit scans the flattened unit ordering twice: first for a
// unit with some progress that is not complete (resume semantics), then for
// a unit with no progress at all (first touch). ok=false means the whole
// course is complete.
func NextActionableUnit(cat *catalog.Catalog, set progress.RecordSet) (string, bool) {
	for _, unitID := range cat.UnitIDs() {
		if set.HasUnitRecord(unitID) && !IsUnitComplete(cat, set, unitID) {
			return unitID, true
		}
	}
	for _, unitID := range cat.UnitIDs() {
		if !set.HasUnitRecord(unitID) {
			return unitID, true
		}
	}
	return "", false
}

// RecomputeUnit rebuilds a unit summary from the source records, using the
// catalog for chapter membership and quiz size. This is the recovery path
// when a stored UnitProgress disagrees with its sources.
func RecomputeUnit(cat *catalog.Catalog, set progress.RecordSet, userID, unitID string) progress.UnitProgress {
	rec := progress.UnitProgress{UserID: userID, UnitID: unitID}
	if ch, ok := cat.UnitChapter(unitID); ok {
		rec.ChapterID = ch
	}
	rec.TotalQuestions = cat.UnitQuestionCount(unitID)
	rec.VideoCompleted = videoDone(set, unitID)
	rec.QuestionsCompleted = set.CorrectQuestions(unitID)
	if rec.QuestionsCompleted > rec.TotalQuestions {
		rec.QuestionsCompleted = rec.TotalQuestions
	}
	return rec
}
