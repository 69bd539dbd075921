// Package nav walks the flattened (unit, section) ordering of the course
// once the gate permits a transition.
package nav

import (
	"context"

	"github.com/brightpath/courseplayer/internal/catalog"
	"github.com/brightpath/courseplayer/internal/gate"
	"github.com/brightpath/courseplayer/internal/progress"
)

// Position is a logical location in the course: a unit plus the section
// inside it. A quizzed unit contributes two positions (video, quiz), a
// quiz-less unit one (video).
type Position struct {
	UnitID  string
	Section gate.Section
}

// Outcome of a step request.
type Outcome int

const (
	// Moved means the step was permitted and the target returned.
	Moved Outcome = iota
	// Blocked means the gate rejected the transition; position unchanged.
	Blocked
	// CourseComplete means the walk ran off the end of the catalog.
	CourseComplete
	// AtStart means a backward step from the first position.
	AtStart
)

// Sequencer computes navigation targets over the catalog, consulting the
// gate before every forward move.
type Sequencer struct {
	catalog *catalog.Catalog
	gate    *gate.Engine
}

// New creates a sequencer.
func New(cat *catalog.Catalog, g *gate.Engine) *Sequencer {
	return &Sequencer{catalog: cat, gate: g}
}

// Start returns the first position of the course.
func (s *Sequencer) Start() (Position, bool) {
	u, ok := s.catalog.UnitAt(0)
	if !ok {
		return Position{}, false
	}
	return Position{UnitID: u.ID, Section: gate.SectionVideo}, true
}

// Next returns the position one logical step forward, crossing chapter and
// semester boundaries by continuing the flattened walk. ok=false means cur
// is the last position of the catalog.
func (s *Sequencer) Next(cur Position) (Position, bool) {
	unit, ok := s.catalog.Unit(cur.UnitID)
	if !ok {
		return Position{}, false
	}
	if cur.Section == gate.SectionVideo && unit.HasQuiz() {
		return Position{UnitID: cur.UnitID, Section: gate.SectionQuiz}, true
	}

	pos, ok := s.catalog.PositionOf(cur.UnitID)
	if !ok {
		return Position{}, false
	}
	next, ok := s.catalog.UnitAt(pos + 1)
	if !ok {
		return Position{}, false
	}
	return Position{UnitID: next.ID, Section: gate.SectionVideo}, true
}

// Prev returns the position one logical step backward. ok=false means cur
// is the first position.
func (s *Sequencer) Prev(cur Position) (Position, bool) {
	if cur.Section == gate.SectionQuiz {
		return Position{UnitID: cur.UnitID, Section: gate.SectionVideo}, true
	}

	pos, ok := s.catalog.PositionOf(cur.UnitID)
	if !ok {
		return Position{}, false
	}
	prev, ok := s.catalog.UnitAt(pos - 1)
	if !ok {
		return Position{}, false
	}
	section := gate.SectionVideo
	if prev.HasQuiz() {
		section = gate.SectionQuiz
	}
	return Position{UnitID: prev.ID, Section: section}, true
}

// Step performs a gated navigation. A blocked forward step returns the
// current position unchanged; running off the end returns CourseComplete.
func (s *Sequencer) Step(ctx context.Context, cur Position, dir gate.Direction, set progress.RecordSet) (Position, Outcome) {
	if dir == gate.Backward {
		target, ok := s.Prev(cur)
		if !ok {
			return cur, AtStart
		}
		return target, Moved
	}

	if !s.gate.CanNavigate(ctx, gate.Forward, cur.UnitID, cur.Section, set) {
		return cur, Blocked
	}
	target, ok := s.Next(cur)
	if !ok {
		return cur, CourseComplete
	}
	return target, Moved
}
