// Package gate authorizes or blocks navigation transitions under the
// chronological-unlock policy.
package gate

import (
	"context"

	"github.com/brightpath/courseplayer/internal/catalog"
	"github.com/brightpath/courseplayer/internal/completion"
	"github.com/brightpath/courseplayer/internal/notify"
	"github.com/brightpath/courseplayer/internal/progress"
)

// Direction of a navigation request.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Section is the logical position inside a unit.
type Section int

const (
	SectionVideo Section = iota
	SectionQuiz
)

// Config holds gating policy and dependencies. The chronological flag is
// explicit configuration, not ambient state, so decisions stay a pure
// function of (records, catalog, flag, position).
type Config struct {
	Chronological bool
	Notifier      notify.Notifier
}

// Engine decides whether a navigation transition is permitted. A rejection
// emits a user-facing toast and mutates nothing.
type Engine struct {
	catalog       *catalog.Catalog
	chronological bool
	notifier      notify.Notifier
}

// New creates a gating engine over the catalog.
func New(cat *catalog.Catalog, cfg Config) *Engine {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.SlogNotifier{}
	}
	return &Engine{
		catalog:       cat,
		chronological: cfg.Chronological,
		notifier:      notifier,
	}
}

// Chronological reports the active policy flag.
func (e *Engine) Chronological() bool {
	return e.chronological
}

// CanNavigate decides whether the transition out of (unitID, section) in the
// given direction is permitted for the supplied records.
func (e *Engine) CanNavigate(ctx context.Context, dir Direction, unitID string, section Section, set progress.RecordSet) bool {
	if !e.chronological || dir == Backward {
		return true
	}

	unit, ok := e.catalog.Unit(unitID)
	if !ok {
		return true
	}

	// Forward out of the video section, within a quizzed unit: only needs
	// the video watched.
	if section == SectionVideo && unit.HasQuiz() {
		if v, ok := set.Video[unitID]; ok && v.Completed {
			return true
		}
		e.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelInfo,
			Message: "Finish this video before moving on.",
		})
		return false
	}

	// Leaving the unit entirely: quiz section, or the video section of a
	// quiz-less unit. Needs the whole unit complete. A complete last unit
	// is permitted like any other; the sequencer owns the terminal
	// course-complete signal.
	if !completion.IsUnitComplete(e.catalog, set, unitID) {
		msg := "Complete this unit's quiz before moving on."
		if !unit.HasQuiz() {
			msg = "Finish this video before moving on."
		}
		e.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelInfo,
			Message: msg,
		})
		return false
	}
	return true
}
