// Package quiz runs the per-question answer/retry/cooldown state machine
// for one unit's quiz.
package quiz

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/brightpath/courseplayer/internal/catalog"
	"github.com/brightpath/courseplayer/internal/progress"
)

// State of a single question.
type State int

const (
	// Unanswered accepts an answer selection.
	Unanswered State = iota
	// CorrectTerminal is final; further selections are ignored.
	CorrectTerminal
	// IncorrectLocked rejects selections until the cooldown expires.
	IncorrectLocked
)

func (s State) String() string {
	switch s {
	case CorrectTerminal:
		return "correct"
	case IncorrectLocked:
		return "locked"
	default:
		return "unanswered"
	}
}

const (
	// DefaultCooldown is the canonical lock window after a wrong answer.
	DefaultCooldown = 10 * time.Second
	// DefaultTick is the countdown decrement interval.
	DefaultTick = time.Second
)

// Tracker persists question outcomes; satisfied by *progress.Store.
type Tracker interface {
	TrackQuestionProgress(ctx context.Context, questionID, unitID, chapterID string, correct bool)
}

// Config holds dependencies for a quiz machine.
type Config struct {
	Unit      catalog.Unit
	ChapterID string
	Tracker   Tracker
	Cooldown  time.Duration // default 10s
	Tick      time.Duration // default 1s
	// OnQuizComplete fires once, when the last question reaches its
	// terminal state.
	OnQuizComplete func(unitID string)
	// Seed marks questions already answered correctly in an earlier
	// session as terminal.
	Seed progress.RecordSet
}

type questionState struct {
	question catalog.Question
	state    State
	attempts int
	// wrong holds options already tried this session; kept across cooldown
	// loops, never persisted.
	wrong        map[string]bool
	selected     string
	cooldownLeft time.Duration
}

// Machine drives one unit's quiz. Safe for use from the event loop plus the
// cooldown ticker goroutine.
type Machine struct {
	mu        sync.Mutex
	unitID    string
	chapterID string
	cooldown  time.Duration
	tick      time.Duration
	tracker   Tracker
	onDone    func(string)

	questions map[string]*questionState
	notified  bool
}

// Result describes a question after a selection or tick.
type Result struct {
	State    State
	Attempts int
	Accepted bool // false when the selection was ignored
}

// NewMachine builds the machine for a unit, seeding terminal states from
// prior progress.
func NewMachine(cfg Config) *Machine {
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = DefaultCooldown
	}
	tick := cfg.Tick
	if tick == 0 {
		tick = DefaultTick
	}

	m := &Machine{
		unitID:    cfg.Unit.ID,
		chapterID: cfg.ChapterID,
		cooldown:  cooldown,
		tick:      tick,
		tracker:   cfg.Tracker,
		onDone:    cfg.OnQuizComplete,
		questions: make(map[string]*questionState),
	}
	for _, q := range cfg.Unit.Video.Questions {
		qs := &questionState{question: q, wrong: make(map[string]bool)}
		if prior, ok := cfg.Seed.Questions[q.ID]; ok {
			qs.attempts = prior.Attempts
			if prior.Correct {
				qs.state = CorrectTerminal
			}
		}
		m.questions[q.ID] = qs
	}
	return m
}

// Answer applies a selection. Selections on terminal or locked questions
// are ignored and reported with Accepted=false.
func (m *Machine) Answer(ctx context.Context, questionID, option string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs, ok := m.questions[questionID]
	if !ok {
		return Result{}
	}
	if qs.state != Unanswered {
		return Result{State: qs.state, Attempts: qs.attempts}
	}

	qs.attempts++
	qs.selected = option

	if option == qs.question.CorrectAnswer {
		qs.state = CorrectTerminal
		if m.tracker != nil {
			m.tracker.TrackQuestionProgress(ctx, questionID, m.unitID, m.chapterID, true)
		}
		m.maybeCompleteLocked()
		return Result{State: CorrectTerminal, Attempts: qs.attempts, Accepted: true}
	}

	qs.state = IncorrectLocked
	qs.cooldownLeft = m.cooldown
	qs.wrong[option] = true
	if m.tracker != nil {
		m.tracker.TrackQuestionProgress(ctx, questionID, m.unitID, m.chapterID, false)
	}
	slog.Debug("question locked", "unit_id", m.unitID, "question_id", questionID, "attempts", qs.attempts)
	return Result{State: IncorrectLocked, Attempts: qs.attempts, Accepted: true}
}

// Tick advances every running cooldown by d. A lock whose countdown reaches
// zero clears back to Unanswered with the selection wiped; attempts and the
// wrong-option set survive the loop.
func (m *Machine) Tick(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, qs := range m.questions {
		if qs.state != IncorrectLocked {
			continue
		}
		qs.cooldownLeft -= d
		if qs.cooldownLeft <= 0 {
			qs.cooldownLeft = 0
			qs.state = Unanswered
			qs.selected = ""
		}
	}
}

// Run drives Tick on the configured interval until ctx is done.
func (m *Machine) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(m.tick)
		}
	}
}

// State returns the current state of a question.
func (m *Machine) State(questionID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qs, ok := m.questions[questionID]; ok {
		return qs.state
	}
	return Unanswered
}

// Attempts returns the attempt count of a question.
func (m *Machine) Attempts(questionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qs, ok := m.questions[questionID]; ok {
		return qs.attempts
	}
	return 0
}

// CooldownLeft returns the remaining lock time of a question.
func (m *Machine) CooldownLeft(questionID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qs, ok := m.questions[questionID]; ok {
		return qs.cooldownLeft
	}
	return 0
}

// WrongOptions returns the options already tried for a question, sorted,
// for disabling in the answer UI.
func (m *Machine) WrongOptions(questionID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs, ok := m.questions[questionID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(qs.wrong))
	for opt := range qs.wrong {
		out = append(out, opt)
	}
	sort.Strings(out)
	return out
}

// Complete reports whether every question is terminal.
func (m *Machine) Complete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeLocked()
}

func (m *Machine) completeLocked() bool {
	for _, qs := range m.questions {
		if qs.state != CorrectTerminal {
			return false
		}
	}
	return true
}

func (m *Machine) maybeCompleteLocked() {
	if m.notified || !m.completeLocked() {
		return
	}
	m.notified = true
	slog.Info("unit quiz complete", "unit_id", m.unitID)
	if m.onDone != nil {
		m.onDone(m.unitID)
	}
}
