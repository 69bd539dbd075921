package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brightpath/courseplayer/internal/notify"
)

const (
	// DefaultDebounce is how long rapid video ticks coalesce before a
	// single remote write carries the latest values.
	DefaultDebounce = 5 * time.Second

	persistTimeout = 5 * time.Second
)

// CatalogInfo is the slice of the course catalog the store needs to keep the
// derived UnitProgress cache honest.
type CatalogInfo interface {
	UnitChapter(unitID string) (string, bool)
	UnitQuestionCount(unitID string) int
}

// StoreConfig holds dependencies for a Store.
type StoreConfig struct {
	UserID    string
	Persister Persister
	Catalog   CatalogInfo
	Notifier  notify.Notifier
	Debounce  time.Duration    // video persistence window (default 5s)
	Now       func() time.Time // injectable clock for tests
}

// Store is the client-side cache of one user's progress records. It is the
// sole serialization point for record mutations: every local optimistic
// write, remote-confirmed refetch and push-merged update goes through the
// store's lock as an upsert by natural key.
type Store struct {
	userID    string
	persister Persister
	catalog   CatalogInfo
	notifier  notify.Notifier
	debounce  time.Duration
	now       func() time.Time

	mu           sync.Mutex
	records      RecordSet
	videoTimers  map[string]*time.Timer
	pendingVideo map[string]VideoProgress
	closed       bool
}

// NewStore creates a store for one user. Call Load before evaluating.
func NewStore(cfg StoreConfig) *Store {
	debounce := cfg.Debounce
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.SlogNotifier{}
	}
	return &Store{
		userID:       cfg.UserID,
		persister:    cfg.Persister,
		catalog:      cfg.Catalog,
		notifier:     notifier,
		debounce:     debounce,
		now:          now,
		records:      NewRecordSet(),
		videoTimers:  make(map[string]*time.Timer),
		pendingVideo: make(map[string]VideoProgress),
	}
}

// Load replaces the local cache with a fresh fetch from the persister.
func (s *Store) Load(ctx context.Context) error {
	set, err := s.persister.Fetch(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records = set
	s.mu.Unlock()

	slog.Debug("progress loaded",
		"user_id", s.userID,
		"video", len(set.Video),
		"questions", len(set.Questions),
		"units", len(set.Units),
	)
	return nil
}

// Snapshot returns a deep copy of the current record set for evaluation.
func (s *Store) Snapshot() RecordSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Clone()
}

// TrackVideoProgress upserts the unit's video record optimistically and
// schedules a debounced remote write. Calling it again within the window
// resets the timer; the eventual write carries the latest values. A record
// that reached completed stays completed.
func (s *Store) TrackVideoProgress(ctx context.Context, unitID string, currentTime, duration float64, completed bool) {
	if unitID == "" || currentTime < 0 || duration < 0 {
		s.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelWarning,
			Message: "Could not record video progress.",
		})
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	rec := VideoProgress{
		UserID:      s.userID,
		UnitID:      unitID,
		CurrentTime: currentTime,
		Duration:    duration,
		Completed:   completed,
		LastUpdated: s.now(),
	}
	if prev, ok := s.records.Video[unitID]; ok && prev.Completed {
		rec.Completed = true
	}
	s.records.Video[unitID] = rec
	s.pendingVideo[unitID] = rec
	s.recomputeUnitLocked(unitID)

	if t, ok := s.videoTimers[unitID]; ok {
		t.Stop()
	}
	s.videoTimers[unitID] = time.AfterFunc(s.debounce, func() {
		s.flushVideo(unitID)
	})
	s.mu.Unlock()
}

// flushVideo persists the latest pending video record for a unit.
func (s *Store) flushVideo(unitID string) {
	s.mu.Lock()
	rec, ok := s.pendingVideo[unitID]
	delete(s.pendingVideo, unitID)
	delete(s.videoTimers, unitID)
	closed := s.closed
	s.mu.Unlock()
	if !ok || closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.persister.SaveVideo(ctx, rec); err != nil {
		s.persistFailed(ctx, "video", err)
	}
}

// TrackQuestionProgress upserts the question record optimistically and
// persists immediately. Attempts grow monotonically; Correct reflects this
// answer only.
func (s *Store) TrackQuestionProgress(ctx context.Context, questionID, unitID, chapterID string, correct bool) {
	if questionID == "" || unitID == "" {
		s.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelWarning,
			Message: "Could not record quiz answer.",
		})
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	rec := QuestionProgress{
		UserID:      s.userID,
		QuestionID:  questionID,
		UnitID:      unitID,
		ChapterID:   chapterID,
		Attempts:    s.records.Questions[questionID].Attempts + 1,
		Correct:     correct,
		LastUpdated: s.now(),
	}
	s.records.Questions[questionID] = rec
	s.recomputeUnitLocked(unitID)
	s.mu.Unlock()

	if err := s.persister.SaveQuestion(ctx, rec); err != nil {
		s.persistFailed(ctx, "question", err)
	}
}

// TrackUnitProgress applies a partial upsert to the unit summary and
// persists immediately.
func (s *Store) TrackUnitProgress(ctx context.Context, upd UnitUpdate) {
	if upd.UnitID == "" {
		s.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelWarning,
			Message: "Could not record unit progress.",
		})
		return
	}
	upd.UserID = s.userID
	upd.LastUpdated = s.now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	rec, ok := s.records.Units[upd.UnitID]
	if !ok {
		rec = UnitProgress{UserID: s.userID, UnitID: upd.UnitID}
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
	s.records.Units[upd.UnitID] = rec
	s.mu.Unlock()

	if err := s.persister.SaveUnit(ctx, upd); err != nil {
		s.persistFailed(ctx, "unit", err)
	}
}

// ResetProgress clears all three record sets locally and remotely. This is
// the only path that may take a fully completed unit back to incomplete.
func (s *Store) ResetProgress(ctx context.Context) error {
	s.mu.Lock()
	s.records = NewRecordSet()
	for _, t := range s.videoTimers {
		t.Stop()
	}
	s.videoTimers = make(map[string]*time.Timer)
	s.pendingVideo = make(map[string]VideoProgress)
	s.mu.Unlock()

	if err := s.persister.Reset(ctx, s.userID); err != nil {
		s.persistFailed(ctx, "reset", err)
		return err
	}
	return nil
}

// MergeVideo folds an externally originated video record into the cache.
// Last write wins on LastUpdated; an incoming record is accepted only if
// its timestamp is >= the local one, so a confirmed echo of our own write
// is a no-op and a stale push can never regress newer local state.
func (s *Store) MergeVideo(rec VideoProgress) {
	if rec.UnitID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if local, ok := s.records.Video[rec.UnitID]; ok && rec.LastUpdated.Before(local.LastUpdated) {
		return
	}
	s.records.Video[rec.UnitID] = rec
	s.recomputeUnitLocked(rec.UnitID)
}

// MergeUnit folds an externally originated unit record into the cache under
// the same last-write-wins rule.
func (s *Store) MergeUnit(rec UnitProgress) {
	if rec.UnitID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if local, ok := s.records.Units[rec.UnitID]; ok && rec.LastUpdated.Before(local.LastUpdated) {
		return
	}
	s.records.Units[rec.UnitID] = rec
}

// MergeQuestion folds an externally originated question record into the
// cache under the same last-write-wins rule.
func (s *Store) MergeQuestion(rec QuestionProgress) {
	if rec.QuestionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if local, ok := s.records.Questions[rec.QuestionID]; ok && rec.LastUpdated.Before(local.LastUpdated) {
		return
	}
	s.records.Questions[rec.QuestionID] = rec
	s.recomputeUnitLocked(rec.UnitID)
}

// CheckConsistency verifies the derived unit cache against the source
// records and repairs any unit that disagrees. The returned error wraps
// ErrConsistency when repairs were needed; the cache is already fixed by
// the time it is returned.
func (s *Store) CheckConsistency() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var repaired []string
	for unitID, cached := range s.records.Units {
		want := s.deriveUnitLocked(unitID)
		if cached.VideoCompleted != want.VideoCompleted ||
			cached.QuestionsCompleted != want.QuestionsCompleted ||
			cached.TotalQuestions != want.TotalQuestions {
			want.LastUpdated = s.now()
			s.records.Units[unitID] = want
			repaired = append(repaired, unitID)
		}
	}
	if len(repaired) > 0 {
		slog.Warn("unit progress cache repaired", "user_id", s.userID, "units", repaired)
		return repaired, fmt.Errorf("%w: repaired %d units", ErrConsistency, len(repaired))
	}
	return nil, nil
}

// Close cancels pending debounce timers so no stale write fires after the
// owning view is torn down.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range s.videoTimers {
		t.Stop()
	}
	s.videoTimers = make(map[string]*time.Timer)
	s.pendingVideo = make(map[string]VideoProgress)
}

// persistFailed handles a failed remote write: keep the optimistic state
// visible, warn the user once, and schedule a full refetch so truth wins.
func (s *Store) persistFailed(ctx context.Context, kind string, err error) {
	slog.Warn("progress persist failed", "user_id", s.userID, "kind", kind, "error", err)
	s.notifier.Notify(ctx, notify.Notification{
		Level:   notify.LevelWarning,
		Message: "Your progress could not be saved. Retrying sync.",
	})
	s.refetch()
}

// refetch reconciles against the remote truth. Fetched records are merged
// by the same timestamp rule as push updates rather than blindly adopted,
// so an in-flight local write that simply lost a network race does not get
// wiped by an older remote row.
func (s *Store) refetch() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	set, err := s.persister.Fetch(ctx, s.userID)
	if err != nil {
		slog.Warn("progress refetch failed", "user_id", s.userID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range set.Video {
		if local, ok := s.records.Video[k]; !ok || !v.LastUpdated.Before(local.LastUpdated) {
			s.records.Video[k] = v
		}
	}
	for k, v := range set.Questions {
		if local, ok := s.records.Questions[k]; !ok || !v.LastUpdated.Before(local.LastUpdated) {
			s.records.Questions[k] = v
		}
	}
	for k, v := range set.Units {
		if local, ok := s.records.Units[k]; !ok || !v.LastUpdated.Before(local.LastUpdated) {
			s.records.Units[k] = v
		}
	}
}

// recomputeUnitLocked refreshes the derived unit summary from the source
// records. Caller holds s.mu.
func (s *Store) recomputeUnitLocked(unitID string) {
	rec := s.deriveUnitLocked(unitID)
	rec.LastUpdated = s.now()
	s.records.Units[unitID] = rec
}

// deriveUnitLocked rebuilds a UnitProgress from video and question records.
// Caller holds s.mu.
func (s *Store) deriveUnitLocked(unitID string) UnitProgress {
	rec := UnitProgress{UserID: s.userID, UnitID: unitID}
	if prev, ok := s.records.Units[unitID]; ok {
		rec.ChapterID = prev.ChapterID
		rec.TotalQuestions = prev.TotalQuestions
	}
	if s.catalog != nil {
		if ch, ok := s.catalog.UnitChapter(unitID); ok {
			rec.ChapterID = ch
		}
		rec.TotalQuestions = s.catalog.UnitQuestionCount(unitID)
	}
	if v, ok := s.records.Video[unitID]; ok {
		rec.VideoCompleted = v.Completed
	}
	rec.QuestionsCompleted = s.records.CorrectQuestions(unitID)
	if rec.QuestionsCompleted > rec.TotalQuestions {
		rec.QuestionsCompleted = rec.TotalQuestions
	}
	return rec
}
