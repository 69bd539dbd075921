package progress

import "context"

// Persister is the remote persistence boundary consumed by the Store.
// Implementations: MemoryPersister (tests and single-process setups),
// PostgresPersister (server side), RemotePersister (HTTP client of the
// progress API).
type Persister interface {
	// Fetch returns all records for a user.
	Fetch(ctx context.Context, userID string) (RecordSet, error)

	// SaveVideo upserts a video record by (user, unit). The stored
	// completed flag is sticky: once true it stays true until Reset.
	SaveVideo(ctx context.Context, rec VideoProgress) error

	// SaveQuestion upserts a question record by (user, question). The
	// persister increments the stored attempt counter atomically; the
	// Attempts field of rec is ignored.
	SaveQuestion(ctx context.Context, rec QuestionProgress) error

	// SaveUnit applies a partial upsert by (user, unit).
	SaveUnit(ctx context.Context, upd UnitUpdate) error

	// Reset deletes all three record sets for a user.
	Reset(ctx context.Context, userID string) error
}

// UserLister is implemented by persisters that can enumerate users, which
// the admin report needs to aggregate across the whole cohort.
type UserLister interface {
	Users(ctx context.Context) ([]string, error)
}
