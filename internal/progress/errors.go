package progress

import "errors"

// Failure taxonomy for the persistence boundary. Implementations wrap these
// sentinels so callers can branch with errors.Is without depending on the
// transport.
var (
	// ErrAuth means there is no valid session; the caller must
	// re-authenticate, retrying is pointless.
	ErrAuth = errors.New("progress: not authenticated")

	// ErrValidation means a write request was missing required fields and
	// was rejected before persistence.
	ErrValidation = errors.New("progress: invalid request")

	// ErrPersistence means the remote storage call failed; local state is
	// kept but must be reconciled against a fresh fetch.
	ErrPersistence = errors.New("progress: persistence unavailable")

	// ErrConsistency means a derived UnitProgress disagrees with the
	// underlying video/question records; recoverable by recomputing.
	ErrConsistency = errors.New("progress: derived record inconsistent")
)
