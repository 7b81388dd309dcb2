package progress

import "github.com/felixgeelhaar/practicum/internal/domain"

// SessionState is either Idle or Open. At most one session is open per
// Store at a time.
type SessionState interface {
	isSessionState()
}

// Idle means no session is open
type Idle struct{}

// Open carries the single open session
type Open struct {
	ExerciseID string
	Session    domain.ExerciseSession
}

func (Idle) isSessionState() {}
func (Open) isSessionState() {}

// OpenExerciseID returns the exercise the open session belongs to, or ""
func OpenExerciseID(state SessionState) string {
	if open, ok := state.(Open); ok {
		return open.ExerciseID
	}
	return ""
}
