package match

import (
	"errors"

	"reunite.city/matcher/internal/db"
)

var (
	// ErrValidation marks malformed input rejected before touching storage.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown report or match id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition marks a terminal-state or illegal-edge transition.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflict marks a stale-state compare-and-swap failure: another actor
	// transitioned the match between read and write.
	ErrConflict = errors.New("conflicting concurrent transition")
)

// ErrorKind is the stable per-item error label surfaced in bulk results and
// mapped to HTTP statuses at the API boundary.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindConflict          ErrorKind = "conflict"
	KindStorage           ErrorKind = "storage"
)

func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound), db.IsNoRows(err):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindStorage
	}
}
