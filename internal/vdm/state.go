package vdm

import "fmt"

// State is the soft-delete state attached to every versioned entity and
// its revision rows. The enum is closed: there are no other values.
type State string

const (
	// StateActive marks a live entity or revision row.
	StateActive State = "active"

	// StateDeleted marks a soft-deleted entity or revision row.
	// Deletion is a state transition, never a physical row delete
	// (except via explicit revision purge).
	StateDeleted State = "deleted"
)

// Valid reports whether s is one of the closed enum values.
func (s State) Valid() bool {
	return s == StateActive || s == StateDeleted
}

// ParseState converts stored text to a State.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid state %q", raw)
	}
	return s, nil
}
