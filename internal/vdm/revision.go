package vdm

import (
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the fixed-width storage format for all timestamps.
//
// Every digit is zero-padded so that lexicographic comparison of stored
// text equals chronological comparison. All timestamps are UTC; the store
// never writes a zone offset other than Z.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Sentinel returns the far-future timestamp used in place of NULL for the
// expired_timestamp of current revision rows. Interval containment checks
// stay simple closed/open comparisons instead of NULL handling.
func Sentinel() time.Time {
	return time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
}

// IsSentinel reports whether t is the sentinel far-future value.
func IsSentinel(t time.Time) bool {
	return t.Equal(Sentinel())
}

// FormatTime renders t in the fixed-width storage format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp.
func ParseTime(raw string) (time.Time, error) {
	return time.Parse(TimeLayout, raw)
}

// Revision is one unit-of-work's worth of committed changes; the temporal
// anchor all versioned rows attach to.
//
// A revision is immutable once created, with one exception: ApprovedAt may
// be set later to mark the instant the revision was accepted. Revisions are
// never deleted; purging a revision removes only the rows stamped with it.
type Revision struct {
	ID         string
	Timestamp  time.Time
	Author     string
	Message    string
	State      State
	ApprovedAt *time.Time
}

// NewRevision creates a revision with a fresh UUID and the clock's current
// instant. Timestamps are truncated to the stored precision so that a
// revision compares equal to its own persisted form.
func NewRevision(clock Clock, author, message string) Revision {
	return Revision{
		ID:        uuid.NewString(),
		Timestamp: clock.Now().UTC().Truncate(time.Nanosecond),
		Author:    author,
		Message:   message,
		State:     StateActive,
	}
}

// Before reports whether r precedes other in the total revision order
// (timestamp, id). The id text compare is the deterministic tie-break for
// revisions created in the same instant.
func (r Revision) Before(other Revision) bool {
	if !r.Timestamp.Equal(other.Timestamp) {
		return r.Timestamp.Before(other.Timestamp)
	}
	return r.ID < other.ID
}
