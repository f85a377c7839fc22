package vdm

import "time"

// Clock supplies the current instant for revision timestamps.
//
// Production code uses SystemClock; tests inject a deterministic clock so
// revision ordering and golden output are reproducible.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
