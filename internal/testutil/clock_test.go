package testutil

import (
	"testing"
	"time"
)

func TestFixedClock_Frozen(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixedClock(at)

	if !c.Now().Equal(at) {
		t.Errorf("Now() = %v, want %v", c.Now(), at)
	}
	if !c.Now().Equal(c.Now()) {
		t.Error("clock moved without Advance")
	}
}

func TestFixedClock_Advance(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixedClock(at)

	got := c.Advance(90 * time.Minute)
	want := at.Add(90 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("Advance() = %v, want %v", got, want)
	}
	if !c.Now().Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", c.Now(), want)
	}
}

func TestFixedClock_Set(t *testing.T) {
	c := NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	at := time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)
	c.Set(at)
	if !c.Now().Equal(at) {
		t.Errorf("Now() after Set = %v, want %v", c.Now(), at)
	}
}

func TestFixedClock_NormalizesToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*3600)
	c := NewFixedClock(time.Date(2026, 1, 1, 12, 0, 0, 0, zone))

	if c.Now().Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", c.Now().Location())
	}
}
