package vdm

import (
	"fmt"
	"strings"
	"testing"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"configuration", NewConfigurationError("no revision bound"), IsConfigurationError},
		{"consistency", NewConsistencyError("package", "abc", "two current rows"), IsConsistencyError},
		{"conflict", NewConflictError("tag", "def", "raced supersede"), IsConflictError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("helper rejected its own error: %v", tt.err)
			}
			// Must see through wrapping
			wrapped := fmt.Errorf("outer context: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("helper failed on wrapped error: %v", wrapped)
			}
		})
	}
}

func TestErrorHelpers_RejectOtherCodes(t *testing.T) {
	err := NewConfigurationError("misuse")

	if IsConsistencyError(err) {
		t.Error("IsConsistencyError accepted a CONFIGURATION error")
	}
	if IsConflictError(err) {
		t.Error("IsConflictError accepted a CONFIGURATION error")
	}
	if IsConfigurationError(fmt.Errorf("plain error")) {
		t.Error("IsConfigurationError accepted a plain error")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewConsistencyError("package", "abc-123", "0 current rows")

	msg := err.Error()
	for _, want := range []string{"CONSISTENCY", "package", "abc-123", "0 current rows"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}
