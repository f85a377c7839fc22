// Package diff renders human-readable field deltas between two revision
// snapshots of an entity.
//
// Scalar fields render as a two-line delta:
//
//	- old value
//	+ new value
//
// Multi-line fields (notes, descriptions) render as a unified line diff
// with two-space context prefixes:
//
//	  Here
//	- are some
//	+ are no
//	  notes
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Fields compares two field maps and returns a delta string per changed
// field. Unchanged fields are omitted; comparing a snapshot against itself
// yields an empty map. A field absent on one side diffs against the empty
// string.
func Fields(old, new map[string]string) map[string]string {
	out := make(map[string]string)
	for name := range union(old, new) {
		ov, nv := old[name], new[name]
		if ov == nv {
			continue
		}
		out[name] = Field(ov, nv)
	}
	return out
}

// Field renders the delta for a single field.
func Field(old, new string) string {
	if strings.Contains(old, "\n") || strings.Contains(new, "\n") {
		return Unified(old, new)
	}
	return "- " + old + "\n+ " + new
}

// Unified produces a line-level unified delta without file headers or
// hunk markers. Equal lines carry a two-space prefix, removed lines "- ",
// added lines "+ ".
func Unified(old, new string) string {
	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	var out []string
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range splitLines(d.Text) {
			out = append(out, prefix+line)
		}
	}
	return strings.Join(out, "\n")
}

// splitLines splits on newlines, dropping the empty tail produced by a
// trailing newline.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func union(a, b map[string]string) map[string]struct{} {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	return keys
}
