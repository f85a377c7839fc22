// Package vdm defines the core value types of the versioned data model:
// revisions, entity state, the sentinel timestamp, and the error taxonomy.
//
// The model follows the continuity/revision-row pattern:
//   - A continuity row is the stable identity anchor of a business object.
//   - A revision row is one historical snapshot of its fields, valid over
//     the half-open interval [revision_timestamp, expired_timestamp), and
//     stamped with the Revision that produced it.
//   - Exactly one revision row per continuity id is current at any time;
//     its expired_timestamp is the sentinel far-future value.
//
// Revisions are totally ordered by (timestamp, id). Timestamps are stored
// as fixed-width UTC text so that lexicographic and chronological ordering
// coincide in SQL comparisons.
package vdm
