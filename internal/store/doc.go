// Package store provides the SQLite-backed revisioning engine.
//
// It turns ordinary mutable rows into an append-only, point-in-time
// queryable history:
//   - Revisions: one row per unit of work, the temporal anchor.
//   - Continuity rows: stable identity anchors caching current values.
//   - Revision rows: historical snapshots with validity intervals.
//
// # Critical Patterns
//
// CP-1: Single Current Row
//   - Partial UNIQUE index on (continuity_id) WHERE is_current = 1
//   - Exactly one current revision row per continuity id, always
//
// CP-2: Interval Partition
//   - Per continuity id, [revision_timestamp, expired_timestamp)
//     intervals partition time with no gaps and no overlaps
//   - expired_timestamp of row N equals revision_timestamp of row N+1
//
// CP-3: Transactional Materialization
//   - Revision rows are written in the same transaction as the business
//     mutation they record; rollback leaves no trace, including the
//     Revision row itself
//
// CP-4: Deterministic Query Results
//   - All history queries order by revision_timestamp with rowid as the
//     tie-break for rows stamped in the same instant
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
