package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/vdm"
)

// Backfill recomputes the expired_id / expired_timestamp / is_current
// bookkeeping of every revision table from scratch, ordering each
// continuity partition by the owning revision's timestamp. Databases
// imported from systems that never maintained the bookkeeping become
// queryable as-of history after one pass.
//
// The pass is idempotent: rows already carrying correct bookkeeping are
// rewritten to the same values. It runs in one transaction and verifies
// the single-current accounting per entity before committing.
func (s *Store) Backfill(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("backfill: begin: %w", err)
	}
	defer tx.Rollback()

	sentinel := vdm.FormatTime(vdm.Sentinel())

	for _, e := range catalog.Entities() {
		// LEAD over the revision-ordered partition pairs every row with
		// its successor; the last row of a partition has no successor and
		// becomes the current one. Ties on timestamp fall back to
		// revision id, then insertion order.
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %[1]s SET
				revision_timestamp = o.rts,
				expired_timestamp  = COALESCE(o.next_ts, ?),
				expired_id         = o.next_id,
				is_current         = CASE WHEN o.next_ts IS NULL THEN 1 ELSE 0 END
			FROM (
				SELECT r.id AS id,
				       rev.timestamp AS rts,
				       LEAD(rev.timestamp) OVER w AS next_ts,
				       LEAD(r.id)          OVER w AS next_id
				FROM %[1]s r
				JOIN revision rev ON rev.id = r.revision_id
				WINDOW w AS (PARTITION BY r.continuity_id ORDER BY rev.timestamp, rev.id, r.rowid)
			) AS o
			WHERE o.id = %[1]s.id
		`, e.RevisionTable), sentinel)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", e.Name, err)
		}

		updated, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("backfill %s: rows affected: %w", e.Name, err)
		}

		if err := refreshCache(ctx, tx, e); err != nil {
			return err
		}

		if err := checkAccounting(ctx, tx, e, sentinel); err != nil {
			return err
		}

		s.log.Debug().Str("entity", e.Name).Int64("rows", updated).Msg("backfilled revision table")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("backfill: commit: %w", err)
	}
	return nil
}

// refreshCache rewrites the continuity table's cached field values and
// state from each continuity object's current revision row.
func refreshCache(ctx context.Context, tx *sql.Tx, e catalog.Entity) error {
	sets := `state = r.state`
	for _, col := range e.Columns {
		sets = fmt.Sprintf(`"%s" = r."%s", `, col, col) + sets
	}

	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET %s
		FROM %s r
		WHERE r.continuity_id = %s.id AND r.is_current = 1
	`, e.Table, sets, e.RevisionTable, e.Table))
	if err != nil {
		return fmt.Errorf("backfill %s: refresh cache: %w", e.Name, err)
	}
	return nil
}

// checkAccounting verifies the four counts that must agree after any
// bookkeeping rewrite: current flags, sentinel expirations, open
// expired_id links, and distinct continuity ids with history.
func checkAccounting(ctx context.Context, tx *sql.Tx, e catalog.Entity, sentinel string) error {
	var flagged, open, unlinked, partitions int
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE is_current = 1),
			COUNT(*) FILTER (WHERE expired_timestamp = ?),
			COUNT(*) FILTER (WHERE expired_id IS NULL),
			COUNT(DISTINCT continuity_id)
		FROM %s
	`, e.RevisionTable), sentinel).Scan(&flagged, &open, &unlinked, &partitions)
	if err != nil {
		return fmt.Errorf("backfill %s: accounting: %w", e.Name, err)
	}

	if flagged != open || flagged != unlinked || flagged != partitions {
		return vdm.NewConsistencyError(e.Name, "", fmt.Sprintf(
			"accounting mismatch: %d current flags, %d sentinel expirations, %d open links, %d continuity partitions",
			flagged, open, unlinked, partitions))
	}
	return nil
}
