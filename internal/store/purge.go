package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/metrics"
	"github.com/opencatalog/vdm/internal/vdm"
)

// purgedRow is one revision row doomed by a purge, with the interval
// bookkeeping its predecessor inherits.
type purgedRow struct {
	id               string
	continuityID     string
	expiredID        sql.NullString
	expiredTimestamp string
}

// PurgeRevision physically deletes every revision row stamped with the
// given revision. The revision row itself is retained: revisions are
// append-only audit records.
//
// For each deleted row, the predecessor (the row whose expired_id points
// at it) inherits the deleted row's interval end, so the partition stays
// gapless; if the deleted row was current, the predecessor becomes
// current again. A continuity entity whose sole historical entry is
// deleted is removed entirely, together with the association rows
// referencing it.
//
// This is irreversible. Callers gate it behind explicit confirmation.
// Returns sql.ErrNoRows if the revision does not exist.
func (s *Store) PurgeRevision(ctx context.Context, revisionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("purge revision: begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM revision WHERE id = ?`, revisionID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("purge revision: %w", err)
	}

	sentinel := vdm.FormatTime(vdm.Sentinel())
	total := 0

	// Associations precede the entities they reference in the registry,
	// so foreign keys never dangle mid-purge.
	for _, e := range catalog.Entities() {
		doomed, err := doomedRows(ctx, tx, e, revisionID)
		if err != nil {
			return err
		}

		for _, d := range doomed {
			if err := purgeRow(ctx, tx, e, d, sentinel); err != nil {
				return err
			}
		}

		if len(doomed) > 0 {
			if err := checkAccounting(ctx, tx, e, sentinel); err != nil {
				return err
			}
			metrics.PurgedRowsTotal.WithLabelValues(e.Name).Add(float64(len(doomed)))
			total += len(doomed)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("purge revision: commit: %w", err)
	}

	metrics.PurgesTotal.Inc()
	s.log.Info().Str("revision", revisionID).Int("rows", total).Msg("purged revision")
	return nil
}

// doomedRows loads the revision rows of one entity stamped with the
// purged revision. Loaded up front so later statements do not interleave
// with an open cursor on the single connection.
func doomedRows(ctx context.Context, tx *sql.Tx, e catalog.Entity, revisionID string) ([]purgedRow, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, continuity_id, expired_id, expired_timestamp FROM %s WHERE revision_id = ?
	`, e.RevisionTable), revisionID)
	if err != nil {
		return nil, fmt.Errorf("purge %s: %w", e.Name, err)
	}
	defer rows.Close()

	var doomed []purgedRow
	for rows.Next() {
		var d purgedRow
		if err := rows.Scan(&d.id, &d.continuityID, &d.expiredID, &d.expiredTimestamp); err != nil {
			return nil, fmt.Errorf("purge %s: %w", e.Name, err)
		}
		doomed = append(doomed, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purge %s: %w", e.Name, err)
	}
	return doomed, nil
}

// purgeRow deletes one revision row, relinking its predecessor and
// cleaning up a continuity entity left without history.
func purgeRow(ctx context.Context, tx *sql.Tx, e catalog.Entity, d purgedRow, sentinel string) error {
	// The predecessor inherits the purged row's interval end. If the
	// purged row was current, the sentinel travels down and the
	// predecessor becomes current again.
	var expiredID any
	if d.expiredID.Valid {
		expiredID = d.expiredID.String
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET expired_id = ?, expired_timestamp = ?, is_current = ? WHERE expired_id = ?
	`, e.RevisionTable), expiredID, d.expiredTimestamp, boolToInt(d.expiredTimestamp == sentinel), d.id); err != nil {
		return fmt.Errorf("purge %s: relink predecessor: %w", e.Name, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE id = ?
	`, e.RevisionTable), d.id); err != nil {
		return fmt.Errorf("purge %s: delete revision row: %w", e.Name, err)
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE continuity_id = ?
	`, e.RevisionTable), d.continuityID).Scan(&remaining); err != nil {
		return fmt.Errorf("purge %s: count remaining: %w", e.Name, err)
	}

	if remaining == 0 {
		return deleteContinuity(ctx, tx, e, d.continuityID)
	}

	return refreshCacheFor(ctx, tx, e, d.continuityID)
}

// deleteContinuity removes a continuity row whose last revision row was
// purged, and the association rows referencing it.
func deleteContinuity(ctx context.Context, tx *sql.Tx, e catalog.Entity, continuityID string) error {
	for _, a := range catalog.Entities() {
		for _, ref := range a.Refs {
			if ref.Entity != e.Name {
				continue
			}
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
				DELETE FROM %s WHERE continuity_id IN (SELECT id FROM %s WHERE "%s" = ?)
			`, a.RevisionTable, a.Table, ref.Column), continuityID); err != nil {
				return fmt.Errorf("purge %s: delete %s revision rows: %w", e.Name, a.Name, err)
			}
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
				DELETE FROM %s WHERE "%s" = ?
			`, a.Table, ref.Column), continuityID); err != nil {
				return fmt.Errorf("purge %s: delete %s rows: %w", e.Name, a.Name, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE id = ?
	`, e.Table), continuityID); err != nil {
		return fmt.Errorf("purge %s: delete continuity row: %w", e.Name, err)
	}
	return nil
}

// refreshCacheFor rewrites one continuity row's cached values and state
// from its current revision row.
func refreshCacheFor(ctx context.Context, tx *sql.Tx, e catalog.Entity, continuityID string) error {
	sets := `state = r.state`
	for _, col := range e.Columns {
		sets = fmt.Sprintf(`"%s" = r."%s", `, col, col) + sets
	}

	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %[1]s SET %[2]s
		FROM %[3]s r
		WHERE r.continuity_id = %[1]s.id AND r.is_current = 1 AND %[1]s.id = ?
	`, e.Table, sets, e.RevisionTable), continuityID)
	if err != nil {
		return fmt.Errorf("purge %s: refresh cache: %w", e.Name, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
