package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/vdm"
)

// ChangeRow is one revision row of a change listing, rendered untyped so
// audit surfaces can show any entity without knowing its struct.
type ChangeRow struct {
	ID           string
	ContinuityID string
	State        vdm.State
	Current      bool
	Fields       map[string]string
}

// ListChanges returns every revision row stamped with a revision, grouped
// by entity name. Entities without changes are omitted from the map.
// Returns sql.ErrNoRows if the revision does not exist.
func (s *Store) ListChanges(ctx context.Context, revisionID string) (map[string][]ChangeRow, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM revision WHERE id = ?`, revisionID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("list changes: %w", err)
	}

	changes := make(map[string][]ChangeRow)
	for _, e := range catalog.Entities() {
		rows, err := s.entityChanges(ctx, e, revisionID)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			changes[e.Name] = rows
		}
	}
	return changes, nil
}

// entityChanges lists one entity's revision rows for a revision, in
// insertion order.
func (s *Store) entityChanges(ctx context.Context, e catalog.Entity, revisionID string) ([]ChangeRow, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, continuity_id, %s, state, is_current
		FROM %s
		WHERE revision_id = ?
		ORDER BY rowid
	`, quotedColumnList(e.Columns), e.RevisionTable), revisionID)
	if err != nil {
		return nil, fmt.Errorf("list %s changes: %w", e.Name, err)
	}
	defer rows.Close()

	var result []ChangeRow
	for rows.Next() {
		var cr ChangeRow
		var state string
		var current int
		values := make([]sql.NullString, len(e.Columns))

		dest := []any{&cr.ID, &cr.ContinuityID}
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &state, &current)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s change: %w", e.Name, err)
		}

		st, err := vdm.ParseState(state)
		if err != nil {
			return nil, fmt.Errorf("scan %s change: %w", e.Name, err)
		}
		cr.State = st
		cr.Current = current == 1

		cr.Fields = make(map[string]string, len(e.Columns))
		for i, col := range e.Columns {
			cr.Fields[col] = values[i].String
		}

		result = append(result, cr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s changes: %w", e.Name, err)
	}
	return result, nil
}
