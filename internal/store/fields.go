package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/diff"
	"github.com/opencatalog/vdm/internal/metrics"
	"github.com/opencatalog/vdm/internal/vdm"
)

// DiffFields diffs a continuity entity's fields between two revisions
// without knowing its Go struct, addressed by entity name. With both
// revisions nil it diffs the two most recent revision rows. Used by
// audit surfaces; typed callers use Repository.Diff.
func (s *Store) DiffFields(ctx context.Context, entityName, continuityID string, from, to *vdm.Revision) (map[string]string, error) {
	e, ok := catalog.EntityByName(entityName)
	if !ok {
		return nil, vdm.NewConfigurationError(fmt.Sprintf("unknown entity %q", entityName))
	}

	if from == nil && to == nil {
		newer, older, err := s.latestFieldPair(ctx, e, continuityID)
		if err != nil {
			return nil, err
		}
		return diff.Fields(older, newer), nil
	}

	older := map[string]string{}
	if from != nil {
		fields, found, err := s.fieldsAsOf(ctx, e, continuityID, *from)
		if err != nil {
			return nil, err
		}
		if found {
			older = fields
		}
	}

	newer := map[string]string{}
	if to != nil {
		fields, found, err := s.fieldsAsOf(ctx, e, continuityID, *to)
		if err != nil {
			return nil, err
		}
		if found {
			newer = fields
		}
	}

	return diff.Fields(older, newer), nil
}

// fieldsAsOf reads the field map of the revision row valid at a
// revision's timestamp. The second return is false when the entity did
// not exist yet.
func (s *Store) fieldsAsOf(ctx context.Context, e catalog.Entity, continuityID string, rev vdm.Revision) (map[string]string, bool, error) {
	metrics.AsOfQueriesTotal.Inc()

	ts := vdm.FormatTime(rev.Timestamp)
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE continuity_id = ? AND revision_timestamp <= ? AND expired_timestamp > ?
		ORDER BY rowid DESC
		LIMIT 1
	`, quotedColumnList(e.Columns), e.RevisionTable), continuityID, ts, ts)

	fields, err := scanFieldMap(row, e)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s fields as of: %w", e.Name, err)
	}
	return fields, true, nil
}

// latestFieldPair reads the two most recent revision rows' field maps,
// newest first. A missing side comes back as an empty map.
func (s *Store) latestFieldPair(ctx context.Context, e catalog.Entity, continuityID string) (newer, older map[string]string, err error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE continuity_id = ?
		ORDER BY revision_timestamp DESC, rowid DESC
		LIMIT 2
	`, quotedColumnList(e.Columns), e.RevisionTable), continuityID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s latest fields: %w", e.Name, err)
	}
	defer rows.Close()

	newer, older = map[string]string{}, map[string]string{}
	for i := 0; rows.Next(); i++ {
		fields, err := scanFieldMap(rows, e)
		if err != nil {
			return nil, nil, fmt.Errorf("%s latest fields: %w", e.Name, err)
		}
		if i == 0 {
			newer = fields
		} else {
			older = fields
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%s latest fields: %w", e.Name, err)
	}
	return newer, older, nil
}

// scanFieldMap scans one row of business columns into a field map.
func scanFieldMap(sc catalog.Scanner, e catalog.Entity) (map[string]string, error) {
	values := make([]sql.NullString, len(e.Columns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(e.Columns))
	for i, col := range e.Columns {
		fields[col] = values[i].String
	}
	return fields, nil
}
