package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/vdm"
)

// Violation is one structural defect found by VerifyConsistency.
type Violation struct {
	Entity       string
	ContinuityID string
	Detail       string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Entity, v.ContinuityID, v.Detail)
}

// VerifyConsistency scans every revision table for violations of the
// structural invariants: exactly one current row per continuity entity,
// coherent current flags, gapless interval chains, and revision
// timestamps matching their owning revision. Violations are reported,
// never repaired; silent repair could mask corruption.
func (s *Store) VerifyConsistency(ctx context.Context) ([]Violation, error) {
	var violations []Violation

	for _, e := range catalog.Entities() {
		for _, check := range []struct {
			detail string
			query  string
			args   []any
		}{
			{
				detail: "current row count != 1",
				query: fmt.Sprintf(`
					SELECT continuity_id FROM %s
					GROUP BY continuity_id
					HAVING SUM(is_current) != 1
					ORDER BY continuity_id
				`, e.RevisionTable),
			},
			{
				detail: "current flag disagrees with expiration bookkeeping",
				query: fmt.Sprintf(`
					SELECT DISTINCT continuity_id FROM %s
					WHERE (is_current = 1 AND (expired_timestamp != ? OR expired_id IS NOT NULL))
					   OR (is_current = 0 AND (expired_timestamp = ? OR expired_id IS NULL))
					ORDER BY continuity_id
				`, e.RevisionTable),
				args: []any{vdm.FormatTime(vdm.Sentinel()), vdm.FormatTime(vdm.Sentinel())},
			},
			{
				detail: "interval chain has a gap",
				query: fmt.Sprintf(`
					SELECT DISTINCT r.continuity_id FROM %[1]s r
					JOIN %[1]s next ON next.id = r.expired_id
					WHERE r.expired_timestamp != next.revision_timestamp
					ORDER BY r.continuity_id
				`, e.RevisionTable),
			},
			{
				detail: "revision_timestamp differs from owning revision",
				query: fmt.Sprintf(`
					SELECT DISTINCT r.continuity_id FROM %s r
					JOIN revision rev ON rev.id = r.revision_id
					WHERE r.revision_timestamp != rev.timestamp
					ORDER BY r.continuity_id
				`, e.RevisionTable),
			},
			{
				detail: "continuity row has no revision rows",
				query: fmt.Sprintf(`
					SELECT c.id FROM %s c
					WHERE NOT EXISTS (SELECT 1 FROM %s r WHERE r.continuity_id = c.id)
					ORDER BY c.id
				`, e.Table, e.RevisionTable),
			},
		} {
			found, err := s.collectViolations(ctx, e.Name, check.detail, check.query, check.args...)
			if err != nil {
				return nil, err
			}
			violations = append(violations, found...)
		}
	}

	return violations, nil
}

// collectViolations runs one check query yielding continuity ids and
// wraps each id with the check's detail line.
func (s *Store) collectViolations(ctx context.Context, entity, detail, query string, args ...any) ([]Violation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", entity, err)
	}
	defer rows.Close()

	var violations []Violation
	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("verify %s: %w", entity, err)
		}
		violations = append(violations, Violation{
			Entity:       entity,
			ContinuityID: id.String,
			Detail:       detail,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("verify %s: %w", entity, err)
	}
	return violations, nil
}
