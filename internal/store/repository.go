package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/diff"
	"github.com/opencatalog/vdm/internal/metrics"
	"github.com/opencatalog/vdm/internal/vdm"
)

// Row is the current, revision-unaware view of a continuity entity: the
// identity anchor plus the cached current field values.
type Row[T any] struct {
	ContinuityID string
	Value        T
	State        vdm.State
}

// RevisionRow is one historical snapshot of a continuity entity, valid
// over [RevisionTimestamp, ExpiredTimestamp).
type RevisionRow[T any] struct {
	ID                string
	ContinuityID      string
	RevisionID        string
	Value             T
	State             vdm.State
	ExpiredID         *string
	RevisionTimestamp time.Time
	ExpiredTimestamp  time.Time
	Current           bool
}

// Repository provides versioned persistence for one entity type, driven
// entirely by its descriptor. Mutations stage onto a unit of work and are
// materialized as revision rows at commit; reads go straight to the
// database.
type Repository[T any] struct {
	store *Store
	desc  catalog.Descriptor[T]
}

// NewRepository creates a repository for the descriptor's entity type.
func NewRepository[T any](s *Store, d catalog.Descriptor[T]) *Repository[T] {
	return &Repository[T]{store: s, desc: d}
}

// Create inserts a new continuity row with the given id and stages the
// initial revision row. Fails if the id already exists.
func (r *Repository[T]) Create(u *UnitOfWork, id string, v T) error {
	if err := u.ensureOpen(); err != nil {
		return err
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (id, %s, state) VALUES (?, %s, ?)
	`, r.desc.Table, quotedColumnList(r.desc.Columns), placeholders(len(r.desc.Columns)))

	args := append([]any{id}, r.desc.Values(v)...)
	args = append(args, string(vdm.StateActive))
	if _, err := u.tx.Exec(insertSQL, args...); err != nil {
		return fmt.Errorf("create %s: %w", r.desc.Name, err)
	}

	u.stage(r.desc.Entity, id, r.desc.Values(v), vdm.StateActive)
	return nil
}

// Update replaces the business fields of an existing continuity entity
// and stages a new revision row. The entity must exist.
func (r *Repository[T]) Update(u *UnitOfWork, id string, v T) error {
	if err := u.ensureOpen(); err != nil {
		return err
	}

	if err := r.updateCache(u, id, r.desc.Values(v), vdm.StateActive); err != nil {
		return err
	}

	u.stage(r.desc.Entity, id, r.desc.Values(v), vdm.StateActive)
	return nil
}

// Delete soft-deletes a continuity entity: a new revision row is staged
// with state deleted, carrying the current field values forward. The rows
// themselves are never removed except by revision purge.
func (r *Repository[T]) Delete(u *UnitOfWork, id string) error {
	if err := u.ensureOpen(); err != nil {
		return err
	}

	values, err := r.carryForwardValues(u, id)
	if err != nil {
		return err
	}

	if err := r.updateCache(u, id, values, vdm.StateDeleted); err != nil {
		return err
	}

	u.stage(r.desc.Entity, id, values, vdm.StateDeleted)
	return nil
}

// Add creates or re-activates the continuity row matching v's natural
// key and returns its id. An existing row is reused regardless of state,
// so remove-then-re-add cycles never produce duplicate continuity rows.
// Adding an already-active, unmodified entity is a no-op.
func (r *Repository[T]) Add(u *UnitOfWork, v T) (string, error) {
	if err := u.ensureOpen(); err != nil {
		return "", err
	}
	if len(r.desc.NaturalKey) == 0 {
		return "", vdm.NewConfigurationError(fmt.Sprintf("entity %s has no natural key", r.desc.Name))
	}

	id, state, err := r.resolveKey(u, r.desc.Key(v))
	if err != nil {
		return "", err
	}

	if id == "" {
		id = uuid.NewString()
		insertSQL := fmt.Sprintf(`
			INSERT INTO %s (id, %s, state) VALUES (?, %s, ?)
		`, r.desc.Table, quotedColumnList(r.desc.Columns), placeholders(len(r.desc.Columns)))
		args := append([]any{id}, r.desc.Values(v)...)
		args = append(args, string(vdm.StateActive))
		if _, err := u.tx.Exec(insertSQL, args...); err != nil {
			return "", fmt.Errorf("add %s: %w", r.desc.Name, err)
		}
		u.stage(r.desc.Entity, id, r.desc.Values(v), vdm.StateActive)
		return id, nil
	}

	if state == vdm.StateActive && u.stagedFor(r.desc.Name, id) == nil {
		// Re-adding an active, unchanged entity writes nothing.
		current, err := r.carryForwardValues(u, id)
		if err != nil {
			return "", err
		}
		if valuesEqual(current, r.desc.Values(v)) {
			return id, nil
		}
	}

	if err := r.updateCache(u, id, r.desc.Values(v), vdm.StateActive); err != nil {
		return "", err
	}
	u.stage(r.desc.Entity, id, r.desc.Values(v), vdm.StateActive)
	return id, nil
}

// valuesEqual compares column value slices by their stored text form.
func valuesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if fmt.Sprint(a[i]) != fmt.Sprint(b[i]) {
			return false
		}
	}
	return true
}

// Remove soft-deletes the continuity row matching v's natural key.
// Removing a non-existent entity is a configuration error.
func (r *Repository[T]) Remove(u *UnitOfWork, v T) error {
	if err := u.ensureOpen(); err != nil {
		return err
	}
	if len(r.desc.NaturalKey) == 0 {
		return vdm.NewConfigurationError(fmt.Sprintf("entity %s has no natural key", r.desc.Name))
	}

	id, _, err := r.resolveKey(u, r.desc.Key(v))
	if err != nil {
		return err
	}
	if id == "" {
		return vdm.NewConfigurationError(fmt.Sprintf("%s does not exist for key %v", r.desc.Name, r.desc.Key(v)))
	}

	return r.Delete(u, id)
}

// resolveKey looks up a continuity row by natural key within the unit of
// work's transaction, so rows created earlier in the same unit of work
// are visible. Returns ("", "", nil) when no row matches.
func (r *Repository[T]) resolveKey(u *UnitOfWork, key []any) (string, vdm.State, error) {
	var where []string
	for _, col := range r.desc.NaturalKey {
		where = append(where, fmt.Sprintf(`"%s" = ?`, col))
	}

	var id, state string
	err := u.tx.QueryRow(fmt.Sprintf(`
		SELECT id, state FROM %s WHERE %s
	`, r.desc.Table, strings.Join(where, " AND ")), key...).Scan(&id, &state)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("resolve %s key: %w", r.desc.Name, err)
	}

	st, err := vdm.ParseState(state)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s key: %w", r.desc.Name, err)
	}
	return id, st, nil
}

// carryForwardValues resolves the business values a delete copies into
// its revision row: the values staged earlier in this unit of work, or
// the current revision row's values.
func (r *Repository[T]) carryForwardValues(u *UnitOfWork, id string) ([]any, error) {
	if staged := u.stagedFor(r.desc.Name, id); staged != nil {
		return staged.values, nil
	}

	var v T
	dest := r.desc.Ptrs(&v)
	err := u.tx.QueryRow(fmt.Sprintf(`
		SELECT %s FROM %s WHERE continuity_id = ? AND is_current = 1
	`, quotedColumnList(r.desc.Columns), r.desc.RevisionTable), id).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, vdm.NewConfigurationError(fmt.Sprintf("%s %s has no current revision row", r.desc.Name, id))
	}
	if err != nil {
		return nil, fmt.Errorf("read current %s values: %w", r.desc.Name, err)
	}
	return r.desc.Values(v), nil
}

// updateCache refreshes the continuity row's cached field values and
// state. The entity must exist.
func (r *Repository[T]) updateCache(u *UnitOfWork, id string, values []any, state vdm.State) error {
	var sets []string
	for _, col := range r.desc.Columns {
		sets = append(sets, fmt.Sprintf(`"%s" = ?`, col))
	}
	sets = append(sets, "state = ?")

	args := append(append([]any{}, values...), string(state), id)
	res, err := u.tx.Exec(fmt.Sprintf(`
		UPDATE %s SET %s WHERE id = ?
	`, r.desc.Table, strings.Join(sets, ", ")), args...)
	if err != nil {
		return fmt.Errorf("update %s cache: %w", r.desc.Name, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s cache: rows affected: %w", r.desc.Name, err)
	}
	if affected == 0 {
		return vdm.NewConfigurationError(fmt.Sprintf("unknown %s continuity id %s", r.desc.Name, id))
	}
	return nil
}

// Get returns the current view of a continuity entity from the cache, or
// nil if the entity does not exist. Soft-deleted entities are returned
// with state deleted; callers filter on state as needed.
func (r *Repository[T]) Get(ctx context.Context, id string) (*Row[T], error) {
	row := Row[T]{ContinuityID: id}
	var state string
	dest := append(r.desc.Ptrs(&row.Value), &state)

	err := r.store.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s, state FROM %s WHERE id = ?
	`, quotedColumnList(r.desc.Columns), r.desc.Table), id).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.desc.Name, err)
	}

	st, err := vdm.ParseState(state)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.desc.Name, err)
	}
	row.State = st
	return &row, nil
}

// GetByKey returns the current view of the continuity entity matching
// the natural key values, or nil if none matches.
func (r *Repository[T]) GetByKey(ctx context.Context, key ...any) (*Row[T], error) {
	if len(r.desc.NaturalKey) == 0 {
		return nil, vdm.NewConfigurationError(fmt.Sprintf("entity %s has no natural key", r.desc.Name))
	}

	var where []string
	for _, col := range r.desc.NaturalKey {
		where = append(where, fmt.Sprintf(`"%s" = ?`, col))
	}

	var row Row[T]
	var state string
	dest := append([]any{&row.ContinuityID}, r.desc.Ptrs(&row.Value)...)
	dest = append(dest, &state)

	err := r.store.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, %s, state FROM %s WHERE %s
	`, quotedColumnList(r.desc.Columns), r.desc.Table, strings.Join(where, " AND ")), key...).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s by key: %w", r.desc.Name, err)
	}

	st, err := vdm.ParseState(state)
	if err != nil {
		return nil, fmt.Errorf("get %s by key: %w", r.desc.Name, err)
	}
	row.State = st
	return &row, nil
}

// GetAsOf returns the revision row whose validity interval contains the
// revision's timestamp, or nil if the entity did not exist yet at that
// revision. Absence is normal control flow, not an error.
func (r *Repository[T]) GetAsOf(ctx context.Context, id string, rev vdm.Revision) (*RevisionRow[T], error) {
	metrics.AsOfQueriesTotal.Inc()

	ts := vdm.FormatTime(rev.Timestamp)
	row := r.store.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE continuity_id = ? AND revision_timestamp <= ? AND expired_timestamp > ?
		ORDER BY rowid DESC
		LIMIT 1
	`, r.revisionColumns(), r.desc.RevisionTable), id, ts, ts)

	rr, err := r.scanRevisionRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s as of: %w", r.desc.Name, err)
	}
	return &rr, nil
}

// AllRevisions returns every revision row of a continuity entity,
// newest-first. The result is re-queried each call, never cached.
func (r *Repository[T]) AllRevisions(ctx context.Context, id string) ([]RevisionRow[T], error) {
	rows, err := r.store.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE continuity_id = ?
		ORDER BY revision_timestamp DESC, rowid DESC
	`, r.revisionColumns(), r.desc.RevisionTable), id)
	if err != nil {
		return nil, fmt.Errorf("query %s revisions: %w", r.desc.Name, err)
	}
	defer rows.Close()

	var result []RevisionRow[T]
	for rows.Next() {
		rr, err := r.scanRevisionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s revision: %w", r.desc.Name, err)
		}
		result = append(result, rr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s revisions: %w", r.desc.Name, err)
	}

	if result == nil {
		result = []RevisionRow[T]{}
	}
	return result, nil
}

// FindAsOf returns the revision rows matching the column filters as of a
// revision, or the current rows when rev is nil. Filter keys are sorted
// so the generated SQL is deterministic.
func (r *Repository[T]) FindAsOf(ctx context.Context, rev *vdm.Revision, filter map[string]any) ([]RevisionRow[T], error) {
	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var where []string
	var args []any
	for _, col := range cols {
		where = append(where, fmt.Sprintf(`"%s" = ?`, col))
		args = append(args, filter[col])
	}

	if rev == nil {
		where = append(where, "is_current = 1")
	} else {
		ts := vdm.FormatTime(rev.Timestamp)
		where = append(where, "revision_timestamp <= ?", "expired_timestamp > ?")
		args = append(args, ts, ts)
		metrics.AsOfQueriesTotal.Inc()
	}

	rows, err := r.store.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY revision_timestamp DESC, rowid DESC
	`, r.revisionColumns(), r.desc.RevisionTable, strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, fmt.Errorf("find %s as of: %w", r.desc.Name, err)
	}
	defer rows.Close()

	var result []RevisionRow[T]
	for rows.Next() {
		rr, err := r.scanRevisionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s revision: %w", r.desc.Name, err)
		}
		result = append(result, rr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s revisions: %w", r.desc.Name, err)
	}

	if result == nil {
		result = []RevisionRow[T]{}
	}
	return result, nil
}

// Diff reports per-field deltas of a continuity entity between two
// revisions. With both revisions nil it diffs the two most recent
// revision rows. A side at which the entity did not exist diffs as empty
// fields; diffing a revision against itself yields an empty map.
func (r *Repository[T]) Diff(ctx context.Context, id string, from, to *vdm.Revision) (map[string]string, error) {
	var older, newer map[string]string

	if from == nil && to == nil {
		history, err := r.AllRevisions(ctx, id)
		if err != nil {
			return nil, err
		}
		newer, older = map[string]string{}, map[string]string{}
		if len(history) > 0 {
			newer = r.desc.Fields(history[0].Value)
		}
		if len(history) > 1 {
			older = r.desc.Fields(history[1].Value)
		}
		return diff.Fields(older, newer), nil
	}

	older = map[string]string{}
	if from != nil {
		rr, err := r.GetAsOf(ctx, id, *from)
		if err != nil {
			return nil, err
		}
		if rr != nil {
			older = r.desc.Fields(rr.Value)
		}
	}

	newer = map[string]string{}
	if to != nil {
		rr, err := r.GetAsOf(ctx, id, *to)
		if err != nil {
			return nil, err
		}
		if rr != nil {
			newer = r.desc.Fields(rr.Value)
		}
	}

	return diff.Fields(older, newer), nil
}

// revisionColumns is the full select list for revision rows, in the
// order scanRevisionRow expects.
func (r *Repository[T]) revisionColumns() string {
	return fmt.Sprintf("id, continuity_id, revision_id, %s, state, expired_id, revision_timestamp, expired_timestamp, is_current",
		quotedColumnList(r.desc.Columns))
}

// scanRevisionRow scans one revision row in revisionColumns order.
func (r *Repository[T]) scanRevisionRow(sc catalog.Scanner) (RevisionRow[T], error) {
	var rr RevisionRow[T]
	var state, rts, exp string
	var expiredID sql.NullString
	var current int

	dest := []any{&rr.ID, &rr.ContinuityID, &rr.RevisionID}
	dest = append(dest, r.desc.Ptrs(&rr.Value)...)
	dest = append(dest, &state, &expiredID, &rts, &exp, &current)

	if err := sc.Scan(dest...); err != nil {
		return RevisionRow[T]{}, err
	}

	st, err := vdm.ParseState(state)
	if err != nil {
		return RevisionRow[T]{}, err
	}
	rr.State = st

	if rr.RevisionTimestamp, err = vdm.ParseTime(rts); err != nil {
		return RevisionRow[T]{}, err
	}
	if rr.ExpiredTimestamp, err = vdm.ParseTime(exp); err != nil {
		return RevisionRow[T]{}, err
	}
	if expiredID.Valid {
		rr.ExpiredID = &expiredID.String
	}
	rr.Current = current == 1
	return rr, nil
}
