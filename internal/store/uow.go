package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/metrics"
	"github.com/opencatalog/vdm/internal/vdm"
)

// UnitOfWork is one transactional scope of versioned mutations.
//
// A unit of work binds at most one revision for its whole lifetime (the
// single-writer-per-unit-of-work rule). Continuity rows are written as
// mutations are staged, inside the transaction; the revision rows that
// record history are materialized at Commit, in the same transaction, so
// business mutation and history can never be applied partially.
//
// Staged changes collapse per continuity id: a continuity object gets at
// most one revision row per revision, holding its final state. Removing
// and re-adding an association inside one unit of work therefore yields a
// single active revision row on the one reused continuity row.
//
// The source system this design derives from could create a duplicate
// association continuity row when a collection was rewritten in certain
// orderings. Here the natural-key lookup runs inside the transaction and
// sees rows staged earlier in the same unit of work, so reuse is
// guaranteed; the unique pair index backstops it.
type UnitOfWork struct {
	store    *Store
	tx       *sql.Tx
	revision *vdm.Revision
	staged   []*stagedChange
	byKey    map[string]*stagedChange
	done     bool
}

// stagedChange records the final snapshot a continuity object will get in
// the bound revision.
type stagedChange struct {
	entity       catalog.Entity
	continuityID string
	values       []any
	state        vdm.State
}

// Begin starts a unit of work at HEAD: reads observe current rows and no
// revision is bound yet. Mutating through it requires SetRevision before
// Commit.
func (s *Store) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return &UnitOfWork{
		store: s,
		tx:    tx,
		byKey: make(map[string]*stagedChange),
	}, nil
}

// SetRevision binds a revision to the unit of work. Binding a second,
// different revision before the first is flushed is a configuration
// error: one unit of work authors one revision's worth of changes.
func (u *UnitOfWork) SetRevision(rev vdm.Revision) error {
	if u.done {
		return vdm.NewConfigurationError("unit of work already finished")
	}
	if u.revision != nil {
		if u.revision.ID == rev.ID {
			return nil
		}
		return vdm.NewConfigurationError("a different revision is already bound to this unit of work")
	}
	u.revision = &rev
	return nil
}

// Revision returns the bound revision, or nil.
func (u *UnitOfWork) Revision() *vdm.Revision {
	return u.revision
}

// AtHead reports whether no revision is bound, i.e. the unit of work is a
// plain read scope observing only current rows.
func (u *UnitOfWork) AtHead() bool {
	return u.revision == nil
}

// Commit flushes staged changes and commits the transaction.
//
// Flushing with staged versioned changes but no bound revision is a
// programming error and fails with a CONFIGURATION error; history is
// never skipped silently.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return vdm.NewConfigurationError("unit of work already finished")
	}

	if err := u.flush(ctx); err != nil {
		return err
	}

	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	u.done = true
	return nil
}

// Rollback aborts the unit of work. Safe to defer after Commit: it is a
// no-op once the unit of work has finished.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback()
}

// ensureOpen guards staging against a finished unit of work.
func (u *UnitOfWork) ensureOpen() error {
	if u.done {
		return vdm.NewConfigurationError("unit of work already finished")
	}
	return nil
}

// stage records the final snapshot for a continuity object, collapsing
// repeated mutations of the same object within this unit of work.
func (u *UnitOfWork) stage(entity catalog.Entity, continuityID string, values []any, state vdm.State) {
	key := entity.Name + "\x00" + continuityID
	if existing, ok := u.byKey[key]; ok {
		existing.values = values
		existing.state = state
		return
	}
	c := &stagedChange{
		entity:       entity,
		continuityID: continuityID,
		values:       values,
		state:        state,
	}
	u.staged = append(u.staged, c)
	u.byKey[key] = c
}

// stagedFor returns the staged change for a continuity object, or nil.
func (u *UnitOfWork) stagedFor(entityName, continuityID string) *stagedChange {
	return u.byKey[entityName+"\x00"+continuityID]
}

// flush materializes one revision row per staged continuity object:
//
//  1. The revision itself is inserted (it exists only if the transaction
//     commits).
//  2. The previous current row, if any, is expired: expired_id points at
//     the successor, expired_timestamp becomes the new revision's
//     timestamp, is_current drops to 0.
//  3. The new row is inserted with the sentinel expired_timestamp and
//     is_current = 1.
//
// Expiring before inserting keeps the partial unique current index
// satisfied at every statement boundary.
func (u *UnitOfWork) flush(ctx context.Context) error {
	if len(u.staged) == 0 && u.revision == nil {
		return nil
	}
	if u.revision == nil {
		return vdm.NewConfigurationError("flush of versioned changes without a bound revision")
	}

	if err := insertRevision(ctx, u.tx, *u.revision); err != nil {
		return err
	}

	ts := vdm.FormatTime(u.revision.Timestamp)
	sentinel := vdm.FormatTime(vdm.Sentinel())

	for _, c := range u.staged {
		newID := uuid.NewString()

		var prevID string
		err := u.tx.QueryRowContext(ctx, fmt.Sprintf(`
			SELECT id FROM %s WHERE continuity_id = ? AND is_current = 1
		`, c.entity.RevisionTable), c.continuityID).Scan(&prevID)
		switch {
		case err == sql.ErrNoRows:
			// First revision row for this continuity object.
		case err != nil:
			return fmt.Errorf("flush %s: find current row: %w", c.entity.Name, err)
		default:
			if _, err := u.tx.ExecContext(ctx, fmt.Sprintf(`
				UPDATE %s SET expired_id = ?, expired_timestamp = ?, is_current = 0 WHERE id = ?
			`, c.entity.RevisionTable), newID, ts, prevID); err != nil {
				return fmt.Errorf("flush %s: expire current row: %w", c.entity.Name, err)
			}
		}

		insertSQL := fmt.Sprintf(`
			INSERT INTO %s (id, continuity_id, revision_id, %s, state, expired_id, revision_timestamp, expired_timestamp, is_current)
			VALUES (?, ?, ?, %s, ?, NULL, ?, ?, 1)
		`, c.entity.RevisionTable, quotedColumnList(c.entity.Columns), placeholders(len(c.entity.Columns)))

		args := append([]any{newID, c.continuityID, u.revision.ID}, c.values...)
		args = append(args, string(c.state), ts, sentinel)
		if _, err := u.tx.ExecContext(ctx, insertSQL, args...); err != nil {
			return fmt.Errorf("flush %s: insert revision row: %w", c.entity.Name, err)
		}

		metrics.RevisionRowsWritten.WithLabelValues(c.entity.Name).Inc()
	}

	metrics.FlushesTotal.Inc()
	u.store.log.Debug().
		Str("revision", u.revision.ID).
		Int("staged", len(u.staged)).
		Msg("flushed unit of work")

	return nil
}

// quotedColumnList joins column names, double-quoted so that columns like
// "key" never collide with SQL keywords.
func quotedColumnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}
