package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opencatalog/vdm/internal/vdm"
)

// NewRevision constructs an unpersisted revision stamped by the store's
// clock. The revision is written only when a unit of work that carries it
// commits, so an aborted unit of work leaves no revision row behind.
func (s *Store) NewRevision(author, message string) vdm.Revision {
	return vdm.NewRevision(s.clock, author, message)
}

// GetRevision retrieves a revision by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetRevision(ctx context.Context, id string) (vdm.Revision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, author, message, state, approved_timestamp
		FROM revision
		WHERE id = ?
	`, id)

	return scanRevision(row)
}

// Youngest returns the revision with the maximum timestamp currently
// persisted, or nil if none exist. The id text compare breaks timestamp
// ties deterministically.
func (s *Store) Youngest(ctx context.Context) (*vdm.Revision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, author, message, state, approved_timestamp
		FROM revision
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`)

	rev, err := scanRevision(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// ListRevisions returns all revisions youngest-first.
func (s *Store) ListRevisions(ctx context.Context) ([]vdm.Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, author, message, state, approved_timestamp
		FROM revision
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []vdm.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}

	// Return empty slice instead of nil
	if revisions == nil {
		revisions = []vdm.Revision{}
	}

	return revisions, nil
}

// ApproveRevision sets the approval instant on a revision. This is the
// only legal mutation of a persisted revision.
func (s *Store) ApproveRevision(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE revision SET approved_timestamp = ? WHERE id = ?
	`, vdm.FormatTime(at), id)
	if err != nil {
		return fmt.Errorf("approve revision: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve revision: rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// insertRevision persists a revision inside a flush transaction.
func insertRevision(ctx context.Context, tx *sql.Tx, rev vdm.Revision) error {
	var approved any
	if rev.ApprovedAt != nil {
		approved = vdm.FormatTime(*rev.ApprovedAt)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO revision (id, timestamp, author, message, state, approved_timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rev.ID,
		vdm.FormatTime(rev.Timestamp),
		rev.Author,
		rev.Message,
		string(rev.State),
		approved,
	)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// scanRevision scans a row into a Revision.
func scanRevision(row interface{ Scan(...any) error }) (vdm.Revision, error) {
	var rev vdm.Revision
	var ts, state string
	var approved sql.NullString

	if err := row.Scan(&rev.ID, &ts, &rev.Author, &rev.Message, &state, &approved); err != nil {
		return vdm.Revision{}, err
	}

	parsed, err := vdm.ParseTime(ts)
	if err != nil {
		return vdm.Revision{}, fmt.Errorf("scan revision: %w", err)
	}
	rev.Timestamp = parsed

	st, err := vdm.ParseState(state)
	if err != nil {
		return vdm.Revision{}, fmt.Errorf("scan revision: %w", err)
	}
	rev.State = st

	if approved.Valid {
		at, err := vdm.ParseTime(approved.String)
		if err != nil {
			return vdm.Revision{}, fmt.Errorf("scan revision: %w", err)
		}
		rev.ApprovedAt = &at
	}

	return rev, nil
}
