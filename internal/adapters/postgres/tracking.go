package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
)

// Cursor implements cursor.Repository: a single-row table holding the
// highest durably-applied firehose sequence id.
type Cursor struct {
	conn *dbpg.Connection
}

// NewCursor constructs a Cursor repository.
func NewCursor(conn *dbpg.Connection) *Cursor { return &Cursor{conn: conn} }

// Get implements cursor.Repository.
func (c *Cursor) Get(ctx context.Context) (*int64, error) {
	handle, err := db(ctx, c.conn)
	if err != nil {
		return nil, err
	}

	var id int64

	row := handle.QueryRowContext(ctx, `SELECT last_event_id FROM firehose_cursor WHERE id = 1`)
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &id, nil
}

// Save implements cursor.Repository.
func (c *Cursor) Save(ctx context.Context, id int64) error {
	handle, err := db(ctx, c.conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `
		INSERT INTO firehose_cursor (id, last_event_id, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET last_event_id = EXCLUDED.last_event_id, updated_at = EXCLUDED.updated_at`,
		id, time.Now())

	return err
}

// RepoTracker implements repotracker.Repository.
type RepoTracker struct {
	conn *dbpg.Connection
}

// NewRepoTracker constructs a RepoTracker repository.
func NewRepoTracker(conn *dbpg.Connection) *RepoTracker { return &RepoTracker{conn: conn} }

// Track implements repotracker.Repository.
func (t *RepoTracker) Track(ctx context.Context, repoID string) error {
	handle, err := db(ctx, t.conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `
		INSERT INTO tracked_repos (repo_id, created_at) VALUES ($1, $2)
		ON CONFLICT (repo_id) DO NOTHING`, repoID, time.Now())

	return err
}

// Untrack implements repotracker.Repository.
func (t *RepoTracker) Untrack(ctx context.Context, repoID string) error {
	handle, err := db(ctx, t.conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `DELETE FROM tracked_repos WHERE repo_id = $1`, repoID)

	return err
}

// IsTracked implements repotracker.Repository.
func (t *RepoTracker) IsTracked(ctx context.Context, repoID string) (bool, error) {
	handle, err := db(ctx, t.conn)
	if err != nil {
		return false, err
	}

	var exists bool

	row := handle.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tracked_repos WHERE repo_id = $1)`, repoID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// All implements repotracker.Repository.
func (t *RepoTracker) All(ctx context.Context) ([]string, error) {
	handle, err := db(ctx, t.conn)
	if err != nil {
		return nil, err
	}

	rows, err := handle.QueryContext(ctx, `SELECT repo_id FROM tracked_repos ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}
