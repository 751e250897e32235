package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
)

// Users implements dispatch.UserLookup, session.UserRoleLookup, and the
// moderator-facing user CRUD surface (role/ban management), all against the
// single "users" table.
type Users struct {
	conn *dbpg.Connection
}

// NewUsers constructs a Users repository.
func NewUsers(conn *dbpg.Connection) *Users {
	return &Users{conn: conn}
}

// AccountCreated implements dispatch.UserLookup.
func (u *Users) AccountCreated(ctx context.Context, repoID string) (*time.Time, bool, error) {
	handle, err := db(ctx, u.conn)
	if err != nil {
		return nil, false, err
	}

	var createdAt sql.NullTime

	row := handle.QueryRowContext(ctx, `SELECT account_created FROM users WHERE repo_id = $1`, repoID)
	if err := row.Scan(&createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}

		return nil, false, err
	}

	if !createdAt.Valid {
		return nil, true, nil
	}

	t := createdAt.Time

	return &t, true, nil
}

// BackfillAccountCreated implements dispatch.UserLookup.
func (u *Users) BackfillAccountCreated(ctx context.Context, repoID string, createdAt *time.Time) error {
	handle, err := db(ctx, u.conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `UPDATE users SET account_created = $1 WHERE repo_id = $2`, createdAt, repoID)

	return err
}

// InsertStub implements dispatch.UserLookup.
func (u *Users) InsertStub(ctx context.Context, repoID string, createdAt *time.Time) error {
	handle, err := db(ctx, u.conn)
	if err != nil {
		return err
	}

	now := time.Now()

	_, err = handle.ExecContext(ctx, `
		INSERT INTO users (repo_id, handle, role, banned, reputation_score, first_seen_at, last_active_at, account_created)
		VALUES ($1, $1, $2, false, 0, $3, $3, $4)
		ON CONFLICT (repo_id) DO NOTHING`,
		repoID, domain.RoleUser, now, createdAt)

	return mapPGError(err, "User")
}

// Role implements session.UserRoleLookup.
func (u *Users) Role(ctx context.Context, repoID string) (domain.Role, error) {
	handle, err := db(ctx, u.conn)
	if err != nil {
		return "", err
	}

	var role string

	row := handle.QueryRowContext(ctx, `SELECT role FROM users WHERE repo_id = $1`, repoID)
	if err := row.Scan(&role); err != nil {
		if err == sql.ErrNoRows {
			return domain.RoleUser, nil
		}

		return "", err
	}

	return domain.Role(role), nil
}

// UpsertActive implements identity.Store: active identity events touch the
// handle and last-active timestamp.
func (u *Users) UpsertActive(ctx context.Context, repoID, handle string) error {
	conn, err := db(ctx, u.conn)
	if err != nil {
		return err
	}

	now := time.Now()

	_, err = conn.ExecContext(ctx, `
		INSERT INTO users (repo_id, handle, role, banned, reputation_score, first_seen_at, last_active_at)
		VALUES ($1, $2, $3, false, 0, $4, $4)
		ON CONFLICT (repo_id) DO UPDATE SET handle = EXCLUDED.handle, last_active_at = EXCLUDED.last_active_at`,
		repoID, handle, domain.RoleUser, now)

	return mapPGError(err, "User")
}

// PurgeAccount implements identity.Store: reactions, replies, and topics
// reference users.repo_id without ON DELETE CASCADE, so the user row can't
// be deleted first without a foreign-key violation for any author who has
// ever posted.
func (u *Users) PurgeAccount(ctx context.Context, repoID string) error {
	handle, err := db(ctx, u.conn)
	if err != nil {
		return err
	}

	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM reactions WHERE author_repo_id = $1`,
		`DELETE FROM replies WHERE author_repo_id = $1`,
		`DELETE FROM topics WHERE author_repo_id = $1`,
		`DELETE FROM users WHERE repo_id = $1`,
		`DELETE FROM tracked_repos WHERE repo_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, repoID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetRole updates a user's role (admin-only operation, not wired to any
// indexer port; no route or command in this module calls it).
func (u *Users) SetRole(ctx context.Context, repoID string, role domain.Role) error {
	conn, err := db(ctx, u.conn)
	if err != nil {
		return err
	}

	result, err := conn.ExecContext(ctx, `UPDATE users SET role = $1 WHERE repo_id = $2`, role, repoID)
	if err != nil {
		return err
	}

	return checkUpdated(result, "User")
}

// SetBanned toggles the moderation-wide ban flag.
func (u *Users) SetBanned(ctx context.Context, repoID string, banned bool) error {
	conn, err := db(ctx, u.conn)
	if err != nil {
		return err
	}

	result, err := conn.ExecContext(ctx, `UPDATE users SET banned = $1 WHERE repo_id = $2`, banned, repoID)
	if err != nil {
		return err
	}

	return checkUpdated(result, "User")
}

// Get loads a single user by repo-id.
func (u *Users) Get(ctx context.Context, repoID string) (domain.User, error) {
	conn, err := db(ctx, u.conn)
	if err != nil {
		return domain.User{}, err
	}

	query, args, err := squirrel.Select(
		"repo_id", "handle", "role", "banned", "reputation_score",
		"first_seen_at", "last_active_at", "account_created", "declared_age", "maturity_pref",
	).From("users").Where(squirrel.Eq{"repo_id": repoID}).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return domain.User{}, err
	}

	var user domain.User

	var (
		role           string
		accountCreated sql.NullTime
		declaredAge    sql.NullInt64
		maturityPref   sql.NullString
	)

	row := conn.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&user.RepoID, &user.Handle, &role, &user.Banned, &user.ReputationScore,
		&user.FirstSeenAt, &user.LastActiveAt, &accountCreated, &declaredAge, &maturityPref); err != nil {
		return domain.User{}, notFound(err, "User")
	}

	user.Role = domain.Role(role)
	if accountCreated.Valid {
		t := accountCreated.Time
		user.AccountCreated = &t
	}
	if declaredAge.Valid {
		a := int(declaredAge.Int64)
		user.DeclaredAge = &a
	}
	user.MaturityPref = maturityPref.String

	return user, nil
}

func checkUpdated(result sql.Result, entityType string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return domain.NotFoundError{EntityType: entityType}
	}

	return nil
}
