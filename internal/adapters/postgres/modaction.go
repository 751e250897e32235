package postgres

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
)

// ModActions implements modaction.Store.
type ModActions struct {
	conn *dbpg.Connection
}

// NewModActions constructs a ModActions repository.
func NewModActions(conn *dbpg.Connection) *ModActions { return &ModActions{conn: conn} }

// Record implements modaction.Store.
func (m *ModActions) Record(ctx context.Context, action domain.ModAction) error {
	handle, err := db(ctx, m.conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `
		INSERT INTO mod_actions (target_repo_id, community_id, kind, actor_repo_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		action.TargetRepoID, action.CommunityID, action.Kind, action.ActorRepoID, action.CreatedAt)

	return err
}

// BannedCommunities implements modaction.Store: for each community the
// target has any action in, the latest action's kind decides whether that
// community currently bans them.
func (m *ModActions) BannedCommunities(ctx context.Context, targetRepoID string) ([]string, error) {
	handle, err := db(ctx, m.conn)
	if err != nil {
		return nil, err
	}

	rows, err := handle.QueryContext(ctx, `
		SELECT DISTINCT ON (community_id) community_id, kind
		FROM mod_actions
		WHERE target_repo_id = $1
		ORDER BY community_id, created_at DESC`, targetRepoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var banned []string

	for rows.Next() {
		var community, kind string
		if err := rows.Scan(&community, &kind); err != nil {
			return nil, err
		}

		if domain.ModActionKind(kind) == domain.ModActionBan {
			banned = append(banned, community)
		}
	}

	return banned, rows.Err()
}

// UpsertAccountFilter implements modaction.Store.
func (m *ModActions) UpsertAccountFilter(ctx context.Context, filter domain.AccountFilter) error {
	handle, err := db(ctx, m.conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `
		INSERT INTO account_filters (repo_id, status, ban_count, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (repo_id) DO UPDATE SET status = EXCLUDED.status, ban_count = EXCLUDED.ban_count, updated_at = EXCLUDED.updated_at`,
		filter.RepoID, filter.Status, filter.BanCount, time.Now())

	return err
}
