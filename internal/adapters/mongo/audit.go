package mongo

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/dbmongo"
)

const modActionsCollection = "mod_action_audit"

// modActionDocument is the freeform bson shape one moderation decision is
// stored as. Unlike the Postgres mod_actions table (queried for current
// ban state), this collection is append-only history for the review queue.
type modActionDocument struct {
	TargetRepoID string    `bson:"target_repo_id"`
	CommunityID  string    `bson:"community_id"`
	Kind         string    `bson:"kind"`
	ActorRepoID  string    `bson:"actor_repo_id"`
	CreatedAt    time.Time `bson:"created_at"`
}

// AuditLog implements modaction.AuditLog.
type AuditLog struct {
	conn *dbmongo.Connection
}

// NewAuditLog constructs an AuditLog repository.
func NewAuditLog(conn *dbmongo.Connection) *AuditLog { return &AuditLog{conn: conn} }

// RecordAction implements modaction.AuditLog.
func (a *AuditLog) RecordAction(ctx context.Context, action domain.ModAction) error {
	database, err := a.conn.DB(ctx)
	if err != nil {
		return err
	}

	doc := modActionDocument{
		TargetRepoID: action.TargetRepoID,
		CommunityID:  action.CommunityID,
		Kind:         string(action.Kind),
		ActorRepoID:  action.ActorRepoID,
		CreatedAt:    action.CreatedAt,
	}

	_, err = database.Collection(modActionsCollection).InsertOne(ctx, doc)

	return err
}
