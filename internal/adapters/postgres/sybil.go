package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
)

// SybilClusters implements sybil.ClusterStore.
type SybilClusters struct {
	conn *dbpg.Connection
}

// NewSybilClusters constructs a SybilClusters repository.
func NewSybilClusters(conn *dbpg.Connection) *SybilClusters { return &SybilClusters{conn: conn} }

// ExistingStatus implements sybil.ClusterStore.
func (c *SybilClusters) ExistingStatus(ctx context.Context, hash string) (domain.SybilClusterStatus, bool, error) {
	handle, err := db(ctx, c.conn)
	if err != nil {
		return "", false, err
	}

	var status string

	row := handle.QueryRowContext(ctx, `SELECT status FROM sybil_clusters WHERE hash = $1`, hash)
	if err := row.Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}

		return "", false, err
	}

	return domain.SybilClusterStatus(status), true, nil
}

// UpsertCluster implements sybil.ClusterStore: the cluster row and its full
// member list are replaced together in one transaction, since the member
// set has no stable identity across runs beyond the cluster hash.
func (c *SybilClusters) UpsertCluster(ctx context.Context, cluster domain.SybilCluster, members []domain.SybilMember) error {
	handle, err := db(ctx, c.conn)
	if err != nil {
		return err
	}

	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sybil_clusters (hash, scope, internal_edges, external_edges, member_count, status, detected_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (hash) DO UPDATE SET
			internal_edges = EXCLUDED.internal_edges, external_edges = EXCLUDED.external_edges,
			member_count = EXCLUDED.member_count, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		cluster.Hash, cluster.Scope, cluster.InternalEdges, cluster.ExternalEdges, cluster.MemberCount,
		cluster.Status, now)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sybil_members WHERE cluster_hash = $1`, cluster.Hash); err != nil {
		return err
	}

	for _, m := range members {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sybil_members (cluster_hash, repo_id, role) VALUES ($1, $2, $3)`,
			m.ClusterHash, m.RepoID, m.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}
