package postgres

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
	"github.com/barazo-forum/barazo-api/internal/reputation"
)

// ReputationGraph implements reputation.EdgeSource, reputation.SeedSource,
// reputation.ScoreSink, and reputation.ScoreLookup against the
// interaction-graph/trust-seed/trust-score tables.
//
// It is a distinct type from SybilGraph (rather than one type implementing
// both packages' EdgeSource) because reputation.EdgeSource.Edges returns
// the graph pre-collapsed to []reputation.Edge while sybil.EdgeSource.Edges
// returns the raw per-kind []domain.InteractionEdge — Go methods can't be
// overloaded on return type, so one name can't serve both shapes.
type ReputationGraph struct {
	conn *dbpg.Connection
}

// NewReputationGraph constructs a ReputationGraph repository.
func NewReputationGraph(conn *dbpg.Connection) *ReputationGraph { return &ReputationGraph{conn: conn} }

// Edges implements reputation.EdgeSource: the interaction graph collapsed
// per (source, target) by summed weight, restricted to scope (community)
// when scope is not domain.GlobalScope.
func (g *ReputationGraph) Edges(ctx context.Context, scope string) ([]reputation.Edge, error) {
	handle, err := db(ctx, g.conn)
	if err != nil {
		return nil, err
	}

	query := `SELECT source, target, SUM(weight) FROM interaction_edges`
	args := []any{}

	if scope != domain.GlobalScope {
		query += ` WHERE community_id = $1`
		args = append(args, scope)
	}

	query += ` GROUP BY source, target`

	rows, err := handle.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []reputation.Edge

	for rows.Next() {
		var e reputation.Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Weight); err != nil {
			return nil, err
		}

		edges = append(edges, e)
	}

	return edges, rows.Err()
}

// Seeds implements reputation.SeedSource: configured trust seeds for scope
// plus every admin/moderator user id.
func (g *ReputationGraph) Seeds(ctx context.Context, scope string) ([]string, error) {
	handle, err := db(ctx, g.conn)
	if err != nil {
		return nil, err
	}

	rows, err := handle.QueryContext(ctx, `SELECT repo_id FROM trust_seeds WHERE scope = $1`, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	var seeds []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		if !seen[id] {
			seen[id] = true
			seeds = append(seeds, id)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	roleRows, err := handle.QueryContext(ctx, `SELECT repo_id FROM users WHERE role IN ($1, $2)`, domain.RoleModerator, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer roleRows.Close()

	for roleRows.Next() {
		var id string
		if err := roleRows.Scan(&id); err != nil {
			return nil, err
		}

		if !seen[id] {
			seen[id] = true
			seeds = append(seeds, id)
		}
	}

	return seeds, roleRows.Err()
}

// UpsertScores implements reputation.ScoreSink.
func (g *ReputationGraph) UpsertScores(ctx context.Context, scope string, scores map[string]float64, computedAt time.Time) error {
	handle, err := db(ctx, g.conn)
	if err != nil {
		return err
	}

	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for repoID, score := range scores {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trust_scores (repo_id, scope, score, computed_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (repo_id, scope) DO UPDATE SET score = EXCLUDED.score, computed_at = EXCLUDED.computed_at`,
			repoID, scope, score, computedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Score implements reputation.ScoreLookup.
func (g *ReputationGraph) Score(ctx context.Context, repoID, scope string) (float64, bool, error) {
	return scoreLookup(ctx, g.conn, repoID, scope)
}

// RecordEdge upserts one interaction edge, incrementing its weight and
// bumping last_seen_at; called by the dispatcher as replies/reactions/
// co-participation are indexed.
func (g *ReputationGraph) RecordEdge(ctx context.Context, edge domain.InteractionEdge) error {
	return recordEdge(ctx, g.conn, edge)
}

// SybilGraph implements sybil.EdgeSource and sybil.ScoreSource against the
// same tables as ReputationGraph, kept separate per the method-overload
// note on ReputationGraph's doc comment.
type SybilGraph struct {
	conn *dbpg.Connection
}

// NewSybilGraph constructs a SybilGraph repository.
func NewSybilGraph(conn *dbpg.Connection) *SybilGraph { return &SybilGraph{conn: conn} }

// Score implements sybil.ScoreSource.
func (g *SybilGraph) Score(ctx context.Context, repoID, scope string) (float64, bool, error) {
	return scoreLookup(ctx, g.conn, repoID, scope)
}

// Nodes implements sybil.EdgeSource: every distinct repo-id seen as a
// source or target within scope, aggregating across all communities when
// scope is domain.GlobalScope (matching ReputationGraph.Edges's handling of
// the same sentinel against the same table).
func (g *SybilGraph) Nodes(ctx context.Context, scope string) ([]string, error) {
	handle, err := db(ctx, g.conn)
	if err != nil {
		return nil, err
	}

	query := `SELECT DISTINCT repo_id FROM (
		SELECT source AS repo_id, community_id FROM interaction_edges
		UNION ALL
		SELECT target AS repo_id, community_id FROM interaction_edges
	) nodes`
	args := []any{}

	if scope != domain.GlobalScope {
		query += ` WHERE community_id = $1`
		args = append(args, scope)
	}

	rows, err := handle.QueryContext(ctx, query, args...)
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

// Edges implements sybil.EdgeSource's directed, per-kind view (distinct
// from ReputationGraph.Edges, which pre-collapses by (source, target)),
// aggregating across all communities when scope is domain.GlobalScope.
func (g *SybilGraph) Edges(ctx context.Context, scope string) ([]domain.InteractionEdge, error) {
	handle, err := db(ctx, g.conn)
	if err != nil {
		return nil, err
	}

	query := `SELECT source, target, community_id, kind, weight, first_seen_at, last_seen_at FROM interaction_edges`
	args := []any{}

	if scope != domain.GlobalScope {
		query += ` WHERE community_id = $1`
		args = append(args, scope)
	}

	rows, err := handle.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.InteractionEdge

	for rows.Next() {
		var e domain.InteractionEdge
		var kind string

		if err := rows.Scan(&e.Source, &e.Target, &e.CommunityID, &kind, &e.Weight, &e.FirstSeenAt, &e.LastSeenAt); err != nil {
			return nil, err
		}

		e.Kind = domain.InteractionKind(kind)
		edges = append(edges, e)
	}

	return edges, rows.Err()
}

// RecordEdge upserts one interaction edge; exposed on both Graph types since
// both the reputation and sybil scopes read from the same table, but only
// the dispatcher (holding whichever Graph the wiring gives it) calls it.
func (g *SybilGraph) RecordEdge(ctx context.Context, edge domain.InteractionEdge) error {
	return recordEdge(ctx, g.conn, edge)
}

func scoreLookup(ctx context.Context, conn *dbpg.Connection, repoID, scope string) (float64, bool, error) {
	handle, err := db(ctx, conn)
	if err != nil {
		return 0, false, err
	}

	var score float64

	row := handle.QueryRowContext(ctx, `SELECT score FROM trust_scores WHERE repo_id = $1 AND scope = $2`, repoID, scope)

	err = row.Scan(&score)
	if err == nil {
		return score, true, nil
	}

	if wrapped := notFound(err, "TrustScore"); wrapped != err {
		return 0, false, nil
	}

	return 0, false, err
}

func recordEdge(ctx context.Context, conn *dbpg.Connection, edge domain.InteractionEdge) error {
	handle, err := db(ctx, conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `
		INSERT INTO interaction_edges (source, target, community_id, kind, weight, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
		ON CONFLICT (source, target, community_id, kind) DO UPDATE SET
			weight = interaction_edges.weight + 1, last_seen_at = EXCLUDED.last_seen_at`,
		edge.Source, edge.Target, edge.CommunityID, edge.Kind, edge.LastSeenAt)

	return err
}
