// Package sybil implements a low-trust connected-component detector: it
// clusters accounts whose trust scores sit below a fixed floor and whose
// interactions are densely self-referential (no direct teacher/pack analog
// for graph clustering); the cluster upsert follows midaz's
// upsert-by-natural-key repository pattern, here keyed by a stable content
// hash rather than a generated id.
package sybil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// lowTrustThreshold and edgeRatioThreshold are the fixed clustering cutoffs.
const (
	lowTrustThreshold = 0.05
	edgeRatioThreshold = 0.8
	minClusterSize     = 3
)

// ScoreSource reports a node's trust score in a scope, falling back to the
// global scope: a node qualifies as low-trust when its score is below
// lowTrustThreshold in this scope or the global scope.
type ScoreSource interface {
	Score(ctx context.Context, repoID, scope string) (float64, bool, error)
}

// EdgeSource loads the full directed interaction graph for a scope (not
// pre-collapsed — internal/external edge counts need per-kind weights to
// remain separable from the reputation engine's summed view, so this takes
// a fresh read rather than reusing reputation.Edge).
type EdgeSource interface {
	Edges(ctx context.Context, scope string) ([]domain.InteractionEdge, error)
	Nodes(ctx context.Context, scope string) ([]string, error)
}

// ClusterStore persists detected clusters. ExistingStatus looks up a prior
// cluster by hash to honor the "dismissed clusters are never re-flagged"
// rule.
type ClusterStore interface {
	ExistingStatus(ctx context.Context, hash string) (domain.SybilClusterStatus, bool, error)
	UpsertCluster(ctx context.Context, cluster domain.SybilCluster, members []domain.SybilMember) error
}

// Detector runs the sybil-cluster scan for one scope.
type Detector struct {
	scores EdgeScoreLookup
	edges  EdgeSource
	store  ClusterStore
	logger ctxlog.Logger
	now    func() time.Time
}

// EdgeScoreLookup composes the scope-local and global score lookups the
// detector needs; both are satisfied by the same reputation score store.
type EdgeScoreLookup = ScoreSource

// New constructs a Detector.
func New(scores EdgeScoreLookup, edges EdgeSource, store ClusterStore, logger ctxlog.Logger) *Detector {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Detector{scores: scores, edges: edges, store: store, logger: logger, now: time.Now}
}

// Summary is the result of one detection run.
type Summary struct {
	ClustersDetected int
	TotalLowTrustIDs int
	Duration         time.Duration
}

// Run executes the full detection pipeline for scope.
func (d *Detector) Run(ctx context.Context, scope string) (Summary, error) {
	start := d.now()

	nodes, err := d.edges.Nodes(ctx, scope)
	if err != nil {
		return Summary{}, err
	}

	edges, err := d.edges.Edges(ctx, scope)
	if err != nil {
		return Summary{}, err
	}

	lowTrust, err := d.lowTrustSet(ctx, scope, nodes)
	if err != nil {
		return Summary{}, err
	}

	components := connectedComponents(lowTrust, edges)

	clustersDetected := 0

	for _, members := range components {
		if len(members) < minClusterSize {
			continue
		}

		internal, external := countEdges(members, edges)
		if internal+external == 0 {
			continue
		}

		ratio := float64(internal) / float64(internal+external)
		if ratio <= edgeRatioThreshold {
			continue
		}

		hash := clusterHash(members)

		status, exists, err := d.store.ExistingStatus(ctx, hash)
		if err != nil {
			return Summary{}, err
		}

		if exists && status == domain.SybilDismissed {
			d.logger.Debugf("sybil detector: skipping dismissed cluster %s", hash)
			continue
		}

		roles := assignRoles(members, edges)

		cluster := domain.SybilCluster{
			Hash:          hash,
			Scope:         scope,
			InternalEdges: int64(internal),
			ExternalEdges: int64(external),
			MemberCount:   len(members),
			Status:        domain.SybilFlagged,
			DetectedAt:    start,
			UpdatedAt:     d.now(),
		}

		memberRows := make([]domain.SybilMember, 0, len(members))
		for _, id := range members {
			memberRows = append(memberRows, domain.SybilMember{ClusterHash: hash, RepoID: id, Role: roles[id]})
		}

		if err := d.store.UpsertCluster(ctx, cluster, memberRows); err != nil {
			return Summary{}, err
		}

		clustersDetected++
	}

	return Summary{
		ClustersDetected: clustersDetected,
		TotalLowTrustIDs: len(lowTrust),
		Duration:         d.now().Sub(start),
	}, nil
}

func (d *Detector) lowTrustSet(ctx context.Context, scope string, nodes []string) (map[string]bool, error) {
	lowTrust := map[string]bool{}

	for _, id := range nodes {
		scopedScore, err := d.scoreOrDefault(ctx, id, scope)
		if err != nil {
			return nil, err
		}

		globalScore := scopedScore
		if scope != domain.GlobalScope {
			globalScore, err = d.scoreOrDefault(ctx, id, domain.GlobalScope)
			if err != nil {
				return nil, err
			}
		}

		if scopedScore < lowTrustThreshold || globalScore < lowTrustThreshold {
			lowTrust[id] = true
		}
	}

	return lowTrust, nil
}

func (d *Detector) scoreOrDefault(ctx context.Context, repoID, scope string) (float64, error) {
	score, found, err := d.scores.Score(ctx, repoID, scope)
	if err != nil {
		return 0, err
	}

	if !found {
		return defaultScoreForLowTrustCheck, nil
	}

	return score, nil
}

// defaultScoreForLowTrustCheck mirrors reputation.GetTrustScore's default;
// duplicated as a literal here rather than imported, since the sybil
// package intentionally depends only on domain and ctxlog, not reputation.
const defaultScoreForLowTrustCheck = 0.1

func connectedComponents(lowTrust map[string]bool, edges []domain.InteractionEdge) [][]string {
	adjacency := map[string]map[string]bool{}
	for v := range lowTrust {
		adjacency[v] = map[string]bool{}
	}

	for _, e := range edges {
		if lowTrust[e.Source] && lowTrust[e.Target] {
			adjacency[e.Source][e.Target] = true
			adjacency[e.Target][e.Source] = true
		}
	}

	visited := map[string]bool{}
	var components [][]string

	nodeList := make([]string, 0, len(lowTrust))
	for v := range lowTrust {
		nodeList = append(nodeList, v)
	}
	sort.Strings(nodeList)

	for _, start := range nodeList {
		if visited[start] {
			continue
		}

		var component []string
		queue := []string{start}
		visited[start] = true

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			component = append(component, v)

			neighbors := make([]string, 0, len(adjacency[v]))
			for n := range adjacency[v] {
				neighbors = append(neighbors, n)
			}
			sort.Strings(neighbors)

			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}

		sort.Strings(component)
		components = append(components, component)
	}

	return components
}

func countEdges(members []string, edges []domain.InteractionEdge) (internal, external int) {
	inSet := make(map[string]bool, len(members))
	for _, id := range members {
		inSet[id] = true
	}

	for _, e := range edges {
		if !inSet[e.Source] {
			continue
		}

		if inSet[e.Target] {
			internal++
		} else {
			external++
		}
	}

	return internal, external
}

func clusterHash(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)

	joined := ""
	for i, m := range sorted {
		if i > 0 {
			joined += ","
		}
		joined += m
	}

	sum := sha256.Sum256([]byte(joined))

	return hex.EncodeToString(sum[:])
}

// assignRoles computes each member's internal-degree within the subgraph
// induced by members, then labels nodes above the median degree core and
// the rest peripheral.
func assignRoles(members []string, edges []domain.InteractionEdge) map[string]domain.MemberRole {
	inSet := make(map[string]bool, len(members))
	for _, id := range members {
		inSet[id] = true
	}

	degree := make(map[string]int, len(members))
	for _, id := range members {
		degree[id] = 0
	}

	for _, e := range edges {
		if inSet[e.Source] && inSet[e.Target] {
			degree[e.Source]++
			degree[e.Target]++
		}
	}

	degrees := make([]int, 0, len(members))
	for _, id := range members {
		degrees = append(degrees, degree[id])
	}
	sort.Ints(degrees)

	median := medianOf(degrees)

	roles := make(map[string]domain.MemberRole, len(members))
	for _, id := range members {
		if float64(degree[id]) > median {
			roles[id] = domain.MemberCore
		} else {
			roles[id] = domain.MemberPeripheral
		}
	}

	return roles
}

func medianOf(sorted []int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	if n%2 == 1 {
		return float64(sorted[n/2])
	}

	return float64(sorted[n/2-1]+sorted[n/2]) / 2.0
}
