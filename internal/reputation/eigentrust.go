// Package reputation implements EigenTrust-style propagation: seed-weighted,
// double-buffered iteration over the interaction graph, run as a
// single-flight job per scope. Grounded on midaz's components/mdz pipeline
// shape for a read-compute-write batch job, generalized to graph iteration
// (no direct teacher analog for EigenTrust itself, since no example repo
// implements trust propagation).
package reputation

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

const (
	dampingFactor       = 0.5
	maxIterations       = 20
	convergenceEpsilon  = 1e-3
	defaultTrustScore   = 0.1
)

// Edge is a directed, weighted interaction-graph edge restricted to one
// scope; multiple interaction kinds have already been collapsed by
// summation into Weight.
type Edge struct {
	Source string
	Target string
	Weight float64
}

// Result is one scope's computed scores.
type Result struct {
	Scope      string
	Scores     map[string]float64
	Iterations int
	Converged  bool
}

// EdgeSource loads the collapsed interaction graph for a scope.
type EdgeSource interface {
	Edges(ctx context.Context, scope string) ([]Edge, error)
}

// SeedSource loads the seed set for a scope: configured trust seeds plus
// every admin/moderator user id.
type SeedSource interface {
	Seeds(ctx context.Context, scope string) ([]string, error)
}

// ScoreSink persists computed scores.
type ScoreSink interface {
	UpsertScores(ctx context.Context, scope string, scores map[string]float64, computedAt time.Time) error
}

// Engine runs the EigenTrust computation for one scope at a time.
type Engine struct {
	edges  EdgeSource
	seeds  SeedSource
	sink   ScoreSink
	logger ctxlog.Logger
	now    func() time.Time
}

// New constructs an Engine.
func New(edges EdgeSource, seeds SeedSource, sink ScoreSink, logger ctxlog.Logger) *Engine {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Engine{edges: edges, seeds: seeds, sink: sink, logger: logger, now: time.Now}
}

// Run computes and persists trust scores for scope.
func (e *Engine) Run(ctx context.Context, scope string) (Result, error) {
	edges, err := e.edges.Edges(ctx, scope)
	if err != nil {
		return Result{}, err
	}

	seedList, err := e.seeds.Seeds(ctx, scope)
	if err != nil {
		return Result{}, err
	}

	seedSet := make(map[string]bool, len(seedList))
	for _, id := range seedList {
		seedSet[id] = true
	}

	nodes := collectNodes(edges, seedList)

	if len(seedSet) == 0 {
		scores := make(map[string]float64, len(nodes))
		for _, v := range nodes {
			scores[v] = 0
		}

		if err := e.sink.UpsertScores(ctx, scope, scores, e.now()); err != nil {
			return Result{}, err
		}

		return Result{Scope: scope, Scores: scores, Iterations: 0, Converged: true}, nil
	}

	outWeight := make(map[string]float64)
	incoming := make(map[string][]Edge) // target -> edges into it
	for _, edge := range edges {
		outWeight[edge.Source] += edge.Weight
		incoming[edge.Target] = append(incoming[edge.Target], edge)
	}

	current := make(map[string]float64, len(nodes))
	for _, v := range nodes {
		if seedSet[v] {
			current[v] = 1.0
		} else {
			current[v] = 0.0
		}
	}

	converged := false
	iteration := 0

	for iteration = 1; iteration <= maxIterations; iteration++ {
		next := make(map[string]float64, len(nodes))
		maxDelta := 0.0

		for _, v := range nodes {
			seed := 0.0
			if seedSet[v] {
				seed = 1.0
			}

			propagated := 0.0
			for _, edge := range incoming[v] {
				denom := outWeight[edge.Source]
				if denom == 0 {
					continue
				}

				propagated += current[edge.Source] * edge.Weight / denom
			}

			value := dampingFactor*seed + dampingFactor*propagated
			next[v] = value

			if delta := math.Abs(value - current[v]); delta > maxDelta {
				maxDelta = delta
			}
		}

		current = next

		if maxDelta < convergenceEpsilon {
			converged = true
			break
		}
	}

	if iteration > maxIterations {
		iteration = maxIterations
	}

	if err := e.sink.UpsertScores(ctx, scope, current, e.now()); err != nil {
		return Result{}, err
	}

	return Result{Scope: scope, Scores: current, Iterations: iteration, Converged: converged}, nil
}

func collectNodes(edges []Edge, seeds []string) []string {
	seen := make(map[string]bool)
	for _, edge := range edges {
		seen[edge.Source] = true
		seen[edge.Target] = true
	}

	for _, s := range seeds {
		seen[s] = true
	}

	nodes := make([]string, 0, len(seen))
	for v := range seen {
		nodes = append(nodes, v)
	}

	sort.Strings(nodes)

	return nodes
}

// ScoreLookup reads one persisted score, defaulting to defaultTrustScore.
type ScoreLookup interface {
	Score(ctx context.Context, repoID, scope string) (float64, bool, error)
}

// GetTrustScore returns the persisted score for (repoID, scope), or
// defaultTrustScore if absent.
func GetTrustScore(ctx context.Context, lookup ScoreLookup, repoID, scope string) (float64, error) {
	score, found, err := lookup.Score(ctx, repoID, scope)
	if err != nil {
		return 0, err
	}

	if !found {
		return defaultTrustScore, nil
	}

	return score, nil
}
