package reputation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/reputation"
)

type fakeEdges struct{ edges []reputation.Edge }

func (f *fakeEdges) Edges(ctx context.Context, scope string) ([]reputation.Edge, error) {
	return f.edges, nil
}

type fakeSeeds struct{ seeds []string }

func (f *fakeSeeds) Seeds(ctx context.Context, scope string) ([]string, error) {
	return f.seeds, nil
}

type fakeSink struct {
	scope  string
	scores map[string]float64
}

func (f *fakeSink) UpsertScores(ctx context.Context, scope string, scores map[string]float64, computedAt time.Time) error {
	f.scope = scope
	f.scores = scores
	return nil
}

func TestEngineEmptySeedSetReturnsAllZeros(t *testing.T) {
	edges := &fakeEdges{edges: []reputation.Edge{{Source: "a", Target: "b", Weight: 1}}}
	seeds := &fakeSeeds{}
	sink := &fakeSink{}
	engine := reputation.New(edges, seeds, sink, nil)

	result, err := engine.Run(t.Context(), "")
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Equal(t, 0, result.Iterations)
	assert.Equal(t, 0.0, result.Scores["a"])
	assert.Equal(t, 0.0, result.Scores["b"])
}

func TestEngineConvergesAndFavorsSeeds(t *testing.T) {
	edges := &fakeEdges{edges: []reputation.Edge{
		{Source: "seed", Target: "follower", Weight: 1},
		{Source: "follower", Target: "seed", Weight: 1},
	}}
	seeds := &fakeSeeds{seeds: []string{"seed"}}
	sink := &fakeSink{}
	engine := reputation.New(edges, seeds, sink, nil)

	result, err := engine.Run(t.Context(), "global")
	require.NoError(t, err)

	assert.True(t, result.Scores["seed"] > result.Scores["follower"])
	assert.Equal(t, "global", sink.scope)
}

func TestEngineTerminatesWithinMaxIterations(t *testing.T) {
	// A long chain with no feedback into the seed propagates slowly but
	// still terminates within the iteration cap either converged or not.
	edges := []reputation.Edge{}
	prev := "seed"
	for i := 0; i < 30; i++ {
		next := prev + "x"
		edges = append(edges, reputation.Edge{Source: prev, Target: next, Weight: 1})
		prev = next
	}

	engine := reputation.New(&fakeEdges{edges: edges}, &fakeSeeds{seeds: []string{"seed"}}, &fakeSink{}, nil)

	result, err := engine.Run(t.Context(), "")
	require.NoError(t, err)
	assert.LessOrEqual(t, result.Iterations, 20)
}

type fakeLookup struct {
	scores map[string]float64
}

func (f *fakeLookup) Score(ctx context.Context, repoID, scope string) (float64, bool, error) {
	v, ok := f.scores[repoID+"|"+scope]
	return v, ok, nil
}

func TestGetTrustScoreDefaultsWhenAbsent(t *testing.T) {
	lookup := &fakeLookup{scores: map[string]float64{"alice|": 0.7}}

	score, err := reputation.GetTrustScore(t.Context(), lookup, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, 0.7, score)

	score, err = reputation.GetTrustScore(t.Context(), lookup, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, 0.1, score)
}
