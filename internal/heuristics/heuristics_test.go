package heuristics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/heuristics"
)

type fakeReactions struct {
	reactions []domain.Reaction
}

func (f *fakeReactions) ReactionsSince(ctx context.Context, since time.Time) ([]domain.Reaction, error) {
	return f.reactions, nil
}

type fakeContent struct {
	items []heuristics.ContentItem
}

func (f *fakeContent) ContentSince(ctx context.Context, since time.Time) ([]heuristics.ContentItem, error) {
	return f.items, nil
}

type fakeSink struct {
	flags []domain.BehavioralFlag
}

func (f *fakeSink) PersistFlag(ctx context.Context, flag domain.BehavioralFlag) error {
	f.flags = append(f.flags, flag)
	return nil
}

func TestBurstVotingFlagsAuthorOverThreshold(t *testing.T) {
	var reactions []domain.Reaction
	for i := 0; i < 25; i++ {
		reactions = append(reactions, domain.Reaction{AuthorRepoID: "did:plc:spammer", SubjectURI: "at://x/y/z"})
	}

	sink := &fakeSink{}
	runner := heuristics.New(&fakeReactions{reactions: reactions}, &fakeContent{}, sink, nil)

	report := runner.RunAll(t.Context())
	assert.Equal(t, 1, report.BurstVotingFlags)
	assert.Empty(t, report.Errors)

	var found bool
	for _, f := range sink.flags {
		if f.Type == domain.FlagBurstVoting {
			found = true
			assert.Equal(t, []string{"did:plc:spammer"}, f.AffectedIDs)
		}
	}
	assert.True(t, found)
}

func TestContentSimilarityFlagsClusterOfThreeOrMoreAuthors(t *testing.T) {
	items := []heuristics.ContentItem{
		{URI: "at://a/t/1", AuthorRepoID: "did:plc:a", Text: "buy cheap crypto now limited offer today only"},
		{URI: "at://b/t/1", AuthorRepoID: "did:plc:b", Text: "buy cheap crypto now limited offer today only"},
		{URI: "at://c/t/1", AuthorRepoID: "did:plc:c", Text: "buy cheap crypto now limited offer today only"},
		{URI: "at://d/t/1", AuthorRepoID: "did:plc:d", Text: "a completely unrelated discussion about gardening tips"},
	}

	sink := &fakeSink{}
	runner := heuristics.New(&fakeReactions{}, &fakeContent{items: items}, sink, nil)

	report := runner.RunAll(t.Context())
	require.Equal(t, 1, report.ContentSimilarityFlags)

	for _, f := range sink.flags {
		if f.Type == domain.FlagContentSimilarity {
			assert.Len(t, f.AffectedIDs, 3)
		}
	}
}

func TestLowDiversityFlagsNarrowHighVolumeAuthor(t *testing.T) {
	var reactions []domain.Reaction
	for i := 0; i < 12; i++ {
		reactions = append(reactions, domain.Reaction{AuthorRepoID: "did:plc:narrow", SubjectURI: "at://same/subject/1"})
	}

	sink := &fakeSink{}
	runner := heuristics.New(&fakeReactions{reactions: reactions}, &fakeContent{}, sink, nil)

	report := runner.RunAll(t.Context())
	assert.Equal(t, 1, report.LowDiversityFlags)
}

func TestRunAllIsolatesDetectorFailures(t *testing.T) {
	sink := &fakeSink{}
	runner := heuristics.New(&failingReactions{}, &fakeContent{}, sink, nil)

	report := runner.RunAll(t.Context())
	assert.Len(t, report.Errors, 2) // burst-voting and low-diversity both use ReactionsSince
	assert.Equal(t, 0, report.ContentSimilarityFlags)
}

type failingReactions struct{}

func (f *failingReactions) ReactionsSince(ctx context.Context, since time.Time) ([]domain.Reaction, error) {
	return nil, assertErr
}

var assertErr = errorString("reaction store unavailable")

type errorString string

func (e errorString) Error() string { return string(e) }
