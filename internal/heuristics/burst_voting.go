package heuristics

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
)

const burstVotingWindow = 10 * time.Minute
const burstVotingThreshold = 20

// ReactionWindowSource loads reactions created within a trailing window.
type ReactionWindowSource interface {
	ReactionsSince(ctx context.Context, since time.Time) ([]domain.Reaction, error)
}

func (r *Runner) runBurstVoting(ctx context.Context) (int, error) {
	since := r.now().Add(-burstVotingWindow)

	reactions, err := r.reactions.ReactionsSince(ctx, since)
	if err != nil {
		return 0, err
	}

	counts := map[string]int{}
	for _, reaction := range reactions {
		counts[reaction.AuthorRepoID]++
	}

	flagged := 0

	for author, count := range counts {
		if count <= burstVotingThreshold {
			continue
		}

		flag := domain.BehavioralFlag{
			Type:        domain.FlagBurstVoting,
			AffectedIDs: []string{author},
			Details:     map[string]any{"reaction_count": count, "window_minutes": int(burstVotingWindow.Minutes())},
			DetectedAt:  r.now(),
		}

		if err := r.sink.PersistFlag(ctx, flag); err != nil {
			return flagged, err
		}

		flagged++
	}

	return flagged, nil
}
