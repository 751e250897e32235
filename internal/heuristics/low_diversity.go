package heuristics

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
)

const (
	lowDiversityMinReactions     = 10
	lowDiversityMaxDistinctSubjects = 3
)

// runLowDiversity reuses ReactionWindowSource.ReactionsSince with the zero
// time.Time, which the adapter implementation treats as "no lower bound",
// since this detector's "overall reaction count" is all-time rather than
// windowed.
func (r *Runner) runLowDiversity(ctx context.Context) (int, error) {
	reactions, err := r.reactions.ReactionsSince(ctx, time.Time{})
	if err != nil {
		return 0, err
	}

	subjectsByAuthor := map[string]map[string]bool{}
	for _, reaction := range reactions {
		if subjectsByAuthor[reaction.AuthorRepoID] == nil {
			subjectsByAuthor[reaction.AuthorRepoID] = map[string]bool{}
		}
		subjectsByAuthor[reaction.AuthorRepoID][reaction.SubjectURI] = true
	}

	counts := map[string]int{}
	for _, reaction := range reactions {
		counts[reaction.AuthorRepoID]++
	}

	flagged := 0

	for author, total := range counts {
		if total <= lowDiversityMinReactions {
			continue
		}

		distinct := len(subjectsByAuthor[author])
		if distinct >= lowDiversityMaxDistinctSubjects {
			continue
		}

		flag := domain.BehavioralFlag{
			Type:        domain.FlagLowDiversity,
			AffectedIDs: []string{author},
			Details:     map[string]any{"reaction_count": total, "distinct_subjects": distinct},
			DetectedAt:  r.now(),
		}

		if err := r.sink.PersistFlag(ctx, flag); err != nil {
			return flagged, err
		}

		flagged++
	}

	return flagged, nil
}
