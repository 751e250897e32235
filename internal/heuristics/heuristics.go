// Package heuristics runs three independent behavioral detectors: burst
// voting, content similarity, and low reaction diversity. Each detector
// scans its own time window and persists BehavioralFlag documents
// independently; a failure in one detector does not block the others. Flag
// persistence is grounded on common/mmongo/mongo.go's freeform-document
// idiom (flags have no fixed relational shape).
package heuristics

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// FlagSink persists one BehavioralFlag document.
type FlagSink interface {
	PersistFlag(ctx context.Context, flag domain.BehavioralFlag) error
}

// Runner owns the three detectors and runs them independently.
type Runner struct {
	reactions ReactionWindowSource
	content   ContentWindowSource
	sink      FlagSink
	logger    ctxlog.Logger
	now       func() time.Time
}

// New constructs a Runner.
func New(reactions ReactionWindowSource, content ContentWindowSource, sink FlagSink, logger ctxlog.Logger) *Runner {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Runner{reactions: reactions, content: content, sink: sink, logger: logger, now: time.Now}
}

// RunReport summarizes one call to RunAll.
type RunReport struct {
	BurstVotingFlags      int
	ContentSimilarityFlags int
	LowDiversityFlags     int
	Errors                []error
}

// RunAll runs every detector, isolating a failure in one from the rest.
func (r *Runner) RunAll(ctx context.Context) RunReport {
	var report RunReport

	if n, err := r.runBurstVoting(ctx); err != nil {
		r.logger.Errorf("heuristics: burst-voting detector failed: %v", err)
		report.Errors = append(report.Errors, err)
	} else {
		report.BurstVotingFlags = n
	}

	if n, err := r.runContentSimilarity(ctx); err != nil {
		r.logger.Errorf("heuristics: content-similarity detector failed: %v", err)
		report.Errors = append(report.Errors, err)
	} else {
		report.ContentSimilarityFlags = n
	}

	if n, err := r.runLowDiversity(ctx); err != nil {
		r.logger.Errorf("heuristics: low-diversity detector failed: %v", err)
		report.Errors = append(report.Errors, err)
	} else {
		report.LowDiversityFlags = n
	}

	return report
}
