// Package repotracker maintains the durable set of tracked repo-ids and
// keeps the upstream subscription in sync. Grounded on the teacher's
// components/consumer/internal/bootstrap/consumer.go's
// queue-registration-at-startup idiom, applied here to repo-id subscription
// instead of queue names.
package repotracker

import (
	"context"
	"fmt"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// restoreBatchSize is the batch size used by Restore when re-subscribing the
// upstream client at startup.
const restoreBatchSize = 100

// Repository persists the tracked-repo set.
type Repository interface {
	Track(ctx context.Context, repoID string) error
	Untrack(ctx context.Context, repoID string) error
	IsTracked(ctx context.Context, repoID string) (bool, error)
	All(ctx context.Context) ([]string, error)
}

// UpstreamSubscriber is the upstream firehose client's subscription surface.
type UpstreamSubscriber interface {
	Subscribe(ctx context.Context, repoIDs []string) error
	Unsubscribe(ctx context.Context, repoID string) error
}

// Tracker owns the tracked-repo set and its upstream subscription.
type Tracker struct {
	repo     Repository
	upstream UpstreamSubscriber
	logger   ctxlog.Logger
}

// New constructs a Tracker.
func New(repo Repository, upstream UpstreamSubscriber, logger ctxlog.Logger) *Tracker {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Tracker{repo: repo, upstream: upstream, logger: logger}
}

// Track inserts repoID (conflict-ignore) and adds it to the upstream
// subscription.
func (t *Tracker) Track(ctx context.Context, repoID string) error {
	if err := t.repo.Track(ctx, repoID); err != nil {
		return fmt.Errorf("track repo: %w", err)
	}

	if err := t.upstream.Subscribe(ctx, []string{repoID}); err != nil {
		return domain.UnavailableError{Service: "upstream-stream", Err: err}
	}

	return nil
}

// Untrack deletes repoID locally and removes it from the upstream
// subscription.
func (t *Tracker) Untrack(ctx context.Context, repoID string) error {
	if err := t.repo.Untrack(ctx, repoID); err != nil {
		return fmt.Errorf("untrack repo: %w", err)
	}

	if err := t.upstream.Unsubscribe(ctx, repoID); err != nil {
		return domain.UnavailableError{Service: "upstream-stream", Err: err}
	}

	return nil
}

// IsTracked queries local state only.
func (t *Tracker) IsTracked(ctx context.Context, repoID string) (bool, error) {
	return t.repo.IsTracked(ctx, repoID)
}

// List returns every tracked repo-id.
func (t *Tracker) List(ctx context.Context) ([]string, error) {
	return t.repo.All(ctx)
}

// Restore re-adds the full tracked set to the upstream subscription in
// batches of restoreBatchSize, called once at ingestion startup.
func (t *Tracker) Restore(ctx context.Context) error {
	ids, err := t.repo.All(ctx)
	if err != nil {
		return fmt.Errorf("load tracked repos: %w", err)
	}

	for start := 0; start < len(ids); start += restoreBatchSize {
		end := start + restoreBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		if err := t.upstream.Subscribe(ctx, ids[start:end]); err != nil {
			t.logger.Warnf("repo tracker: restore batch [%d:%d] failed: %v", start, end, err)
			return domain.UnavailableError{Service: "upstream-stream", Err: err}
		}
	}

	t.logger.Infof("repo tracker: restored %d tracked repos to upstream", len(ids))

	return nil
}
