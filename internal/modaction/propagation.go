// Package modaction records moderator ban/unban decisions and propagates
// cross-community bans into a global account filter. Grounded on
// components/consumer/internal/adapters/rabbitmq/
// producer.rabbitmq.go's publish-on-write idiom, here publishing a cache
// invalidation event instead of a domain event.
package modaction

import (
	"context"
	"fmt"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// globalBanThreshold is the distinct-community count that triggers
// cross-community propagation.
const globalBanThreshold = 2

// Store persists mod actions and answers the per-community ban query.
type Store interface {
	Record(ctx context.Context, action domain.ModAction) error
	// BannedCommunities returns the set of community ids where targetRepoID's
	// latest action is a ban not superseded by a later unban in that
	// community.
	BannedCommunities(ctx context.Context, targetRepoID string) ([]string, error)
	UpsertAccountFilter(ctx context.Context, filter domain.AccountFilter) error
}

// CacheInvalidator publishes a fan-out cache-invalidation event. Errors are
// non-fatal.
type CacheInvalidator interface {
	PublishInvalidation(ctx context.Context, cacheKey string) error
}

// AuditLog records the full moderation decision history for the review
// queue, independent of Store's ban-state bookkeeping. A write failure here
// is non-fatal: the authoritative ban state already lives in Store.
type AuditLog interface {
	RecordAction(ctx context.Context, action domain.ModAction) error
}

// Propagator applies one mod action and recomputes the global filter.
type Propagator struct {
	store  Store
	cache  CacheInvalidator
	audit  AuditLog
	logger ctxlog.Logger
	now    func() time.Time
}

// New constructs a Propagator. audit may be nil, in which case no audit
// trail is recorded.
func New(store Store, cache CacheInvalidator, audit AuditLog, logger ctxlog.Logger) *Propagator {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Propagator{store: store, cache: cache, audit: audit, logger: logger, now: time.Now}
}

// Apply records action and, if it is a ban/unban, recomputes cross-community
// propagation for its target.
func (p *Propagator) Apply(ctx context.Context, action domain.ModAction) error {
	if err := p.store.Record(ctx, action); err != nil {
		return err
	}

	if p.audit != nil {
		if err := p.audit.RecordAction(ctx, action); err != nil {
			p.logger.Warnf("modaction: audit log write failed for %s/%s: %v", action.TargetRepoID, action.CommunityID, err)
		}
	}

	if action.Kind != domain.ModActionBan && action.Kind != domain.ModActionUnban {
		return nil
	}

	banned, err := p.store.BannedCommunities(ctx, action.TargetRepoID)
	if err != nil {
		return err
	}

	if len(banned) < globalBanThreshold {
		return nil
	}

	filter := domain.AccountFilter{
		RepoID:    action.TargetRepoID,
		Status:    "filtered",
		BanCount:  len(banned),
		UpdatedAt: p.now(),
	}

	if err := p.store.UpsertAccountFilter(ctx, filter); err != nil {
		return err
	}

	cacheKey := fmt.Sprintf("account-filter:%s", action.TargetRepoID)
	if err := p.cache.PublishInvalidation(ctx, cacheKey); err != nil {
		p.logger.Warnf("modaction: cache invalidation publish failed for %s: %v", cacheKey, err)
	}

	return nil
}
