// Package identity consumes identity-lifecycle events (handle changes,
// account takedown/suspension/deletion) and keeps the local user row and
// authored content in sync. Grounded on the coves jetstream consumers'
// collection/operation switch in HandleEvent, generalized here to
// identity-status events rather than record collections; the
// purge-transaction ordering is original (no teacher/pack analog covers
// an identity-deletion cascade).
package identity

import (
	"context"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// Store is the persistence port the identity handler depends on.
type Store interface {
	// UpsertActive sets handle and last_active_at = now on the user row,
	// inserting it if absent (account-created-at left null; the dispatcher
	// is responsible for backfilling it).
	UpsertActive(ctx context.Context, repoID, handle string) error
	// PurgeAccount deletes, in one transaction and in this order, every
	// reaction, reply, and topic authored by repoID, then the user row,
	// then the tracked-repo entry. Aggregates on ex-targets (reply_count,
	// reaction_count of content this account reacted to or replied under)
	// are intentionally left unrepaired: identity-deletion purges
	// authorship only.
	PurgeAccount(ctx context.Context, repoID string) error
}

// Handler applies identity events to the Store.
type Handler struct {
	store  Store
	logger ctxlog.Logger
}

// New constructs a Handler.
func New(store Store, logger ctxlog.Logger) *Handler {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Handler{store: store, logger: logger}
}

// Handle dispatches on the event's status.
func (h *Handler) Handle(ctx context.Context, evt domain.IdentityStatus, repoID, handle string) error {
	switch evt {
	case domain.IdentityActive:
		if err := h.store.UpsertActive(ctx, repoID, handle); err != nil {
			h.logger.Errorf("identity handler: upsert active %s: %v", repoID, err)
			return err
		}
	case domain.IdentityDeleted:
		if err := h.store.PurgeAccount(ctx, repoID); err != nil {
			h.logger.Errorf("identity handler: purge %s: %v", repoID, err)
			return err
		}
	case domain.IdentityTakendown, domain.IdentitySuspended, domain.IdentityDeactivated:
		h.logger.Infof("identity handler: %s status=%s (log only)", repoID, evt)
	default:
		h.logger.Warnf("identity handler: unknown status %q for %s", evt, repoID)
	}

	return nil
}
