package indexer

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
	"github.com/barazo-forum/barazo-api/internal/sanitize"
)

// ReplyStore is the persistence port the reply indexer depends on.
type ReplyStore interface {
	// CreateWithRootIncrement inserts the reply and, if it is genuinely
	// new, increments the root topic's reply_count and sets its
	// last_activity_at = now(), all within one transaction. Returns
	// created = false on a duplicate URI (no counter change).
	CreateWithRootIncrement(ctx context.Context, reply domain.Reply) (created bool, err error)
	// UpdateProjection overwrites content/labels/cid only — root and
	// parent are never accepted here, which is how this store enforces
	// the threading-reference immutability invariant (see Update below).
	UpdateProjection(ctx context.Context, uri string, fields ReplyProjection) error
	// SoftDeleteAndDecrement sets the author-deleted flag and, only if
	// rootURI is non-empty, decrements the root topic's reply_count
	// (floored at zero) in the same transaction.
	SoftDeleteAndDecrement(ctx context.Context, uri, rootURI string) error
}

// ReplyProjection is the mutable subset of a reply updated by "update".
type ReplyProjection struct {
	Content    string
	SelfLabels []string
	CID        string
}

// ReplyIndexer maintains the reply table and the root topic's reply_count.
type ReplyIndexer struct {
	store  ReplyStore
	logger ctxlog.Logger
	now    func() time.Time
}

// NewReplyIndexer constructs a ReplyIndexer.
func NewReplyIndexer(store ReplyStore, logger ctxlog.Logger) *ReplyIndexer {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &ReplyIndexer{store: store, logger: logger, now: time.Now}
}

// CreateReplyInput is everything the dispatcher resolves before calling
// Create.
type CreateReplyInput struct {
	URI          string
	RKey         string
	AuthorRepoID string
	Content      string
	RootURI      string
	RootCID      string
	ParentURI    string
	ParentCID    string
	CommunityID  string
	CID          string
	SelfLabels   []string
	CreatedAt    time.Time
	Live         bool
	TrustStatus  domain.TrustStatus
	Moderation   domain.ModerationStatus
}

// Create inserts a reply and, in the same transaction, increments
// reply_count and sets last_activity_at = now() on the root topic. The
// returned bool reports whether the reply was genuinely new, so callers can
// gate interaction-edge recording on it and stay idempotent under
// redelivery.
func (idx *ReplyIndexer) Create(ctx context.Context, in CreateReplyInput) (bool, error) {
	now := idx.now()
	createdAt := ClampCreatedAt(in.CreatedAt, in.Live, now)

	reply := domain.Reply{
		URI:              in.URI,
		RKey:             in.RKey,
		AuthorRepoID:     in.AuthorRepoID,
		Content:          sanitize.Content(in.Content),
		RootURI:          in.RootURI,
		RootCID:          in.RootCID,
		ParentURI:        in.ParentURI,
		ParentCID:        in.ParentCID,
		CommunityID:      in.CommunityID,
		CID:              in.CID,
		SelfLabels:       in.SelfLabels,
		TrustStatus:      in.TrustStatus,
		ModerationStatus: in.Moderation,
		CreatedAt:        createdAt,
		IndexedAt:        now,
	}

	created, err := idx.store.CreateWithRootIncrement(ctx, reply)
	if err != nil {
		idx.logger.Errorf("reply indexer: create %s: %v", in.URI, err)
		return false, err
	}

	if !created {
		idx.logger.Debugf("reply indexer: duplicate create for %s ignored", in.URI)
	}

	return created, nil
}

// Update overwrites content/labels/cid. Root and parent are immutable after
// creation: this method structurally cannot change them, since
// ReplyProjection carries no threading fields.
func (idx *ReplyIndexer) Update(ctx context.Context, uri, content string, selfLabels []string, cid string) error {
	err := idx.store.UpdateProjection(ctx, uri, ReplyProjection{
		Content:    sanitize.Content(content),
		SelfLabels: selfLabels,
		CID:        cid,
	})
	if err != nil {
		idx.logger.Errorf("reply indexer: update %s: %v", uri, err)
		return err
	}

	return nil
}

// Delete is a soft delete; if rootURI is known at delete time, the root's
// reply count is decremented (floored). The live firehose dispatch path
// always calls this with
// rootURI = "" (the delete event carries no record body), so firehose-driven
// reply deletes never decrement reply_count — only a future backfill path
// that recovers the stored root URI before calling Delete would decrement.
// This is preserved verbatim rather than guessed at; see SPEC_FULL.md §D.
func (idx *ReplyIndexer) Delete(ctx context.Context, uri, rootURI string) error {
	if err := idx.store.SoftDeleteAndDecrement(ctx, uri, rootURI); err != nil {
		idx.logger.Errorf("reply indexer: delete %s: %v", uri, err)
		return err
	}

	return nil
}
