package indexer

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
	"github.com/barazo-forum/barazo-api/internal/sanitize"
)

// TopicStore is the persistence port the topic indexer depends on; its
// implementation owns transaction boundaries, per the teacher's
// repository-per-entity idiom.
type TopicStore interface {
	// UpsertCreate inserts the topic, conflict-do-nothing on URI. Returns
	// true if a new row was inserted (false means the create was a
	// duplicate; create is idempotent).
	UpsertCreate(ctx context.Context, topic domain.Topic) (created bool, err error)
	// UpdateProjection overwrites the mutable projection of an existing
	// topic and sets indexed_at = now(); it is a no-op if the topic does
	// not exist (out-of-order tolerance).
	UpdateProjection(ctx context.Context, uri string, fields TopicProjection) error
	// SoftDelete sets the author-deleted flag; a no-op if the topic does
	// not exist.
	SoftDelete(ctx context.Context, uri string) error
}

// TopicProjection is the mutable subset of a topic updated by "update".
type TopicProjection struct {
	Title      string
	Content    string
	Category   string
	Tags       []string
	SelfLabels []string
	CID        string
}

// TopicIndexer maintains the topic table.
type TopicIndexer struct {
	store  TopicStore
	logger ctxlog.Logger
	now    func() time.Time
}

// NewTopicIndexer constructs a TopicIndexer.
func NewTopicIndexer(store TopicStore, logger ctxlog.Logger) *TopicIndexer {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &TopicIndexer{store: store, logger: logger, now: time.Now}
}

// CreateTopicInput is everything the dispatcher resolves before calling Create.
type CreateTopicInput struct {
	URI          string
	RKey         string
	AuthorRepoID string
	Title        string
	Content      string
	Category     string
	Tags         []string
	CommunityID  string
	CID          string
	SelfLabels   []string
	CreatedAt    time.Time
	Live         bool
	TrustStatus  domain.TrustStatus
	Moderation   domain.ModerationStatus
}

// Create upserts a topic row keyed by URI and sets last_activity_at =
// created_at.
func (idx *TopicIndexer) Create(ctx context.Context, in CreateTopicInput) error {
	now := idx.now()
	createdAt := ClampCreatedAt(in.CreatedAt, in.Live, now)

	topic := domain.Topic{
		URI:              in.URI,
		RKey:             in.RKey,
		AuthorRepoID:     in.AuthorRepoID,
		Title:            sanitize.Title(in.Title),
		Content:          sanitize.Content(in.Content),
		Category:         in.Category,
		Tags:             in.Tags,
		CommunityID:      in.CommunityID,
		CID:              in.CID,
		SelfLabels:       in.SelfLabels,
		LastActivityAt:   createdAt,
		CreatedAt:        createdAt,
		IndexedAt:        now,
		TrustStatus:      in.TrustStatus,
		ModerationStatus: in.Moderation,
	}

	created, err := idx.store.UpsertCreate(ctx, topic)
	if err != nil {
		idx.logger.Errorf("topic indexer: create %s: %v", in.URI, err)
		return err
	}

	if !created {
		idx.logger.Debugf("topic indexer: duplicate create for %s ignored", in.URI)
	}

	return nil
}

// Update overwrites title/content/category/tags/labels/cid.
func (idx *TopicIndexer) Update(ctx context.Context, uri, title, content, category string, tags, selfLabels []string, cid string) error {
	err := idx.store.UpdateProjection(ctx, uri, TopicProjection{
		Title:      sanitize.Title(title),
		Content:    sanitize.Content(content),
		Category:   category,
		Tags:       tags,
		SelfLabels: selfLabels,
		CID:        cid,
	})
	if err != nil {
		idx.logger.Errorf("topic indexer: update %s: %v", uri, err)
		return err
	}

	return nil
}

// Delete is a soft delete: it sets the author-deleted flag; the row and
// its aggregates remain for referential integrity.
func (idx *TopicIndexer) Delete(ctx context.Context, uri string) error {
	if err := idx.store.SoftDelete(ctx, uri); err != nil {
		idx.logger.Errorf("topic indexer: delete %s: %v", uri, err)
		return err
	}

	return nil
}
