package indexer

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// ReactionStore is the persistence port the reaction indexer depends on.
type ReactionStore interface {
	// CreateWithSubjectIncrement inserts the reaction, conflict-do-nothing
	// on (author, subject URI, type), and increments the subject's
	// reaction_count column (chosen by kind) when the row is new.
	CreateWithSubjectIncrement(ctx context.Context, reaction domain.Reaction) (created bool, err error)
	// DeleteAndDecrement removes the reaction and decrements the subject's
	// reaction_count (floored at zero).
	DeleteAndDecrement(ctx context.Context, uri string) error
}

// ReactionIndexer maintains the reaction table and subject reaction counts.
// There is no Update: reactions are immutable once created.
type ReactionIndexer struct {
	store  ReactionStore
	logger ctxlog.Logger
	now    func() time.Time
}

// NewReactionIndexer constructs a ReactionIndexer.
func NewReactionIndexer(store ReactionStore, logger ctxlog.Logger) *ReactionIndexer {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &ReactionIndexer{store: store, logger: logger, now: time.Now}
}

// CreateReactionInput is everything the dispatcher resolves before calling
// Create.
type CreateReactionInput struct {
	URI          string
	RKey         string
	AuthorRepoID string
	SubjectURI   string
	SubjectCID   string
	SubjectKind  domain.SubjectKind
	Type         string
	CommunityID  string
	CreatedAt    time.Time
	Live         bool
}

// Create inserts a reaction and increments the subject's reaction count,
// honoring the (author, subject, type) uniqueness invariant. The returned
// bool reports whether the reaction was genuinely new, so callers can gate
// interaction-edge recording on it and stay idempotent under redelivery.
func (idx *ReactionIndexer) Create(ctx context.Context, in CreateReactionInput) (bool, error) {
	now := idx.now()
	createdAt := ClampCreatedAt(in.CreatedAt, in.Live, now)

	reaction := domain.Reaction{
		URI:          in.URI,
		RKey:         in.RKey,
		AuthorRepoID: in.AuthorRepoID,
		SubjectURI:   in.SubjectURI,
		SubjectCID:   in.SubjectCID,
		SubjectKind:  in.SubjectKind,
		Type:         in.Type,
		CommunityID:  in.CommunityID,
		CreatedAt:    createdAt,
	}

	created, err := idx.store.CreateWithSubjectIncrement(ctx, reaction)
	if err != nil {
		idx.logger.Errorf("reaction indexer: create %s: %v", in.URI, err)
		return false, err
	}

	if !created {
		idx.logger.Debugf("reaction indexer: duplicate reaction for %s ignored", in.URI)
	}

	return created, nil
}

// Delete removes the reaction and decrements the subject's reaction count.
func (idx *ReactionIndexer) Delete(ctx context.Context, uri string) error {
	if err := idx.store.DeleteAndDecrement(ctx, uri); err != nil {
		idx.logger.Errorf("reaction indexer: delete %s: %v", uri, err)
		return err
	}

	return nil
}
