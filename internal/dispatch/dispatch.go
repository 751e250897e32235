// Package dispatch is the record dispatcher: it validates an incoming
// record event, resolves the author's trust status under a three-branch
// lookup/backfill/insert-stub rule, decodes the record payload for its
// collection, and routes to the matching indexer. Grounded on the coves
// jetstream consumer's HandleEvent collection switch, extended with the
// trust-gating branch that has no direct analog in the pack (original to
// this module, worked out from first principles).
package dispatch

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/accountage"
	"github.com/barazo-forum/barazo-api/internal/collection"
	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/indexer"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
	"github.com/barazo-forum/barazo-api/internal/validate"
)

// UserLookup is the subset of the user store the dispatcher needs to run
// the trust-gating branches.
type UserLookup interface {
	// AccountCreated returns the user's stored account-created-at, and
	// whether a user row exists at all.
	AccountCreated(ctx context.Context, repoID string) (createdAt *time.Time, exists bool, err error)
	// BackfillAccountCreated sets account-created-at on an existing row.
	BackfillAccountCreated(ctx context.Context, repoID string, createdAt *time.Time) error
	// InsertStub inserts a new user row with handle stubbed to repoID and
	// the given account-created-at, conflict-do-nothing.
	InsertStub(ctx context.Context, repoID string, createdAt *time.Time) error
}

// AccountAgeOracle resolves an author's account-creation timestamp.
type AccountAgeOracle interface {
	ResolveCreationDate(ctx context.Context, repoID string) (*time.Time, error)
}

// EdgeRecorder persists one interaction-graph edge, upserting its weight and
// last-seen timestamp. Both the reputation engine and the sybil detector
// read from whatever store this writes to.
type EdgeRecorder interface {
	RecordEdge(ctx context.Context, edge domain.InteractionEdge) error
}

// Dispatcher routes validated record events to the matching indexer.
type Dispatcher struct {
	users      UserLookup
	oracle     AccountAgeOracle
	topics     *indexer.TopicIndexer
	replies    *indexer.ReplyIndexer
	reactions  *indexer.ReactionIndexer
	edges      EdgeRecorder
	holdLabels map[string]bool
	logger     ctxlog.Logger
	now        func() time.Time
}

// New constructs a Dispatcher. holdLabels names the self-labels that put a
// newly-created topic or reply into moderation hold instead of approved.
func New(users UserLookup, oracle AccountAgeOracle, topics *indexer.TopicIndexer, replies *indexer.ReplyIndexer, reactions *indexer.ReactionIndexer, edges EdgeRecorder, holdLabels []string, logger ctxlog.Logger) *Dispatcher {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	held := make(map[string]bool, len(holdLabels))
	for _, label := range holdLabels {
		held[label] = true
	}

	return &Dispatcher{
		users:      users,
		oracle:     oracle,
		topics:     topics,
		replies:    replies,
		reactions:  reactions,
		edges:      edges,
		holdLabels: held,
		logger:     logger,
		now:        time.Now,
	}
}

// moderationStatus holds a record back from approved when any of its
// self-labels is in the configured hold set.
func (d *Dispatcher) moderationStatus(selfLabels []string) domain.ModerationStatus {
	for _, label := range selfLabels {
		if d.holdLabels[label] {
			return domain.ModerationHeld
		}
	}

	return domain.ModerationApproved
}

// recordEdge upserts one interaction edge, skipping self-loops and edges
// whose other end can't be resolved; the edge recorder is optional so tests
// and other callers may omit it.
func (d *Dispatcher) recordEdge(ctx context.Context, source, targetURI string, kind domain.InteractionKind, communityID string) {
	if d.edges == nil || targetURI == "" {
		return
	}

	ref, err := domain.ParseRecordURI(targetURI)
	if err != nil {
		d.logger.Warnf("dispatcher: unparseable %s target %q, skipping edge: %v", kind, targetURI, err)
		return
	}

	if ref.Repo == source {
		return
	}

	now := d.now()

	if err := d.edges.RecordEdge(ctx, domain.InteractionEdge{
		Source:      source,
		Target:      ref.Repo,
		CommunityID: communityID,
		Kind:        kind,
		LastSeenAt:  now,
	}); err != nil {
		d.logger.Errorf("dispatcher: record %s edge %s->%s: %v", kind, source, ref.Repo, err)
	}
}

// Dispatch validates, classifies, and routes evt. Unknown collections and
// delete/update actions for unsupported collections are silently ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, evt collection.RecordEvent) error {
	kind := collection.Classify(evt.Collection)
	if kind == collection.KindUnknown {
		d.logger.Debugf("dispatcher: ignoring unknown collection %q", evt.Collection)
		return nil
	}

	uri := domain.BuildRecordURI(evt.DID, evt.Collection, evt.RKey)

	switch evt.Action {
	case domain.ActionDelete:
		return d.dispatchDelete(ctx, kind, uri, evt)
	case domain.ActionUpdate:
		return d.dispatchUpdate(ctx, kind, uri, evt)
	case domain.ActionCreate:
		if result := validate.Record(evt.Collection, evt.Record); !result.OK {
			d.logger.Warnf("dispatcher: rejecting %s: %s", uri, result.Reason)
			return nil
		}
		return d.dispatchCreate(ctx, kind, uri, evt)
	default:
		d.logger.Warnf("dispatcher: unknown action %q for %s", evt.Action, uri)
		return nil
	}
}

func (d *Dispatcher) dispatchCreate(ctx context.Context, kind collection.Kind, uri string, evt collection.RecordEvent) error {
	trustStatus, err := d.resolveTrustStatus(ctx, evt.DID)
	if err != nil {
		d.logger.Warnf("dispatcher: trust resolution failed for %s, failing open to trusted: %v", evt.DID, err)
		trustStatus = domain.TrustTrusted
	}

	switch kind {
	case collection.KindTopicPost:
		rec := decodeTopicPost(evt.Record)
		return d.topics.Create(ctx, indexer.CreateTopicInput{
			URI:          uri,
			RKey:         evt.RKey,
			AuthorRepoID: evt.DID,
			Title:        rec.Title,
			Content:      rec.Content,
			Category:     rec.Category,
			Tags:         rec.Tags,
			CommunityID:  rec.Community,
			CID:          evt.CID,
			SelfLabels:   rec.SelfLabels,
			CreatedAt:    parseTimestamp(rec.CreatedAt, d.now()),
			Live:         evt.Live,
			TrustStatus:  trustStatus,
			Moderation:   d.moderationStatus(rec.SelfLabels),
		})
	case collection.KindReply:
		rec := decodeTopicReply(evt.Record)

		created, err := d.replies.Create(ctx, indexer.CreateReplyInput{
			URI:          uri,
			RKey:         evt.RKey,
			AuthorRepoID: evt.DID,
			Content:      rec.Content,
			RootURI:      rec.Root.URI,
			RootCID:      rec.Root.CID,
			ParentURI:    rec.Parent.URI,
			ParentCID:    rec.Parent.CID,
			CommunityID:  rec.Community,
			CID:          evt.CID,
			SelfLabels:   rec.SelfLabels,
			CreatedAt:    parseTimestamp(rec.CreatedAt, d.now()),
			Live:         evt.Live,
			TrustStatus:  trustStatus,
			Moderation:   d.moderationStatus(rec.SelfLabels),
		})
		if err != nil {
			return err
		}

		if created {
			d.recordEdge(ctx, evt.DID, rec.Parent.URI, domain.InteractionReply, rec.Community)
			d.recordEdge(ctx, evt.DID, rec.Root.URI, domain.InteractionTopicCoparticipant, rec.Community)
		}

		return nil
	case collection.KindReaction:
		rec := decodeReaction(evt.Record)

		created, err := d.reactions.Create(ctx, indexer.CreateReactionInput{
			URI:          uri,
			RKey:         evt.RKey,
			AuthorRepoID: evt.DID,
			SubjectURI:   rec.Subject.URI,
			SubjectCID:   rec.Subject.CID,
			SubjectKind:  subjectKind(rec.Subject.URI),
			Type:         rec.Type,
			CommunityID:  rec.Community,
			CreatedAt:    parseTimestamp(rec.CreatedAt, d.now()),
			Live:         evt.Live,
		})
		if err != nil {
			return err
		}

		if created {
			d.recordEdge(ctx, evt.DID, rec.Subject.URI, domain.InteractionReaction, rec.Community)
		}

		return nil
	default:
		return nil
	}
}

func (d *Dispatcher) dispatchUpdate(ctx context.Context, kind collection.Kind, uri string, evt collection.RecordEvent) error {
	switch kind {
	case collection.KindTopicPost:
		rec := decodeTopicPost(evt.Record)
		return d.topics.Update(ctx, uri, rec.Title, rec.Content, rec.Category, rec.Tags, rec.SelfLabels, evt.CID)
	case collection.KindReply:
		rec := decodeTopicReply(evt.Record)
		return d.replies.Update(ctx, uri, rec.Content, rec.SelfLabels, evt.CID)
	case collection.KindReaction:
		// Reactions are immutable; there is no update path.
		return nil
	default:
		return nil
	}
}

func (d *Dispatcher) dispatchDelete(ctx context.Context, kind collection.Kind, uri string, evt collection.RecordEvent) error {
	switch kind {
	case collection.KindTopicPost:
		return d.topics.Delete(ctx, uri)
	case collection.KindReply:
		// The live firehose delete event carries no record body, so the
		// root URI is unknown here; see ReplyIndexer.Delete's doc comment
		// for why this disables the reply_count decrement on this path.
		return d.replies.Delete(ctx, uri, "")
	case collection.KindReaction:
		return d.reactions.Delete(ctx, uri)
	default:
		return nil
	}
}

// resolveTrustStatus runs the three-branch account-trust lookup.
func (d *Dispatcher) resolveTrustStatus(ctx context.Context, repoID string) (domain.TrustStatus, error) {
	createdAt, exists, err := d.users.AccountCreated(ctx, repoID)
	if err != nil {
		return "", err
	}

	if exists && createdAt != nil {
		return accountage.DetermineTrustStatus(createdAt, d.now()), nil
	}

	resolved, err := d.oracle.ResolveCreationDate(ctx, repoID)
	if err != nil {
		return "", err
	}

	if exists {
		if err := d.users.BackfillAccountCreated(ctx, repoID, resolved); err != nil {
			return "", err
		}
	} else if err := d.users.InsertStub(ctx, repoID, resolved); err != nil {
		return "", err
	}

	return accountage.DetermineTrustStatus(resolved, d.now()), nil
}

func parseTimestamp(raw string, fallback time.Time) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}

	return fallback
}

func subjectKind(subjectURI string) domain.SubjectKind {
	ref, err := domain.ParseRecordURI(subjectURI)
	if err != nil {
		return domain.SubjectTopic
	}

	if collection.Classify(ref.Collection) == collection.KindReply {
		return domain.SubjectReply
	}

	return domain.SubjectTopic
}

func decodeTopicPost(raw map[string]any) collection.TopicPostRecord {
	return collection.TopicPostRecord{
		Title:      str(raw, "title"),
		Content:    str(raw, "content"),
		Category:   str(raw, "category"),
		Tags:       strSlice(raw, "tags"),
		Community:  str(raw, "community"),
		SelfLabels: labelValues(raw),
		CreatedAt:  str(raw, "createdAt"),
	}
}

func decodeTopicReply(raw map[string]any) collection.TopicReplyRecord {
	return collection.TopicReplyRecord{
		Content:    str(raw, "content"),
		Root:       refLink(raw, "root"),
		Parent:     refLink(raw, "parent"),
		Community:  str(raw, "community"),
		SelfLabels: labelValues(raw),
		CreatedAt:  str(raw, "createdAt"),
	}
}

func decodeReaction(raw map[string]any) collection.ReactionRecord {
	return collection.ReactionRecord{
		Subject:   refLink(raw, "subject"),
		Type:      str(raw, "type"),
		Community: str(raw, "community"),
		CreatedAt: str(raw, "createdAt"),
	}
}

func str(raw map[string]any, field string) string {
	s, _ := raw[field].(string)
	return s
}

func strSlice(raw map[string]any, field string) []string {
	v, ok := raw[field].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(v))
	for _, item := range v {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

// labelValues extracts the val of each entry in the record's
// labels: {values: [{val}]} object.
func labelValues(raw map[string]any) []string {
	labels, _ := raw["labels"].(map[string]any)
	values, _ := labels["values"].([]any)

	var out []string
	for _, item := range values {
		entry, _ := item.(map[string]any)
		if val := str(entry, "val"); val != "" {
			out = append(out, val)
		}
	}

	return out
}

func refLink(raw map[string]any, field string) collection.RefLink {
	m, _ := raw[field].(map[string]any)
	return collection.RefLink{URI: str(m, "uri"), CID: str(m, "cid")}
}
