package postgres

import (
	"database/sql"
	"context"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/heuristics"
	"github.com/barazo-forum/barazo-api/internal/indexer"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
)

// Topics implements indexer.TopicStore.
type Topics struct {
	conn *dbpg.Connection
}

// NewTopics constructs a Topics repository.
func NewTopics(conn *dbpg.Connection) *Topics { return &Topics{conn: conn} }

// UpsertCreate implements indexer.TopicStore.
func (t *Topics) UpsertCreate(ctx context.Context, topic domain.Topic) (bool, error) {
	handle, err := db(ctx, t.conn)
	if err != nil {
		return false, err
	}

	result, err := handle.ExecContext(ctx, `
		INSERT INTO topics (uri, rkey, author_repo_id, title, content, category, tags, community_id, cid,
			self_labels, reply_count, reaction_count, last_activity_at, created_at, indexed_at, trust_status,
			moderation_status, author_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, 0, $11, $11, $11, $12, $13, false)
		ON CONFLICT (uri) DO NOTHING`,
		topic.URI, topic.RKey, topic.AuthorRepoID, topic.Title, topic.Content, topic.Category,
		stringArray(topic.Tags), topic.CommunityID, topic.CID, stringArray(topic.SelfLabels),
		topic.CreatedAt, topic.TrustStatus, topic.ModerationStatus)
	if err != nil {
		return false, mapPGError(err, "Topic")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// UpdateProjection implements indexer.TopicStore.
func (t *Topics) UpdateProjection(ctx context.Context, uri string, fields indexer.TopicProjection) error {
	handle, err := db(ctx, t.conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `
		UPDATE topics SET title = $1, content = $2, category = $3, tags = $4, self_labels = $5, cid = $6,
			indexed_at = $7
		WHERE uri = $8`,
		fields.Title, fields.Content, fields.Category, stringArray(fields.Tags), stringArray(fields.SelfLabels),
		fields.CID, time.Now(), uri)

	return err
}

// SoftDelete implements indexer.TopicStore.
func (t *Topics) SoftDelete(ctx context.Context, uri string) error {
	handle, err := db(ctx, t.conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `UPDATE topics SET author_deleted = true, indexed_at = $1 WHERE uri = $2`, time.Now(), uri)

	return err
}

// Replies implements indexer.ReplyStore.
type Replies struct {
	conn *dbpg.Connection
}

// NewReplies constructs a Replies repository.
func NewReplies(conn *dbpg.Connection) *Replies { return &Replies{conn: conn} }

// CreateWithRootIncrement implements indexer.ReplyStore: inserting a reply
// and bumping the parent topic's reply_count happen in one transaction so a
// crash between the two never leaves the counter short.
func (r *Replies) CreateWithRootIncrement(ctx context.Context, reply domain.Reply) (bool, error) {
	handle, err := db(ctx, r.conn)
	if err != nil {
		return false, err
	}

	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO replies (uri, rkey, author_repo_id, content, root_uri, root_cid, parent_uri, parent_cid,
			community_id, cid, self_labels, reaction_count, trust_status, moderation_status, created_at,
			indexed_at, author_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12, $13, $14, $14, false)
		ON CONFLICT (uri) DO NOTHING`,
		reply.URI, reply.RKey, reply.AuthorRepoID, reply.Content, reply.RootURI, reply.RootCID,
		reply.ParentURI, reply.ParentCID, reply.CommunityID, reply.CID, stringArray(reply.SelfLabels),
		reply.TrustStatus, reply.ModerationStatus, reply.CreatedAt)
	if err != nil {
		return false, mapPGError(err, "Reply")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if n == 0 {
		return false, tx.Commit()
	}

	if reply.RootURI != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE topics SET reply_count = reply_count + 1, last_activity_at = now() WHERE uri = $1`,
			reply.RootURI); err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}

// UpdateProjection implements indexer.ReplyStore.
func (r *Replies) UpdateProjection(ctx context.Context, uri string, fields indexer.ReplyProjection) error {
	handle, err := db(ctx, r.conn)
	if err != nil {
		return err
	}

	_, err = handle.ExecContext(ctx, `UPDATE replies SET content = $1, self_labels = $2, cid = $3, indexed_at = $4 WHERE uri = $5`,
		fields.Content, stringArray(fields.SelfLabels), fields.CID, time.Now(), uri)

	return err
}

// SoftDeleteAndDecrement implements indexer.ReplyStore. rootURI == "" skips
// the decrement, per the reply indexer's documented live-dispatch quirk.
func (r *Replies) SoftDeleteAndDecrement(ctx context.Context, uri, rootURI string) error {
	handle, err := db(ctx, r.conn)
	if err != nil {
		return err
	}

	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE replies SET author_deleted = true, indexed_at = $1 WHERE uri = $2`, time.Now(), uri); err != nil {
		return err
	}

	if rootURI != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE topics SET reply_count = GREATEST(reply_count - 1, 0) WHERE uri = $1`, rootURI); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Reactions implements indexer.ReactionStore.
type Reactions struct {
	conn *dbpg.Connection
}

// NewReactions constructs a Reactions repository.
func NewReactions(conn *dbpg.Connection) *Reactions { return &Reactions{conn: conn} }

// subjectTable maps a reaction's subject kind to the table whose
// reaction_count column tracks it.
func subjectTable(kind domain.SubjectKind) string {
	if kind == domain.SubjectReply {
		return "replies"
	}

	return "topics"
}

// CreateWithSubjectIncrement implements indexer.ReactionStore.
func (r *Reactions) CreateWithSubjectIncrement(ctx context.Context, reaction domain.Reaction) (bool, error) {
	handle, err := db(ctx, r.conn)
	if err != nil {
		return false, err
	}

	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO reactions (uri, rkey, author_repo_id, subject_uri, subject_cid, subject_kind, type,
			community_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (author_repo_id, subject_uri, type) DO NOTHING`,
		reaction.URI, reaction.RKey, reaction.AuthorRepoID, reaction.SubjectURI, reaction.SubjectCID,
		reaction.SubjectKind, reaction.Type, reaction.CommunityID, reaction.CreatedAt)
	if err != nil {
		return false, mapPGError(err, "Reaction")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if n == 0 {
		return false, tx.Commit()
	}

	table := subjectTable(reaction.SubjectKind)

	if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET reaction_count = reaction_count + 1 WHERE uri = $1`, reaction.SubjectURI); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// DeleteAndDecrement implements indexer.ReactionStore.
func (r *Reactions) DeleteAndDecrement(ctx context.Context, uri string) error {
	handle, err := db(ctx, r.conn)
	if err != nil {
		return err
	}

	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var subjectURI string
	var subjectKind string

	row := tx.QueryRowContext(ctx, `DELETE FROM reactions WHERE uri = $1 RETURNING subject_uri, subject_kind`, uri)
	if err := row.Scan(&subjectURI, &subjectKind); err != nil {
		if err == sql.ErrNoRows {
			return tx.Commit()
		}

		return err
	}

	table := subjectTable(domain.SubjectKind(subjectKind))

	if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET reaction_count = GREATEST(reaction_count - 1, 0) WHERE uri = $1`, subjectURI); err != nil {
		return err
	}

	return tx.Commit()
}

// ReactionsSince implements heuristics.ReactionWindowSource.
func (r *Reactions) ReactionsSince(ctx context.Context, since time.Time) ([]domain.Reaction, error) {
	handle, err := db(ctx, r.conn)
	if err != nil {
		return nil, err
	}

	rows, err := handle.QueryContext(ctx, `
		SELECT uri, rkey, author_repo_id, subject_uri, subject_cid, subject_kind, type, community_id, created_at
		FROM reactions WHERE created_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []domain.Reaction

	for rows.Next() {
		var reaction domain.Reaction
		var subjectKind string

		if err := rows.Scan(&reaction.URI, &reaction.RKey, &reaction.AuthorRepoID, &reaction.SubjectURI,
			&reaction.SubjectCID, &subjectKind, &reaction.Type, &reaction.CommunityID, &reaction.CreatedAt); err != nil {
			return nil, err
		}

		reaction.SubjectKind = domain.SubjectKind(subjectKind)
		reactions = append(reactions, reaction)
	}

	return reactions, rows.Err()
}

// ContentWindow implements heuristics.ContentWindowSource against the
// topics and replies tables combined, since the similarity detector treats
// both kinds of authored text uniformly.
type ContentWindow struct {
	conn *dbpg.Connection
}

// NewContentWindow constructs a ContentWindow repository.
func NewContentWindow(conn *dbpg.Connection) *ContentWindow { return &ContentWindow{conn: conn} }

// ContentSince implements heuristics.ContentWindowSource.
func (c *ContentWindow) ContentSince(ctx context.Context, since time.Time) ([]heuristics.ContentItem, error) {
	handle, err := db(ctx, c.conn)
	if err != nil {
		return nil, err
	}

	var items []heuristics.ContentItem

	topicRows, err := handle.QueryContext(ctx, `
		SELECT uri, author_repo_id, title || ' ' || content FROM topics WHERE created_at >= $1 AND NOT author_deleted`, since)
	if err != nil {
		return nil, err
	}
	defer topicRows.Close()

	for topicRows.Next() {
		var item heuristics.ContentItem
		if err := topicRows.Scan(&item.URI, &item.AuthorRepoID, &item.Text); err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	if err := topicRows.Err(); err != nil {
		return nil, err
	}

	replyRows, err := handle.QueryContext(ctx, `
		SELECT uri, author_repo_id, content FROM replies WHERE created_at >= $1 AND NOT author_deleted`, since)
	if err != nil {
		return nil, err
	}
	defer replyRows.Close()

	for replyRows.Next() {
		var item heuristics.ContentItem
		if err := replyRows.Scan(&item.URI, &item.AuthorRepoID, &item.Text); err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, replyRows.Err()
}
