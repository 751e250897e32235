package collection

import "github.com/barazo-forum/barazo-api/internal/domain"

// RecordEvent is the wire shape of a single firehose record operation.
type RecordEvent struct {
	ID         int64
	Action     domain.RecordAction
	DID        string
	Rev        string
	Collection string
	RKey       string
	Record     map[string]any
	CID        string
	Live       bool
}

// IdentityEvent is the wire shape of a firehose identity operation.
type IdentityEvent struct {
	ID       int64
	DID      string
	Handle   string
	IsActive bool
	Status   domain.IdentityStatus
}

// TopicPostRecord is the decoded payload of a forum.*.topic.post record.
type TopicPostRecord struct {
	Title         string
	Content       string
	ContentFormat string
	Category      string
	Tags          []string
	Community     string
	SelfLabels    []string
	CreatedAt     string
}

// RefLink is an {uri, cid} reference, used for root/parent/subject.
type RefLink struct {
	URI string
	CID string
}

// TopicReplyRecord is the decoded payload of a forum.*.topic.reply record.
type TopicReplyRecord struct {
	Content       string
	ContentFormat string
	Root          RefLink
	Parent        RefLink
	Community     string
	SelfLabels    []string
	CreatedAt     string
}

// ReactionRecord is the decoded payload of a forum.*.interaction.reaction
// record.
type ReactionRecord struct {
	Subject   RefLink
	Type      string
	Community string
	CreatedAt string
}
