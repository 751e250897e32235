// Package collection names the forum lexicon's collection NSIDs and the
// dispatch-table shape that maps one to its indexer, generalized from the
// single-collection switch in other_examples' coves jetstream comment
// consumer (HandleEvent's collection discriminant) to a three-collection
// registry covering topic posts, replies, and reactions.
package collection

import "strings"

// NSID suffixes are matched against the full collection string with
// strings.HasSuffix so that any namespace segment ("forum.<ns>.topic.post")
// routes to the same indexer.
const (
	TopicPostSuffix     = ".topic.post"
	TopicReplySuffix    = ".topic.reply"
	ReactionSuffix      = ".interaction.reaction"
)

// Kind identifies which indexer a collection routes to.
type Kind string

const (
	KindTopicPost Kind = "topic_post"
	KindReply     Kind = "reply"
	KindReaction  Kind = "reaction"
	KindUnknown   Kind = "unknown"
)

// Classify maps a collection NSID to the indexer Kind that handles it.
// Unknown collections classify as KindUnknown and are silently ignored by
// the dispatcher.
func Classify(nsid string) Kind {
	switch {
	case strings.HasSuffix(nsid, TopicPostSuffix):
		return KindTopicPost
	case strings.HasSuffix(nsid, TopicReplySuffix):
		return KindReply
	case strings.HasSuffix(nsid, ReactionSuffix):
		return KindReaction
	default:
		return KindUnknown
	}
}

// Supported reports whether a collection is handled at all.
func Supported(nsid string) bool {
	return Classify(nsid) != KindUnknown
}
