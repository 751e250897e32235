// Package domain holds the entity shapes, record-URI value type, and typed
// error taxonomy shared across every other internal package.
package domain

import "time"

// Role is a user's privilege level.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// TrustStatus tags a record with the author's account-age classification
// at the moment it was indexed.
type TrustStatus string

const (
	TrustNew     TrustStatus = "new"
	TrustTrusted TrustStatus = "trusted"
)

// ModerationStatus is the post-indexing moderation state of a topic or reply.
type ModerationStatus string

const (
	ModerationApproved ModerationStatus = "approved"
	ModerationHeld     ModerationStatus = "held"
	ModerationRejected ModerationStatus = "rejected"
)

// GlobalScope is the empty-string sentinel used wherever a community id
// column represents "all communities" (trust seeds/scores, account filter).
// Kept as a plain string rather than an enum since scope ids are otherwise
// free-form community identifiers.
const GlobalScope = ""

// IdentityStatus mirrors the upstream identity event's status field.
type IdentityStatus string

const (
	IdentityActive      IdentityStatus = "active"
	IdentityTakendown   IdentityStatus = "takendown"
	IdentitySuspended   IdentityStatus = "suspended"
	IdentityDeactivated IdentityStatus = "deactivated"
	IdentityDeleted     IdentityStatus = "deleted"
)

// RecordAction mirrors the upstream record event's action field.
type RecordAction string

const (
	ActionCreate RecordAction = "create"
	ActionUpdate RecordAction = "update"
	ActionDelete RecordAction = "delete"
)

// TrackedRepo is a repo-id the ingestion service has subscribed to.
type TrackedRepo struct {
	RepoID    string
	CreatedAt time.Time
}

// User is keyed by repo-id.
type User struct {
	RepoID          string
	Handle          string
	Role            Role
	Banned          bool
	ReputationScore float64
	FirstSeenAt     time.Time
	LastActiveAt    time.Time
	AccountCreated  *time.Time
	DeclaredAge     *int
	MaturityPref    string
}

// Topic is keyed by URI.
type Topic struct {
	URI              string
	RKey             string
	AuthorRepoID     string
	Title            string
	Content          string
	Category         string
	Tags             []string
	CommunityID      string
	CID              string
	SelfLabels       []string
	ReplyCount       int64
	ReactionCount    int64
	LastActivityAt   time.Time
	CreatedAt        time.Time
	IndexedAt        time.Time
	TrustStatus      TrustStatus
	ModerationStatus ModerationStatus
	AuthorDeleted    bool
}

// Reply is keyed by URI.
type Reply struct {
	URI              string
	RKey             string
	AuthorRepoID     string
	Content          string
	RootURI          string
	RootCID          string
	ParentURI        string
	ParentCID        string
	CommunityID      string
	CID              string
	SelfLabels       []string
	ReactionCount    int64
	TrustStatus      TrustStatus
	ModerationStatus ModerationStatus
	CreatedAt        time.Time
	IndexedAt        time.Time
	AuthorDeleted    bool
}

// SubjectKind discriminates a reaction's subject between a topic and a reply,
// derived by parsing the collection segment of the subject URI.
type SubjectKind string

const (
	SubjectTopic SubjectKind = "topic"
	SubjectReply SubjectKind = "reply"
)

// Reaction is keyed by URI; (author, subject URI, type) is unique.
type Reaction struct {
	URI          string
	RKey         string
	AuthorRepoID string
	SubjectURI   string
	SubjectCID   string
	SubjectKind  SubjectKind
	Type         string
	CommunityID  string
	CreatedAt    time.Time
}

// InteractionKind classifies an edge in the interaction graph.
type InteractionKind string

const (
	InteractionReply              InteractionKind = "reply"
	InteractionReaction           InteractionKind = "reaction"
	InteractionTopicCoparticipant InteractionKind = "topic-coparticipation"
)

// InteractionEdge is a directed, weighted edge keyed on the 4-tuple
// (source, target, community, kind).
type InteractionEdge struct {
	Source      string
	Target      string
	CommunityID string
	Kind        InteractionKind
	Weight      int64
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// TrustSeed asserts a repo-id is trustworthy within a scope.
type TrustSeed struct {
	RepoID string
	Scope  string
}

// TrustScore is the persisted EigenTrust result for (repo-id, scope).
type TrustScore struct {
	RepoID     string
	Scope      string
	Score      float64
	ComputedAt time.Time
}

// SybilClusterStatus is the moderation lifecycle of a detected cluster.
type SybilClusterStatus string

const (
	SybilFlagged    SybilClusterStatus = "flagged"
	SybilDismissed  SybilClusterStatus = "dismissed"
	SybilMonitoring SybilClusterStatus = "monitoring"
	SybilBanned     SybilClusterStatus = "banned"
)

// MemberRole distinguishes densely-connected core members from peripheral
// ones within a flagged cluster.
type MemberRole string

const (
	MemberCore       MemberRole = "core"
	MemberPeripheral MemberRole = "peripheral"
)

// SybilCluster is keyed by a stable hash of its sorted member set.
type SybilCluster struct {
	Hash          string
	Scope         string
	InternalEdges int64
	ExternalEdges int64
	MemberCount   int
	Status        SybilClusterStatus
	DetectedAt    time.Time
	UpdatedAt     time.Time
}

// SybilMember is one row of a cluster's member list.
type SybilMember struct {
	ClusterHash string
	RepoID      string
	Role        MemberRole
}

// Session is a KV-backed authenticated session.
type Session struct {
	SessionID string
	RepoID    string
	Handle    string
	Scopes    []string
	ExpiresAt time.Time
}

// BehavioralFlagType names one of the three independent heuristics.
type BehavioralFlagType string

const (
	FlagBurstVoting      BehavioralFlagType = "burst_voting"
	FlagContentSimilarity BehavioralFlagType = "content_similarity"
	FlagLowDiversity     BehavioralFlagType = "low_diversity"
)

// BehavioralFlag is an output of the heuristics detectors, persisted as a
// freeform document.
type BehavioralFlag struct {
	Type         BehavioralFlagType
	AffectedIDs  []string
	Details      map[string]any
	DetectedAt   time.Time
}

// ModActionKind distinguishes a ban from an unban.
type ModActionKind string

const (
	ModActionBan   ModActionKind = "ban"
	ModActionUnban ModActionKind = "unban"
)

// ModAction is one moderator decision against a target repo-id within a
// community.
type ModAction struct {
	TargetRepoID string
	CommunityID  string
	Kind         ModActionKind
	ActorRepoID  string
	CreatedAt    time.Time
}

// AccountFilter is the global cross-community ban-propagation outcome.
type AccountFilter struct {
	RepoID    string
	Status    string
	BanCount  int
	UpdatedAt time.Time
}
