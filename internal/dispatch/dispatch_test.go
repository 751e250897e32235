package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/collection"
	"github.com/barazo-forum/barazo-api/internal/dispatch"
	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/indexer"
)

type fakeUsers struct {
	accounts   map[string]*time.Time
	exists     map[string]bool
	backfilled map[string]*time.Time
	inserted   map[string]*time.Time
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		accounts:   map[string]*time.Time{},
		exists:     map[string]bool{},
		backfilled: map[string]*time.Time{},
		inserted:   map[string]*time.Time{},
	}
}

func (f *fakeUsers) AccountCreated(ctx context.Context, repoID string) (*time.Time, bool, error) {
	return f.accounts[repoID], f.exists[repoID], nil
}

func (f *fakeUsers) BackfillAccountCreated(ctx context.Context, repoID string, createdAt *time.Time) error {
	f.backfilled[repoID] = createdAt
	return nil
}

func (f *fakeUsers) InsertStub(ctx context.Context, repoID string, createdAt *time.Time) error {
	f.inserted[repoID] = createdAt
	return nil
}

type fakeOracle struct {
	resolved *time.Time
	err      error
}

func (f *fakeOracle) ResolveCreationDate(ctx context.Context, repoID string) (*time.Time, error) {
	return f.resolved, f.err
}

type fakeTopicStore struct {
	created []domain.Topic
}

func (f *fakeTopicStore) UpsertCreate(ctx context.Context, topic domain.Topic) (bool, error) {
	f.created = append(f.created, topic)
	return true, nil
}
func (f *fakeTopicStore) UpdateProjection(ctx context.Context, uri string, fields indexer.TopicProjection) error {
	return nil
}
func (f *fakeTopicStore) SoftDelete(ctx context.Context, uri string) error { return nil }

type fakeReplyStore struct{}

func (f *fakeReplyStore) CreateWithRootIncrement(ctx context.Context, reply domain.Reply) (bool, error) {
	return true, nil
}
func (f *fakeReplyStore) UpdateProjection(ctx context.Context, uri string, fields indexer.ReplyProjection) error {
	return nil
}
func (f *fakeReplyStore) SoftDeleteAndDecrement(ctx context.Context, uri, rootURI string) error {
	return nil
}

type fakeReactionStore struct{}

func (f *fakeReactionStore) CreateWithSubjectIncrement(ctx context.Context, reaction domain.Reaction) (bool, error) {
	return true, nil
}
func (f *fakeReactionStore) DeleteAndDecrement(ctx context.Context, uri string) error { return nil }

type fakeEdgeRecorder struct {
	edges []domain.InteractionEdge
}

func (f *fakeEdgeRecorder) RecordEdge(ctx context.Context, edge domain.InteractionEdge) error {
	f.edges = append(f.edges, edge)
	return nil
}

func newDispatcher(users *fakeUsers, oracle *fakeOracle, topicStore *fakeTopicStore) *dispatch.Dispatcher {
	return newDispatcherWithEdges(users, oracle, topicStore, nil, nil)
}

func newDispatcherWithEdges(users *fakeUsers, oracle *fakeOracle, topicStore *fakeTopicStore, edges *fakeEdgeRecorder, holdLabels []string) *dispatch.Dispatcher {
	var recorder dispatch.EdgeRecorder
	if edges != nil {
		recorder = edges
	}

	return dispatch.New(
		users,
		oracle,
		indexer.NewTopicIndexer(topicStore, nil),
		indexer.NewReplyIndexer(&fakeReplyStore{}, nil),
		indexer.NewReactionIndexer(&fakeReactionStore{}, nil),
		recorder,
		holdLabels,
		nil,
	)
}

func TestDispatchCreateTopicPostClassifiesTrustFromExistingRow(t *testing.T) {
	users := newFakeUsers()
	createdAt := time.Now().Add(-48 * time.Hour)
	users.exists["did:plc:alice"] = true
	users.accounts["did:plc:alice"] = &createdAt

	topicStore := &fakeTopicStore{}
	d := newDispatcher(users, &fakeOracle{}, topicStore)

	evt := collection.RecordEvent{
		Action:     domain.ActionCreate,
		DID:        "did:plc:alice",
		Collection: "social.barazo.topic.post",
		RKey:       "abc",
		Record: map[string]any{
			"title":     "hello",
			"content":   "world",
			"category":  "general",
			"community": "",
			"createdAt": time.Now().Format(time.RFC3339Nano),
		},
	}

	require.NoError(t, d.Dispatch(t.Context(), evt))
	require.Len(t, topicStore.created, 1)
	assert.Equal(t, domain.TrustTrusted, topicStore.created[0].TrustStatus)
}

func TestDispatchCreateInsertsStubWhenUserAbsent(t *testing.T) {
	users := newFakeUsers()
	resolved := time.Now().Add(-1 * time.Hour)
	oracle := &fakeOracle{resolved: &resolved}
	topicStore := &fakeTopicStore{}
	d := newDispatcher(users, oracle, topicStore)

	evt := collection.RecordEvent{
		Action:     domain.ActionCreate,
		DID:        "did:plc:new",
		Collection: "social.barazo.topic.post",
		RKey:       "abc",
		Record: map[string]any{
			"title":     "hello",
			"content":   "world",
			"category":  "general",
			"community": "",
			"createdAt": time.Now().Format(time.RFC3339Nano),
		},
	}

	require.NoError(t, d.Dispatch(t.Context(), evt))
	require.Len(t, topicStore.created, 1)
	assert.Equal(t, domain.TrustNew, topicStore.created[0].TrustStatus)
	assert.Contains(t, users.inserted, "did:plc:new")
}

func TestDispatchFailsOpenToTrustedOnOracleError(t *testing.T) {
	users := newFakeUsers()
	oracle := &fakeOracle{err: errors.New("directory unreachable")}
	topicStore := &fakeTopicStore{}
	d := newDispatcher(users, oracle, topicStore)

	evt := collection.RecordEvent{
		Action:     domain.ActionCreate,
		DID:        "did:plc:flaky",
		Collection: "social.barazo.topic.post",
		RKey:       "abc",
		Record: map[string]any{
			"title":     "hello",
			"content":   "world",
			"category":  "general",
			"community": "",
			"createdAt": time.Now().Format(time.RFC3339Nano),
		},
	}

	require.NoError(t, d.Dispatch(t.Context(), evt))
	require.Len(t, topicStore.created, 1)
	assert.Equal(t, domain.TrustTrusted, topicStore.created[0].TrustStatus)
}

func TestDispatchRejectsInvalidRecordWithoutError(t *testing.T) {
	users := newFakeUsers()
	topicStore := &fakeTopicStore{}
	d := newDispatcher(users, &fakeOracle{}, topicStore)

	evt := collection.RecordEvent{
		Action:     domain.ActionCreate,
		DID:        "did:plc:alice",
		Collection: "social.barazo.topic.post",
		RKey:       "abc",
		Record:     map[string]any{"title": "missing everything else"},
	}

	require.NoError(t, d.Dispatch(t.Context(), evt))
	assert.Empty(t, topicStore.created)
}

func TestDispatchCreateReplyRecordsReplyAndCoparticipationEdges(t *testing.T) {
	users := newFakeUsers()
	topicStore := &fakeTopicStore{}
	edges := &fakeEdgeRecorder{}
	d := newDispatcherWithEdges(users, &fakeOracle{}, topicStore, edges, nil)

	evt := collection.RecordEvent{
		Action:     domain.ActionCreate,
		DID:        "did:plc:replier",
		Collection: "social.barazo.topic.reply",
		RKey:       "xyz",
		Record: map[string]any{
			"content":   "I agree",
			"root":      map[string]any{"uri": "at://did:plc:rootauthor/social.barazo.topic.post/root", "cid": "croot"},
			"parent":    map[string]any{"uri": "at://did:plc:parentauthor/social.barazo.topic.reply/parent", "cid": "cparent"},
			"community": "c1",
			"createdAt": time.Now().Format(time.RFC3339Nano),
		},
	}

	require.NoError(t, d.Dispatch(t.Context(), evt))
	require.Len(t, edges.edges, 2)
	assert.Equal(t, domain.InteractionReply, edges.edges[0].Kind)
	assert.Equal(t, "did:plc:parentauthor", edges.edges[0].Target)
	assert.Equal(t, domain.InteractionTopicCoparticipant, edges.edges[1].Kind)
	assert.Equal(t, "did:plc:rootauthor", edges.edges[1].Target)
}

func TestDispatchCreateReplySkipsSelfLoopEdge(t *testing.T) {
	users := newFakeUsers()
	topicStore := &fakeTopicStore{}
	edges := &fakeEdgeRecorder{}
	d := newDispatcherWithEdges(users, &fakeOracle{}, topicStore, edges, nil)

	evt := collection.RecordEvent{
		Action:     domain.ActionCreate,
		DID:        "did:plc:author",
		Collection: "social.barazo.topic.reply",
		RKey:       "xyz",
		Record: map[string]any{
			"content":   "replying to myself",
			"root":      map[string]any{"uri": "at://did:plc:author/social.barazo.topic.post/root"},
			"parent":    map[string]any{"uri": "at://did:plc:author/social.barazo.topic.post/root"},
			"community": "c1",
			"createdAt": time.Now().Format(time.RFC3339Nano),
		},
	}

	require.NoError(t, d.Dispatch(t.Context(), evt))
	assert.Empty(t, edges.edges)
}

func TestDispatchCreateReactionRecordsEdge(t *testing.T) {
	users := newFakeUsers()
	topicStore := &fakeTopicStore{}
	edges := &fakeEdgeRecorder{}
	d := newDispatcherWithEdges(users, &fakeOracle{}, topicStore, edges, nil)

	evt := collection.RecordEvent{
		Action:     domain.ActionCreate,
		DID:        "did:plc:reactor",
		Collection: "social.barazo.interaction.reaction",
		RKey:       "xyz",
		Record: map[string]any{
			"subject":   map[string]any{"uri": "at://did:plc:subjectauthor/social.barazo.topic.post/root", "cid": "csubj"},
			"type":      "upvote",
			"community": "c1",
			"createdAt": time.Now().Format(time.RFC3339Nano),
		},
	}

	require.NoError(t, d.Dispatch(t.Context(), evt))
	require.Len(t, edges.edges, 1)
	assert.Equal(t, domain.InteractionReaction, edges.edges[0].Kind)
	assert.Equal(t, "did:plc:subjectauthor", edges.edges[0].Target)
}

func TestDispatchCreateTopicHoldsModerationOnConfiguredLabel(t *testing.T) {
	users := newFakeUsers()
	topicStore := &fakeTopicStore{}
	d := newDispatcherWithEdges(users, &fakeOracle{}, topicStore, nil, []string{"spam"})

	evt := collection.RecordEvent{
		Action:     domain.ActionCreate,
		DID:        "did:plc:alice",
		Collection: "social.barazo.topic.post",
		RKey:       "abc",
		Record: map[string]any{
			"title":     "hello",
			"content":   "world",
			"category":  "general",
			"community": "",
			"labels":    map[string]any{"values": []any{map[string]any{"val": "spam"}}},
			"createdAt": time.Now().Format(time.RFC3339Nano),
		},
	}

	require.NoError(t, d.Dispatch(t.Context(), evt))
	require.Len(t, topicStore.created, 1)
	assert.Equal(t, domain.ModerationHeld, topicStore.created[0].ModerationStatus)
}

func TestDispatchIgnoresUnknownCollection(t *testing.T) {
	users := newFakeUsers()
	topicStore := &fakeTopicStore{}
	d := newDispatcher(users, &fakeOracle{}, topicStore)

	evt := collection.RecordEvent{
		Action:     domain.ActionCreate,
		DID:        "did:plc:alice",
		Collection: "social.barazo.unrelated",
		RKey:       "abc",
	}

	require.NoError(t, d.Dispatch(t.Context(), evt))
	assert.Empty(t, topicStore.created)
}
