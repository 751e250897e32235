package indexer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/indexer"
)

type fakeTopicStore struct {
	mu       sync.Mutex
	topics   map[string]domain.Topic
	projects map[string]indexer.TopicProjection
	deleted  map[string]bool
}

func newFakeTopicStore() *fakeTopicStore {
	return &fakeTopicStore{
		topics:   map[string]domain.Topic{},
		projects: map[string]indexer.TopicProjection{},
		deleted:  map[string]bool{},
	}
}

func (f *fakeTopicStore) UpsertCreate(ctx context.Context, topic domain.Topic) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.topics[topic.URI]; exists {
		return false, nil
	}

	f.topics[topic.URI] = topic

	return true, nil
}

func (f *fakeTopicStore) UpdateProjection(ctx context.Context, uri string, fields indexer.TopicProjection) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.projects[uri] = fields

	return nil
}

func (f *fakeTopicStore) SoftDelete(ctx context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted[uri] = true

	return nil
}

func TestTopicIndexerCreateIsIdempotent(t *testing.T) {
	store := newFakeTopicStore()
	idx := indexer.NewTopicIndexer(store, nil)

	in := indexer.CreateTopicInput{
		URI:          "at://did:plc:alice/forum.topic.post/abc",
		AuthorRepoID: "did:plc:alice",
		Title:        "Hello",
		Content:      "World",
		CreatedAt:    time.Now(),
		Live:         true,
	}

	require.NoError(t, idx.Create(t.Context(), in))
	require.NoError(t, idx.Create(t.Context(), in))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.topics, 1)
}

func TestTopicIndexerCreateClampsFutureTimestamp(t *testing.T) {
	store := newFakeTopicStore()
	idx := indexer.NewTopicIndexer(store, nil)

	farFuture := time.Now().Add(48 * time.Hour)
	in := indexer.CreateTopicInput{
		URI:       "at://did:plc:alice/forum.topic.post/future",
		CreatedAt: farFuture,
		Live:      true,
	}

	require.NoError(t, idx.Create(t.Context(), in))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.WithinDuration(t, time.Now(), store.topics[in.URI].CreatedAt, 5*time.Second)
}

func TestTopicIndexerCreateSanitizesTitleAndContent(t *testing.T) {
	store := newFakeTopicStore()
	idx := indexer.NewTopicIndexer(store, nil)

	in := indexer.CreateTopicInput{
		URI:     "at://did:plc:alice/forum.topic.post/xyz",
		Title:   "line one\nline two",
		Content: "body‮text",
	}

	require.NoError(t, idx.Create(t.Context(), in))

	store.mu.Lock()
	defer store.mu.Unlock()
	got := store.topics[in.URI]
	assert.NotContains(t, got.Title, "\n")
	assert.NotContains(t, got.Content, "‮")
}

func TestTopicIndexerUpdateAndDelete(t *testing.T) {
	store := newFakeTopicStore()
	idx := indexer.NewTopicIndexer(store, nil)
	uri := "at://did:plc:alice/forum.topic.post/abc"

	require.NoError(t, idx.Update(t.Context(), uri, "new title", "new content", "general", nil, nil, "cid2"))
	require.NoError(t, idx.Delete(t.Context(), uri))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "new title", store.projects[uri].Title)
	assert.True(t, store.deleted[uri])
}
