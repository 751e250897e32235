package ingestion_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/collection"
	"github.com/barazo-forum/barazo-api/internal/ingestion"
)

type fakeTracker struct{ restored bool }

func (f *fakeTracker) Restore(ctx context.Context) error {
	f.restored = true
	return nil
}

type fakeClient struct {
	records    chan collection.RecordEvent
	identities chan collection.IdentityEvent
	errs       chan error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		records:    make(chan collection.RecordEvent, 4),
		identities: make(chan collection.IdentityEvent, 4),
		errs:       make(chan error, 4),
	}
}

func (f *fakeClient) Stream(ctx context.Context) (<-chan collection.RecordEvent, <-chan collection.IdentityEvent, <-chan error) {
	return f.records, f.identities, f.errs
}
func (f *fakeClient) Subscribe(ctx context.Context, repoIDs []string) error { return nil }
func (f *fakeClient) Unsubscribe(ctx context.Context, repoID string) error { return nil }

type fakeDispatcher struct {
	mu   sync.Mutex
	seen []int64
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, evt collection.RecordEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, evt.ID)
	return nil
}

type fakeCursor struct {
	mu       sync.Mutex
	saved    []int64
	flushed  bool
}

func (f *fakeCursor) Save(ctx context.Context, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, id)
}

func (f *fakeCursor) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed = true
	return nil
}

func TestServiceStartProcessesRecordsAndSavesCursorAfter(t *testing.T) {
	tracker := &fakeTracker{}
	client := newFakeClient()
	dispatcher := &fakeDispatcher{}
	cursorStore := &fakeCursor{}

	svc := ingestion.New(tracker, client, dispatcher, func(ctx context.Context, evt collection.IdentityEvent) error {
		return nil
	}, cursorStore, nil)

	require.NoError(t, svc.Start(t.Context()))
	assert.True(t, tracker.restored)

	client.records <- collection.RecordEvent{ID: 42}

	require.Eventually(t, func() bool {
		cursorStore.mu.Lock()
		defer cursorStore.mu.Unlock()
		return len(cursorStore.saved) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int64(42), svc.Status().LastEventID)
	assert.True(t, svc.Status().Connected)

	require.NoError(t, svc.Stop(t.Context()))
	assert.False(t, svc.Status().Connected)
	assert.True(t, cursorStore.flushed)
}

func TestServiceStopIsIdempotent(t *testing.T) {
	tracker := &fakeTracker{}
	client := newFakeClient()
	dispatcher := &fakeDispatcher{}
	cursorStore := &fakeCursor{}

	svc := ingestion.New(tracker, client, dispatcher, func(ctx context.Context, evt collection.IdentityEvent) error {
		return nil
	}, cursorStore, nil)

	require.NoError(t, svc.Start(t.Context()))
	require.NoError(t, svc.Stop(t.Context()))
	require.NoError(t, svc.Stop(t.Context()))
}
