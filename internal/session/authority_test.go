package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/session"
)

type fakeKV struct {
	mu      sync.Mutex
	values  map[string]string
	getErr  error
	setErr  error
	delErr  error
	deleted []string
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}}
}

func (f *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value

	return nil
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]

	return v, ok, nil
}

func (f *fakeKV) Del(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	f.deleted = append(f.deleted, key)

	return nil
}

func newAuthority() (*session.Authority, *fakeKV, *fakeKV, *fakeKV) {
	state, sessions, tokens := newFakeKV(), newFakeKV(), newFakeKV()
	return session.New(state, sessions, tokens, session.Config{}, nil), state, sessions, tokens
}

func TestOAuthStateRoundTrip(t *testing.T) {
	auth, _, _, _ := newAuthority()
	ctx := t.Context()

	state, err := auth.BeginOAuthState(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	ok, err := auth.ConsumeOAuthState(ctx, state)
	require.NoError(t, err)
	assert.True(t, ok)

	// consuming twice fails: the state was deleted on first consumption.
	ok, err = auth.ConsumeOAuthState(ctx, state)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOAuthStateMissReturnsFalseNotError(t *testing.T) {
	auth, _, _, _ := newAuthority()

	ok, err := auth.ConsumeOAuthState(t.Context(), "never-issued")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateSessionAndValidateAccessToken(t *testing.T) {
	auth, _, _, _ := newAuthority()
	ctx := t.Context()

	sess, token, err := auth.CreateSession(ctx, "did:plc:alice", "alice.example", []string{"read", "write"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resolved, err := auth.ValidateAccessToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, sess.RepoID, resolved.RepoID)
	assert.Equal(t, "alice.example", resolved.Handle)
	assert.Equal(t, []string{"read", "write"}, resolved.Scopes)
}

func TestValidateAccessTokenMissReturnsNilNotError(t *testing.T) {
	auth, _, _, _ := newAuthority()

	sess, err := auth.ValidateAccessToken(t.Context(), "bogus-token")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestValidateAccessTokenTransportFailurePropagatesError(t *testing.T) {
	auth, _, _, tokens := newAuthority()
	tokens.getErr = errors.New("redis down")

	sess, err := auth.ValidateAccessToken(t.Context(), "anything")
	require.Error(t, err)
	assert.Nil(t, sess)
}

func TestValidateAccessTokenMissingSessionReturnsNil(t *testing.T) {
	auth, _, sessions, _ := newAuthority()
	ctx := t.Context()

	_, token, err := auth.CreateSession(ctx, "did:plc:bob", "bob.example", nil)
	require.NoError(t, err)

	// session expired/evicted out from under a still-valid token mapping.
	sessions.mu.Lock()
	sessions.values = map[string]string{}
	sessions.mu.Unlock()

	resolved, err := auth.ValidateAccessToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestRevokeInvalidatesAccessToken(t *testing.T) {
	auth, _, _, _ := newAuthority()
	ctx := t.Context()

	sess, token, err := auth.CreateSession(ctx, "did:plc:carol", "carol.example", nil)
	require.NoError(t, err)

	require.NoError(t, auth.Revoke(ctx, sess.RepoID))

	resolved, err := auth.ValidateAccessToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}
