package modaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/modaction"
)

type fakeStore struct {
	recorded []domain.ModAction
	banned   []string
	filters  []domain.AccountFilter
}

func (f *fakeStore) Record(ctx context.Context, action domain.ModAction) error {
	f.recorded = append(f.recorded, action)
	return nil
}

func (f *fakeStore) BannedCommunities(ctx context.Context, targetRepoID string) ([]string, error) {
	return f.banned, nil
}

func (f *fakeStore) UpsertAccountFilter(ctx context.Context, filter domain.AccountFilter) error {
	f.filters = append(f.filters, filter)
	return nil
}

type fakeCache struct {
	invalidated []string
	err         error
}

func (f *fakeCache) PublishInvalidation(ctx context.Context, cacheKey string) error {
	f.invalidated = append(f.invalidated, cacheKey)
	return f.err
}

type fakeAudit struct {
	recorded []domain.ModAction
	err      error
}

func (f *fakeAudit) RecordAction(ctx context.Context, action domain.ModAction) error {
	f.recorded = append(f.recorded, action)
	return f.err
}

func TestApplyUpsertsGlobalFilterAtTwoCommunities(t *testing.T) {
	store := &fakeStore{banned: []string{"general", "offtopic"}}
	cache := &fakeCache{}
	prop := modaction.New(store, cache, nil, nil)

	action := domain.ModAction{TargetRepoID: "did:plc:bad", CommunityID: "offtopic", Kind: domain.ModActionBan, CreatedAt: time.Now()}
	require.NoError(t, prop.Apply(t.Context(), action))

	require.Len(t, store.filters, 1)
	assert.Equal(t, "filtered", store.filters[0].Status)
	assert.Equal(t, []string{"account-filter:did:plc:bad"}, cache.invalidated)
}

func TestApplySkipsFilterBelowThreshold(t *testing.T) {
	store := &fakeStore{banned: []string{"general"}}
	cache := &fakeCache{}
	prop := modaction.New(store, cache, nil, nil)

	action := domain.ModAction{TargetRepoID: "did:plc:bad", CommunityID: "general", Kind: domain.ModActionBan}
	require.NoError(t, prop.Apply(t.Context(), action))

	assert.Empty(t, store.filters)
	assert.Empty(t, cache.invalidated)
}

func TestApplyCacheErrorIsNonFatal(t *testing.T) {
	store := &fakeStore{banned: []string{"a", "b"}}
	cache := &fakeCache{err: errors.New("broker unreachable")}
	prop := modaction.New(store, cache, nil, nil)

	action := domain.ModAction{TargetRepoID: "did:plc:bad", Kind: domain.ModActionBan}
	require.NoError(t, prop.Apply(t.Context(), action))
	assert.Len(t, store.filters, 1)
}

func TestApplyRecordsAuditTrail(t *testing.T) {
	store := &fakeStore{}
	cache := &fakeCache{}
	audit := &fakeAudit{}
	prop := modaction.New(store, cache, audit, nil)

	action := domain.ModAction{TargetRepoID: "did:plc:bad", CommunityID: "general", Kind: domain.ModActionBan}
	require.NoError(t, prop.Apply(t.Context(), action))

	require.Len(t, audit.recorded, 1)
	assert.Equal(t, action, audit.recorded[0])
}

func TestApplyAuditErrorIsNonFatal(t *testing.T) {
	store := &fakeStore{banned: []string{"a", "b"}}
	cache := &fakeCache{}
	audit := &fakeAudit{err: errors.New("mongo unreachable")}
	prop := modaction.New(store, cache, audit, nil)

	action := domain.ModAction{TargetRepoID: "did:plc:bad", Kind: domain.ModActionBan}
	require.NoError(t, prop.Apply(t.Context(), action))
	assert.Len(t, store.filters, 1)
}
