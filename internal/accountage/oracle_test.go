package accountage_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/accountage"
	"github.com/barazo-forum/barazo-api/internal/domain"
)

func TestResolveCreationDateReturnsEarliestEntry(t *testing.T) {
	earliest := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earliest.Add(48 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"createdAt": later.Format(time.RFC3339)},
			{"createdAt": earliest.Format(time.RFC3339)},
		})
	}))
	defer srv.Close()

	o := &accountage.Oracle{DirectoryRoot: srv.URL}

	got, err := o.ResolveCreationDate(t.Context(), "did:plc:abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(earliest))
}

func TestResolveCreationDateFailsOpenOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := &accountage.Oracle{DirectoryRoot: srv.URL}

	got, err := o.ResolveCreationDate(t.Context(), "did:plc:abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDetermineTrustStatusBoundary(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	exactly24h := now.Add(-24 * time.Hour)
	assert.Equal(t, domain.TrustTrusted, accountage.DetermineTrustStatus(&exactly24h, now))

	justUnder24h := now.Add(-(24*time.Hour - time.Minute))
	assert.Equal(t, domain.TrustNew, accountage.DetermineTrustStatus(&justUnder24h, now))

	assert.Equal(t, domain.TrustTrusted, accountage.DetermineTrustStatus(nil, now))
}
