package firehose

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barazo-forum/barazo-api/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(httpURL string) string {
	return strings.Replace(httpURL, "http://", "ws://", 1)
}

func TestStreamDeliversCommitAndIdentityEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		commit, _ := json.Marshal(wireEvent{
			Seq: 1, Did: "did:plc:alice", TimeUS: 100, Kind: "commit",
			Commit: &wireCommit{Operation: "create", Collection: "forum.topic.post", RKey: "abc", CID: "bafy1", Record: json.RawMessage(`{"title":"hi"}`)},
		})
		_ = conn.WriteMessage(websocket.TextMessage, commit)

		identity, _ := json.Marshal(wireEvent{
			Seq: 2, TimeUS: 200, Kind: "identity",
			Identity: &wireIdentity{Did: "did:plc:bob", Handle: "bob.test", Active: true},
		})
		_ = conn.WriteMessage(websocket.TextMessage, identity)

		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(wsURL(srv.URL), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	records, identities, _ := client.Stream(ctx)

	select {
	case evt := <-records:
		assert.Equal(t, int64(1), evt.ID)
		assert.Equal(t, domain.ActionCreate, evt.Action)
		assert.Equal(t, "did:plc:alice", evt.DID)
		assert.Equal(t, "bafy1", evt.CID)
		assert.Equal(t, "hi", evt.Record["title"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for record event")
	}

	select {
	case evt := <-identities:
		assert.Equal(t, "did:plc:bob", evt.DID)
		assert.Equal(t, "bob.test", evt.Handle)
		assert.Equal(t, domain.IdentityActive, evt.Status)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for identity event")
	}
}

func TestSubscribeAddsWantedDidsAndReconnects(t *testing.T) {
	connectCount := 0
	seenDids := make(chan []string, 2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connectCount++
		seenDids <- r.URL.Query()["wantedDids"]

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client := New(wsURL(srv.URL), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client.Stream(ctx)

	select {
	case dids := <-seenDids:
		assert.Empty(t, dids)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first connect")
	}

	require.NoError(t, client.Subscribe(ctx, []string{"did:plc:carol"}))

	select {
	case dids := <-seenDids:
		assert.Equal(t, []string{"did:plc:carol"}, dids)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reconnect after Subscribe")
	}
}

func TestStreamStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client := New(wsURL(srv.URL), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	records, identities, errs := client.Stream(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case _, ok := <-records:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("records channel did not close after cancel")
	}

	_, ok := <-identities
	assert.False(t, ok)
	_, ok = <-errs
	assert.False(t, ok)
}
