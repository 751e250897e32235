// Package firehose implements ingestion.FirehoseClient against a
// Jetstream-style JSON event stream over a websocket, the simplified
// firehose transport used by coves' jetstream consumers (rather than the
// raw CBOR/CAR repo-sync firehose, which those same consumers don't speak
// either). Reconnect-with-backoff is grounded on steveyegge-beads'
// coop.Watcher.
package firehose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/barazo-forum/barazo-api/internal/collection"
	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// errResubscribe signals connect() was interrupted by an intentional
// Subscribe/Unsubscribe-triggered reconnect, not a transport failure; it
// never reaches the errs channel.
var errResubscribe = errors.New("firehose: resubscribing")

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// wireEvent is the JSON envelope one Jetstream message arrives as.
type wireEvent struct {
	Seq      int64         `json:"seq"`
	Did      string        `json:"did"`
	TimeUS   int64         `json:"time_us"`
	Kind     string        `json:"kind"`
	Commit   *wireCommit   `json:"commit,omitempty"`
	Identity *wireIdentity `json:"identity,omitempty"`
}

type wireCommit struct {
	Rev        string          `json:"rev"`
	Operation  string          `json:"operation"`
	Collection string          `json:"collection"`
	RKey       string          `json:"rkey"`
	Record     json.RawMessage `json:"record,omitempty"`
	CID        string          `json:"cid,omitempty"`
}

type wireIdentity struct {
	Did     string `json:"did"`
	Handle  string `json:"handle"`
	SeqType string `json:"seq,omitempty"`
	Active  bool   `json:"active"`
	Status  string `json:"status,omitempty"`
}

// Client streams record and identity events from a Jetstream-compatible
// endpoint, reconnecting with exponential backoff on transport failure and
// on every Subscribe/Unsubscribe call (the wantedDids filter is only
// applied at connect time).
type Client struct {
	endpoint string
	logger   ctxlog.Logger

	mu       sync.Mutex
	repoIDs  map[string]struct{}
	conn     *websocket.Conn
	cursor   int64
	reconnCh chan struct{}
}

// New constructs a Client against a Jetstream-style endpoint (e.g.
// "wss://jetstream2.us-east.bsky.network/subscribe").
func New(endpoint string, logger ctxlog.Logger) *Client {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Client{
		endpoint: endpoint,
		logger:   logger,
		repoIDs:  make(map[string]struct{}),
		reconnCh: make(chan struct{}, 1),
	}
}

// Stream implements ingestion.FirehoseClient.
func (c *Client) Stream(ctx context.Context) (<-chan collection.RecordEvent, <-chan collection.IdentityEvent, <-chan error) {
	records := make(chan collection.RecordEvent, 256)
	identities := make(chan collection.IdentityEvent, 64)
	errs := make(chan error, 16)

	go func() {
		defer close(records)
		defer close(identities)
		defer close(errs)

		backoff := minBackoff

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			err := c.connect(ctx, records, identities)
			if ctx.Err() != nil {
				return
			}

			if errors.Is(err, errResubscribe) {
				backoff = minBackoff
				continue
			}

			if err != nil {
				select {
				case errs <- err:
				default:
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
				backoff = min(backoff*2, maxBackoff)
			}
		}
	}()

	return records, identities, errs
}

func (c *Client) connect(ctx context.Context, records chan<- collection.RecordEvent, identities chan<- collection.IdentityEvent) error {
	u, err := c.dialURL()
	if err != nil {
		return fmt.Errorf("firehose: build url: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("firehose: dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	stop := make(chan struct{})
	defer close(stop)

	resubscribing := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-c.reconnCh:
			close(resubscribing)
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-resubscribing:
				return errResubscribe
			default:
				return fmt.Errorf("firehose: read: %w", err)
			}
		}

		var evt wireEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			c.logger.Warnf("firehose: malformed event: %v", err)
			continue
		}

		c.mu.Lock()
		c.cursor = evt.TimeUS
		c.mu.Unlock()

		switch evt.Kind {
		case "commit":
			if evt.Commit == nil {
				continue
			}
			select {
			case records <- toRecordEvent(evt):
			case <-ctx.Done():
				return nil
			}
		case "identity":
			if evt.Identity == nil {
				continue
			}
			select {
			case identities <- toIdentityEvent(evt):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func toRecordEvent(evt wireEvent) collection.RecordEvent {
	var record map[string]any
	if len(evt.Commit.Record) > 0 {
		_ = json.Unmarshal(evt.Commit.Record, &record)
	}

	return collection.RecordEvent{
		ID:         evt.Seq,
		Action:     domain.RecordAction(evt.Commit.Operation),
		DID:        evt.Did,
		Rev:        evt.Commit.Rev,
		Collection: evt.Commit.Collection,
		RKey:       evt.Commit.RKey,
		Record:     record,
		CID:        evt.Commit.CID,
		Live:       true,
	}
}

func toIdentityEvent(evt wireEvent) collection.IdentityEvent {
	status := domain.IdentityActive
	if evt.Identity.Status != "" {
		status = domain.IdentityStatus(evt.Identity.Status)
	} else if !evt.Identity.Active {
		status = domain.IdentityTakendown
	}

	return collection.IdentityEvent{
		ID:       evt.Seq,
		DID:      evt.Identity.Did,
		Handle:   evt.Identity.Handle,
		IsActive: evt.Identity.Active,
		Status:   status,
	}
}

// dialURL builds the subscribe URL with the current wantedDids filter.
func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	dids := make([]string, 0, len(c.repoIDs))
	for d := range c.repoIDs {
		dids = append(dids, d)
	}
	cursor := c.cursor
	c.mu.Unlock()

	q := u.Query()
	for _, d := range dids {
		q.Add("wantedDids", d)
	}
	if cursor > 0 {
		q.Set("cursor", fmt.Sprintf("%d", cursor))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Subscribe implements ingestion.FirehoseClient: adds repoIDs to the
// wantedDids filter and forces a reconnect to apply it.
func (c *Client) Subscribe(ctx context.Context, repoIDs []string) error {
	c.mu.Lock()
	for _, id := range repoIDs {
		c.repoIDs[id] = struct{}{}
	}
	c.mu.Unlock()

	c.forceReconnect()

	return nil
}

// Unsubscribe implements ingestion.FirehoseClient.
func (c *Client) Unsubscribe(ctx context.Context, repoID string) error {
	c.mu.Lock()
	delete(c.repoIDs, repoID)
	c.mu.Unlock()

	c.forceReconnect()

	return nil
}

func (c *Client) forceReconnect() {
	select {
	case c.reconnCh <- struct{}{}:
	default:
	}
}
