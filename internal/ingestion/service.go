// Package ingestion owns the live upstream subscription. Grounded on the
// reconnect-with-backoff websocket client shape of
// steveyegge-beads' coop.Watcher for the transport, and on the teacher's
// components/consumer/internal/bootstrap/consumer.go's start/stop service
// lifecycle for the surrounding Service.
package ingestion

import (
	"context"
	"sync"

	"github.com/barazo-forum/barazo-api/internal/collection"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// RecordDispatcher applies a validated record event.
type RecordDispatcher interface {
	Dispatch(ctx context.Context, evt collection.RecordEvent) error
}

// IdentityApplier applies one decoded identity event. Callers typically wrap
// identity.Handler.Handle in a small closure that unpacks the event's
// status/repo-id/handle fields, keeping ingestion free of a direct
// dependency on the identity package.
type IdentityApplier func(ctx context.Context, evt collection.IdentityEvent) error

// CursorStore persists the last processed event id.
type CursorStore interface {
	Save(ctx context.Context, id int64)
	Flush(ctx context.Context) error
}

// RepoRestorer restores the tracked-repo subscription at startup.
type RepoRestorer interface {
	Restore(ctx context.Context) error
}

// FirehoseClient is the upstream stream transport. Stream returns its
// channels immediately and delivers events on them until ctx is cancelled;
// it owns reconnection with backoff internally, mirroring the coop.Watcher
// contract.
type FirehoseClient interface {
	Stream(ctx context.Context) (records <-chan collection.RecordEvent, identities <-chan collection.IdentityEvent, errs <-chan error)
	Subscribe(ctx context.Context, repoIDs []string) error
	Unsubscribe(ctx context.Context, repoID string) error
}

// Status is the point-in-time lifecycle snapshot of the ingestion service.
type Status struct {
	Connected   bool
	LastEventID int64
}

// Service owns the live firehose subscription and applies events via the
// dispatcher/identity handler, saving the cursor only after each event is
// fully applied (at-least-once semantics across a crash).
type Service struct {
	tracker        RepoRestorer
	client         FirehoseClient
	dispatcher     RecordDispatcher
	identityHandle IdentityApplier
	cursor         CursorStore
	logger         ctxlog.Logger

	mu          sync.Mutex
	connected   bool
	lastEventID int64
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New constructs a Service. identityHandle is typically a bound
// identity.Handler method, adapted to IdentityApplier's signature.
func New(tracker RepoRestorer, client FirehoseClient, dispatcher RecordDispatcher, identityHandle IdentityApplier, cursor CursorStore, logger ctxlog.Logger) *Service {
	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Service{
		tracker:        tracker,
		client:         client,
		dispatcher:     dispatcher,
		identityHandle: identityHandle,
		cursor:         cursor,
		logger:         logger,
	}
}

// Start runs repo-tracker.restore(), then launches the background stream
// loop. Returns once the loop is launched, without waiting for the first
// event; the loop itself runs until Stop is called.
func (s *Service) Start(ctx context.Context) error {
	if err := s.tracker.Restore(ctx); err != nil {
		return err
	}

	streamCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.connected = true
	s.mu.Unlock()

	records, identities, errs := s.client.Stream(streamCtx)

	s.wg.Add(1)
	go s.loop(streamCtx, records, identities, errs)

	return nil
}

func (s *Service) loop(ctx context.Context, records <-chan collection.RecordEvent, identities <-chan collection.IdentityEvent, errs <-chan error) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, open := <-records:
			if !open {
				return
			}
			if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
				s.logger.Errorf("ingestion: dispatch record %d: %v", evt.ID, err)
				continue
			}
			s.recordProcessed(ctx, evt.ID)
		case evt, open := <-identities:
			if !open {
				return
			}
			if err := s.identityHandle(ctx, evt); err != nil {
				s.logger.Errorf("ingestion: handle identity %d: %v", evt.ID, err)
				continue
			}
			s.recordProcessed(ctx, evt.ID)
		case err, open := <-errs:
			if !open {
				continue
			}
			// Transport-level reconnection is the client's own
			// responsibility; this callback only logs.
			s.logger.Warnf("ingestion: transport error: %v", err)
		}
	}
}

func (s *Service) recordProcessed(ctx context.Context, id int64) {
	s.mu.Lock()
	s.lastEventID = id
	s.mu.Unlock()

	s.cursor.Save(ctx, id)
}

// Stop tears down the subscription and flushes the cursor. Idempotent.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	wasConnected := s.connected
	s.connected = false
	s.mu.Unlock()

	if !wasConnected {
		return nil
	}

	if cancel != nil {
		cancel()
	}

	s.wg.Wait()

	return s.cursor.Flush(ctx)
}

// Status returns the current lifecycle snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{Connected: s.connected, LastEventID: s.lastEventID}
}
