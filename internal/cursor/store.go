// Package cursor implements a durable, debounced firehose checkpoint. The
// pendingCursor/timer pair is touched from two code paths (ingestion
// callbacks and the timer callback) and is guarded by a single mutex,
// mirroring the "singleton state behind one mutex" shape of the teacher's
// connection wrappers (e.g. mredis.RedisConnection).
package cursor

import (
	"context"
	"sync"
	"time"

	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// Repository persists the singleton cursor row.
type Repository interface {
	Get(ctx context.Context) (*int64, error)
	Save(ctx context.Context, id int64) error
}

// Store debounces writes to Repository: Save buffers the highest id seen
// and schedules a write after Interval; repeated calls within the window
// coalesce to a single write of the highest id. Flush writes immediately.
type Store struct {
	repo     Repository
	interval time.Duration
	logger   ctxlog.Logger

	mu       sync.Mutex
	pending  *int64
	timer    *time.Timer
}

// NewStore constructs a Store with the given debounce interval (default 5s
// if zero is given).
func NewStore(repo Repository, interval time.Duration, logger ctxlog.Logger) *Store {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	if logger == nil {
		logger = ctxlog.NoneLogger{}
	}

	return &Store{repo: repo, interval: interval, logger: logger}
}

// Get returns the persisted cursor value, which may lag the in-memory
// pending value by up to one debounce interval.
func (s *Store) Get(ctx context.Context) (*int64, error) {
	return s.repo.Get(ctx)
}

// Save buffers id as the new highest-seen cursor and (re)schedules a
// debounced flush. Only the highest id observed within the window is ever
// written.
func (s *Store) Save(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil && id <= *s.pending {
		return
	}

	v := id
	s.pending = &v

	if s.timer != nil {
		s.timer.Stop()
	}

	s.timer = time.AfterFunc(s.interval, func() {
		if err := s.writePending(context.Background()); err != nil {
			s.logger.Warnf("cursor store: debounced write failed: %v", err)
		}
	})
}

// Flush cancels any pending timer and writes the highest-seen id
// immediately. It must be awaited on shutdown to guarantee the last
// observed id is durable.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.writePending(ctx)
}

func (s *Store) writePending(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	if pending == nil {
		return nil
	}

	if err := s.repo.Save(ctx, *pending); err != nil {
		return err
	}

	s.mu.Lock()
	if s.pending != nil && *s.pending == *pending {
		s.pending = nil
	}
	s.mu.Unlock()

	return nil
}
