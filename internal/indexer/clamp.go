// Package indexer implements the per-record-type state machines for
// topic, reply, and reaction records: transactional upsert plus aggregate
// maintenance. Grounded on other_examples' coves jetstream
// comment consumer (createComment/updateComment/deleteComment, the
// threading-reference immutability check, out-of-order tolerance) and the
// teacher's account.postgresql.go transaction + pgconn.PgError idiom, which
// the Postgres Store implementations in internal/adapters/postgres follow.
package indexer

import "time"

// maxFutureSkew and maxPastImplausibility bound the "plausible" window for
// a live event's claimed createdAt.
const (
	maxFutureSkew          = 5 * time.Minute
	maxPastImplausibility  = 5 * 365 * 24 * time.Hour
)

// ClampCreatedAt enforces a timestamp clamp: for live events (not
// backfill), a claimed createdAt in the future or implausibly far in the
// past is replaced with now. Backfill events pass through verbatim.
func ClampCreatedAt(claimed time.Time, live bool, now time.Time) time.Time {
	if !live {
		return claimed
	}

	if claimed.After(now.Add(maxFutureSkew)) {
		return now
	}

	if claimed.Before(now.Add(-maxPastImplausibility)) {
		return now
	}

	return claimed
}
