// Package accountage resolves an author's account-creation timestamp from
// the external directory and classifies trust status from it. No
// casdoor-SDK call shape fits an arbitrary directory audit-log GET,
// so this adapter is hand-written against net/http — the one place in this
// module where stdlib is used by necessity rather than convenience (see
// DESIGN.md).
package accountage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
)

// NewTrustWindow is the age below which an account is classified "new".
const NewTrustWindow = 24 * time.Hour

// Oracle resolves account-creation timestamps via the directory's
// audit-log endpoint.
type Oracle struct {
	DirectoryRoot string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        ctxlog.Logger
}

type auditEntry struct {
	CreatedAt time.Time `json:"createdAt"`
}

// ResolveCreationDate fetches <directoryRoot>/<url-encoded-id>/log/audit and
// returns the earliest entry's timestamp. It returns (nil, nil) — not an
// error — on timeout, non-2xx, or malformed payload, since the caller
// fails open to "trusted" on any of these.
func (o *Oracle) ResolveCreationDate(ctx context.Context, repoID string) (*time.Time, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/%s/log/audit", o.DirectoryRoot, url.PathEscape(repoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil
	}

	client := o.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		o.logger().Warnf("account-age oracle: fetch %s: %v", repoID, err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.logger().Warnf("account-age oracle: %s returned status %d", repoID, resp.StatusCode)
		return nil, nil
	}

	var entries []auditEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil || len(entries) == 0 {
		o.logger().Warnf("account-age oracle: malformed audit payload for %s", repoID)
		return nil, nil
	}

	earliest := entries[0].CreatedAt
	for _, e := range entries[1:] {
		if e.CreatedAt.Before(earliest) {
			earliest = e.CreatedAt
		}
	}

	return &earliest, nil
}

// DetermineTrustStatus classifies an account as "new" iff its creation
// timestamp is known and less than NewTrustWindow old; an unknown age
// classifies as "trusted" (the oracle fails open).
func DetermineTrustStatus(createdAt *time.Time, now time.Time) domain.TrustStatus {
	if createdAt == nil {
		return domain.TrustTrusted
	}

	if now.Sub(*createdAt) < NewTrustWindow {
		return domain.TrustNew
	}

	return domain.TrustTrusted
}

func (o *Oracle) logger() ctxlog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return ctxlog.NoneLogger{}
}
